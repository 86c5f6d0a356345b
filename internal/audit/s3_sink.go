package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"interview-question-bank/internal/config"
	"interview-question-bank/internal/models"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink archives each record as audit/<target>/<job_id>.json.
type S3Sink struct {
	client objectPutter
	bucket string
}

// NewS3Sink builds a sink from the AUDIT_S3_* settings.
func NewS3Sink(ctx context.Context, cfg config.Config) (*S3Sink, error) {
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &S3Sink{client: client, bucket: cfg.AuditS3Bucket}, nil
}

func newS3Client(ctx context.Context, cfg config.Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AuditS3Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AuditS3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AuditS3Endpoint)
		}
		o.UsePathStyle = cfg.AuditS3PathStyle
	}), nil
}

func (s *S3Sink) Append(ctx context.Context, rec models.AuditRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(rec)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put audit object: %w", err)
	}
	return nil
}

func objectKey(rec models.AuditRecord) string {
	return fmt.Sprintf("audit/%s/%s.json", sanitizeTarget(rec.Target), rec.JobID)
}
