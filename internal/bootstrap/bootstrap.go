// Package bootstrap builds the backends shared by the api and worker
// binaries from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"interview-question-bank/internal/audit"
	"interview-question-bank/internal/config"
	"interview-question-bank/internal/generator"
	"interview-question-bank/internal/models"
	"interview-question-bank/internal/store"
	mongostore "interview-question-bank/internal/store/mongo"
)

// Repository is implemented by both the Postgres and the MongoDB store.
type Repository interface {
	CreateJob(ctx context.Context, p store.CreateJobParams) (models.Job, error)
	GetJob(ctx context.Context, id string) (models.Job, error)
	UpdateJobStatus(ctx context.Context, id string, status models.JobStatus) (models.Job, error)
	DeleteJob(ctx context.Context, id string) (models.Job, error)
	ListJobs(ctx context.Context, jobType models.JobType, status models.JobStatus) ([]models.Job, error)
	CreateTopic(ctx context.Context, title string) (models.Topic, error)
	GetTopic(ctx context.Context, id string) (models.Topic, error)
	ListTopics(ctx context.Context) ([]models.Topic, error)
	SaveQuestions(ctx context.Context, questions []models.Question) error
	ListQuestions(ctx context.Context, f store.QuestionFilter) ([]models.Question, error)
	AppendAudit(ctx context.Context, rec models.AuditRecord) error
	Close()
}

var (
	_ Repository = (*store.Store)(nil)
	_ Repository = (*mongostore.Store)(nil)
)

// OpenStore connects to the configured store driver and applies its schema.
func OpenStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (Repository, error) {
	switch cfg.StoreDriver {
	case "mongo":
		st, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		log.Info().Str("database", cfg.MongoDatabase).Msg("mongo store ready")
		return st, nil
	case "postgres", "":
		st, err := store.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := st.RunMigrations(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		log.Info().Msg("postgres store ready")
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// NewLLM returns the completion backend named by AI_PROVIDER.
func NewLLM(ctx context.Context, cfg config.Config) (generator.LLM, error) {
	switch cfg.AIProvider {
	case "gemini":
		return generator.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.AIModel)
	case "openai", "":
		return generator.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.AIModel)
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.AIProvider)
	}
}

// AuditSinks fans audit records out to the local file, the store's audit
// table and, when a bucket is configured, S3. The returned func closes the
// file sink.
func AuditSinks(ctx context.Context, cfg config.Config, repo Repository) (audit.Sink, func() error, error) {
	file := audit.NewFileSink(cfg.AuditDir)
	sinks := audit.Multi{file, audit.SinkFunc(repo.AppendAudit)}
	if cfg.AuditS3Bucket != "" {
		s3, err := audit.NewS3Sink(ctx, cfg)
		if err != nil {
			_ = file.Close()
			return nil, nil, err
		}
		sinks = append(sinks, s3)
	}
	return sinks, file.Close, nil
}
