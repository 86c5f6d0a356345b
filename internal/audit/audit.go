// Package audit writes generation audit records to named targets.
package audit

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"interview-question-bank/internal/models"
	"interview-question-bank/internal/telemetry"
)

// TargetQuestionGeneration is the audit target for completed question requests.
const TargetQuestionGeneration = "question-generation"

// Sink persists audit records.
type Sink interface {
	Append(ctx context.Context, rec models.AuditRecord) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec models.AuditRecord) error

func (f SinkFunc) Append(ctx context.Context, rec models.AuditRecord) error {
	return f(ctx, rec)
}

// Multi appends to every sink and joins their errors.
type Multi []Sink

func (m Multi) Append(ctx context.Context, rec models.AuditRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BestEffort records to a sink and never reports failure to the caller.
// Failures are logged and counted.
type BestEffort struct {
	sink Sink
	log  zerolog.Logger
}

// NewBestEffort wraps sink. A nil sink records nothing.
func NewBestEffort(sink Sink, log zerolog.Logger) *BestEffort {
	return &BestEffort{sink: sink, log: log}
}

// Record appends rec, swallowing any error.
func (b *BestEffort) Record(ctx context.Context, rec models.AuditRecord) {
	if b == nil || b.sink == nil {
		return
	}
	if err := b.sink.Append(ctx, rec); err != nil {
		telemetry.AuditFailures.Inc()
		b.log.Warn().Err(err).
			Str("target", rec.Target).
			Str("job_id", rec.JobID).
			Msg("audit append failed, continuing")
	}
}
