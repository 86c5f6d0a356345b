package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"interview-question-bank/internal/audit"
	"interview-question-bank/internal/generator"
	"interview-question-bank/internal/models"
)

type TopicGetter interface {
	GetTopic(ctx context.Context, id string) (models.Topic, error)
}

// QuestionRequestHandler generates questions for one question-request job.
type QuestionRequestHandler struct {
	topics TopicGetter
	gen    generator.Generator
	audit  *audit.BestEffort
	log    zerolog.Logger
	now    func() time.Time
}

func NewQuestionRequestHandler(topics TopicGetter, gen generator.Generator, rec *audit.BestEffort, log zerolog.Logger) *QuestionRequestHandler {
	return &QuestionRequestHandler{
		topics: topics,
		gen:    gen,
		audit:  rec,
		log:    log,
		now:    time.Now,
	}
}

// Handle matches the Handler signature.
func (h *QuestionRequestHandler) Handle(ctx context.Context, job models.Job) error {
	payload, err := models.DecodeQuestionRequestPayload(job.Payload)
	if err != nil {
		return err
	}
	topic, err := h.topics.GetTopic(ctx, payload.TopicID)
	if err != nil {
		return fmt.Errorf("resolve topic %q: %w", payload.TopicID, err)
	}

	req := models.GenerationRequest{
		TopicID:   topic.ID,
		Topic:     topic.Title,
		Position:  payload.Position,
		Language:  payload.Language,
		Limit:     payload.Limit,
		JobID:     job.ID,
		Timestamp: h.now().UTC(),
	}
	if err := req.Validate(); err != nil {
		return err
	}

	if err := h.gen.Generate(ctx, req); err != nil {
		return fmt.Errorf("generate questions: %w", err)
	}

	h.audit.Record(ctx, models.AuditRecord{
		Target:    audit.TargetQuestionGeneration,
		Event:     "questions_generated",
		JobID:     job.ID,
		TopicID:   topic.ID,
		Topic:     topic.Title,
		Position:  req.Position,
		Language:  req.Language,
		Limit:     req.Limit,
		Timestamp: req.Timestamp,
	})
	h.log.Debug().Str("job_id", job.ID).Str("topic", topic.Title).Msg("question request handled")
	return nil
}
