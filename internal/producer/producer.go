// Package producer turns a question request into one queued job per topic.
package producer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"interview-question-bank/internal/models"
	"interview-question-bank/internal/queue"
	"interview-question-bank/internal/store"
	"interview-question-bank/internal/telemetry"
)

type JobCreator interface {
	CreateJob(ctx context.Context, p store.CreateJobParams) (models.Job, error)
}

type TopicLister interface {
	ListTopics(ctx context.Context) ([]models.Topic, error)
}

type Pusher interface {
	Push(ctx context.Context, item models.QueueItem, name string) (int64, error)
}

// QuestionRequest asks for questions on the given topics. An empty Topics
// list means every known topic.
type QuestionRequest struct {
	Topics   []string        `json:"topics"`
	Limit    int             `json:"limit"`
	Position models.Position `json:"position"`
	Language string          `json:"language"`
}

type Options struct {
	QueueName    string
	DefaultLimit int
}

type Service struct {
	jobs   JobCreator
	topics TopicLister
	queue  Pusher
	opts   Options
	log    zerolog.Logger
}

func NewService(jobs JobCreator, topics TopicLister, q Pusher, opts Options, log zerolog.Logger) *Service {
	if opts.QueueName == "" {
		opts.QueueName = queue.DefaultName
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = models.DefaultQuestionLimit
	}
	return &Service{jobs: jobs, topics: topics, queue: q, opts: opts, log: log}
}

// ProcessQuestionRequest creates and enqueues one question-request job per
// topic, in order. On failure the jobs already created are returned with the
// error; they stay persisted and queued.
func (s *Service) ProcessQuestionRequest(ctx context.Context, req QuestionRequest) ([]models.Job, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}

	topicIDs := req.Topics
	if len(topicIDs) == 0 {
		topics, err := s.topics.ListTopics(ctx)
		if err != nil {
			return nil, fmt.Errorf("list topics: %w", err)
		}
		topicIDs = make([]string, 0, len(topics))
		for _, t := range topics {
			topicIDs = append(topicIDs, t.ID)
		}
	}
	telemetry.QuestionRequests.Inc()

	jobs := make([]models.Job, 0, len(topicIDs))
	for _, topicID := range topicIDs {
		payload := models.QuestionRequestPayload{
			TopicID:  topicID,
			Limit:    limit,
			Position: req.Position,
			Language: req.Language,
		}
		job, err := s.jobs.CreateJob(ctx, store.CreateJobParams{
			Type:    models.JobTypeQuestionRequest,
			Payload: payload.Map(),
			Status:  models.StatusNew,
		})
		if err != nil {
			return jobs, fmt.Errorf("create job for topic %s: %w", topicID, err)
		}
		jobs = append(jobs, job)

		depth, err := s.queue.Push(ctx, job.Item(), s.opts.QueueName)
		if err != nil {
			return jobs, fmt.Errorf("enqueue job %s: %w", job.ID, err)
		}
		telemetry.JobsEnqueued.Inc()
		telemetry.QueueDepthGauge.Set(float64(depth))
		s.log.Debug().Str("job_id", job.ID).Str("topic_id", topicID).Int64("depth", depth).Msg("job enqueued")
	}

	s.log.Info().
		Int("jobs", len(jobs)).
		Int("limit", limit).
		Str("position", string(req.Position)).
		Str("language", req.Language).
		Msg("question request accepted")
	return jobs, nil
}
