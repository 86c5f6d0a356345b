package producer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-question-bank/internal/models"
	"interview-question-bank/internal/store"
)

type memJobs struct {
	mu      sync.Mutex
	created []models.Job
	failAt  int
	err     error
}

func (m *memJobs) CreateJob(_ context.Context, p store.CreateJobParams) (models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil && len(m.created) == m.failAt {
		return models.Job{}, m.err
	}
	now := time.Now().UTC()
	job := models.Job{
		ID:        fmt.Sprintf("j%d", len(m.created)+1),
		Type:      p.Type,
		Payload:   p.Payload,
		Status:    p.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.created = append(m.created, job)
	return job, nil
}

type memTopics struct {
	topics []models.Topic
	err    error
	calls  int
}

func (m *memTopics) ListTopics(context.Context) ([]models.Topic, error) {
	m.calls++
	return m.topics, m.err
}

type pushed struct {
	item  models.QueueItem
	queue string
}

type memQueue struct {
	mu     sync.Mutex
	pushes []pushed
	err    error
}

func (m *memQueue) Push(_ context.Context, item models.QueueItem, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.pushes = append(m.pushes, pushed{item: item, queue: name})
	return int64(len(m.pushes)), nil
}

func newService(jobs *memJobs, topics *memTopics, q *memQueue) *Service {
	return NewService(jobs, topics, q, Options{}, zerolog.Nop())
}

func TestFanOutOneJobPerTopic(t *testing.T) {
	jobs, topics, q := &memJobs{}, &memTopics{}, &memQueue{}
	svc := newService(jobs, topics, q)

	out, err := svc.ProcessQuestionRequest(context.Background(), QuestionRequest{
		Topics:   []string{"t1", "t2", "t3"},
		Limit:    3,
		Position: models.PositionSenior,
		Language: "go",
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Len(t, q.pushes, 3)
	assert.Zero(t, topics.calls, "explicit topics must not hit the topic lookup")

	for i, job := range out {
		assert.Equal(t, models.JobTypeQuestionRequest, job.Type)
		assert.Equal(t, models.StatusNew, job.Status)
		assert.Equal(t, fmt.Sprintf("t%d", i+1), job.Payload["topic_id"])
		assert.Equal(t, 3, job.Payload["limit"])

		assert.Equal(t, "default", q.pushes[i].queue)
		assert.Equal(t, job.ID, q.pushes[i].item.ID)
		assert.Equal(t, job.Type, q.pushes[i].item.Type)
	}
}

func TestEmptyTopicsMeansAllWithDefaultLimit(t *testing.T) {
	jobs, q := &memJobs{}, &memQueue{}
	topics := &memTopics{topics: []models.Topic{{ID: "t1", Title: "Arrays"}, {ID: "t2", Title: "Recursion"}}}
	svc := newService(jobs, topics, q)

	out, err := svc.ProcessQuestionRequest(context.Background(), QuestionRequest{
		Position: models.PositionJunior,
		Language: "javascript",
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, topics.calls)
	for _, job := range out {
		assert.Equal(t, models.DefaultQuestionLimit, job.Payload["limit"])
	}
}

func TestAllTopicsScenario(t *testing.T) {
	jobs, q := &memJobs{}, &memQueue{}
	topics := &memTopics{topics: []models.Topic{{ID: "t1", Title: "Arrays"}, {ID: "t2", Title: "Recursion"}}}
	svc := newService(jobs, topics, q)

	out, err := svc.ProcessQuestionRequest(context.Background(), QuestionRequest{
		Limit:    5,
		Position: models.PositionJunior,
		Language: "javascript",
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, q.pushes, 2)

	want := []map[string]any{
		{"topic_id": "t1", "limit": 5, "position": "junior", "language": "javascript"},
		{"topic_id": "t2", "limit": 5, "position": "junior", "language": "javascript"},
	}
	for i := range out {
		assert.Equal(t, want[i], out[i].Payload)
		assert.Equal(t, want[i], q.pushes[i].item.Payload)
		assert.Equal(t, models.StatusNew, out[i].Status)
	}
}

func TestCustomQueueName(t *testing.T) {
	q := &memQueue{}
	svc := NewService(&memJobs{}, &memTopics{}, q, Options{QueueName: "questions"}, zerolog.Nop())
	_, err := svc.ProcessQuestionRequest(context.Background(), QuestionRequest{Topics: []string{"t1"}, Language: "go"})
	require.NoError(t, err)
	require.Len(t, q.pushes, 1)
	assert.Equal(t, "questions", q.pushes[0].queue)
}

func TestPartialFailureKeepsCommittedJobs(t *testing.T) {
	boom := errors.New("db down")
	jobs := &memJobs{failAt: 1, err: boom}
	q := &memQueue{}
	svc := newService(jobs, &memTopics{}, q)

	out, err := svc.ProcessQuestionRequest(context.Background(), QuestionRequest{
		Topics:   []string{"t1", "t2", "t3"},
		Position: models.PositionMiddle,
		Language: "python",
	})
	require.ErrorIs(t, err, boom)
	require.Len(t, out, 1)
	assert.Len(t, q.pushes, 1, "first job stays queued")
}

func TestPushFailurePropagates(t *testing.T) {
	boom := errors.New("redis down")
	svc := newService(&memJobs{}, &memTopics{}, &memQueue{err: boom})
	out, err := svc.ProcessQuestionRequest(context.Background(), QuestionRequest{Topics: []string{"t1"}, Language: "go"})
	require.ErrorIs(t, err, boom)
	assert.Len(t, out, 1)
}

func TestTopicLookupFailure(t *testing.T) {
	boom := errors.New("lookup down")
	jobs := &memJobs{}
	svc := newService(jobs, &memTopics{err: boom}, &memQueue{})
	_, err := svc.ProcessQuestionRequest(context.Background(), QuestionRequest{Language: "go"})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, jobs.created)
}
