package worker

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-question-bank/internal/audit"
	"interview-question-bank/internal/models"
	"interview-question-bank/internal/store"
)

type memTopics map[string]models.Topic

func (m memTopics) GetTopic(_ context.Context, id string) (models.Topic, error) {
	t, ok := m[id]
	if !ok {
		return models.Topic{}, store.ErrTopicNotFound
	}
	return t, nil
}

type fakeGenerator struct {
	got []models.GenerationRequest
	err error
}

func (g *fakeGenerator) Generate(_ context.Context, req models.GenerationRequest) error {
	g.got = append(g.got, req)
	return g.err
}

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newTestHandler(gen *fakeGenerator, sink audit.Sink, log zerolog.Logger) *QuestionRequestHandler {
	h := NewQuestionRequestHandler(
		memTopics{"t1": {ID: "t1", Title: "Arrays"}},
		gen,
		audit.NewBestEffort(sink, log),
		log,
	)
	h.now = func() time.Time { return fixedNow }
	return h
}

func TestQuestionRequestHandlerGeneratesAndAudits(t *testing.T) {
	gen := &fakeGenerator{}
	var records []models.AuditRecord
	sink := audit.SinkFunc(func(_ context.Context, rec models.AuditRecord) error {
		records = append(records, rec)
		return nil
	})
	h := newTestHandler(gen, sink, zerolog.Nop())

	require.NoError(t, h.Handle(context.Background(), questionJob("j1")))

	require.Len(t, gen.got, 1)
	assert.Equal(t, models.GenerationRequest{
		TopicID:   "t1",
		Topic:     "Arrays",
		Position:  models.PositionJunior,
		Language:  "javascript",
		Limit:     5,
		JobID:     "j1",
		Timestamp: fixedNow,
	}, gen.got[0])

	require.Len(t, records, 1)
	assert.Equal(t, audit.TargetQuestionGeneration, records[0].Target)
	assert.Equal(t, "j1", records[0].JobID)
	assert.Equal(t, "Arrays", records[0].Topic)
	assert.Equal(t, fixedNow, records[0].Timestamp)
}

func TestQuestionRequestHandlerSucceedsWhenAuditFails(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	sink := audit.SinkFunc(func(context.Context, models.AuditRecord) error {
		return errors.New("audit disk unavailable")
	})
	h := newTestHandler(&fakeGenerator{}, sink, log)

	require.NoError(t, h.Handle(context.Background(), questionJob("j1")))
	assert.Contains(t, buf.String(), "audit disk unavailable")
}

func TestQuestionRequestHandlerMissingTopic(t *testing.T) {
	gen := &fakeGenerator{}
	h := newTestHandler(gen, nil, zerolog.Nop())
	job := questionJob("j1")
	job.Payload["topic_id"] = "gone"

	err := h.Handle(context.Background(), job)
	require.ErrorIs(t, err, store.ErrTopicNotFound)
	assert.Empty(t, gen.got)
}

func TestQuestionRequestHandlerValidationJoinsProblems(t *testing.T) {
	gen := &fakeGenerator{}
	h := newTestHandler(gen, nil, zerolog.Nop())
	job := questionJob("j1")
	job.Payload["position"] = "wizard"
	job.Payload["language"] = ""
	job.Payload["limit"] = 0

	err := h.Handle(context.Background(), job)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 3)
	assert.Contains(t, err.Error(), ", language is required, ")
	assert.Empty(t, gen.got, "generator must not run on invalid input")
}

func TestQuestionRequestHandlerGeneratorErrorFailsJob(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("invalid generated content")}
	st := newRecordingStore(questionJob("j1"))
	p := NewProcessor(st, &fakeQueue{}, zerolog.Nop())
	h := newTestHandler(gen, nil, zerolog.Nop())
	require.NoError(t, p.RegisterHandler(models.JobTypeQuestionRequest, h.Handle))

	assert.False(t, p.ProcessJob(context.Background(), questionJob("j1")))
	assert.Equal(t, []models.JobStatus{models.StatusProcessing, models.StatusFailed}, st.history("j1"))
}
