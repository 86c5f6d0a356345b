package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"interview-question-bank/internal/models"
	"interview-question-bank/internal/store"
)

func TestJobDocRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	job := models.Job{
		ID:        "j1",
		Type:      models.JobTypeQuestionRequest,
		Payload:   map[string]any{"topic_id": "t1", "limit": 5},
		Status:    models.StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}

	raw, err := bson.Marshal(toJobDoc(job))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var d jobDoc
	if err := bson.Unmarshal(raw, &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := fromJobDoc(d)
	if got.ID != "j1" || got.Type != models.JobTypeQuestionRequest || got.Status != models.StatusNew {
		t.Fatalf("unexpected job %+v", got)
	}
	if got.Payload["topic_id"] != "t1" {
		t.Fatalf("payload lost: %+v", got.Payload)
	}
	p, err := models.DecodeQuestionRequestPayload(got.Payload)
	if err != nil || p.Limit != 5 {
		t.Fatalf("payload limit not decodable: %+v err=%v", p, err)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created_at mismatch: %s", got.CreatedAt)
	}
}

func TestFromJobDocDefaultsPayload(t *testing.T) {
	got := fromJobDoc(jobDoc{ID: "j2", Type: "bogus", Status: "new"})
	if got.Payload == nil {
		t.Fatalf("expected empty payload map")
	}
}

func TestQuestionFilter(t *testing.T) {
	f := questionFilter(store.QuestionFilter{TopicID: "t1", Position: models.PositionSenior})
	if len(f) != 2 || f["topic_id"] != "t1" || f["position"] != "senior" {
		t.Fatalf("unexpected filter %v", f)
	}
	if len(questionFilter(store.QuestionFilter{})) != 0 {
		t.Fatalf("empty filter must match everything")
	}
}

func TestToQuestionDocAssignsID(t *testing.T) {
	d := toQuestionDoc(models.Question{Text: "What is a slice?"})
	if d.ID == "" || d.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", d)
	}
}
