package mongo

import (
	"time"

	"github.com/google/uuid"

	"interview-question-bank/internal/models"
)

type jobDoc struct {
	ID        string         `bson:"_id"`
	Type      string         `bson:"type"`
	Payload   map[string]any `bson:"payload"`
	Status    string         `bson:"status"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

func toJobDoc(j models.Job) jobDoc {
	return jobDoc{
		ID:        j.ID,
		Type:      string(j.Type),
		Payload:   j.Payload,
		Status:    string(j.Status),
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

func fromJobDoc(d jobDoc) models.Job {
	payload := d.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return models.Job{
		ID:        d.ID,
		Type:      models.JobType(d.Type),
		Payload:   payload,
		Status:    models.JobStatus(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type topicDoc struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d topicDoc) model() models.Topic {
	return models.Topic{ID: d.ID, Title: d.Title, CreatedAt: d.CreatedAt.UTC()}
}

type questionDoc struct {
	ID         string    `bson:"_id"`
	TopicID    string    `bson:"topic_id"`
	JobID      string    `bson:"job_id"`
	Position   string    `bson:"position"`
	Language   string    `bson:"language"`
	Text       string    `bson:"text"`
	Answer     string    `bson:"answer"`
	Difficulty string    `bson:"difficulty"`
	CreatedAt  time.Time `bson:"created_at"`
}

func toQuestionDoc(q models.Question) questionDoc {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	return questionDoc{
		ID:         q.ID,
		TopicID:    q.TopicID,
		JobID:      q.JobID,
		Position:   string(q.Position),
		Language:   q.Language,
		Text:       q.Text,
		Answer:     q.Answer,
		Difficulty: q.Difficulty,
		CreatedAt:  q.CreatedAt,
	}
}

func (d questionDoc) model() models.Question {
	return models.Question{
		ID:         d.ID,
		TopicID:    d.TopicID,
		JobID:      d.JobID,
		Position:   models.Position(d.Position),
		Language:   d.Language,
		Text:       d.Text,
		Answer:     d.Answer,
		Difficulty: d.Difficulty,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}

type auditDoc struct {
	Target string             `bson:"target"`
	JobID  string             `bson:"job_id"`
	Event  string             `bson:"event"`
	Record models.AuditRecord `bson:"record"`
	TS     time.Time          `bson:"ts"`
}
