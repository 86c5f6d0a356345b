package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Position is the experience level questions are calibrated for.
type Position string

const (
	PositionIntern  Position = "intern"
	PositionFresher Position = "fresher"
	PositionJunior  Position = "junior"
	PositionMiddle  Position = "middle"
	PositionSenior  Position = "senior"
	PositionExpert  Position = "expert"
)

// Positions lists every level from least to most experienced.
var Positions = []Position{
	PositionIntern,
	PositionFresher,
	PositionJunior,
	PositionMiddle,
	PositionSenior,
	PositionExpert,
}

func (p Position) Valid() bool {
	for _, v := range Positions {
		if v == p {
			return true
		}
	}
	return false
}

// DefaultQuestionLimit applies when a request does not specify a limit.
const DefaultQuestionLimit = 10

// Topic is a subject area questions are generated for.
type Topic struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// QuestionRequestPayload is the payload of a question-request job.
type QuestionRequestPayload struct {
	TopicID  string   `json:"topic_id"`
	Limit    int      `json:"limit"`
	Position Position `json:"position"`
	Language string   `json:"language"`
}

// Map renders the payload in the generic form stored on jobs and queue items.
func (p QuestionRequestPayload) Map() map[string]any {
	return map[string]any{
		"topic_id": p.TopicID,
		"limit":    p.Limit,
		"position": string(p.Position),
		"language": p.Language,
	}
}

// DecodeQuestionRequestPayload reads a question-request payload back from a
// job. Numbers decoded from JSON arrive as float64, so this round-trips
// through encoding/json rather than asserting types by hand.
func DecodeQuestionRequestPayload(raw map[string]any) (QuestionRequestPayload, error) {
	var p QuestionRequestPayload
	b, err := json.Marshal(raw)
	if err != nil {
		return p, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}

// GenerationRequest is what the question-request handler hands to the
// generator: the job payload plus the resolved topic title.
type GenerationRequest struct {
	TopicID   string    `json:"topic_id"`
	Topic     string    `json:"topic"`
	Position  Position  `json:"position"`
	Language  string    `json:"language"`
	Limit     int       `json:"limit"`
	JobID     string    `json:"jobId"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the request and reports every violation at once.
func (r GenerationRequest) Validate() error {
	var errs []string
	if strings.TrimSpace(r.Topic) == "" {
		errs = append(errs, "topic is required")
	}
	if !r.Position.Valid() {
		errs = append(errs, fmt.Sprintf("position %q is not one of %s", r.Position, joinPositions()))
	}
	if strings.TrimSpace(r.Language) == "" {
		errs = append(errs, "language is required")
	}
	if r.Limit <= 0 {
		errs = append(errs, "limit must be a positive integer")
	}
	if r.JobID == "" {
		errs = append(errs, "jobId is required")
	}
	if r.Timestamp.IsZero() {
		errs = append(errs, "timestamp is required")
	}
	if len(errs) > 0 {
		return &ValidationError{Problems: errs}
	}
	return nil
}

// ValidationError aggregates request validation problems.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, ", ")
}

func joinPositions() string {
	parts := make([]string, len(Positions))
	for i, p := range Positions {
		parts[i] = string(p)
	}
	return strings.Join(parts, "|")
}

// Question is a generated interview question.
type Question struct {
	ID         string    `json:"id"`
	TopicID    string    `json:"topic_id"`
	JobID      string    `json:"job_id"`
	Position   Position  `json:"position"`
	Language   string    `json:"language"`
	Text       string    `json:"question"`
	Answer     string    `json:"answer"`
	Difficulty string    `json:"difficulty,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditRecord describes a completed generation for the audit trail.
type AuditRecord struct {
	Target    string    `json:"target"`
	Event     string    `json:"event"`
	JobID     string    `json:"job_id"`
	TopicID   string    `json:"topic_id"`
	Topic     string    `json:"topic"`
	Position  Position  `json:"position"`
	Language  string    `json:"language"`
	Limit     int       `json:"limit"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
