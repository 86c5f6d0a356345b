package models

import (
	"time"
)

// JobStatus enumerates lifecycle states persisted in the job store.
type JobStatus string

const (
	StatusNew        JobStatus = "new"
	StatusProcessing JobStatus = "processing"
	StatusDone       JobStatus = "done"
	StatusFailed     JobStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusNew, StatusProcessing, StatusDone, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is expected.
func (s JobStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// JobType identifies the kind of work a job carries.
type JobType string

const (
	JobTypeQuestionRequest JobType = "question-request"
)

// Known reports whether the worker has a definition for this kind. Anything
// else is stored and dequeued as-is but ends up failed as unsupported.
func (t JobType) Known() bool {
	switch t {
	case JobTypeQuestionRequest:
		return true
	}
	return false
}

// Job represents a unit of deferred work.
type Job struct {
	ID        string         `json:"id"`
	Type      JobType        `json:"type"`
	Payload   map[string]any `json:"payload"`
	Status    JobStatus      `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// QueueItem is the thin reference pushed onto the work queue. Status and
// timestamps stay in the job store.
type QueueItem struct {
	ID      string         `json:"id"`
	Type    JobType        `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Item returns the queue reference for the job.
func (j Job) Item() QueueItem {
	return QueueItem{ID: j.ID, Type: j.Type, Payload: j.Payload}
}
