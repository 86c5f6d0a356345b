package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"interview-question-bank/internal/models"
)

// Store wraps pgxpool for Postgres persistence.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a pooled connection to Postgres.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// CreateJobParams collects inputs required to insert a job.
type CreateJobParams struct {
	Type    models.JobType
	Payload map[string]any
	Status  models.JobStatus
}

// QuestionFilter narrows question listings. Empty fields match anything.
type QuestionFilter struct {
	TopicID  string
	Language string
	Position models.Position
	Limit    int
}

// CreateJob inserts a job row and returns it with its assigned id and timestamps.
func (s *Store) CreateJob(ctx context.Context, p CreateJobParams) (models.Job, error) {
	if p.Status == "" {
		p.Status = models.StatusNew
	}
	if p.Payload == nil {
		p.Payload = map[string]any{}
	}
	payloadJSON, err := json.Marshal(p.Payload)
	if err != nil {
		return models.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO jobs (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, id, string(p.Type), payloadJSON, string(p.Status), now)
	if err != nil {
		return models.Job{}, fmt.Errorf("insert job: %w", err)
	}

	return models.Job{
		ID:        id,
		Type:      p.Type,
		Payload:   p.Payload,
		Status:    p.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

const jobColumns = `id, type, payload, status, created_at, updated_at`

func scanJob(row pgx.Row) (models.Job, error) {
	var job models.Job
	var payloadJSON []byte
	var jobType, status string
	if err := row.Scan(&job.ID, &jobType, &payloadJSON, &status, &job.CreatedAt, &job.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Job{}, ErrJobNotFound
		}
		return models.Job{}, fmt.Errorf("scan job: %w", err)
	}
	job.Type = models.JobType(jobType)
	job.Status = models.JobStatus(status)
	if err := json.Unmarshal(payloadJSON, &job.Payload); err != nil {
		return models.Job{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	return job, nil
}

// GetJob fetches a job by id.
func (s *Store) GetJob(ctx context.Context, id string) (models.Job, error) {
	return scanJob(s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
}

// UpdateJobStatus sets status and bumps updated_at, returning the updated row.
func (s *Store) UpdateJobStatus(ctx context.Context, id string, status models.JobStatus) (models.Job, error) {
	return scanJob(s.pool.QueryRow(ctx, `
		UPDATE jobs SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+jobColumns, id, string(status)))
}

// DeleteJob removes a job and returns the deleted row.
func (s *Store) DeleteJob(ctx context.Context, id string) (models.Job, error) {
	return scanJob(s.pool.QueryRow(ctx, `DELETE FROM jobs WHERE id = $1 RETURNING `+jobColumns, id))
}

// ListJobs returns jobs of a type, optionally filtered by status, newest first.
func (s *Store) ListJobs(ctx context.Context, jobType models.JobType, status models.JobStatus) ([]models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE type = $1`
	args := []any{string(jobType)}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]models.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// CreateTopic inserts a topic.
func (s *Store) CreateTopic(ctx context.Context, title string) (models.Topic, error) {
	t := models.Topic{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(title),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO topics (id, title, created_at) VALUES ($1, $2, $3)
	`, t.ID, t.Title, t.CreatedAt); err != nil {
		return models.Topic{}, fmt.Errorf("insert topic: %w", err)
	}
	return t, nil
}

// GetTopic fetches a topic by id.
func (s *Store) GetTopic(ctx context.Context, id string) (models.Topic, error) {
	var t models.Topic
	err := s.pool.QueryRow(ctx, `SELECT id, title, created_at FROM topics WHERE id = $1`, id).
		Scan(&t.ID, &t.Title, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Topic{}, ErrTopicNotFound
	}
	if err != nil {
		return models.Topic{}, fmt.Errorf("get topic: %w", err)
	}
	return t, nil
}

// ListTopics returns every topic in creation order.
func (s *Store) ListTopics(ctx context.Context) ([]models.Topic, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, title, created_at FROM topics ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	topics := make([]models.Topic, 0)
	for rows.Next() {
		var t models.Topic
		if err := rows.Scan(&t.ID, &t.Title, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// SaveQuestions inserts generated questions in one batch.
func (s *Store) SaveQuestions(ctx context.Context, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, q := range questions {
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		if q.CreatedAt.IsZero() {
			q.CreatedAt = time.Now().UTC()
		}
		batch.Queue(`
			INSERT INTO questions (id, topic_id, job_id, position, language, text, answer, difficulty, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, q.ID, q.TopicID, q.JobID, string(q.Position), q.Language, q.Text, q.Answer, q.Difficulty, q.CreatedAt)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}
	return nil
}

// ListQuestions returns questions matching the filter, newest first.
func (s *Store) ListQuestions(ctx context.Context, f QuestionFilter) ([]models.Question, error) {
	var conds []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if f.TopicID != "" {
		add("topic_id", f.TopicID)
	}
	if f.Language != "" {
		add("language", f.Language)
	}
	if f.Position != "" {
		add("position", string(f.Position))
	}

	query := `SELECT id, topic_id, job_id, position, language, text, answer, difficulty, created_at FROM questions`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Question, 0)
	for rows.Next() {
		var q models.Question
		var position string
		if err := rows.Scan(&q.ID, &q.TopicID, &q.JobID, &position, &q.Language, &q.Text, &q.Answer, &q.Difficulty, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Position = models.Position(position)
		out = append(out, q)
	}
	return out, rows.Err()
}

// AppendAudit adds an audit row for a named target.
func (s *Store) AppendAudit(ctx context.Context, rec models.AuditRecord) error {
	detail, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_logs (target, job_id, event, detail, ts)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.Target, rec.JobID, rec.Event, detail, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
