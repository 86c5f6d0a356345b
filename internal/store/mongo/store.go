// Package mongo implements the job, topic, question and audit stores on
// MongoDB collections. It mirrors the Postgres store method for method so the
// binaries can pick either backend with STORE_DRIVER.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"interview-question-bank/internal/models"
	"interview-question-bank/internal/store"
)

// Collection names.
const (
	colJobs      = "jobs"
	colTopics    = "topics"
	colQuestions = "questions"
	colAudit     = "audit_logs"
)

// Store is a MongoDB-backed store. It owns the client it was given by
// Connect and disconnects it on Close.
type Store struct {
	client *mongod.Client
	db     *mongod.Database
}

// Connect dials uri and selects database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongod.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// Close disconnects the client.
func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}

// Migrate creates the indexes the pipeline queries rely on.
func (s *Store) Migrate(ctx context.Context) error {
	for col, idx := range indexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

func indexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colJobs: {
			{Keys: bson.D{
				{Key: "type", Value: 1},
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			}},
		},
		colQuestions: {
			{Keys: bson.D{
				{Key: "topic_id", Value: 1},
				{Key: "language", Value: 1},
				{Key: "position", Value: 1},
			}},
		},
		colAudit: {
			{Keys: bson.D{{Key: "target", Value: 1}, {Key: "ts", Value: -1}}},
		},
	}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// CreateJob inserts a job document.
func (s *Store) CreateJob(ctx context.Context, p store.CreateJobParams) (models.Job, error) {
	if p.Status == "" {
		p.Status = models.StatusNew
	}
	if p.Payload == nil {
		p.Payload = map[string]any{}
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	job := models.Job{
		ID:        uuid.New().String(),
		Type:      p.Type,
		Payload:   p.Payload,
		Status:    p.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.Collection(colJobs).InsertOne(ctx, toJobDoc(job)); err != nil {
		return models.Job{}, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetJob fetches a job by id.
func (s *Store) GetJob(ctx context.Context, id string) (models.Job, error) {
	var d jobDoc
	err := s.db.Collection(colJobs).FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if isNoDocuments(err) {
		return models.Job{}, store.ErrJobNotFound
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("get job: %w", err)
	}
	return fromJobDoc(d), nil
}

// UpdateJobStatus sets status and updated_at, returning the updated document.
func (s *Store) UpdateJobStatus(ctx context.Context, id string, status models.JobStatus) (models.Job, error) {
	var d jobDoc
	update := bson.M{"$set": bson.M{
		"status":     string(status),
		"updated_at": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.db.Collection(colJobs).FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&d)
	if isNoDocuments(err) {
		return models.Job{}, store.ErrJobNotFound
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("update job status: %w", err)
	}
	return fromJobDoc(d), nil
}

// DeleteJob removes a job and returns the deleted document.
func (s *Store) DeleteJob(ctx context.Context, id string) (models.Job, error) {
	var d jobDoc
	err := s.db.Collection(colJobs).FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&d)
	if isNoDocuments(err) {
		return models.Job{}, store.ErrJobNotFound
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("delete job: %w", err)
	}
	return fromJobDoc(d), nil
}

// ListJobs returns jobs of a type, optionally filtered by status, newest first.
func (s *Store) ListJobs(ctx context.Context, jobType models.JobType, status models.JobStatus) ([]models.Job, error) {
	filter := bson.M{"type": string(jobType)}
	if status != "" {
		filter["status"] = string(status)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(colJobs).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []jobDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}
	jobs := make([]models.Job, 0, len(docs))
	for _, d := range docs {
		jobs = append(jobs, fromJobDoc(d))
	}
	return jobs, nil
}

// CreateTopic inserts a topic.
func (s *Store) CreateTopic(ctx context.Context, title string) (models.Topic, error) {
	d := topicDoc{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(title),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.db.Collection(colTopics).InsertOne(ctx, d); err != nil {
		return models.Topic{}, fmt.Errorf("insert topic: %w", err)
	}
	return d.model(), nil
}

// GetTopic fetches a topic by id.
func (s *Store) GetTopic(ctx context.Context, id string) (models.Topic, error) {
	var d topicDoc
	err := s.db.Collection(colTopics).FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if isNoDocuments(err) {
		return models.Topic{}, store.ErrTopicNotFound
	}
	if err != nil {
		return models.Topic{}, fmt.Errorf("get topic: %w", err)
	}
	return d.model(), nil
}

// ListTopics returns every topic in creation order.
func (s *Store) ListTopics(ctx context.Context) ([]models.Topic, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(colTopics).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []topicDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}
	topics := make([]models.Topic, 0, len(docs))
	for _, d := range docs {
		topics = append(topics, d.model())
	}
	return topics, nil
}

// SaveQuestions inserts generated questions.
func (s *Store) SaveQuestions(ctx context.Context, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	docs := make([]any, 0, len(questions))
	for _, q := range questions {
		docs = append(docs, toQuestionDoc(q))
	}
	if _, err := s.db.Collection(colQuestions).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}
	return nil
}

// ListQuestions returns questions matching the filter, newest first.
func (s *Store) ListQuestions(ctx context.Context, f store.QuestionFilter) ([]models.Question, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cursor, err := s.db.Collection(colQuestions).Find(ctx, questionFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []questionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	out := make([]models.Question, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func questionFilter(f store.QuestionFilter) bson.M {
	filter := bson.M{}
	if f.TopicID != "" {
		filter["topic_id"] = f.TopicID
	}
	if f.Language != "" {
		filter["language"] = f.Language
	}
	if f.Position != "" {
		filter["position"] = string(f.Position)
	}
	return filter
}

// AppendAudit adds an audit document for a named target.
func (s *Store) AppendAudit(ctx context.Context, rec models.AuditRecord) error {
	d := auditDoc{
		Target: rec.Target,
		JobID:  rec.JobID,
		Event:  rec.Event,
		Record: rec,
		TS:     rec.Timestamp,
	}
	if _, err := s.db.Collection(colAudit).InsertOne(ctx, d); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
