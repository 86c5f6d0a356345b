package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"interview-question-bank/internal/config"
	"interview-question-bank/internal/models"
	"interview-question-bank/internal/producer"
	"interview-question-bank/internal/store"
	"interview-question-bank/internal/telemetry"
)

// Store is the part of the job/topic/question store the API reads and
// administers.
type Store interface {
	GetJob(ctx context.Context, id string) (models.Job, error)
	DeleteJob(ctx context.Context, id string) (models.Job, error)
	ListJobs(ctx context.Context, jobType models.JobType, status models.JobStatus) ([]models.Job, error)
	CreateTopic(ctx context.Context, title string) (models.Topic, error)
	ListTopics(ctx context.Context) ([]models.Topic, error)
	ListQuestions(ctx context.Context, f store.QuestionFilter) ([]models.Question, error)
}

type Queue interface {
	Push(ctx context.Context, item models.QueueItem, name string) (int64, error)
	PeekAll(ctx context.Context, name string) ([]models.QueueItem, error)
	RemoveByID(ctx context.Context, id string, name string) (int64, error)
	Clear(ctx context.Context, name string) (bool, error)
	Length(ctx context.Context, name string) (int64, error)
}

type Producer interface {
	ProcessQuestionRequest(ctx context.Context, req producer.QuestionRequest) ([]models.Job, error)
}

type Limiter interface {
	Allow(ctx context.Context, scope, clientKey string) (bool, int64, error)
}

// Server wires HTTP handlers for the producer and admin API.
type Server struct {
	cfg      config.Config
	store    Store
	queue    Queue
	producer Producer
	limiter  Limiter
	auth     *Authenticator
	log      zerolog.Logger
}

// New constructs the API server. limiter and auth may be nil.
func New(cfg config.Config, st Store, q Queue, p Producer, limiter Limiter, auth *Authenticator, log zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		queue:    q,
		producer: p,
		limiter:  limiter,
		auth:     auth,
		log:      log,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Mount("/metrics", telemetry.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Post("/question-requests", s.handleQuestionRequest)

		r.Get("/topics", s.handleListTopics)
		r.Post("/topics", s.handleCreateTopic)
		r.Get("/questions", s.handleListQuestions)

		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireRole(RoleAdmin))

			r.Delete("/jobs/{id}", s.handleDeleteJob)
			r.Post("/jobs/{id}/enqueue", s.handleEnqueueJob)

			r.Get("/queues/{name}", s.handleGetQueue)
			r.Delete("/queues/{name}", s.handleClearQueue)
			r.Delete("/queues/{name}/items/{id}", s.handleRemoveQueueItem)
		})
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

// clientKey identifies the caller for rate limiting: the token subject when
// authenticated, the remote host otherwise.
func clientKey(r *http.Request) string {
	if sub := subjectFromContext(r.Context()); sub != "" {
		return "sub:" + sub
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// writeStoreError maps not-found sentinels to 404.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrJobNotFound) || errors.Is(err, store.ErrTopicNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
