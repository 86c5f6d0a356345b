package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"interview-question-bank/internal/models"
	"interview-question-bank/internal/queue"
	"interview-question-bank/internal/store"
)

func (s *Server) queueName() string {
	if s.cfg.QueueName != "" {
		return s.cfg.QueueName
	}
	return queue.DefaultName
}

type createTopicRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.store.ListTopics(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	topic, err := s.store.CreateTopic(r.Context(), title)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, topic)
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.QuestionFilter{
		TopicID:  q.Get("topic_id"),
		Language: q.Get("language"),
		Position: models.Position(q.Get("position")),
	}
	if f.Position != "" && !f.Position.Valid() {
		writeError(w, http.StatusBadRequest, "invalid position")
		return
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		f.Limit = n
	}
	questions, err := s.store.ListQuestions(r.Context(), f)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobType := models.JobType(r.URL.Query().Get("type"))
	if jobType == "" {
		jobType = models.JobTypeQuestionRequest
	}
	status := models.JobStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	jobs, err := s.store.ListJobs(r.Context(), jobType, status)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.store.DeleteJob(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	removed, err := s.queue.RemoveByID(r.Context(), id, s.queueName())
	if err != nil {
		s.log.Warn().Err(err).Str("job_id", id).Msg("job deleted but queue cleanup failed")
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": job, "removed_from_queue": removed})
}

// handleEnqueueJob re-pushes a job that never left the new state, which is
// how an operator recovers a job whose queue item was lost.
func (s *Server) handleEnqueueJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	switch {
	case job.Status.Terminal():
		writeError(w, http.StatusConflict, "job already finished ("+string(job.Status)+")")
		return
	case job.Status != models.StatusNew:
		writeError(w, http.StatusConflict, "job status is "+string(job.Status)+", only new jobs can be enqueued")
		return
	}
	length, err := s.queue.Push(r.Context(), job.Item(), s.queueName())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "enqueue failed")
		return
	}
	s.log.Info().Str("job_id", job.ID).Msg("job re-enqueued by operator")
	writeJSON(w, http.StatusAccepted, map[string]any{"job": job, "queue_length": length})
}

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	items, err := s.queue.PeekAll(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read queue")
		return
	}
	length, err := s.queue.Length(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read queue")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "length": length, "items": items})
}

func (s *Server) handleClearQueue(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	cleared, err := s.queue.Clear(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear queue")
		return
	}
	s.log.Warn().Str("queue", name).Msg("queue cleared by operator")
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "cleared": cleared})
}

func (s *Server) handleRemoveQueueItem(w http.ResponseWriter, r *http.Request) {
	name, id := chi.URLParam(r, "name"), chi.URLParam(r, "id")
	removed, err := s.queue.RemoveByID(r.Context(), id, name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to remove queue item")
		return
	}
	if removed == 0 {
		writeError(w, http.StatusNotFound, "item not in queue")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "removed": removed})
}
