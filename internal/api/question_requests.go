package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"interview-question-bank/internal/models"
	"interview-question-bank/internal/producer"
	"interview-question-bank/internal/telemetry"
)

const questionRequestScope = "question-requests"

type questionRequestBody struct {
	Topics   []string `json:"topics"`
	Limit    *int     `json:"limit"`
	Position string   `json:"position"`
	Language string   `json:"language"`
}

type questionRequestResponse struct {
	Jobs  []models.Job `json:"jobs"`
	Error string       `json:"error,omitempty"`
}

func (b questionRequestBody) validate() (producer.QuestionRequest, error) {
	var problems []string
	req := producer.QuestionRequest{
		Position: models.Position(strings.ToLower(strings.TrimSpace(b.Position))),
		Language: strings.TrimSpace(b.Language),
	}
	if !req.Position.Valid() {
		problems = append(problems, fmt.Sprintf("position %q is invalid", b.Position))
	}
	if req.Language == "" {
		problems = append(problems, "language is required")
	}
	if b.Limit != nil {
		if *b.Limit <= 0 {
			problems = append(problems, "limit must be a positive integer")
		}
		req.Limit = *b.Limit
	}
	for _, id := range b.Topics {
		id = strings.TrimSpace(id)
		if id == "" {
			problems = append(problems, "topics must not contain empty ids")
			break
		}
		req.Topics = append(req.Topics, id)
	}
	if len(problems) > 0 {
		return req, &models.ValidationError{Problems: problems}
	}
	return req, nil
}

func (s *Server) handleQuestionRequest(w http.ResponseWriter, r *http.Request) {
	var body questionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req, err := body.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.limiter != nil {
		allowed, _, err := s.limiter.Allow(r.Context(), questionRequestScope, clientKey(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "rate limit error")
			return
		}
		if !allowed {
			telemetry.RateLimitRejects.Inc()
			writeError(w, http.StatusTooManyRequests, "rate limited")
			return
		}
	}

	jobs, err := s.producer.ProcessQuestionRequest(r.Context(), req)
	if err != nil {
		s.log.Error().Err(err).Int("created", len(jobs)).Msg("question request failed")
		writeJSON(w, http.StatusInternalServerError, questionRequestResponse{Jobs: jobs, Error: err.Error()})
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	writeJSON(w, http.StatusAccepted, questionRequestResponse{Jobs: jobs})
}
