// Package generator produces interview questions with a language model and
// stores them. The pipeline sees it only through Generator.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"interview-question-bank/internal/models"
	"interview-question-bank/internal/store"
	"interview-question-bank/internal/telemetry"
)

// ErrInvalidContent means the model replied with something that did not
// yield any usable question.
var ErrInvalidContent = errors.New("invalid generated content")

// maxAvoidList caps how many existing questions are quoted back to the model.
const maxAvoidList = 50

// Generator generates and persists questions for one request.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) error
}

// LLM is a text completion backend.
type LLM interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// QuestionStore is where generated questions are read from for
// de-duplication and written to.
type QuestionStore interface {
	ListQuestions(ctx context.Context, f store.QuestionFilter) ([]models.Question, error)
	SaveQuestions(ctx context.Context, questions []models.Question) error
}

// Service implements Generator.
type Service struct {
	llm       LLM
	questions QuestionStore
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(llm LLM, questions QuestionStore, log zerolog.Logger) *Service {
	return &Service{
		llm:       llm,
		questions: questions,
		log:       log,
		now:       time.Now,
	}
}

type generatedQuestion struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Difficulty string `json:"difficulty"`
}

// Generate asks the model for req.Limit new questions and stores the ones
// that are not already known for the topic.
func (s *Service) Generate(ctx context.Context, req models.GenerationRequest) error {
	existing, err := s.questions.ListQuestions(ctx, store.QuestionFilter{
		TopicID:  req.TopicID,
		Language: req.Language,
		Position: req.Position,
	})
	if err != nil {
		return fmt.Errorf("load existing questions: %w", err)
	}

	start := s.now()
	reply, err := s.llm.Complete(ctx, systemPrompt, buildPrompt(req, existing))
	elapsed := s.now().Sub(start)
	telemetry.GenerationLatency.WithLabelValues(s.llm.Name(), fmt.Sprint(err == nil)).Observe(elapsed.Seconds())
	if err != nil {
		return fmt.Errorf("%s completion: %w", s.llm.Name(), err)
	}

	parsed, err := parseQuestions(reply)
	if err != nil {
		return err
	}
	fresh := dedupe(parsed, existing, req.Limit)
	if len(fresh) == 0 {
		return fmt.Errorf("%w: no new questions in reply", ErrInvalidContent)
	}

	now := s.now().UTC()
	out := make([]models.Question, 0, len(fresh))
	for _, g := range fresh {
		out = append(out, models.Question{
			ID:         uuid.New().String(),
			TopicID:    req.TopicID,
			JobID:      req.JobID,
			Position:   req.Position,
			Language:   req.Language,
			Text:       strings.TrimSpace(g.Question),
			Answer:     strings.TrimSpace(g.Answer),
			Difficulty: strings.TrimSpace(g.Difficulty),
			CreatedAt:  now,
		})
	}
	if err := s.questions.SaveQuestions(ctx, out); err != nil {
		return fmt.Errorf("save questions: %w", err)
	}
	telemetry.QuestionsStored.Add(float64(len(out)))
	s.log.Info().
		Str("job_id", req.JobID).
		Str("topic_id", req.TopicID).
		Int("requested", req.Limit).
		Int("stored", len(out)).
		Dur("elapsed", elapsed).
		Msg("questions generated")
	return nil
}

const systemPrompt = `You write technical interview questions. Reply with JSON only: an array of objects with the string fields "question", "answer" and "difficulty".`

func buildPrompt(req models.GenerationRequest, existing []models.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d interview questions about %q for a %s %s developer.\n",
		req.Limit, req.Topic, req.Position, req.Language)
	b.WriteString("Each answer should be short and precise. Difficulty is one of easy, medium, hard.\n")
	if len(existing) > 0 {
		b.WriteString("Do not repeat any of these existing questions:\n")
		for i, q := range existing {
			if i == maxAvoidList {
				break
			}
			fmt.Fprintf(&b, "- %s\n", q.Text)
		}
	}
	return b.String()
}

// parseQuestions accepts a bare JSON array, an object with a "questions"
// array, and either of those wrapped in a markdown code fence.
func parseQuestions(reply string) ([]generatedQuestion, error) {
	body := stripFence(strings.TrimSpace(reply))
	if body == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrInvalidContent)
	}

	var list []generatedQuestion
	if err := json.Unmarshal([]byte(body), &list); err != nil {
		var wrapped struct {
			Questions []generatedQuestion `json:"questions"`
		}
		if err2 := json.Unmarshal([]byte(body), &wrapped); err2 != nil || wrapped.Questions == nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
		}
		list = wrapped.Questions
	}

	out := list[:0]
	for _, q := range list {
		if strings.TrimSpace(q.Question) != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: reply has no questions", ErrInvalidContent)
	}
	return out, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// dedupe drops questions already stored or repeated within the reply and
// keeps at most limit.
func dedupe(parsed []generatedQuestion, existing []models.Question, limit int) []generatedQuestion {
	seen := make(map[string]struct{}, len(existing)+len(parsed))
	for _, q := range existing {
		seen[normalize(q.Text)] = struct{}{}
	}
	out := make([]generatedQuestion, 0, len(parsed))
	for _, q := range parsed {
		key := normalize(q.Question)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
