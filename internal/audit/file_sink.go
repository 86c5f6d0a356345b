package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"interview-question-bank/internal/models"
)

// FileSink appends one JSON line per record to <dir>/<target>.log.
type FileSink struct {
	dir string

	mu      sync.Mutex
	targets map[string]*fileTarget
}

type fileTarget struct {
	file *os.File
	out  *errWriter
	log  zerolog.Logger
}

// errWriter keeps the last write error, which zerolog otherwise only
// reports to its ErrorHandler.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{
		dir:     dir,
		targets: make(map[string]*fileTarget),
	}
}

func (s *FileSink) Append(_ context.Context, rec models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.targetFor(rec.Target)
	if err != nil {
		return err
	}
	t.out.err = nil
	t.log.Log().
		Str("event", rec.Event).
		Str("job_id", rec.JobID).
		Str("topic_id", rec.TopicID).
		Str("topic", rec.Topic).
		Str("position", string(rec.Position)).
		Str("language", rec.Language).
		Int("limit", rec.Limit).
		Str("detail", rec.Detail).
		Time("timestamp", rec.Timestamp).
		Send()
	if t.out.err != nil {
		return fmt.Errorf("write audit line: %w", t.out.err)
	}
	return nil
}

func (s *FileSink) targetFor(target string) (*fileTarget, error) {
	name := sanitizeTarget(target)
	if t, ok := s.targets[name]; ok {
		return t, nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(s.dir, name+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	out := &errWriter{w: f}
	t := &fileTarget{
		file: f,
		out:  out,
		log:  zerolog.New(out).With().Str("target", target).Logger(),
	}
	s.targets[name] = t
	return t, nil
}

// Close closes every open target file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for name, t := range s.targets {
		if err := t.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.targets, name)
	}
	return firstErr
}

func sanitizeTarget(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return "audit"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, target)
}
