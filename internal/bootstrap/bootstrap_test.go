package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-question-bank/internal/config"
	"interview-question-bank/internal/models"
)

type auditOnlyRepo struct {
	Repository
	records []models.AuditRecord
}

func (r *auditOnlyRepo) AppendAudit(_ context.Context, rec models.AuditRecord) error {
	r.records = append(r.records, rec)
	return nil
}

func TestAuditSinksWritesFileAndStore(t *testing.T) {
	cfg := config.Defaults()
	cfg.AuditDir = t.TempDir()
	repo := &auditOnlyRepo{}

	sink, closeFn, err := AuditSinks(context.Background(), cfg, repo)
	require.NoError(t, err)
	require.NoError(t, sink.Append(context.Background(), models.AuditRecord{
		Target:    "question-generation",
		JobID:     "j1",
		Timestamp: time.Now(),
	}))
	require.NoError(t, closeFn())

	assert.Len(t, repo.records, 1)
	b, err := os.ReadFile(filepath.Join(cfg.AuditDir, "question-generation.log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"job_id":"j1"`)
}

func TestNewLLMByProvider(t *testing.T) {
	cfg := config.Defaults()
	cfg.OpenAIAPIKey = "sk-test"
	llm, err := NewLLM(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", llm.Name())

	cfg.AIProvider = "llama"
	_, err = NewLLM(context.Background(), cfg)
	assert.Error(t, err)

	cfg.AIProvider = "gemini"
	_, err = NewLLM(context.Background(), cfg)
	assert.Error(t, err, "gemini without a key must fail")
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	cfg := config.Defaults()
	cfg.StoreDriver = "sqlite"
	_, err := OpenStore(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}
