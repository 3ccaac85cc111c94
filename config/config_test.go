package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Validate())
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 1536, cfg.Database.VectorDim)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Database.ConnectionString = ""
	cfg.LLM.Provider = "bedrock"
	cfg.Processing.ChunkOverlap = cfg.Processing.ChunkSize

	errs := cfg.Validate()
	require.Len(t, errs, 3)

	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	assert.Contains(t, fields, "database.connection_string")
	assert.Contains(t, fields, "llm.provider")
	assert.Contains(t, fields, "processing.chunk_overlap")
}

func TestAPIKeyMissing(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKeyEnv = "COVENANTRIX_TEST_ABSENT_KEY"

	_, err := cfg.APIKey()
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestAPIKeyFromEnv(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKeyEnv = "COVENANTRIX_TEST_KEY"
	t.Setenv("COVENANTRIX_TEST_KEY", "sk-test")

	key, err := cfg.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)
}

func TestAPIKeyOllamaNeedsNone(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = "ollama"
	cfg.LLM.APIKeyEnv = "COVENANTRIX_TEST_ABSENT_KEY"

	key, err := cfg.APIKey()
	require.NoError(t, err)
	assert.Empty(t, key)
}
