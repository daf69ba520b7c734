package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendResolve(t *testing.T) {
	t.Setenv("ARK_API_KEY", "env-key")
	t.Setenv("ARK_BASE_URL", "")
	t.Setenv("ARK_MODEL_ID", "ep-env")

	cfg, err := arkBackend.resolve(UpstreamConfig{})
	require.NoError(t, err)
	assert.Equal(t, UpstreamConfig{ID: "ark", APIKey: "env-key", Model: "ep-env", MaxTokens: 4096}, cfg)

	cfg, err = arkBackend.resolve(UpstreamConfig{ID: "ark-eu", APIKey: "k", Model: "ep-1", MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, UpstreamConfig{ID: "ark-eu", APIKey: "k", Model: "ep-1", MaxTokens: 100}, cfg)
}

func TestBackendResolve_Missing(t *testing.T) {
	t.Setenv("ARK_API_KEY", "")
	t.Setenv("ARK_MODEL_ID", "")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := arkBackend.resolve(UpstreamConfig{})
	assert.ErrorContains(t, err, "ARK_API_KEY")

	_, err = arkBackend.resolve(UpstreamConfig{APIKey: "k"})
	assert.ErrorContains(t, err, "ARK_MODEL_ID")

	_, err = openAIBackend.resolve(UpstreamConfig{})
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	cfg, err := openAIBackend.resolve(UpstreamConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Model)
}
