package llmfactory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/effective-security/agenthub/llmfactory"
	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
providers:
  - name: openai_prod
    provider: OPENAI
    token: ${TEST_OPENAI_TOKEN}
    default_model: gpt-5-mini
    available_models:
      - gpt-5-mini
      - gpt-5
  - name: claude
    provider: ANTHROPIC
    token: test-anthropic-token
    default_model: claude-sonnet-4-5
  - name: groq_llama
    provider: GROQ
    token: test-groq-token
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "llm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEST_OPENAI_TOKEN", "expanded-token")

	cfg, err := llmfactory.LoadConfig(writeConfig(t))
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 3)

	assert.Equal(t, "openai_prod", cfg.Providers[0].Name)
	assert.Equal(t, "expanded-token", cfg.Providers[0].Token)
	assert.Equal(t, []string{"gpt-5-mini", "gpt-5"}, cfg.Providers[0].AvailableModels)

	empty, err := llmfactory.LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, empty.Providers)
}

func TestFactory(t *testing.T) {
	t.Setenv("TEST_OPENAI_TOKEN", "expanded-token")
	ctx := context.Background()

	f, err := llmfactory.Load(writeConfig(t))
	require.NoError(t, err)

	def, err := f.DefaultModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderOpenAI, def.GetProviderType())
	assert.Equal(t, "gpt-5-mini", def.GetName())

	// cached instance is returned for repeated lookups
	again, err := f.ModelByName(ctx, "openai_prod")
	require.NoError(t, err)
	assert.Same(t, def, again)

	claude, err := f.ModelByProvider(ctx, llms.ProviderAnthropic)
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAnthropic, claude.GetProviderType())

	g, err := f.ModelByName(ctx, "groq_llama")
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderGroq, g.GetProviderType())

	_, err = f.ModelByName(ctx, "unknown")
	assert.ErrorContains(t, err, "provider not found")

	_, err = f.ModelByProvider(ctx, llms.ProviderGoogleAI)
	assert.ErrorContains(t, err, "provider not found")
}

func TestFactoryNoProviders(t *testing.T) {
	f := llmfactory.New(&llmfactory.Config{})
	_, err := f.DefaultModel(context.Background())
	assert.ErrorContains(t, err, "no providers configured")
}
