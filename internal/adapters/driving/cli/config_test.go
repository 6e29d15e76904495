package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestConfigShowCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.settings.LLM.APIKey = "sk-abcdefghijkl"

	out, err := execute(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Embedding:")
	assert.Contains(t, out, "Collection:  documents")
	assert.Contains(t, out, "API key:     ****ijkl")
	assert.NotContains(t, out, "sk-abcdefghijkl")
	assert.Contains(t, out, "Cache:       100 entries")
}

func TestConfigGetCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "config", "get", "llm.model")
	require.NoError(t, err)
	assert.Equal(t, "llama3.2\n", out)

	out, err = execute(t, "config", "get", "llm.api_key")
	require.NoError(t, err)
	assert.Equal(t, "****ijkl\n", out)

	_, err = execute(t, "config", "get", "llm.nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfigSetCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "config", "set", "llm.model", "qwen2.5")

	require.NoError(t, err)
	assert.Equal(t, "qwen2.5", ts.settings.set["llm.model"])
	assert.Contains(t, out, "Set llm.model.")
}

func TestConfigSetCmd_PromptsForMissingValue(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	orig := readPassword
	readPassword = func() (string, error) { return "sk-secret", nil }
	defer func() { readPassword = orig }()

	out, err := execute(t, "config", "set", "llm.api_key")

	require.NoError(t, err)
	assert.Equal(t, "sk-secret", ts.settings.set["llm.api_key"])
	assert.Contains(t, out, "Value for llm.api_key:")
	assert.NotContains(t, out, "sk-secret")
}

func TestConfigSetCmd_PromptError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	orig := readPassword
	readPassword = func() (string, error) { return "", errors.New("no terminal") }
	defer func() { readPassword = orig }()

	_, err := execute(t, "config", "set", "llm.api_key")

	assert.EqualError(t, err, "no terminal")
	assert.Empty(t, ts.settings.set)
}

func TestConfigKeysCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "config", "keys")

	require.NoError(t, err)
	assert.Equal(t, "llm.api_key\nllm.model\n", out)
}

func TestConfigValidateCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Settings are complete.")
	assert.NotContains(t, out, "Providers are reachable.", "no validator injected")
}

func TestConfigValidateCmd_Providers(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	SetServices(Services{Settings: ts.settings, Validator: mockValidator{}})

	out, err := execute(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Providers are reachable.")

	SetServices(Services{Settings: ts.settings, Validator: mockValidator{err: domain.ErrLLMUnavailable}})
	_, err = execute(t, "config", "validate")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestConfigValidateCmd_InvalidSettings(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.invalid = domain.ErrValidation

	_, err := execute(t, "config", "validate")

	assert.ErrorIs(t, err, domain.ErrValidation)
}
