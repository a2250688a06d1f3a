package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, "https://api.groq.com/openai/v1/chat/completions", cfg.CompletionAPIURL)
	require.Equal(t, "llama-3.3-70b-versatile", cfg.CompletionModel)
	require.Empty(t, cfg.CompletionAPIKey)
	require.Equal(t, 30*time.Second, cfg.WriteTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", ":9999")
	t.Setenv("COMPLETION_API_KEY", "secret")
	t.Setenv("HTTP_WRITE_TIMEOUT", "45s")

	cfg := Load()

	require.Equal(t, ":9999", cfg.HTTPAddress)
	require.Equal(t, "secret", cfg.CompletionAPIKey)
	require.Equal(t, 45*time.Second, cfg.WriteTimeout)
}

func TestLoadIgnoresInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "soon")

	cfg := Load()
	require.Equal(t, 5*time.Second, cfg.ReadTimeout)
}
