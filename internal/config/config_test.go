package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadFrom_DefaultsWithKeyFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "k-123")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "k-123", cfg.LLM.APIKey)
	assert.Equal(t, GenerationModeSequential, cfg.Generation.Mode)
	assert.Equal(t, 8*time.Second, cfg.Generation.SequentialDelay)
	assert.Equal(t, 120*time.Second, cfg.Generation.RequestTimeout)
	assert.Equal(t, HistoryBackendMemory, cfg.History.Backend)
	assert.Equal(t, 20, cfg.History.Capacity)
	assert.Equal(t, int64(64<<20), cfg.Server.HTTP.MaxBodyBytes)
	assert.Equal(t, 10, cfg.Security.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.Security.RateLimit.Window)
}

func TestLoadFrom_MissingKey(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("GOOGLE_GENERATIVE_AI_API_KEY", "")

	_, err := LoadFrom(t.TempDir())
	assert.ErrorContains(t, err, "llm.api_key")

	cfg, err := LoadFrom(t.TempDir(), WithoutCredentials())
	require.NoError(t, err)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoadFrom_FileWithEnvExpansionAndOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "staging")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_GENERATIVE_AI_API_KEY", "")
	t.Setenv("THUMB_TEST_KEY", "from-file")
	writeConfig(t, dir, "config.yaml", `
llm:
  api_key: ${THUMB_TEST_KEY}
generation:
  mode: parallel
  sequential_delay: 2s
history:
  backend: file
  file_path: ${THUMB_TEST_PATH:/tmp/history.json}
  capacity: 5
`)
	writeConfig(t, dir, "config.staging.yaml", `
history:
  capacity: 7
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.LLM.APIKey)
	assert.Equal(t, GenerationModeParallel, cfg.Generation.Mode)
	assert.Equal(t, 2*time.Second, cfg.Generation.SequentialDelay)
	assert.Equal(t, HistoryBackendFile, cfg.History.Backend)
	assert.Equal(t, "/tmp/history.json", cfg.History.FilePath)
	assert.Equal(t, 7, cfg.History.Capacity)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LLM:        LLMConfig{APIKey: "k"},
			Generation: GenerationConfig{Mode: GenerationModeSequential},
			History:    HistoryConfig{Backend: HistoryBackendMemory, Capacity: 20},
		}
	}
	require.NoError(t, valid().Validate())
	require.NoError(t, valid().ValidateCredentials())

	cases := map[string]func(c *Config){
		"unknown mode":      func(c *Config) { c.Generation.Mode = "burst" },
		"negative delay":    func(c *Config) { c.Generation.SequentialDelay = -time.Second },
		"unknown backend":   func(c *Config) { c.History.Backend = "sqlite" },
		"file without path": func(c *Config) { c.History.Backend = HistoryBackendFile },
		"redis disabled":    func(c *Config) { c.History.Backend = HistoryBackendRedis },
		"zero capacity":     func(c *Config) { c.History.Capacity = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	c := valid()
	c.LLM.APIKey = "  "
	assert.Error(t, c.ValidateCredentials())
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("THUMB_SET", "v")
	assert.Equal(t, "a=v b=def c=${THUMB_UNSET_NO_DEFAULT}", expandEnv("a=${THUMB_SET} b=${THUMB_UNSET:def} c=${THUMB_UNSET_NO_DEFAULT}"))
}
