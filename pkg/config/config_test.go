package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://www.sec.gov", cfg.SEC.BaseURL)
	assert.Equal(t, 2.0, cfg.SEC.RequestsPerSecond)
	assert.Equal(t, 60*time.Second, cfg.SEC.Timeout)
	assert.Equal(t, "10-Q", cfg.SEC.Form)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.ErrorIs(t, cfg.RequireDatabase(), ErrDatabaseNotConfigured)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
sec:
  user_agent: "Acme Research ops@acme.test"
  requests_per_second: 5
  form: 10-K
batch:
  concurrency: 8
logging:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	t.Setenv("SECSCRAPER_BATCH_CONCURRENCY", "2")
	t.Setenv("SECSCRAPER_SEC_TIMEOUT", "5s")
	t.Setenv("DATABASE_URL", "postgres://localhost/sec")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Acme Research ops@acme.test", cfg.SEC.UserAgent)
	assert.Equal(t, 5.0, cfg.SEC.RequestsPerSecond)
	assert.Equal(t, "10-K", cfg.SEC.Form)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.Batch.Concurrency, "env wins over file")
	assert.Equal(t, 5*time.Second, cfg.SEC.Timeout)
	assert.Equal(t, "https://data.sec.gov", cfg.SEC.DataURL, "defaults survive a partial file")
	assert.Equal(t, "postgres://localhost/sec", cfg.Database.URL)
	assert.NoError(t, cfg.RequireDatabase())
}

func TestLoad_PrefixedDatabaseURLWins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://fallback/db")
	t.Setenv("SECSCRAPER_DATABASE_URL", "postgres://primary/db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://primary/db", cfg.Database.URL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"no user agent", func(c *Config) { c.SEC.UserAgent = "" }, true},
		{"too fast for SEC", func(c *Config) { c.SEC.RequestsPerSecond = 20 }, true},
		{"unknown form", func(c *Config) { c.SEC.Form = "8-K" }, true},
		{"zero concurrency", func(c *Config) { c.Batch.Concurrency = 0 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"file output without path", func(c *Config) {
			c.Logging.Output = "file"
			c.Logging.FilePath = ""
		}, true},
		{"debug without dir", func(c *Config) {
			c.Debug.Enabled = true
			c.Debug.Dir = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
