package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/judyrop/retail-catalog/store"
)

// chdirTemp runs the test from an empty directory so that no stray .env is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, store.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, store.DefaultConfig().DSN, cfg.Database.DSN)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "delete", cfg.Catalog.SaleRetention)
}

func TestLoadEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CATALOG_DATABASE_DRIVER", "postgres")
	t.Setenv("CATALOG_DATABASE_DSN", "host=db user=catalog")
	t.Setenv("CATALOG_DATABASE_SLOW_THRESHOLD", "1s")
	t.Setenv("CATALOG_CATALOG_SALE_RETENTION", "detach")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "host=db user=catalog", cfg.Database.DSN)
	assert.Equal(t, time.Second, cfg.Store().SlowThreshold)
	assert.Equal(t, "detach", cfg.Catalog.SaleRetention)
}

func TestLoadDotEnvAndFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CATALOG_LOG_LEVEL=debug\n"), 0o600))
	file := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  addr: \":9090\"\nlog:\n  format: json\n"), 0o600))
	// godotenv sets the process environment; make sure it is restored.
	t.Setenv("CATALOG_LOG_LEVEL", "")
	os.Unsetenv("CATALOG_LOG_LEVEL")

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"driver", "CATALOG_DATABASE_DRIVER", "oracle"},
		{"retention", "CATALOG_CATALOG_SALE_RETENTION", "archive"},
		{"log level", "CATALOG_LOG_LEVEL", "loud"},
		{"log format", "CATALOG_LOG_FORMAT", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv(tt.env, tt.val)
			_, err := Load(viper.New(), "")
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	chdirTemp(t)
	_, err := Load(viper.New(), "does-not-exist.yaml")
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = NewLogger(LogConfig{Level: "nope"}, &buf)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
