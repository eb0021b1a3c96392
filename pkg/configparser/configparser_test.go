package configparser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
database:
  host: db.internal
  port: 5433
redis:
  addr: ${TEST_REDIS_ADDR:-localhost:6379}
kafka:
  brokers:
    - k1:9092
    - k2:9092
services:
  ride-service: 3000
empty:
`

func TestFlatten(t *testing.T) {
	vars, err := Flatten([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", vars["DATABASE_HOST"])
	assert.Equal(t, "5433", vars["DATABASE_PORT"])
	assert.Equal(t, "localhost:6379", vars["REDIS_ADDR"])
	assert.Equal(t, "k1:9092,k2:9092", vars["KAFKA_BROKERS"])
	assert.Equal(t, "3000", vars["SERVICES_RIDE_SERVICE"])
	assert.NotContains(t, vars, "EMPTY")
}

func TestFlattenSubstitutesFromEnv(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "cache:6380")

	vars, err := Flatten([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", vars["REDIS_ADDR"])
}

type testConfig struct {
	DB struct {
		Host string `env:"DATABASE_HOST" default:"localhost"`
		Port int    `env:"DATABASE_PORT" default:"5432"`
	}
	Brokers []string      `env:"KAFKA_BROKERS"`
	Timeout time.Duration `env:"DISPATCH_TIMEOUT" default:"10m"`
	Ratio   float64       `env:"TEST_RATIO" default:"1.5"`
	Debug   bool          `env:"TEST_DEBUG"`
}

func TestLoadAndParseYamlEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	t.Setenv("DATABASE_HOST", "from-env")
	// registered with t.Setenv so the test restores them afterwards
	t.Setenv("DATABASE_PORT", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SERVICES_RIDE_SERVICE", "")

	var cfg testConfig
	require.NoError(t, LoadAndParseYaml(path, &cfg))

	assert.Equal(t, "from-env", cfg.DB.Host)
	assert.Equal(t, 5433, cfg.DB.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, 10*time.Minute, cfg.Timeout)
	assert.InDelta(t, 1.5, cfg.Ratio, 1e-9)
	assert.False(t, cfg.Debug)
}

func TestParseRejectsBadValues(t *testing.T) {
	t.Setenv("DISPATCH_TIMEOUT", "soon")

	var cfg testConfig
	err := Parse(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISPATCH_TIMEOUT")

	assert.ErrorIs(t, Parse(cfg), ErrNotStructPointer)
}
