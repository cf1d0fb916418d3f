package config_test

import (
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-authz/sentinel/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.BindFlags(flags)

	cfg, err := config.Load(flags)
	require.NoError(t, err)
	require.Equal(t, 9042, cfg.ScyllaPort)
	require.Equal(t, 50006, cfg.RedisPort)
	require.Equal(t, 15004, cfg.Port)
	require.NotEmpty(t, cfg.NodeID)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCYLLA_HOST", "scylla.internal")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("NODE_ID", "node-7")
	defer os.Unsetenv("SCYLLA_HOST")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.BindFlags(flags)

	cfg, err := config.Load(flags)
	require.NoError(t, err)
	require.Equal(t, "scylla.internal", cfg.ScyllaHost)
	require.Equal(t, 6379, cfg.RedisPort)
	require.Equal(t, "node-7", cfg.NodeID)
	require.Equal(t, "scylla.internal:9042", cfg.ScyllaAddr())
}
