// Package config binds the service's environment variables (spec.md §6)
// using viper, with pflag-backed overrides wired from cmd/sentinel's cobra
// command.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved runtime configuration for the sentinel
// binary.
type Config struct {
	ScyllaHost string
	ScyllaPort int
	RedisHost  string
	RedisPort  int
	Port       int
	NodeID     string
}

const (
	defaultScyllaPort = 9042
	defaultRedisPort  = 50006
	defaultPort       = 15004
)

// BindFlags registers the flags cmd/sentinel exposes, each overridable by
// the matching env var (SCYLLA_HOST, SCYLLA_PORT, REDIS_HOST, REDIS_PORT,
// PORT, NODE_ID).
func BindFlags(flags *pflag.FlagSet) {
	flags.String("scylla-host", "127.0.0.1", "ScyllaDB contact host")
	flags.Int("scylla-port", defaultScyllaPort, "ScyllaDB CQL port")
	flags.String("redis-host", "127.0.0.1", "Redis host")
	flags.Int("redis-port", defaultRedisPort, "Redis port")
	flags.Int("port", defaultPort, "HTTP listen port")
	flags.String("node-id", "", `process node id, defaults to "sentinel-<pid>"`)
}

// Load resolves Config from environment variables layered over flag
// defaults, following the SCYLLA_HOST/SCYLLA_PORT/REDIS_HOST/REDIS_PORT/
// PORT/NODE_ID names of spec.md §6.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}

	bindings := map[string]string{
		"scylla-host": "SCYLLA_HOST",
		"scylla-port": "SCYLLA_PORT",
		"redis-host":  "REDIS_HOST",
		"redis-port":  "REDIS_PORT",
		"port":        "PORT",
		"node-id":     "NODE_ID",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	nodeID := v.GetString("node-id")
	if nodeID == "" {
		nodeID = fmt.Sprintf("sentinel-%d", os.Getpid())
	}

	return Config{
		ScyllaHost: v.GetString("scylla-host"),
		ScyllaPort: v.GetInt("scylla-port"),
		RedisHost:  v.GetString("redis-host"),
		RedisPort:  v.GetInt("redis-port"),
		Port:       v.GetInt("port"),
		NodeID:     nodeID,
	}, nil
}

func (c Config) ScyllaAddr() string {
	return fmt.Sprintf("%s:%d", c.ScyllaHost, c.ScyllaPort)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
