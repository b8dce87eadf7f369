// Package config handles runtime configuration via environment variables.
//
// The conversion pipeline is configured almost entirely by the workflow file;
// the environment only selects cross-cutting runtime behavior that must not
// change the result of a conversion, such as the storage backend and the log
// level.
//
// Environment Variables:
//   - ANNATTO_IN_MEMORY="true" forces in-memory storage; any other value or
//     unset selects on-disk storage. Invalid values produce a warning and
//     fall back to on-disk.
//   - ANNATTO_LOG_LEVEL sets the logrus level ("debug", "info", "warn", ...).
//
// Example:
//
//	cfg := config.LoadFromEnv(nil)
//	g, err := graph.NewGraph(graph.Options{OnDisk: !cfg.Storage.InMemory})
package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/korpling/annatto/pkg/status"
)

// EnvInMemory selects the storage backend of the annotation graph.
const EnvInMemory = "ANNATTO_IN_MEMORY"

// EnvLogLevel sets the process log level.
const EnvLogLevel = "ANNATTO_LOG_LEVEL"

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	Storage StorageConfig
	Logging LoggingConfig
}

// StorageConfig selects the backend of the annotation and edge storages.
type StorageConfig struct {
	// InMemory stores annotations and edges in in-memory maps instead of an
	// on-disk key-value store. The choice is not observable in behavior, only
	// in memory usage and latency.
	InMemory bool
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level logrus.Level
}

// LoadFromEnv reads the configuration from the environment. A warning about
// an unparsable ANNATTO_IN_MEMORY value is delivered on the status channel if
// a sender is given, otherwise through logrus.
func LoadFromEnv(sender status.Sender) *Config {
	return &Config{
		Storage: StorageConfig{InMemory: InMemoryFromEnv(sender)},
		Logging: LoggingConfig{Level: logLevelFromEnv()},
	}
}

// InMemoryFromEnv decides the storage backend from ANNATTO_IN_MEMORY.
//
// Unset is not a user error and silently selects on-disk storage. "true"
// selects in-memory storage and "false" on-disk storage; any other value
// warns and also selects on-disk storage.
func InMemoryFromEnv(sender status.Sender) bool {
	raw, ok := os.LookupEnv(EnvInMemory)
	if !ok {
		return false
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	msg := fmt.Sprintf("Could not read value of environment variable %s, working on disk.", EnvInMemory)
	if sender != nil {
		sender.Send(status.Warning{Message: msg})
	} else {
		logrus.Warn(msg)
	}
	return false
}

func logLevelFromEnv() logrus.Level {
	raw, ok := os.LookupEnv(EnvLogLevel)
	if !ok {
		return logrus.InfoLevel
	}
	level, err := logrus.ParseLevel(raw)
	if err != nil {
		logrus.Warnf("invalid %s value %q, using info", EnvLogLevel, raw)
		return logrus.InfoLevel
	}
	return level
}
