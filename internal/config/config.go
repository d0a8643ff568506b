// Package config resolves ambient defaults (listen port, log level) from,
// in precedence order, explicit CLI flags, environment variables, an
// optional JSON config file, and built-in defaults. Workspace path and
// node role are never sourced from here: those must always be explicit on
// the command line.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	DefaultPort     = 8080
	DefaultLogLevel = "info"
	envPrefix       = "SYNCLITE"
)

// DefaultConfigPath is ~/.synclite/config.json, used when $SYNCLITE_CONFIG
// is unset and no --config flag is given.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".synclite", "config.json")
}

// Defaults holds the resolved ambient configuration.
type Defaults struct {
	Port     int
	LogLevel string
}

// Load reads configPath (or $SYNCLITE_CONFIG, or DefaultConfigPath) if it
// exists, layering environment variables and built-in defaults underneath.
// A missing config file is not an error.
func Load(configPath string) (Defaults, error) {
	v := viper.New()
	v.SetDefault("port", DefaultPort)
	v.SetDefault("log_level", DefaultLogLevel)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	path := configPath
	if path == "" {
		path = os.Getenv("SYNCLITE_CONFIG")
	}
	if path == "" {
		path = DefaultConfigPath()
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return Defaults{}, err
			}
		}
	}

	return Defaults{
		Port:     v.GetInt("port"),
		LogLevel: v.GetString("log_level"),
	}, nil
}
