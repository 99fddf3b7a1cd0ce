// Package config loads log_server's configuration from a YAML file and
// environment overrides, adapted from the teacher's viper-based config
// loader.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/eagine-core/log-server/pkg/utils"
)

// Options is the unified configuration for a log_server process (spec.md
// §6: "Configuration options consumed from the application config").
type Options struct {
	Application struct {
		Random struct {
			// Seed is an optional entropy seed; zero means "use an
			// entropy source" (spec.md §6).
			Seed uint64 `mapstructure:"seed" json:"seed"`
		} `mapstructure:"random" json:"random"`
	} `mapstructure:"application" json:"application"`

	Log struct {
		// Severity is one of the severity names in spec.md §3
		// ("trace".."backtrace").
		Severity string `mapstructure:"severity" json:"severity"`

		// HeartbeatTimeout is how long a stream may go without a
		// heartbeat or other event before it's considered stale
		// (spec.md §3's heartbeat carries "producer liveness" but the
		// distilled spec never acts on it; zero disables the check).
		HeartbeatTimeout time.Duration `mapstructure:"heartbeat_timeout" json:"heartbeat_timeout"`
	} `mapstructure:"log" json:"log"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Options

// Load reads log_server.yaml (if present) from configPath and merges any
// EAGINE_LOG_SERVER_*-prefixed environment overrides. Absence of a config
// file is not an error: every field has a workable zero value (spec.md §6
// names no required environment variables).
func Load(configPath string) (*Options, error) {
	v := viper.New()
	v.SetConfigName("log_server")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("config")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, utils.Wrap(err, "load config")
		}
	}

	v.SetEnvPrefix("EAGINE_LOG_SERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"application.random.seed", "log.severity", "log.heartbeat_timeout"} {
		if err := v.BindEnv(key); err != nil {
			return nil, utils.Wrap(err, "bind env")
		}
	}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	AppConfig = Options{}
	if err := v.Unmarshal(&AppConfig, decodeHook); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads an optional .env file via godotenv, then loads
// configuration using the EAGINE_LOG_SERVER_CONFIG_PATH environment
// variable.
func LoadFromEnv() (*Options, error) {
	_ = godotenv.Load() // optional; absence is not an error
	return Load(utils.EnvOrDefault("EAGINE_LOG_SERVER_CONFIG_PATH", ""))
}
