// Package config provides a reusable loader for irminsule configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nymote/irminsule/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for an irminsule process (spec.md §6
// "configuration knobs"). It is read from an optional default.yaml under
// cmd/config or config; when no such file exists, the defaults apply.
type Config struct {
	Hash struct {
		// Width is the digest width in bytes (spec.md §6 hash.width),
		// mirrored into internal/key.Width at process start.
		Width int `mapstructure:"width" json:"width"`
	} `mapstructure:"hash" json:"hash"`

	Codec struct {
		// InitialWindow is the starting capacity of a codec.Window buffer.
		InitialWindow int `mapstructure:"initial_window" json:"initial_window"`
	} `mapstructure:"codec" json:"codec"`

	Sync struct {
		// MaxPullVertices caps SYNC_PULL_KEYS closures (spec.md §6
		// sync.max_pull_vertices); zero means unbounded.
		MaxPullVertices int `mapstructure:"max_pull_vertices" json:"max_pull_vertices"`
	} `mapstructure:"sync" json:"sync"`

	Server struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"server" json:"server"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

func setDefaults() {
	viper.SetDefault("hash.width", 20)
	viper.SetDefault("codec.initial_window", 65536)
	viper.SetDefault("sync.max_pull_vertices", 1000000)
	viper.SetDefault("server.listen_addr", "127.0.0.1:4771")
	viper.SetDefault("logging.level", "info")
}

// Load reads configuration files and merges any environment-specific
// overrides, then applies environment variable overrides (IRMIN_* per
// spec.md §6). The resulting configuration is stored in AppConfig and
// returned. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	_ = godotenv.Load() // optional .env in the working directory, missing file is not an error

	setDefaults()
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("irmin")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the IRMIN_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("IRMIN_ENV", ""))
}
