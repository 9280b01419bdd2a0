// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	DataDir string       `yaml:"data_dir" mapstructure:"data_dir"`
	Output  OutputConfig `yaml:"output" mapstructure:"output"`
	Store   StoreConfig  `yaml:"store" mapstructure:"store"`
	BLS     BLSConfig    `yaml:"bls" mapstructure:"bls"`
	Census  CensusConfig `yaml:"census" mapstructure:"census"`
	HTTP    HTTPConfig   `yaml:"http" mapstructure:"http"`
	Server  ServerConfig `yaml:"server" mapstructure:"server"`
	Log     LogConfig    `yaml:"log" mapstructure:"log"`
}

// OutputConfig configures where the combined qualifying-area table is written.
type OutputConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the optional warehouse backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// BLSConfig configures Bureau of Labor Statistics extraction.
type BLSConfig struct {
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	StartYear int    `yaml:"start_year" mapstructure:"start_year"`
}

// CensusConfig configures TIGER/Line boundary downloads.
type CensusConfig struct {
	TIGERYear   int  `yaml:"tiger_year" mapstructure:"tiger_year"`
	FTPFallback bool `yaml:"ftp_fallback" mapstructure:"ftp_fallback"`
}

// HTTPConfig configures the shared fetcher.
type HTTPConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// ServerConfig configures the read-only API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENERGYCOMMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data_dir", "data/inputs")
	v.SetDefault("output.path", "output/qualifying_areas.csv")
	v.SetDefault("output.format", "csv")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "data/energy_communities.db")
	v.SetDefault("bls.start_year", 2010)
	v.SetDefault("census.tiger_year", 2020)
	v.SetDefault("census.ftp_fallback", true)
	v.SetDefault("http.user_agent", "energy-communities/1.0")
	v.SetDefault("http.timeout_secs", 120)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
