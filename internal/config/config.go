package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/loclift/growth-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	History     HistoryConfig     `yaml:"history" mapstructure:"history"`
	Taxonomy    TaxonomyConfig    `yaml:"taxonomy" mapstructure:"taxonomy"`
	Seasonality SeasonalityConfig `yaml:"seasonality" mapstructure:"seasonality"`
	Scoring     ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`

	// VerticalsPath points at the per-vertical YAML; loaded separately via
	// LoadVerticals because viper flattens map keys.
	VerticalsPath string `yaml:"verticals_path" mapstructure:"verticals_path"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// HistoryConfig configures the keyword observation history backend.
type HistoryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// TaxonomyConfig configures the service-intent vocabulary.
type TaxonomyConfig struct {
	NegativesPath string `yaml:"negatives_path" mapstructure:"negatives_path"`
}

// SeasonalityConfig configures the seasonal alignment rules.
type SeasonalityConfig struct {
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
}

// ScoringConfig configures the opportunity scorer.
type ScoringConfig struct {
	AvgJobValue float64 `yaml:"avg_job_value" mapstructure:"avg_job_value"`
}

// BatchConfig configures multi-client scoring.
type BatchConfig struct {
	MaxConcurrentClients int `yaml:"max_concurrent_clients" mapstructure:"max_concurrent_clients"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Vertical describes one service vertical: the reference service list the
// opportunity scorer walks, content-exclusion terms, and the cities treated
// as known places during geo-phrase extraction.
type Vertical struct {
	OpportunityServices []string `yaml:"opportunity_services"`
	ExcludedFromContent []string `yaml:"excluded_from_content"`
	KnownCities         []string `yaml:"known_cities"`
	AvgJobValue         float64  `yaml:"avg_job_value"`
	// NegativeKeywordsPath names a flat YAML list that overrides the
	// shared negatives file for this vertical.
	NegativeKeywordsPath string `yaml:"negative_keywords_path"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GROWTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "growth.db")
	v.SetDefault("history.path", "keyword_history.json")
	v.SetDefault("taxonomy.negatives_path", "negative_keywords.yaml")
	v.SetDefault("seasonality.rules_path", "seasonality.yaml")
	v.SetDefault("scoring.avg_job_value", 350)
	v.SetDefault("batch.max_concurrent_clients", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("verticals_path", "verticals.yaml")

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

// LoadVerticals reads the per-vertical YAML file of the form
//
//	junk_removal:
//	  opportunity_services: ["junk removal", "garage cleanout"]
//	  known_cities: ["milwaukee", "madison"]
//	  avg_job_value: 350
//
// A missing file returns an empty map: verticals are then driven entirely by
// observed data.
func LoadVerticals(path string) (map[string]Vertical, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Vertical{}, nil
		}
		return nil, eris.Wrapf(err, "config: read verticals %s", path)
	}

	verticals := make(map[string]Vertical)
	if err := yaml.Unmarshal(data, &verticals); err != nil {
		return nil, eris.Wrapf(err, "config: parse verticals %s", path)
	}
	return verticals, nil
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
