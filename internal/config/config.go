package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evalgate/evalgate/internal/models"
)

// Config is the complete engine configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Stream StreamConfig `yaml:"stream"`
	Scorer ScorerConfig `yaml:"scorer"`

	// Gates maps a system type's wire name to its default thresholds.
	// A run's snapshot is captured from here (merged with per-request
	// overrides) at creation time.
	Gates map[string]map[string]float64 `yaml:"gates"`

	LogLevel string `yaml:"log_level"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type StoreConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type StreamConfig struct {
	Provider     string `yaml:"provider"`
	RedisAddr    string `yaml:"redis_addr"`
	Stream       string `yaml:"stream"`
	Group        string `yaml:"group"`
	ConsumerName string `yaml:"consumer_name"`
}

type ScorerConfig struct {
	PipelineTimeout time.Duration `yaml:"pipeline_timeout"`
	RankingK        int           `yaml:"ranking_k"`
}

// Load reads the YAML config at path, falling back to defaults when the
// file is absent, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getEnv("EVALGATE_CONFIG_PATH", "configs/evalgate.yaml")
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s failed: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return nil, fmt.Errorf("reading config %s failed: %w", path, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 18081},
		Store:  StoreConfig{Driver: "sqlite", Path: "evalgate.db"},
		Stream: StreamConfig{
			Provider:     "redis",
			RedisAddr:    "localhost:6379",
			Stream:       "eval-runs",
			Group:        "eval-workers",
			ConsumerName: "worker-1",
		},
		Scorer: ScorerConfig{
			PipelineTimeout: 60 * time.Second,
			RankingK:        10,
		},
		Gates:    defaultGates(),
		LogLevel: "info",
	}
}

// defaultGates holds the per-system-type release bars applied when a
// trigger does not override them.
func defaultGates() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"rag": {
			"faithfulness":     0.7,
			"answer_relevancy": 0.7,
			"pass_rate":        0.9,
		},
		"agent": {
			"tool_call_f1": 0.8,
			"pass_rate":    0.9,
		},
		"chatbot": {
			"coherence": 0.6,
			"pass_rate": 0.9,
		},
		"search": {
			"ndcg_at_k": 0.6,
			"mrr":       0.6,
			"pass_rate": 0.9,
		},
		"classification": {
			"f1":        0.7,
			"pass_rate": 0.9,
		},
		"code_gen": {
			"security_score": 0.8,
			"pass_rate":      0.9,
		},
		"summarization": {
			"rouge_1":   0.4,
			"pass_rate": 0.9,
		},
		"translation": {
			"bleu":      0.3,
			"pass_rate": 0.9,
		},
		"custom": {
			"pass_rate": 0.9,
		},
	}
}

// ThresholdsFor returns a copy of the default thresholds for a system
// type. Callers may mutate the copy when applying overrides.
func (c *Config) ThresholdsFor(t models.SystemType) map[string]float64 {
	defaults := c.Gates[t.String()]
	thresholds := make(map[string]float64, len(defaults))
	for metric, threshold := range defaults {
		thresholds[metric] = threshold
	}
	return thresholds
}

func applyEnvOverrides(cfg *Config) {
	cfg.Server.Port = getEnvInt("EVALGATE_API_PORT", cfg.Server.Port)
	cfg.Store.Driver = getEnv("EVALGATE_STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.Path = getEnv("EVALGATE_STORE_PATH", cfg.Store.Path)
	cfg.Stream.RedisAddr = getEnv("REDIS_ADDR", cfg.Stream.RedisAddr)
	cfg.Stream.Stream = getEnv("EVALGATE_STREAM", cfg.Stream.Stream)
	cfg.Stream.Group = getEnv("EVALGATE_STREAM_GROUP", cfg.Stream.Group)
	cfg.Stream.ConsumerName = getEnv("EVALGATE_CONSUMER_NAME", cfg.Stream.ConsumerName)
	cfg.LogLevel = getEnv("EVALGATE_LOG_LEVEL", cfg.LogLevel)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 18081
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Scorer.PipelineTimeout <= 0 {
		cfg.Scorer.PipelineTimeout = 60 * time.Second
	}
	if cfg.Scorer.RankingK <= 0 {
		cfg.Scorer.RankingK = 10
	}
	if cfg.Gates == nil {
		cfg.Gates = defaultGates()
	}
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		value = defaultValue
	}

	return value
}
