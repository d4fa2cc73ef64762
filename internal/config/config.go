// Package config provides configuration loading and structs for the matchfeed server.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Evolution EvolutionConfig `yaml:"evolution"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RequestTimeoutSeconds bounds every API request.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

// StorageConfig holds paths for the database and the keyword index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// EmbeddingConfig holds ONNX embedder settings.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	// Mock selects the deterministic hash embedder instead of the ONNX model.
	Mock bool `yaml:"mock"`
}

// VectorConfig selects and configures the candidate source.
type VectorConfig struct {
	IndexType   string `yaml:"index_type"` // memory or pgvector
	IndexPath   string `yaml:"index_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	Table       string `yaml:"table"`
}

// DiscoveryConfig holds feed and candidate retrieval settings.
type DiscoveryConfig struct {
	DefaultPageSize     int  `yaml:"default_page_size"`
	MaxPageSize         int  `yaml:"max_page_size"`
	CandidatePool       int  `yaml:"candidate_pool"`
	ScaleWithExclusions bool `yaml:"scale_with_exclusions"`
	ScoreWorkers        int  `yaml:"score_workers"`
}

// WeightsConfig is the YAML form of a scoring weight set.
type WeightsConfig struct {
	EmbeddingSimilarity float64 `yaml:"embedding_similarity"`
	SkillOverlap        float64 `yaml:"skill_overlap"`
	SeniorityMatch      float64 `yaml:"seniority_match"`
	RecencyDecay        float64 `yaml:"recency_decay"`
	LocationMatch       float64 `yaml:"location_match"`
}

// ScoringConfig holds hybrid scorer settings.
type ScoringConfig struct {
	// WeightSet names the active entry of WeightSets.
	WeightSet           string                   `yaml:"weight_set"`
	WeightSets          map[string]WeightsConfig `yaml:"weight_sets"`
	RecencyHorizonHours float64                  `yaml:"recency_horizon_hours"`
	CalibrationPath     string                   `yaml:"calibration_path"`
}

// EvolutionConfig holds profile evolution settings.
type EvolutionConfig struct {
	Threshold     int     `yaml:"threshold"`
	EveryN        int     `yaml:"every_n"`
	BaseWeight    float64 `yaml:"base_weight"`
	HistoryWeight float64 `yaml:"history_weight"`
	Workers       int     `yaml:"workers"`
	QueueSize     int     `yaml:"queue_size"`
}

// WatchConfig holds the directories watched for catalog imports.
type WatchConfig struct {
	ImportDirectories []string `yaml:"import_directories"`
	Extensions        []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read, parsed, or fails validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Vector.IndexPath = expandPath(cfg.Vector.IndexPath, configDir)
	if cfg.Scoring.CalibrationPath != "" {
		cfg.Scoring.CalibrationPath = expandPath(cfg.Scoring.CalibrationPath, configDir)
	}
	for i := range cfg.Watch.ImportDirectories {
		cfg.Watch.ImportDirectories[i] = expandPath(cfg.Watch.ImportDirectories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Discovery.DefaultPageSize > c.Discovery.MaxPageSize {
		return fmt.Errorf("invalid config: default_page_size %d exceeds max_page_size %d",
			c.Discovery.DefaultPageSize, c.Discovery.MaxPageSize)
	}
	switch c.Vector.IndexType {
	case "memory":
	case "pgvector":
		if c.Vector.PostgresDSN == "" {
			return fmt.Errorf("invalid config: vector.postgres_dsn is required for pgvector")
		}
	default:
		return fmt.Errorf("invalid config: unknown vector.index_type %q", c.Vector.IndexType)
	}
	if _, ok := c.Scoring.WeightSets[c.Scoring.WeightSet]; !ok {
		return fmt.Errorf("invalid config: scoring.weight_set %q is not defined", c.Scoring.WeightSet)
	}
	e := c.Evolution
	if e.BaseWeight < 0 || e.HistoryWeight < 0 || math.Abs(e.BaseWeight+e.HistoryWeight-1) > 1e-6 {
		return fmt.Errorf("invalid config: evolution base_weight + history_weight must equal 1")
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
