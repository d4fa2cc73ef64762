package config

// DefaultWeightSetName is the name of the built-in weight set.
const DefaultWeightSetName = "default"

// DefaultWeights mirrors the built-in scorer weights.
var DefaultWeights = WeightsConfig{
	EmbeddingSimilarity: 0.55,
	SkillOverlap:        0.20,
	SeniorityMatch:      0.10,
	RecencyDecay:        0.10,
	LocationMatch:       0.05,
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeoutSeconds == 0 {
		cfg.Server.RequestTimeoutSeconds = 30
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/matchfeed/data/db/matchfeed.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/matchfeed/data/indices/bleve"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/matchfeed/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "memory"
	}
	if cfg.Vector.IndexPath == "" {
		cfg.Vector.IndexPath = "/usr/local/var/matchfeed/data/indices/vectors"
	}
	if cfg.Vector.Table == "" {
		cfg.Vector.Table = "item_embeddings"
	}
	if cfg.Discovery.DefaultPageSize == 0 {
		cfg.Discovery.DefaultPageSize = 20
	}
	if cfg.Discovery.MaxPageSize == 0 {
		cfg.Discovery.MaxPageSize = 100
	}
	if cfg.Discovery.CandidatePool == 0 {
		cfg.Discovery.CandidatePool = 300
	}
	if cfg.Discovery.ScoreWorkers == 0 {
		cfg.Discovery.ScoreWorkers = 8
	}
	if cfg.Scoring.WeightSet == "" {
		cfg.Scoring.WeightSet = DefaultWeightSetName
	}
	if cfg.Scoring.WeightSets == nil {
		cfg.Scoring.WeightSets = map[string]WeightsConfig{}
	}
	if _, ok := cfg.Scoring.WeightSets[DefaultWeightSetName]; !ok {
		cfg.Scoring.WeightSets[DefaultWeightSetName] = DefaultWeights
	}
	if cfg.Scoring.RecencyHorizonHours == 0 {
		cfg.Scoring.RecencyHorizonHours = 72
	}
	if cfg.Evolution.Threshold == 0 {
		cfg.Evolution.Threshold = 5
	}
	if cfg.Evolution.EveryN == 0 {
		cfg.Evolution.EveryN = 1
	}
	if cfg.Evolution.BaseWeight == 0 && cfg.Evolution.HistoryWeight == 0 {
		cfg.Evolution.BaseWeight = 0.30
		cfg.Evolution.HistoryWeight = 0.70
	}
	if cfg.Evolution.Workers == 0 {
		cfg.Evolution.Workers = 4
	}
	if cfg.Evolution.QueueSize == 0 {
		cfg.Evolution.QueueSize = 256
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".xlsx", ".json"}
	}
}
