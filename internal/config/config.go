package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	LogConfig     logger.LogConfig `json:"log_config"`
	Database      DatabaseConfig   `json:"database"`
	FileStore     FileStoreConfig  `json:"file_store"`
	Embedding     EmbeddingConfig  `json:"embedding"`
	Ingest        IngestConfig     `json:"ingest"`
	Retrieval     RetrievalConfig  `json:"retrieval"`
	CORSAllowlist []string         `json:"cors_allowlist"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type EmbeddingConfig struct {
	Provider          string      `json:"provider"`
	Model             string      `json:"model"`
	Dimensions        int         `json:"dimensions"`
	TimeoutSeconds    int         `json:"timeout_seconds"`
	MaxAttempts       int         `json:"max_attempts"`
	RetryDelaySeconds int         `json:"retry_delay_seconds"`
	CacheSize         int         `json:"cache_size"`
	CacheTTLHours     int         `json:"cache_ttl_hours"`
	CacheMaxAgeDays   int         `json:"cache_max_age_days"`
	Data              interface{} `json:"data"`
}

type IngestConfig struct {
	Workers             int `json:"workers"`
	QueueSize           int `json:"queue_size"`
	ChunkSize           int `json:"chunk_size"`
	ChunkOverlap        int `json:"chunk_overlap"`
	StuckAfterMinutes   int `json:"stuck_after_minutes"`
	FetchTimeoutSeconds int `json:"fetch_timeout_seconds"`
	// AdmitIntervalSeconds throttles admissions per client; zero disables.
	AdmitIntervalSeconds int `json:"admit_interval_seconds"`
}

type RetrievalConfig struct {
	DefaultTopK     int     `json:"default_top_k"`
	DefaultMinScore float32 `json:"default_min_score"`
	ContextBudget   int     `json:"context_budget"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && (cfg.Database.Host == "" || cfg.Database.DBName == "") {
		return nil, fmt.Errorf("database.dsn or database.host/dbname is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "bge-m3:latest"
	}
	if cfg.Embedding.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding.dimensions is required")
	}
	if cfg.Embedding.TimeoutSeconds <= 0 {
		cfg.Embedding.TimeoutSeconds = 60
	}
	if cfg.Embedding.MaxAttempts <= 0 {
		cfg.Embedding.MaxAttempts = 3
	}
	if cfg.Embedding.RetryDelaySeconds <= 0 {
		cfg.Embedding.RetryDelaySeconds = 5
	}
	if cfg.Ingest.Workers <= 0 {
		cfg.Ingest.Workers = 4
	}
	if cfg.Ingest.QueueSize <= 0 {
		cfg.Ingest.QueueSize = 256
	}
	if cfg.Ingest.ChunkSize <= 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if cfg.Ingest.ChunkOverlap < 0 || cfg.Ingest.ChunkOverlap >= cfg.Ingest.ChunkSize {
		cfg.Ingest.ChunkOverlap = cfg.Ingest.ChunkSize / 5
	}
	if cfg.Ingest.StuckAfterMinutes <= 0 {
		cfg.Ingest.StuckAfterMinutes = 30
	}
	if cfg.Ingest.FetchTimeoutSeconds <= 0 {
		cfg.Ingest.FetchTimeoutSeconds = 30
	}
	if cfg.Retrieval.DefaultTopK <= 0 {
		cfg.Retrieval.DefaultTopK = 5
	}
	if cfg.Retrieval.DefaultMinScore <= 0 {
		cfg.Retrieval.DefaultMinScore = 0.5
	}
	if cfg.Retrieval.ContextBudget <= 0 {
		cfg.Retrieval.ContextBudget = 6000
	}
	return &cfg, nil
}
