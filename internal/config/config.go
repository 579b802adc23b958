package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Vision   VisionConfig   `yaml:"vision"`
	Index    IndexConfig    `yaml:"index"`
	Search   SearchConfig   `yaml:"search"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port          int    `yaml:"port"`
	APIKey        string `yaml:"api_key"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type VisionConfig struct {
	ModelsDir          string  `yaml:"models_dir"`
	DetectionThreshold float64 `yaml:"detection_threshold"`
}

// IndexConfig controls the face index backend and the indexing worker.
type IndexConfig struct {
	// Backend selects the face index store: "postgres" or "file".
	Backend string `yaml:"backend"`
	// FileRoot is the directory holding per-event index documents
	// when the file backend is active.
	FileRoot    string `yaml:"file_root"`
	WorkerCount int    `yaml:"worker_count"`
	// MaxAttempts bounds redeliveries of one indexing task before the
	// photo is parked as failed.
	MaxAttempts int `yaml:"max_attempts"`
}

type SearchConfig struct {
	// Threshold is the maximum cosine distance at which a candidate
	// counts as a match. The cutoff is strict: a candidate scoring
	// exactly Threshold is rejected.
	Threshold float64 `yaml:"threshold"`
	// TopK caps the result list; 0 means unlimited.
	TopK           int           `yaml:"top_k"`
	ExtractTimeout time.Duration `yaml:"extract_timeout"`
	ScanTimeout    time.Duration `yaml:"scan_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadSize == 0 {
		cfg.Server.MaxUploadSize = 5 * 1024 * 1024
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Vision.DetectionThreshold == 0 {
		cfg.Vision.DetectionThreshold = 0.5
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = "postgres"
	}
	if cfg.Index.FileRoot == "" {
		cfg.Index.FileRoot = "data/faceindex"
	}
	if cfg.Index.WorkerCount == 0 {
		cfg.Index.WorkerCount = 4
	}
	if cfg.Index.MaxAttempts == 0 {
		cfg.Index.MaxAttempts = 3
	}
	if cfg.Search.Threshold == 0 {
		cfg.Search.Threshold = 0.4
	}
	if cfg.Search.ExtractTimeout == 0 {
		cfg.Search.ExtractTimeout = 10 * time.Second
	}
	if cfg.Search.ScanTimeout == 0 {
		cfg.Search.ScanTimeout = 5 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FG_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("FG_MAX_UPLOAD_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Server.MaxUploadSize = n
		}
	}
	if v := os.Getenv("FG_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FG_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FG_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FG_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FG_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FG_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FG_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("FG_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("FG_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("FG_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("FG_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("FG_INDEX_BACKEND"); v != "" {
		cfg.Index.Backend = v
	}
	if v := os.Getenv("FG_INDEX_FILE_ROOT"); v != "" {
		cfg.Index.FileRoot = v
	}
	if v := os.Getenv("FG_INDEX_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.WorkerCount = n
		}
	}
	if v := os.Getenv("FG_INDEX_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.MaxAttempts = n
		}
	}
	if v := os.Getenv("FG_SEARCH_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.Threshold = f
		}
	}
	if v := os.Getenv("FG_SEARCH_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.TopK = n
		}
	}
	if v := os.Getenv("FG_SEARCH_EXTRACT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Search.ExtractTimeout = d
		}
	}
	if v := os.Getenv("FG_SEARCH_SCAN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Search.ScanTimeout = d
		}
	}
}
