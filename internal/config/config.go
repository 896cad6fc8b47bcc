// Package config loads the YAML configuration and applies environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Lllllllleong/bookletflow/internal/gcp"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	GCP        GCPConfig        `yaml:"gcp"`
	Blob       BlobConfig       `yaml:"blob"`
	Vision     VisionConfig     `yaml:"vision"`
	Narration  NarrationConfig  `yaml:"narration"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Language   LanguageConfig   `yaml:"language"`
	RateLimits RateLimitsConfig `yaml:"rate_limits"`
	Auth       AuthConfig       `yaml:"auth"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type GCPConfig struct {
	ProjectID        string `yaml:"project_id"`
	Region           string `yaml:"region"`
	Collection       string `yaml:"collection"`
	CatalogBackend   string `yaml:"catalog_backend"` // firestore or memory
	WorkflowID       string `yaml:"workflow_id"`
	WorkflowLocation string `yaml:"workflow_location"`
	InboxPrefix      string `yaml:"inbox_prefix"`
}

type BlobConfig struct {
	Backend          string `yaml:"backend"` // gcs, minio or memory
	Bucket           string `yaml:"bucket"`
	URLExpirySeconds int    `yaml:"url_expiry_seconds"`
	MinioEndpoint    string `yaml:"minio_endpoint"`
	MinioAccessKey   string `yaml:"minio_access_key"`
	MinioSecretKey   string `yaml:"minio_secret_key"`
	MinioUseSSL      bool   `yaml:"minio_use_ssl"`
	MinioRegion      string `yaml:"minio_region"`
}

type VisionConfig struct {
	Model     string `yaml:"model"`
	MaxLines  int    `yaml:"max_lines"`
	MaxChars  int    `yaml:"max_chars"`
	MaxTokens int    `yaml:"max_tokens"`
}

type NarrationConfig struct {
	LanguageCode string `yaml:"language_code"`
	FemaleVoice  string `yaml:"female_voice"`
	DefaultVoice string `yaml:"default_voice"`
}

type PipelineConfig struct {
	DPI                float64       `yaml:"dpi"`
	CallTimeout        time.Duration `yaml:"call_timeout"`
	UploadAttempts     int           `yaml:"upload_attempts"`
	UploadBackoff      time.Duration `yaml:"upload_backoff"`
	UploadWriteTimeout time.Duration `yaml:"upload_write_timeout"`
	WorkerPoolSize     int           `yaml:"worker_pool_size"`
	MaxUploadBytes     int64         `yaml:"max_upload_bytes"`
}

type LanguageConfig struct {
	// Languages restricts the classifier. Empty means every language.
	Languages []string `yaml:"languages"`
}

type RateLimit struct {
	Limit   int           `yaml:"limit"`
	Window  time.Duration `yaml:"window"`
	Penalty time.Duration `yaml:"penalty"`
}

type RateLimitsConfig struct {
	Reader  RateLimit `yaml:"reader"`
	Booklet RateLimit `yaml:"booklet"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration usable without any file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path (optional), fills defaults and applies environment
// overrides. A .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.GCP.ProjectID = gcp.GetEnv("PROJECT_ID", c.GCP.ProjectID)
	c.GCP.Region = gcp.GetEnv("VERTEX_AI_REGION", c.GCP.Region)
	c.GCP.Collection = gcp.GetEnv("FIRESTORE_COLLECTION", c.GCP.Collection)
	c.GCP.CatalogBackend = gcp.GetEnv("CATALOG_BACKEND", c.GCP.CatalogBackend)
	c.GCP.WorkflowID = gcp.GetEnv("WORKFLOW_ID", c.GCP.WorkflowID)
	c.GCP.WorkflowLocation = gcp.GetEnv("WORKFLOW_LOCATION", c.GCP.WorkflowLocation)
	c.Blob.Backend = gcp.GetEnv("BLOB_BACKEND", c.Blob.Backend)
	c.Blob.Bucket = gcp.GetEnv("BOOKLET_BUCKET", c.Blob.Bucket)
	c.Blob.URLExpirySeconds = gcp.GetEnvInt("URL_EXPIRY_SECONDS", c.Blob.URLExpirySeconds)
	c.Blob.MinioEndpoint = gcp.GetEnv("MINIO_ENDPOINT", c.Blob.MinioEndpoint)
	c.Blob.MinioAccessKey = gcp.GetEnv("MINIO_ACCESS_KEY", c.Blob.MinioAccessKey)
	c.Blob.MinioSecretKey = gcp.GetEnv("MINIO_SECRET_KEY", c.Blob.MinioSecretKey)
	c.Vision.Model = gcp.GetEnv("VISION_MODEL", c.Vision.Model)
	c.Pipeline.WorkerPoolSize = gcp.GetEnvInt("WORKER_POOL_SIZE", c.Pipeline.WorkerPoolSize)
	c.Auth.JWTSecret = gcp.GetEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Log.Level = gcp.GetEnv("LOG_LEVEL", c.Log.Level)
	c.Server.Port = gcp.GetEnvInt("PORT", c.Server.Port)
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.GCP.Region == "" {
		c.GCP.Region = "us-central1"
	}
	if c.GCP.Collection == "" {
		c.GCP.Collection = "booklets"
	}
	if c.GCP.CatalogBackend == "" {
		c.GCP.CatalogBackend = "firestore"
	}
	if c.GCP.WorkflowLocation == "" {
		c.GCP.WorkflowLocation = c.GCP.Region
	}
	if c.GCP.InboxPrefix == "" {
		c.GCP.InboxPrefix = "inbox/"
	}
	if c.Blob.Backend == "" {
		c.Blob.Backend = "gcs"
	}
	if c.Blob.URLExpirySeconds == 0 {
		c.Blob.URLExpirySeconds = 3600
	}
	if c.Vision.Model == "" {
		c.Vision.Model = "gemini-1.5-pro"
	}
	if c.Vision.MaxLines == 0 {
		c.Vision.MaxLines = 3
	}
	if c.Vision.MaxChars == 0 {
		c.Vision.MaxChars = 250
	}
	if c.Vision.MaxTokens == 0 {
		c.Vision.MaxTokens = 256
	}
	if c.Narration.LanguageCode == "" {
		c.Narration.LanguageCode = "es-US"
	}
	if c.Narration.FemaleVoice == "" {
		c.Narration.FemaleVoice = "es-US-Standard-A"
	}
	if c.Narration.DefaultVoice == "" {
		c.Narration.DefaultVoice = "es-US-Standard-B"
	}
	if c.Pipeline.DPI == 0 {
		c.Pipeline.DPI = 150
	}
	if c.Pipeline.CallTimeout == 0 {
		c.Pipeline.CallTimeout = 60 * time.Second
	}
	if c.Pipeline.UploadAttempts == 0 {
		c.Pipeline.UploadAttempts = 4
	}
	if c.Pipeline.UploadBackoff == 0 {
		c.Pipeline.UploadBackoff = time.Second
	}
	if c.Pipeline.UploadWriteTimeout == 0 {
		c.Pipeline.UploadWriteTimeout = 50 * time.Second
	}
	if c.Pipeline.WorkerPoolSize == 0 {
		c.Pipeline.WorkerPoolSize = 4
	}
	if c.Pipeline.MaxUploadBytes == 0 {
		c.Pipeline.MaxUploadBytes = 50 << 20
	}
	if c.RateLimits.Reader == (RateLimit{}) {
		c.RateLimits.Reader = RateLimit{Limit: 25, Window: 60 * time.Second, Penalty: 180 * time.Second}
	}
	if c.RateLimits.Booklet == (RateLimit{}) {
		c.RateLimits.Booklet = RateLimit{Limit: 10, Window: 60 * time.Second, Penalty: 300 * time.Second}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// URLExpiry is the lifetime of signed read URLs.
func (c *Config) URLExpiry() time.Duration {
	return time.Duration(c.Blob.URLExpirySeconds) * time.Second
}
