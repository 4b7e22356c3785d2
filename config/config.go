package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	OpenAI OpenAIConfig `yaml:"openai"`
	Minio  MinioConfig  `yaml:"minio"`
	Auth   AuthConfig   `yaml:"auth"`
	Log    LogConfig    `yaml:"log"`
	Store  StoreConfig  `yaml:"store"`
	Render RenderConfig `yaml:"render"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	MaxUploadMB     int64         `yaml:"max_upload_mb"`
	RateLimit       int           `yaml:"rate_limit"` // requests per minute per client, 0 = off
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// OpenAIConfig selects the completion and image models used by the pipeline.
type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	ChatModel   string  `yaml:"chat_model"`
	Temperature float32 `yaml:"temperature"`
	ImageModel  string  `yaml:"image_model"`
	ImageSize   string  `yaml:"image_size"`
	// Timeout bounds each API request. 0 leaves only the transport defaults.
	Timeout time.Duration `yaml:"timeout"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	Region     string `yaml:"region"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	AccessKey        string `yaml:"access_key"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StoreConfig struct {
	MaxJobs int `yaml:"max_jobs"` // 0 = unlimited
}

// RenderConfig controls how layout mockups are produced once the proposals are known.
// Concurrency 1 keeps the one-image-at-a-time order.
type RenderConfig struct {
	Concurrency  int           `yaml:"concurrency"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// Defaults for keys where an explicit 0 is kept: rate_limit 0 disables the
// limiter and max_jobs 0 keeps every job.
const (
	DefaultRateLimit = 100
	DefaultMaxJobs   = 100
)

var (
	ErrMissingAPIKey    = errors.New("openai.api_key is required")
	ErrMissingJWTSecret = errors.New("auth.jwt_secret is required")
)

// Load reads the YAML file at path, applies environment overrides and defaults.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Seeded before decoding because 0 is a meaningful value for these keys.
	cfg := Config{
		Server: ServerConfig{RateLimit: DefaultRateLimit},
		Store:  StoreConfig{MaxJobs: DefaultMaxJobs},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		key    string
		target *string
	}{
		{"OPENAI_API_KEY", &c.OpenAI.APIKey},
		{"OPENAI_BASE_URL", &c.OpenAI.BaseURL},
		{"MINIO_ACCESS_KEY", &c.Minio.AccessKey},
		{"MINIO_SECRET_KEY", &c.Minio.SecretKey},
		{"JWT_SECRET", &c.Auth.JWTSecret},
		{"ACCESS_KEY", &c.Auth.AccessKey},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.target = v
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 32
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o"
	}
	if c.OpenAI.Temperature == 0 {
		c.OpenAI.Temperature = 0.7
	}
	if c.OpenAI.ImageModel == "" {
		c.OpenAI.ImageModel = "dall-e-3"
	}
	if c.OpenAI.ImageSize == "" {
		c.OpenAI.ImageSize = "1024x1024"
	}
	if c.Minio.ExpireDays == 0 {
		c.Minio.ExpireDays = 7
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 24
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Render.Concurrency <= 0 {
		c.Render.Concurrency = 1
	}
	if c.Render.FetchTimeout == 0 {
		c.Render.FetchTimeout = 60 * time.Second
	}
}

// Validate reports configuration the service cannot start with.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}
