package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

const (
	DefaultSecretKey    = "dev-key-for-testing"
	defaultModelPath    = "WikiArt5.pkl"
	defaultOutputDir    = "static/uploads"
	defaultPort         = 8080
	defaultMaxBodyBytes = 16 * 1024 * 1024
	defaultCleanupSpec  = "0 * * * *"
)

type Config struct {
	Port         int              `json:"port"`
	Environment  string           `json:"environment"`
	ModelPath    string           `json:"model_path"`
	OutputDir    string           `json:"output_dir"`
	SecretKey    string           `json:"secret_key"`
	MaxBodyBytes int64            `json:"max_body_bytes"`
	SentryDSN    string           `json:"sentry_dsn"`
	LogConfig    logger.LogConfig `json:"log_config"`
	Network      NetworkConfig    `json:"network"`
	FileStore    FileStoreConfig  `json:"file_store"`
	Retention    RetentionConfig  `json:"retention"`
	CORSOrigins  []string         `json:"cors_origins"`
}

// NetworkConfig selects a network backend; Data is passed to its factory.
type NetworkConfig struct {
	Backend string                 `json:"backend"`
	URL     string                 `json:"url"`
	Data    map[string]interface{} `json:"data"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type RetentionConfig struct {
	MaxAgeHours int    `json:"max_age_hours"`
	Spec        string `json:"spec"`
}

// Load reads the optional JSON file at path, then a .env file, then the
// process environment. Later sources win.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	setString(&cfg.Environment, "ENVIRONMENT")
	setString(&cfg.ModelPath, "MODEL_PATH")
	setString(&cfg.OutputDir, "UPLOAD_FOLDER")
	setString(&cfg.SecretKey, "SECRET_KEY")
	setString(&cfg.SentryDSN, "SENTRY_DSN")
	setString(&cfg.LogConfig.Level, "LOG_LEVEL")
	setString(&cfg.Network.Backend, "NETWORK_BACKEND")
	setString(&cfg.Network.URL, "NETWORK_URL")
	setString(&cfg.FileStore.Type, "FILE_STORE")
	if v := os.Getenv("RETENTION_MAX_AGE_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RETENTION_MAX_AGE_HOURS %q: %w", v, err)
		}
		cfg.Retention.MaxAgeHours = hours
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() error {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.ModelPath == "" {
		c.ModelPath = defaultModelPath
	}
	if c.OutputDir == "" {
		c.OutputDir = defaultOutputDir
	}
	if c.SecretKey == "" {
		c.SecretKey = DefaultSecretKey
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.Network.Backend == "" {
		c.Network.Backend = "remote"
	}
	if c.FileStore.Type == "" {
		c.FileStore.Type = "local"
	}
	if c.Retention.MaxAgeHours < 0 {
		return fmt.Errorf("retention.max_age_hours must not be negative")
	}
	if c.Retention.Spec == "" {
		c.Retention.Spec = defaultCleanupSpec
	}
	switch c.FileStore.Type {
	case "local":
		data, _ := c.FileStore.Data.(map[string]interface{})
		if data == nil {
			data = map[string]interface{}{}
		}
		if _, ok := data["dir"]; !ok {
			data["dir"] = c.OutputDir
		}
		c.FileStore.Data = data
	case "s3":
		if c.FileStore.Data == nil {
			return fmt.Errorf("file_store.data is required for s3 store")
		}
	default:
		return fmt.Errorf("file_store.type must be local or s3")
	}
	return nil
}

// NetworkArgs is the factory config for the selected backend: the
// checkpoint path and sidecar url merged over any backend-specific data.
func (c *Config) NetworkArgs() map[string]interface{} {
	args := make(map[string]interface{}, len(c.Network.Data)+2)
	for k, v := range c.Network.Data {
		args[k] = v
	}
	args["checkpoint"] = c.ModelPath
	if c.Network.URL != "" {
		args["url"] = c.Network.URL
	}
	return args
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DefaultSecretOutsideDev reports whether the development secret is in use
// anywhere but a development deployment, staging included.
func (c *Config) DefaultSecretOutsideDev() bool {
	return c.SecretKey == DefaultSecretKey && c.Environment != "development"
}
