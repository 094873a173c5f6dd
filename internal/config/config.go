package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Session storage backends
const (
	SessionBackendSQLite = "sqlite"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

// Upload backends
const (
	UploadBackendHTTP  = "http"
	UploadBackendS3    = "s3"
	UploadBackendMinio = "minio"
)

type Config struct {
	APIBaseURL     string        `yaml:"api_base_url"`
	SocketURL      string        `yaml:"socket_url"`
	GoogleClientID string        `yaml:"google_client_id"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`

	LogLevel   string `yaml:"log_level"`
	ListenAddr string `yaml:"listen_addr"`

	SessionBackend string `yaml:"session_backend"`
	SessionDBPath  string `yaml:"session_db_path"`
	RedisURL       string `yaml:"redis_url"`
	SessionSecret  string `yaml:"session_secret"`
	SessionProfile string `yaml:"session_profile"`

	GeoTimeout time.Duration `yaml:"geo_timeout"`
	// Location is a fixed "lat,lng" reported when the host has no position source.
	Location string `yaml:"location"`

	UploadBackend string `yaml:"upload_backend"`
	UploadURL     string `yaml:"upload_url"`

	R2AccountID       string `yaml:"r2_account_id"`
	R2AccessKeyID     string `yaml:"r2_access_key_id"`
	R2SecretAccessKey string `yaml:"r2_secret_access_key"`
	R2BucketName      string `yaml:"r2_bucket_name"`
	R2PublicURL       string `yaml:"r2_public_url"`

	MinioEndpoint  string `yaml:"minio_endpoint"`
	MinioAccessKey string `yaml:"minio_access_key"`
	MinioSecretKey string `yaml:"minio_secret_key"`
	MinioBucket    string `yaml:"minio_bucket"`
	MinioUseSSL    bool   `yaml:"minio_use_ssl"`
	MinioPublicURL string `yaml:"minio_public_url"`
}

// LoadConfig reads .env (if present), an optional YAML file named by CONFIG_FILE,
// then lets environment variables override both.
func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	cfg := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.APIBaseURL, "API_BASE_URL")
	setString(&cfg.SocketURL, "SOCKET_URL")
	setString(&cfg.GoogleClientID, "GOOGLE_CLIENT_ID")
	setDuration(&cfg.HTTPTimeout, "HTTP_TIMEOUT")

	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.ListenAddr, "LISTEN_ADDR")

	setString(&cfg.SessionBackend, "SESSION_BACKEND")
	setString(&cfg.SessionDBPath, "SESSION_DB_PATH")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.SessionSecret, "SESSION_SECRET")
	setString(&cfg.SessionProfile, "SESSION_PROFILE")

	setDuration(&cfg.GeoTimeout, "GEO_TIMEOUT")
	setString(&cfg.Location, "LOCATION")

	setString(&cfg.UploadBackend, "UPLOAD_BACKEND")
	setString(&cfg.UploadURL, "UPLOAD_URL")

	setString(&cfg.R2AccountID, "R2_ACCOUNT_ID")
	setString(&cfg.R2AccessKeyID, "R2_ACCESS_KEY_ID")
	setString(&cfg.R2SecretAccessKey, "R2_SECRET_ACCESS_KEY")
	setString(&cfg.R2BucketName, "R2_BUCKET_NAME")
	setString(&cfg.R2PublicURL, "R2_PUBLIC_URL")

	setString(&cfg.MinioEndpoint, "MINIO_ENDPOINT")
	setString(&cfg.MinioAccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.MinioSecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.MinioBucket, "MINIO_BUCKET")
	setString(&cfg.MinioPublicURL, "MINIO_PUBLIC_URL")
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		cfg.MinioUseSSL = strings.EqualFold(v, "true") || v == "1"
	}
}

func applyDefaults(cfg *Config) {
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.SocketURL == "" {
		cfg.SocketURL = cfg.APIBaseURL
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:7070"
	}
	if cfg.SessionBackend == "" {
		cfg.SessionBackend = SessionBackendSQLite
	}
	if cfg.SessionDBPath == "" {
		cfg.SessionDBPath = "session.db"
	}
	if cfg.GeoTimeout <= 0 {
		cfg.GeoTimeout = 5 * time.Second
	}
	if cfg.UploadBackend == "" {
		cfg.UploadBackend = UploadBackendHTTP
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setDuration accepts Go durations ("8s") or plain seconds ("8").
func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if d, err := time.ParseDuration(v + "s"); err == nil {
		*dst = d
	}
}
