// Package config carries the gateway's runtime settings.
package config

import (
	"os"
	"time"
)

// Backend selects how the gateway talks to the object store.
const (
	// BackendS3 signs raw HTTP requests itself.
	BackendS3 = "s3"
	// BackendMinio delegates to the minio-go SDK.
	BackendMinio = "minio"
)

// DefaultPartSize is the fixed chunk size uploads are partitioned into.
const DefaultPartSize = 5 * 1024 * 1024

type Config struct {
	ListenAddr string

	// Object store connection.
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Secure    bool
	Backend   string

	// Metadata database path.
	DBPath string

	PartSize       int64
	UploadExpiry   time.Duration
	DownloadExpiry time.Duration

	ThumbnailEnable bool
	ThumbnailSize   int
}

type Option func(*Config)

func WithListenAddr(addr string) Option {
	return func(cfg *Config) {
		cfg.ListenAddr = addr
	}
}

func WithEndpoint(endpoint string) Option {
	return func(cfg *Config) {
		cfg.Endpoint = endpoint
	}
}

func WithCredentials(accessKey, secretKey string) Option {
	return func(cfg *Config) {
		cfg.AccessKey = accessKey
		cfg.SecretKey = secretKey
	}
}

func WithRegion(region string) Option {
	return func(cfg *Config) {
		cfg.Region = region
	}
}

func WithBackend(backend string) Option {
	return func(cfg *Config) {
		cfg.Backend = backend
	}
}

func WithDBPath(path string) Option {
	return func(cfg *Config) {
		cfg.DBPath = path
	}
}

func WithPartSize(size int64) Option {
	return func(cfg *Config) {
		cfg.PartSize = size
	}
}

func WithThumbnails(enable bool, size int) Option {
	return func(cfg *Config) {
		cfg.ThumbnailEnable = enable
		cfg.ThumbnailSize = size
	}
}

// New returns a Config with defaults applied, overridden first by
// MINIO_PLUS_* environment variables and then by the given options.
func New(opts ...Option) Config {
	cfg := Config{
		ListenAddr:      ":8080",
		Endpoint:        getenv("MINIO_PLUS_ENDPOINT", "http://localhost:9000"),
		AccessKey:       getenv("MINIO_PLUS_ACCESS_KEY", "minioadmin"),
		SecretKey:       getenv("MINIO_PLUS_SECRET_KEY", "minioadmin"),
		Region:          getenv("MINIO_PLUS_REGION", "us-east-1"),
		Backend:         getenv("MINIO_PLUS_BACKEND", BackendS3),
		DBPath:          getenv("MINIO_PLUS_DB", "minio-plus.db"),
		PartSize:        DefaultPartSize,
		UploadExpiry:    60 * time.Minute,
		DownloadExpiry:  10 * time.Minute,
		ThumbnailEnable: true,
		ThumbnailSize:   300,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// getenv returns the value of the environment variable named by key or
// fallback if the variable is not present.
func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
