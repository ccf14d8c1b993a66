package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envConfig is the environment overlay. Variable names follow the service's
// historical deployment contract (FOLDER, UPLOAD_LIMIT, DOWNLOAD_LIMIT).
type envConfig struct {
	EndpointAddr    string        `envconfig:"ENDPOINT_ADDR"`
	DatabaseDSN     string        `envconfig:"DATABASE_DSN"`
	LogFormat       string        `envconfig:"LOG_FORMAT"`
	UploadLimitMB   int64         `envconfig:"UPLOAD_LIMIT"`
	DownloadLimitMB int64         `envconfig:"DOWNLOAD_LIMIT"`
	StorageBackend  string        `envconfig:"STORAGE_BACKEND"`
	StorageFolder   string        `envconfig:"FOLDER"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT"`
	S3RootUser      string        `envconfig:"S3_ROOT_USER"`
	S3RootPassword  string        `envconfig:"S3_ROOT_PASSWORD"`
	S3Bucket        string        `envconfig:"S3_BUCKET"`
	S3Region        string        `envconfig:"S3_REGION"`
	S3BaseEndpoint  string        `envconfig:"S3_BASE_ENDPOINT"`
}

// parseEnv overlays set environment variables onto the Config. A .env file
// in the working directory is loaded first when present; unset variables
// leave the existing values alone.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	c := &envConfig{}
	if err := envconfig.Process("", c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.LogFormat != "" {
		config.LogFormat = c.LogFormat
	}
	if c.UploadLimitMB != 0 {
		config.UploadLimitMB = c.UploadLimitMB
	}
	if c.DownloadLimitMB != 0 {
		config.DownloadLimitMB = c.DownloadLimitMB
	}
	if c.StorageBackend != "" {
		config.StorageBackend = c.StorageBackend
	}
	if c.StorageFolder != "" {
		config.StorageFolder = c.StorageFolder
	}
	if c.ShutdownTimeout != 0 {
		config.ShutdownTimeout = c.ShutdownTimeout
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
}
