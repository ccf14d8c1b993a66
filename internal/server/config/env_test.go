package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_parseEnv(t *testing.T) {
	t.Run("overlays set variables", func(t *testing.T) {
		t.Setenv("UPLOAD_LIMIT", "42")
		t.Setenv("FOLDER", "/srv/filedrop")
		t.Setenv("STORAGE_BACKEND", "s3")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, int64(42), cfg.UploadLimitMB)
		assert.Equal(t, "/srv/filedrop", cfg.StorageFolder)
		assert.Equal(t, "s3", cfg.StorageBackend)

		// unset variables keep their defaults
		assert.Equal(t, int64(1000), cfg.DownloadLimitMB)
		assert.Equal(t, ":5000", cfg.EndpointAddr)
	})

	t.Run("invalid number panics", func(t *testing.T) {
		t.Setenv("DOWNLOAD_LIMIT", "not-a-number")

		cfg := &Config{}
		cfg.LoadDefaults()
		assert.Panics(t, func() { parseEnv(cfg) })
	})
}
