// Package config loads the vecmem CLI configuration from a YAML file with
// VECMEM_* environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// LogConfig controls diagnostic output. Diagnostics always go to stderr so
// they never mix with the JSON results on stdout.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
	// JSON switches the log format from text to JSON.
	JSON bool `yaml:"json"`
}

// ArchiveConfig points at an S3-compatible object store for snapshots.
type ArchiveConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

// SnapshotConfig controls snapshot exports.
type SnapshotConfig struct {
	// Compression is one of "none", "zstd", "lz4".
	Compression string        `yaml:"compression"`
	Archive     ArchiveConfig `yaml:"archive"`
}

// TranscriptConfig points at the companion transcript service.
type TranscriptConfig struct {
	BaseURL string `yaml:"baseURL"`
}

// Config is the full CLI configuration.
type Config struct {
	// DataDir is the root directory holding all collections.
	DataDir string `yaml:"dataDir"`
	// Metric is the distance metric for new collections: "cosine" or "l2".
	Metric string `yaml:"metric"`
	// SyncWrites fsyncs every mutation before acknowledging it.
	SyncWrites bool `yaml:"syncWrites"`
	// Compress enables zstd compression of collection logs.
	Compress bool `yaml:"compress"`
	// LockTimeout bounds the wait for a collection's cross-process lock.
	// Zero waits indefinitely.
	LockTimeout time.Duration `yaml:"lockTimeout"`

	Log        LogConfig        `yaml:"log"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Transcript TranscriptConfig `yaml:"transcript"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	return Config{
		DataDir:    "./data",
		Metric:     "cosine",
		SyncWrites: true,
		Log: LogConfig{
			Level: "info",
		},
		Snapshot: SnapshotConfig{
			Compression: "zstd",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path if
// path is non-empty, then VECMEM_* environment variables on top.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) error {
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = b
		return nil
	}

	setString("VECMEM_DATA_DIR", &c.DataDir)
	setString("VECMEM_METRIC", &c.Metric)
	setString("VECMEM_LOG_LEVEL", &c.Log.Level)
	setString("VECMEM_SNAPSHOT_COMPRESSION", &c.Snapshot.Compression)
	setString("VECMEM_ARCHIVE_ENDPOINT", &c.Snapshot.Archive.Endpoint)
	setString("VECMEM_ARCHIVE_ACCESS_KEY", &c.Snapshot.Archive.AccessKey)
	setString("VECMEM_ARCHIVE_SECRET_KEY", &c.Snapshot.Archive.SecretKey)
	setString("VECMEM_ARCHIVE_BUCKET", &c.Snapshot.Archive.Bucket)
	setString("VECMEM_ARCHIVE_PREFIX", &c.Snapshot.Archive.Prefix)
	setString("VECMEM_TRANSCRIPT_URL", &c.Transcript.BaseURL)

	if err := setBool("VECMEM_SYNC_WRITES", &c.SyncWrites); err != nil {
		return err
	}
	if err := setBool("VECMEM_COMPRESS", &c.Compress); err != nil {
		return err
	}
	if err := setBool("VECMEM_LOG_JSON", &c.Log.JSON); err != nil {
		return err
	}
	if err := setBool("VECMEM_ARCHIVE_USE_SSL", &c.Snapshot.Archive.UseSSL); err != nil {
		return err
	}

	if v, ok := os.LookupEnv("VECMEM_LOCK_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse VECMEM_LOCK_TIMEOUT: %w", err)
		}
		c.LockTimeout = d
	}

	return nil
}
