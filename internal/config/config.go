package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Detector DetectorConfig `yaml:"detector"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Overlay  OverlayConfig  `yaml:"overlay"`
	Web      WebConfig      `yaml:"web"`
	Progress ProgressConfig `yaml:"progress"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

type DetectorConfig struct {
	Provider       string        `yaml:"provider"` // http or exec
	URL            string        `yaml:"url"`
	Command        []string      `yaml:"command"` // helper for the exec provider, image path is appended
	RequestTimeout time.Duration `yaml:"request_timeout"`
	HealthInterval time.Duration `yaml:"health_interval"`
}

type PipelineConfig struct {
	MaxDetectionSize int           `yaml:"max_detection_size"`
	ProviderTimeout  time.Duration `yaml:"provider_timeout"`
	OverlayTimeout   time.Duration `yaml:"overlay_timeout"`
}

type OverlayConfig struct {
	Path  string `yaml:"path"` // empty uses the bundled sunglasses
	Watch bool   `yaml:"watch"`
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"` // localhost is always allowed
}

type ProgressConfig struct {
	Backend     string `yaml:"backend"` // file, memory, redis or postgres
	Dir         string `yaml:"dir"`
	RedisURL    string `yaml:"redis_url"`
	RedisPrefix string `yaml:"redis_prefix"`
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`            // PostgreSQL connection URL
	MaxOpenConns int    `yaml:"max_open_conns"` // Maximum open connections (default 25)
	MaxIdleConns int    `yaml:"max_idle_conns"` // Maximum idle connections (default 5)
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // optional rotating log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envDuration parses a positive Go duration such as "45s".
func envDuration(key string, defaultVal time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultVal
}

// Defaults returns the embedded defaults without env overrides.
func Defaults() *Config {
	cfg := &Config{
		Database: DatabaseConfig{MaxOpenConns: 25, MaxIdleConns: 5},
	}
	// This is an embedded file so this error should never happen in practice
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return cfg
}

func Load() *Config {
	cfg := Defaults()

	d := &cfg.Detector
	d.Provider = envString("LANDMARK_PROVIDER", d.Provider)
	d.URL = envString("LANDMARK_URL", d.URL)
	if cmd := os.Getenv("LANDMARK_COMMAND"); cmd != "" {
		d.Command = strings.Fields(cmd)
	}
	d.RequestTimeout = envDuration("LANDMARK_REQUEST_TIMEOUT", d.RequestTimeout)
	d.HealthInterval = envDuration("LANDMARK_HEALTH_INTERVAL", d.HealthInterval)

	p := &cfg.Pipeline
	p.MaxDetectionSize = envInt("MAX_DETECTION_SIZE", p.MaxDetectionSize)
	p.ProviderTimeout = envDuration("PROVIDER_READY_TIMEOUT", p.ProviderTimeout)
	p.OverlayTimeout = envDuration("OVERLAY_READY_TIMEOUT", p.OverlayTimeout)

	cfg.Overlay.Path = envString("OVERLAY_PATH", cfg.Overlay.Path)
	cfg.Overlay.Watch = envBool("OVERLAY_WATCH", cfg.Overlay.Watch)

	cfg.Web.Host = envString("WEB_HOST", cfg.Web.Host)
	cfg.Web.Port = envInt("WEB_PORT", cfg.Web.Port)
	if env := os.Getenv("WEB_ALLOWED_ORIGINS"); env != "" {
		cfg.Web.AllowedOrigins = nil
		for o := range strings.SplitSeq(env, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Web.AllowedOrigins = append(cfg.Web.AllowedOrigins, o)
			}
		}
	}

	pr := &cfg.Progress
	pr.Backend = envString("PROGRESS_BACKEND", pr.Backend)
	pr.Dir = envString("PROGRESS_DIR", pr.Dir)
	pr.RedisURL = envString("REDIS_URL", pr.RedisURL)
	pr.RedisPrefix = envString("REDIS_PREFIX", pr.RedisPrefix)

	db := &cfg.Database
	db.URL = envString("DATABASE_URL", db.URL)
	db.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", db.MaxOpenConns)
	db.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", db.MaxIdleConns)

	l := &cfg.Log
	l.Level = envString("LOG_LEVEL", l.Level)
	l.File = envString("LOG_FILE", l.File)
	l.MaxSizeMB = envInt("LOG_MAX_SIZE_MB", l.MaxSizeMB)
	l.MaxBackups = envInt("LOG_MAX_BACKUPS", l.MaxBackups)

	return cfg
}
