package models

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	CameraSourcePush  = "push"
	CameraSourceStill = "still"
)

type Config struct {
	ServerAddr    string `yaml:"server_addr"`
	DatabaseURL   string `yaml:"database_url"`
	KafkaBroker   string `yaml:"kafka_broker"`
	KafkaTopic    string `yaml:"kafka_topic"`
	KafkaGroupID  string `yaml:"kafka_group_id"`
	PublicOrigin  string `yaml:"public_origin"`
	FramesDir     string `yaml:"frames_dir"`
	WatermarkText string `yaml:"watermark_text"`

	// CaptureScale upscales the native video resolution of a capture.
	CaptureScale int `yaml:"capture_scale"`

	ShareRetention   time.Duration `yaml:"share_retention"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval"`
	CatalogTimeout   time.Duration `yaml:"catalog_timeout"`
	FrameLoadTimeout time.Duration `yaml:"frame_load_timeout"`
	PersistTimeout   time.Duration `yaml:"persist_timeout"`

	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`

	CameraSource string `yaml:"camera_source"`
	StillImage   string `yaml:"still_image"`
}

// DefaultConfig returns the configuration used for keys missing from the file.
func DefaultConfig() *Config {
	return &Config{
		ServerAddr:       ":8080",
		KafkaTopic:       "photo-events",
		KafkaGroupID:     "photokiosk-thumbnails",
		PublicOrigin:     "http://localhost:8080",
		FramesDir:        "frames",
		CaptureScale:     2,
		ShareRetention:   5 * time.Minute,
		CleanupInterval:  time.Minute,
		CatalogTimeout:   5 * time.Second,
		FrameLoadTimeout: 10 * time.Second,
		PersistTimeout:   10 * time.Second,
		LogLevel:         "info",
		CameraSource:     CameraSourcePush,
	}
}

func LoadConfig(path string) (*Config, error) {
	const op = "models.LoadConfig"

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if v := os.Getenv("PHOTOKIOSK_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("PHOTOKIOSK_KAFKA_BROKER"); v != "" {
		cfg.KafkaBroker = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.CaptureScale < 1 || c.CaptureScale > 4 {
		return fmt.Errorf("capture_scale must be between 1 and 4, got %d", c.CaptureScale)
	}
	durations := map[string]time.Duration{
		"share_retention":    c.ShareRetention,
		"cleanup_interval":   c.CleanupInterval,
		"catalog_timeout":    c.CatalogTimeout,
		"frame_load_timeout": c.FrameLoadTimeout,
		"persist_timeout":    c.PersistTimeout,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	u, err := url.Parse(c.PublicOrigin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("public_origin must be an absolute URL, got %q", c.PublicOrigin)
	}
	switch c.CameraSource {
	case CameraSourcePush:
	case CameraSourceStill:
		if c.StillImage == "" {
			return fmt.Errorf("still_image is required when camera_source is %q", CameraSourceStill)
		}
	default:
		return fmt.Errorf("unknown camera_source %q", c.CameraSource)
	}
	return nil
}
