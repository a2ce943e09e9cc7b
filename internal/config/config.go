package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Audio   AudioConfig   `yaml:"audio"`
	Model   ModelConfig   `yaml:"model"`
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port           int    `yaml:"port"`
	Address        string `yaml:"address"`
	ReadTimeout    int    `yaml:"read_timeout"`  // seconds
	WriteTimeout   int    `yaml:"write_timeout"` // seconds
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// AudioConfig contains audio input constraints
type AudioConfig struct {
	SampleRate      int     `yaml:"sample_rate"`
	MinClipDuration float64 `yaml:"min_clip_duration"` // seconds
	MaxClipDuration float64 `yaml:"max_clip_duration"` // seconds
}

// ModelConfig contains model artifact and inference runtime configuration
type ModelConfig struct {
	ModelPath      string `yaml:"model_path"`
	TokensPath     string `yaml:"tokens_path"`
	Workers        int    `yaml:"workers"`
	IntraOpThreads int    `yaml:"intra_op_threads"`
	InterOpThreads int    `yaml:"inter_op_threads"`
	Provider       string `yaml:"provider"`        // "auto" or "cpu"
	LibraryPath    string `yaml:"onnxruntime_lib"` // optional shared library override
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if h.ReadTimeout < 1 {
		return fmt.Errorf("read_timeout must be at least 1 second, got %d", h.ReadTimeout)
	}

	if h.WriteTimeout < 1 {
		return fmt.Errorf("write_timeout must be at least 1 second, got %d", h.WriteTimeout)
	}

	if h.MaxUploadBytes < 1024 {
		return fmt.Errorf("max_upload_bytes must be at least 1024, got %d", h.MaxUploadBytes)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz for the acoustic model, got %d", a.SampleRate)
	}

	if a.MinClipDuration <= 0 {
		return fmt.Errorf("min_clip_duration must be positive, got %f", a.MinClipDuration)
	}

	if a.MaxClipDuration <= a.MinClipDuration {
		return fmt.Errorf("max_clip_duration (%f) must be greater than min_clip_duration (%f)",
			a.MaxClipDuration, a.MinClipDuration)
	}

	return nil
}

// Validate validates model configuration
func (m *ModelConfig) Validate() error {
	if m.ModelPath == "" {
		return fmt.Errorf("model_path cannot be empty")
	}

	if m.TokensPath == "" {
		return fmt.Errorf("tokens_path cannot be empty")
	}

	if m.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", m.Workers)
	}

	if m.IntraOpThreads < 0 {
		return fmt.Errorf("intra_op_threads cannot be negative, got %d", m.IntraOpThreads)
	}

	if m.InterOpThreads < 0 {
		return fmt.Errorf("inter_op_threads cannot be negative, got %d", m.InterOpThreads)
	}

	validProviders := map[string]bool{"auto": true, "cpu": true}
	if !validProviders[m.Provider] {
		return fmt.Errorf("provider must be 'auto' or 'cpu', got '%s'", m.Provider)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetReadTimeout returns the HTTP read timeout as a time.Duration
func (h *HTTPConfig) GetReadTimeout() time.Duration {
	return time.Duration(h.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a time.Duration
func (h *HTTPConfig) GetWriteTimeout() time.Duration {
	return time.Duration(h.WriteTimeout) * time.Second
}
