package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// validConfigYAML is a complete configuration that passes validation.
const validConfigYAML = `
http:
  port: 8080
  address: "0.0.0.0"
  read_timeout: 30
  write_timeout: 60
  max_upload_bytes: 10485760

audio:
  sample_rate: 16000
  min_clip_duration: 5.0
  max_clip_duration: 10.0

model:
  model_path: "model/stt_hi_conformer_ctc_medium.onnx"
  tokens_path: "model/tokens.txt"
  workers: 2
  intra_op_threads: 2
  inter_op_threads: 2
  provider: "auto"

logging:
  level: "info"
  format: "json"
  output: "stdout"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfigYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTP.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.HTTP.Port)
	}

	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", cfg.Audio.SampleRate)
	}

	if cfg.Model.Workers != 2 {
		t.Errorf("Expected 2 workers, got %d", cfg.Model.Workers)
	}

	if cfg.HTTP.GetReadTimeout().Seconds() != 30 {
		t.Errorf("Expected 30s read timeout, got %v", cfg.HTTP.GetReadTimeout())
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "http: [not: valid"))
	if err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.HTTP.Port = 0 },
			wantErr: "port",
		},
		{
			name:    "empty address",
			mutate:  func(c *Config) { c.HTTP.Address = "" },
			wantErr: "address",
		},
		{
			name:    "tiny upload limit",
			mutate:  func(c *Config) { c.HTTP.MaxUploadBytes = 100 },
			wantErr: "max_upload_bytes",
		},
		{
			name:    "wrong sample rate",
			mutate:  func(c *Config) { c.Audio.SampleRate = 8000 },
			wantErr: "sample_rate",
		},
		{
			name:    "inverted clip durations",
			mutate:  func(c *Config) { c.Audio.MaxClipDuration = 1.0 },
			wantErr: "max_clip_duration",
		},
		{
			name:    "empty model path",
			mutate:  func(c *Config) { c.Model.ModelPath = "" },
			wantErr: "model_path",
		},
		{
			name:    "empty tokens path",
			mutate:  func(c *Config) { c.Model.TokensPath = "" },
			wantErr: "tokens_path",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Model.Workers = 0 },
			wantErr: "workers",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Model.Provider = "tpu" },
			wantErr: "provider",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "level",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, validConfigYAML))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			tt.mutate(cfg)

			err = cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateNegativeThreadsRejected(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfigYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg.Model.IntraOpThreads = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for negative intra_op_threads")
	}
}
