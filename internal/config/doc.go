// Package config provides YAML configuration loading and validation for the
// ASR transcription service.
package config
