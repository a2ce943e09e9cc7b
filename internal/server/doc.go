// Package server provides the HTTP API for the transcription service,
// including the upload endpoint and monitoring endpoints.
package server
