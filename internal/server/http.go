package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/hindi-asr-service/internal/audio"
	"github.com/skypro1111/hindi-asr-service/internal/config"
	"github.com/skypro1111/hindi-asr-service/internal/inference"
	"github.com/skypro1111/hindi-asr-service/internal/metrics"
	"github.com/skypro1111/hindi-asr-service/internal/transcribe"
)

const (
	serviceName  = "hindi-asr-service"
	modelName    = "stt_hi_conformer_ctc_medium"
	uploadField  = "file"
	wavExtension = ".wav"
)

// HTTPServer provides the transcription API plus monitoring endpoints.
type HTTPServer struct {
	server  *http.Server
	logger  *slog.Logger
	config  *config.Config
	svc     *transcribe.Service
	metrics *metrics.Metrics

	// Aggregate request statistics
	startTime       time.Time
	totalRequests   uint64
	successCount    uint64
	failureCount    uint64
	totalProcessing time.Duration
	mu              sync.RWMutex
}

// TranscriptionResponse is the JSON body returned for a successful upload.
type TranscriptionResponse struct {
	Transcription  string  `json:"transcription"`
	Filename       string  `json:"filename"`
	ProcessingTime float64 `json:"processing_time"`
	Model          string  `json:"model"`
	Status         string  `json:"status"`
	RequestID      string  `json:"request_id"`
}

// errorResponse is the JSON body returned for a failed request.
type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

// ServiceStats summarizes aggregate transcription statistics.
type ServiceStats struct {
	TotalRequests         uint64  `json:"total_requests"`
	SuccessfulTranscripts uint64  `json:"successful_transcriptions"`
	FailedTranscripts     uint64  `json:"failed_transcriptions"`
	AverageProcessingTime float64 `json:"average_processing_time"`
	UptimeSeconds         float64 `json:"uptime_seconds"`
}

// NewHTTPServer creates the API server around a transcription service.
func NewHTTPServer(cfg *config.Config, svc *transcribe.Service, m *metrics.Metrics, logger *slog.Logger) *HTTPServer {
	h := &HTTPServer{
		logger:    logger,
		config:    cfg,
		svc:       svc,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.GetReadTimeout(),
		WriteTimeout: cfg.HTTP.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/transcribe", h.withMetrics("/transcribe", h.handleTranscribe))
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)
		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleTranscribe implements POST /transcribe: it accepts a multipart WAV
// upload, spools it to a temporary file, runs the transcription pipeline
// and returns the text as JSON.
func (h *HTTPServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.NewString()
	startTime := time.Now()

	h.incrementTotal()
	h.metrics.RecordTranscriptionRequest()

	r.Body = http.MaxBytesReader(w, r.Body, h.config.HTTP.MaxUploadBytes)

	file, header, err := h.uploadedFile(r)
	if err != nil {
		h.rejectRequest(w, r, requestID, err.Error(), "invalid_upload")
		return
	}
	defer file.Close()

	tempFile, err := os.CreateTemp("", "upload-*.wav")
	if err != nil {
		h.failRequest(w, requestID, http.StatusInternalServerError, "failed to store upload")
		return
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := io.Copy(tempFile, file); err != nil {
		tempFile.Close()
		h.rejectRequest(w, r, requestID, "failed to read upload body", "invalid_upload")
		return
	}
	if err := tempFile.Close(); err != nil {
		h.failRequest(w, requestID, http.StatusInternalServerError, "failed to store upload")
		return
	}

	h.logger.Info("Processing upload",
		slog.String("request_id", requestID),
		slog.String("filename", header.Filename),
		slog.Int64("size_bytes", header.Size),
	)

	result, err := h.svc.Transcribe(r.Context(), tempPath)
	if err != nil {
		h.respondTranscribeError(w, r, requestID, err)
		return
	}

	processingTime := time.Since(startTime)
	h.recordSuccess(processingTime)
	h.metrics.RecordTranscriptionSuccess(processingTime.Seconds())

	h.logger.Info("Transcription request completed",
		slog.String("request_id", requestID),
		slog.Float64("processing_seconds", processingTime.Seconds()),
	)

	writeJSON(w, http.StatusOK, TranscriptionResponse{
		Transcription:  result.Text,
		Filename:       header.Filename,
		ProcessingTime: roundSeconds(processingTime),
		Model:          modelName,
		Status:         "success",
		RequestID:      requestID,
	})
}

// uploadedFile extracts and validates the multipart audio upload.
func (h *HTTPServer) uploadedFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, nil, fmt.Errorf("missing or unreadable '%s' form field", uploadField)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "audio") &&
		contentType != "application/octet-stream" {
		file.Close()
		return nil, nil, fmt.Errorf("invalid file type '%s': only audio files are supported", contentType)
	}

	if !strings.HasSuffix(strings.ToLower(header.Filename), wavExtension) {
		file.Close()
		return nil, nil, fmt.Errorf("only %s files are supported", wavExtension)
	}

	return file, header, nil
}

// respondTranscribeError maps pipeline failures to HTTP responses.
func (h *HTTPServer) respondTranscribeError(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	var valErr *transcribe.ValidationError
	var decodeErr *audio.DecodeError
	var infErr *inference.InferenceError

	switch {
	case errors.As(err, &valErr):
		h.metrics.RecordRejectedUpload("duration")
		h.rejectRequest(w, r, requestID,
			fmt.Sprintf("audio duration must be between %.0f and %.0f seconds", audio.MinClipSeconds, audio.MaxClipSeconds),
			"")
	case errors.As(err, &decodeErr):
		h.metrics.RecordRejectedUpload("decode")
		h.rejectRequest(w, r, requestID, "audio file could not be decoded", "")
	case errors.As(err, &infErr):
		h.logger.Error("Inference failure",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		h.failRequest(w, requestID, http.StatusInternalServerError, "transcription failed")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.failRequest(w, requestID, http.StatusServiceUnavailable, "transcription unavailable")
	default:
		h.logger.Error("Unexpected transcription error",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		h.failRequest(w, requestID, http.StatusInternalServerError, "internal server error during transcription")
	}
}

// rejectRequest returns a 400 response for an invalid upload.
func (h *HTTPServer) rejectRequest(w http.ResponseWriter, r *http.Request, requestID, detail, reason string) {
	if reason != "" {
		h.metrics.RecordRejectedUpload(reason)
	}
	h.incrementFailure()
	h.metrics.RecordTranscriptionFailure()

	h.logger.Warn("Rejected transcription request",
		slog.String("request_id", requestID),
		slog.String("detail", detail),
	)

	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:     "bad request",
		Detail:    detail,
		RequestID: requestID,
	})
}

// failRequest returns a server-side error response.
func (h *HTTPServer) failRequest(w http.ResponseWriter, requestID string, status int, detail string) {
	h.incrementFailure()
	h.metrics.RecordTranscriptionFailure()

	writeJSON(w, status, errorResponse{
		Error:     http.StatusText(status),
		Detail:    detail,
		RequestID: requestID,
	})
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   serviceName,
		"model":     modelName,
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
	})
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.Stats())
}

// handleConfig implements the /config endpoint with a sanitized view
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sanitized := map[string]interface{}{
		"http": map[string]interface{}{
			"port":             h.config.HTTP.Port,
			"address":          h.config.HTTP.Address,
			"max_upload_bytes": h.config.HTTP.MaxUploadBytes,
		},
		"audio": map[string]interface{}{
			"sample_rate":       h.config.Audio.SampleRate,
			"min_clip_duration": h.config.Audio.MinClipDuration,
			"max_clip_duration": h.config.Audio.MaxClipDuration,
		},
		"model": map[string]interface{}{
			"model_path":  h.config.Model.ModelPath,
			"tokens_path": h.config.Model.TokensPath,
			"workers":     h.config.Model.Workers,
			"provider":    h.config.Model.Provider,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	writeJSON(w, http.StatusOK, sanitized)
}

// handleRoot implements the / endpoint with service information
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":           "Hindi ASR Transcription Service",
		"model":             modelName,
		"supported_formats": []string{"audio/wav"},
		"min_duration":      fmt.Sprintf("%.0f seconds", audio.MinClipSeconds),
		"max_duration":      fmt.Sprintf("%.0f seconds", audio.MaxClipSeconds),
		"sample_rate":       "16kHz",
		"endpoints": map[string]string{
			"POST /transcribe": "Transcribe a WAV audio upload",
			"GET /health":      "Service health check",
			"GET /stats":       "Aggregate service statistics",
			"GET /config":      "Sanitized service configuration",
			"GET /metrics":     "Prometheus metrics",
		},
	})
}

// Stats returns a snapshot of the aggregate request statistics.
func (h *HTTPServer) Stats() ServiceStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	avg := 0.0
	if h.successCount > 0 {
		avg = h.totalProcessing.Seconds() / float64(h.successCount)
	}

	return ServiceStats{
		TotalRequests:         h.totalRequests,
		SuccessfulTranscripts: h.successCount,
		FailedTranscripts:     h.failureCount,
		AverageProcessingTime: avg,
		UptimeSeconds:         time.Since(h.startTime).Seconds(),
	}
}

func (h *HTTPServer) incrementTotal() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.totalRequests++
}

func (h *HTTPServer) incrementFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failureCount++
}

func (h *HTTPServer) recordSuccess(processingTime time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.successCount++
	h.totalProcessing += processingTime
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func roundSeconds(d time.Duration) float64 {
	return float64(int(d.Seconds()*100)) / 100
}
