package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the ASR service. A nil
// *Metrics is valid and records nothing, which keeps tests free of
// duplicate collector registration.
type Metrics struct {
	// Transcription pipeline metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	RejectedUploads        *prometheus.CounterVec
	EmptyTranscripts       prometheus.Counter

	// Stage timing metrics
	ProcessingDuration prometheus.Histogram
	ExtractionDuration prometheus.Histogram
	InferenceDuration  prometheus.Histogram

	// Audio input metrics
	ClipDuration prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_transcription_requests_total",
			Help: "Total number of transcription requests received",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_transcription_successes_total",
			Help: "Total number of successful transcriptions",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_transcription_failures_total",
			Help: "Total number of failed transcriptions",
		}),
		RejectedUploads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_rejected_uploads_total",
			Help: "Total number of uploads rejected before inference",
		}, []string{"reason"}),
		EmptyTranscripts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr_empty_transcripts_total",
			Help: "Total number of transcriptions that decoded to no speech",
		}),

		ProcessingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_processing_duration_seconds",
			Help:    "End-to-end transcription processing time",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),
		ExtractionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_feature_extraction_duration_seconds",
			Help:    "Time spent computing log-mel features",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		}),
		InferenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_inference_duration_seconds",
			Help:    "Time spent in the model inference call, including queueing",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		}),

		ClipDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_clip_duration_seconds",
			Help:    "Duration of uploaded audio clips",
			Buckets: prometheus.LinearBuckets(0, 2, 10), // 0s to 18s
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asr_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordTranscriptionRequest increments the transcription requests counter.
func (m *Metrics) RecordTranscriptionRequest() {
	if m == nil {
		return
	}
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription with its
// end-to-end processing time.
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	if m == nil {
		return
	}
	m.TranscriptionSuccesses.Inc()
	m.ProcessingDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription.
func (m *Metrics) RecordTranscriptionFailure() {
	if m == nil {
		return
	}
	m.TranscriptionFailures.Inc()
}

// RecordRejectedUpload records an upload rejected before inference.
func (m *Metrics) RecordRejectedUpload(reason string) {
	if m == nil {
		return
	}
	m.RejectedUploads.WithLabelValues(reason).Inc()
}

// RecordEmptyTranscript records a transcription that decoded to no speech.
func (m *Metrics) RecordEmptyTranscript() {
	if m == nil {
		return
	}
	m.EmptyTranscripts.Inc()
}

// RecordExtraction records feature extraction timing.
func (m *Metrics) RecordExtraction(durationSeconds float64) {
	if m == nil {
		return
	}
	m.ExtractionDuration.Observe(durationSeconds)
}

// RecordInference records inference call timing, including queue wait.
func (m *Metrics) RecordInference(durationSeconds float64) {
	if m == nil {
		return
	}
	m.InferenceDuration.Observe(durationSeconds)
}

// RecordClipDuration records the duration of an uploaded clip.
func (m *Metrics) RecordClipDuration(seconds float64) {
	if m == nil {
		return
	}
	m.ClipDuration.Observe(seconds)
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error.
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
