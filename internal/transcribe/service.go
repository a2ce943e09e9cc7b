package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/skypro1111/hindi-asr-service/internal/audio"
	"github.com/skypro1111/hindi-asr-service/internal/ctc"
	"github.com/skypro1111/hindi-asr-service/internal/features"
	"github.com/skypro1111/hindi-asr-service/internal/inference"
	"github.com/skypro1111/hindi-asr-service/internal/metrics"
	"github.com/skypro1111/hindi-asr-service/internal/vocab"
)

// NoSpeechSentinel is returned when decoding yields an empty transcript.
// An empty result is a normal outcome, not an error.
const NoSpeechSentinel = "[No speech detected]"

// ValidationError indicates the uploaded clip's duration is outside the
// accepted range. It is surfaced to the caller as a rejected request.
type ValidationError struct {
	Duration float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("audio duration %.2fs outside allowed range [%.0f, %.0f]s",
		e.Duration, audio.MinClipSeconds, audio.MaxClipSeconds)
}

// Result is a completed transcription.
type Result struct {
	Text     string
	Duration float64 // clip duration in seconds
}

// Service orchestrates the transcription pipeline: decode and validate the
// clip, extract features, run inference, collapse the logits into text and
// post-process. Failures from any stage propagate unchanged; the only local
// substitution is the empty-result sentinel.
type Service struct {
	engine    *inference.Engine
	extractor *features.Extractor
	decoder   *ctc.Decoder
	metrics   *metrics.Metrics
	logger    *slog.Logger

	tokensPath string
	vocabOnce  sync.Once
	table      *vocab.Table
}

// NewService creates a transcription service around a running inference
// engine. The vocabulary at tokensPath is loaded lazily on first decode and
// cached for the process lifetime.
func NewService(engine *inference.Engine, tokensPath string, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		engine:     engine,
		extractor:  features.NewExtractor(),
		decoder:    ctc.NewDecoder(logger),
		metrics:    m,
		logger:     logger,
		tokensPath: tokensPath,
	}
}

// Transcribe converts the audio file at path into text. Clips with a
// duration outside the accepted range are rejected with a *ValidationError
// before any feature extraction or inference work is done.
func (s *Service) Transcribe(ctx context.Context, path string) (*Result, error) {
	waveform, err := audio.LoadWAV(path)
	if err != nil {
		return nil, err
	}

	duration := waveform.Duration()
	s.metrics.RecordClipDuration(duration)

	if !audio.ValidClipDuration(duration) {
		s.logger.Warn("Rejecting clip with invalid duration",
			slog.Float64("duration_seconds", duration),
		)
		return nil, &ValidationError{Duration: duration}
	}

	extractStart := time.Now()
	tensor, err := s.extractor.Extract(waveform)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordExtraction(time.Since(extractStart).Seconds())

	s.logger.Debug("Features extracted",
		slog.Float64("duration_seconds", duration),
		slog.Int("time_steps", tensor.Steps),
	)

	inferStart := time.Now()
	logits, err := s.engine.Infer(ctx, tensor)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordInference(time.Since(inferStart).Seconds())

	ids := logits.Argmax()
	text := s.decoder.Decode(ids, s.vocabulary())

	// Collapse whitespace runs and trim; substitute the sentinel when
	// nothing was decoded.
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		s.metrics.RecordEmptyTranscript()
		text = NoSpeechSentinel
	}

	s.logger.Info("Transcription completed",
		slog.Float64("duration_seconds", duration),
		slog.Int("frames", len(ids)),
		slog.String("transcription", text),
	)

	return &Result{Text: text, Duration: duration}, nil
}

// vocabulary returns the shared token table, loading it on first use.
func (s *Service) vocabulary() *vocab.Table {
	s.vocabOnce.Do(func() {
		s.table = vocab.Load(s.tokensPath, s.logger)
	})
	return s.table
}
