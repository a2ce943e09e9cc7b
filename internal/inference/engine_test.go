package inference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skypro1111/hindi-asr-service/internal/features"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoSession is a Session stub that reflects the first feature value back
// in its logits, so each caller can verify it received its own result.
type echoSession struct {
	calls  atomic.Int64
	active atomic.Int64
	peak   atomic.Int64
	delay  time.Duration
	err    error
	closed atomic.Bool
}

func (s *echoSession) Run(featureData []float32, shape [3]int64, length int64) (*Logits, error) {
	s.calls.Add(1)

	active := s.active.Add(1)
	for {
		peak := s.peak.Load()
		if active <= peak || s.peak.CompareAndSwap(peak, active) {
			break
		}
	}
	defer s.active.Add(-1)

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	if s.err != nil {
		return nil, s.err
	}

	// One frame, two classes; class 1 score carries the marker value.
	return &Logits{Data: []float32{0, featureData[0]}, Steps: 1, Vocab: 2}, nil
}

func (s *echoSession) Close() error {
	s.closed.Store(true)
	return nil
}

func markerTensor(v float32) *features.Tensor {
	return &features.Tensor{Data: []float32{v}, Bands: 1, Steps: 1}
}

func TestInferReturnsResult(t *testing.T) {
	session := &echoSession{}
	engine := NewEngine(session, 2, testLogger())
	defer engine.Close()

	logits, err := engine.Infer(context.Background(), markerTensor(42))
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}

	if logits.Data[1] != 42 {
		t.Errorf("Expected marker 42 in logits, got %v", logits.Data)
	}
}

func TestInferConcurrentNoCrossTalk(t *testing.T) {
	session := &echoSession{delay: 10 * time.Millisecond}
	engine := NewEngine(session, 2, testLogger())
	defer engine.Close()

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			marker := float32(i + 1)
			logits, err := engine.Infer(context.Background(), markerTensor(marker))
			if err != nil {
				errs[i] = err
				return
			}
			if logits.Data[1] != marker {
				errs[i] = fmt.Errorf("caller %d got marker %v", i, logits.Data[1])
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Caller %d: %v", i, err)
		}
	}

	if got := session.calls.Load(); got != callers {
		t.Errorf("Expected %d session calls, got %d", callers, got)
	}

	// The pool bounds concurrency at the worker count regardless of how
	// many callers are in flight.
	if peak := session.peak.Load(); peak > 2 {
		t.Errorf("Expected at most 2 concurrent session calls, observed %d", peak)
	}
}

func TestInferPropagatesError(t *testing.T) {
	wantErr := &InferenceError{Err: errors.New("shape mismatch")}
	session := &echoSession{err: wantErr}
	engine := NewEngine(session, 1, testLogger())
	defer engine.Close()

	_, err := engine.Infer(context.Background(), markerTensor(1))
	if err == nil {
		t.Fatal("Expected error from Infer")
	}

	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Errorf("Expected *InferenceError, got %T", err)
	}
}

func TestInferContextCancelled(t *testing.T) {
	session := &echoSession{delay: 50 * time.Millisecond}
	engine := NewEngine(session, 1, testLogger())
	defer engine.Close()

	// Occupy the single worker so the second submission has to wait.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		engine.Infer(context.Background(), markerTensor(1))
	}()

	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Infer(ctx, markerTensor(2))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	wg.Wait()
}

func TestEngineClose(t *testing.T) {
	session := &echoSession{}
	engine := NewEngine(session, 2, testLogger())

	if err := engine.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !session.closed.Load() {
		t.Error("Expected session to be closed")
	}

	// Close is idempotent.
	if err := engine.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
}

func TestDefaultWorkers(t *testing.T) {
	engine := NewEngine(&echoSession{}, 0, testLogger())
	defer engine.Close()

	if engine.Workers() != DefaultWorkers {
		t.Errorf("Expected %d workers, got %d", DefaultWorkers, engine.Workers())
	}
}

func TestLogitsArgmax(t *testing.T) {
	logits := &Logits{
		Data: []float32{
			0.1, 0.9, 0.0, // frame 0 -> 1
			0.5, 0.2, 0.3, // frame 1 -> 0
			-1.0, -0.5, -0.1, // frame 2 -> 2
		},
		Steps: 3,
		Vocab: 3,
	}

	got := logits.Argmax()
	want := []int{1, 0, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Argmax[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
