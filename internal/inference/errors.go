package inference

import "fmt"

// ModelLoadError indicates the model artifact is missing or incompatible.
// It is fatal: the process must not serve requests with a broken session.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load model %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// InferenceError indicates a failure during the numeric inference call.
// It is surfaced per request and never retried by the engine; the shared
// session remains usable for other requests.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
