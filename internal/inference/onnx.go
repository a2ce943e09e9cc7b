package inference

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

// SessionConfig controls how the ONNX Runtime session is created.
type SessionConfig struct {
	ModelPath string
	// LibraryPath optionally overrides the onnxruntime shared library
	// location; empty means the platform default.
	LibraryPath    string
	IntraOpThreads int
	InterOpThreads int
	// Provider selects the execution provider: "auto" prefers CUDA when
	// available and falls back to CPU, "cpu" forces the CPU provider.
	Provider string
}

// onnxSession wraps a single ONNX Runtime session. The session is stateless
// per call, so concurrent Run invocations with different tensors are safe.
type onnxSession struct {
	session     *ort.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
	provider    string
	logger      *slog.Logger
}

// OpenSession loads the model artifact and builds the runtime session.
// Input and output names are resolved by position from the graph's declared
// lists rather than assumed: the first input is the feature tensor, the
// second the length scalar, the first output the logits. A missing or
// incompatible artifact returns a *ModelLoadError.
func OpenSession(cfg SessionConfig, logger *slog.Logger) (Session, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, &ModelLoadError{Path: cfg.ModelPath, Err: err}
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, &ModelLoadError{Path: cfg.ModelPath, Err: fmt.Errorf("failed to initialize runtime: %w", err)}
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, &ModelLoadError{Path: cfg.ModelPath, Err: fmt.Errorf("failed to inspect model graph: %w", err)}
	}

	if len(inputs) < 2 || len(outputs) < 1 {
		return nil, &ModelLoadError{
			Path: cfg.ModelPath,
			Err:  fmt.Errorf("unexpected graph signature: %d inputs, %d outputs (want 2 inputs, 1 output)", len(inputs), len(outputs)),
		}
	}

	inputNames := []string{inputs[0].Name, inputs[1].Name}
	outputNames := []string{outputs[0].Name}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, &ModelLoadError{Path: cfg.ModelPath, Err: fmt.Errorf("failed to create session options: %w", err)}
	}
	defer options.Destroy()

	if cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			return nil, &ModelLoadError{Path: cfg.ModelPath, Err: fmt.Errorf("failed to set intra-op threads: %w", err)}
		}
	}
	if cfg.InterOpThreads > 0 {
		if err := options.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
			return nil, &ModelLoadError{Path: cfg.ModelPath, Err: fmt.Errorf("failed to set inter-op threads: %w", err)}
		}
	}

	// Provider choice is recorded for observability only; the logical
	// inference contract is identical on CPU and CUDA.
	provider := "CPUExecutionProvider"
	if strings.ToLower(cfg.Provider) != "cpu" {
		if cudaOptions, cudaErr := ort.NewCUDAProviderOptions(); cudaErr == nil {
			if err := options.AppendExecutionProviderCUDA(cudaOptions); err == nil {
				provider = "CUDAExecutionProvider"
			} else {
				logger.Warn("CUDA provider rejected, falling back to CPU",
					slog.String("error", err.Error()),
				)
			}
			cudaOptions.Destroy()
		} else {
			logger.Warn("CUDA provider unavailable, using CPU",
				slog.String("error", cudaErr.Error()),
			)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, outputNames, options)
	if err != nil {
		return nil, &ModelLoadError{Path: cfg.ModelPath, Err: fmt.Errorf("failed to create session: %w", err)}
	}

	logger.Info("Model session created",
		slog.String("model_path", cfg.ModelPath),
		slog.String("provider", provider),
		slog.String("input_names", strings.Join(inputNames, ",")),
		slog.String("output_names", strings.Join(outputNames, ",")),
	)

	return &onnxSession{
		session:     session,
		inputNames:  inputNames,
		outputNames: outputNames,
		provider:    provider,
		logger:      logger,
	}, nil
}

// Run executes the blocking inference call. Failures surface as
// *InferenceError and are not retried here.
func (s *onnxSession) Run(features []float32, shape [3]int64, length int64) (*Logits, error) {
	featureTensor, err := ort.NewTensor(ort.NewShape(shape[0], shape[1], shape[2]), features)
	if err != nil {
		return nil, &InferenceError{Err: fmt.Errorf("failed to create feature tensor: %w", err)}
	}
	defer featureTensor.Destroy()

	lengthTensor, err := ort.NewTensor(ort.NewShape(1), []int64{length})
	if err != nil {
		return nil, &InferenceError{Err: fmt.Errorf("failed to create length tensor: %w", err)}
	}
	defer lengthTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{featureTensor, lengthTensor}, outputs); err != nil {
		return nil, &InferenceError{Err: err}
	}

	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		outputs[0].Destroy()
		return nil, &InferenceError{Err: fmt.Errorf("unexpected output tensor type %T", outputs[0])}
	}
	defer logitsTensor.Destroy()

	dims := logitsTensor.GetShape()
	if len(dims) != 3 || dims[0] != 1 {
		return nil, &InferenceError{Err: fmt.Errorf("unexpected logits shape %v", dims)}
	}

	// Copy out of the runtime-owned buffer before the tensor is destroyed.
	src := logitsTensor.GetData()
	data := make([]float32, len(src))
	copy(data, src)

	return &Logits{Data: data, Steps: int(dims[1]), Vocab: int(dims[2])}, nil
}

// Close releases the runtime session.
func (s *onnxSession) Close() error {
	return s.session.Destroy()
}
