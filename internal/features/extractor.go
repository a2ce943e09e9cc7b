package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/skypro1111/hindi-asr-service/internal/audio"
)

const (
	// NumMelBands is the number of mel filter banks the model expects.
	NumMelBands = 80

	fftSize   = 512
	winLength = 400
	hopLength = 160

	fMin = 0.0
	fMax = float64(audio.TargetSampleRate) / 2.0

	// sampleScale converts normalized [-1, 1] samples to 16-bit PCM
	// magnitude before spectral analysis.
	sampleScale = 32768.0

	// power-to-dB parameters: amplitude floor and dynamic range clamp
	aMin  = 1e-10
	topDB = 80.0

	// normEpsilon floors the per-band standard deviation during
	// normalization to avoid division by zero.
	normEpsilon = 1e-8
)

// Tensor is a batch of one normalized log-mel spectrogram, stored row-major
// as [band][step] float32 values.
type Tensor struct {
	Data  []float32
	Bands int
	Steps int
}

// Shape returns the tensor dimensions as (batch, bands, steps).
func (t *Tensor) Shape() [3]int64 {
	return [3]int64{1, int64(t.Bands), int64(t.Steps)}
}

// At returns the value for a given mel band and time step.
func (t *Tensor) At(band, step int) float32 {
	return t.Data[band*t.Steps+step]
}

// Extractor converts waveforms into normalized log-mel spectrogram tensors.
// The mel filter bank and analysis window are computed once and shared
// read-only, so a single Extractor is safe for concurrent use.
type Extractor struct {
	window  []float64   // periodic Hann, zero-padded to fftSize
	filters [][]float64 // NumMelBands x (fftSize/2 + 1)
}

// NewExtractor creates an Extractor with precomputed window and filter bank.
func NewExtractor() *Extractor {
	return &Extractor{
		window:  paddedHannWindow(winLength, fftSize),
		filters: melFilterbank(NumMelBands, fftSize, audio.TargetSampleRate, fMin, fMax),
	}
}

// Extract computes the model input tensor for a waveform:
// a mel-scaled power spectrogram (window 400, hop 160, FFT 512, Hann window,
// centered framing) converted to dB relative to the peak power, then
// normalized per mel band to zero mean and unit variance. The output shape
// is (1, NumMelBands, T). The computation is deterministic: identical
// samples produce identical tensors.
func (e *Extractor) Extract(w *audio.Waveform) (*Tensor, error) {
	if w == nil || len(w.Samples) == 0 {
		return nil, fmt.Errorf("cannot extract features from empty waveform")
	}

	// Scale to 16-bit PCM magnitude and pad for centered framing, so the
	// first frame is centered on sample zero.
	pad := fftSize / 2
	padded := make([]float64, len(w.Samples)+2*pad)
	for i, s := range w.Samples {
		padded[pad+i] = float64(s) * sampleScale
	}

	numSteps := 1 + len(w.Samples)/hopLength
	numBins := fftSize/2 + 1

	fft := fourier.NewFFT(fftSize)
	frame := make([]float64, fftSize)
	coeffs := make([]complex128, numBins)
	power := make([]float64, numBins)

	// mel[band*numSteps+step] holds the mel power spectrogram.
	mel := make([]float64, NumMelBands*numSteps)
	maxPower := math.Inf(-1)

	for step := 0; step < numSteps; step++ {
		start := step * hopLength
		for i := 0; i < fftSize; i++ {
			frame[i] = padded[start+i] * e.window[i]
		}

		coeffs = fft.Coefficients(coeffs, frame)
		for k := 0; k < numBins; k++ {
			re := real(coeffs[k])
			im := imag(coeffs[k])
			power[k] = re*re + im*im
		}

		for band := 0; band < NumMelBands; band++ {
			var sum float64
			filter := e.filters[band]
			for k := 0; k < numBins; k++ {
				sum += filter[k] * power[k]
			}
			mel[band*numSteps+step] = sum
			if sum > maxPower {
				maxPower = sum
			}
		}
	}

	// Convert power to dB referenced to the spectrogram peak, clamped to a
	// dynamic range of topDB below the maximum.
	ref := 10.0 * math.Log10(math.Max(aMin, maxPower))
	maxDB := math.Inf(-1)
	for i, v := range mel {
		db := 10.0*math.Log10(math.Max(aMin, v)) - ref
		mel[i] = db
		if db > maxDB {
			maxDB = db
		}
	}
	floor := maxDB - topDB
	for i, v := range mel {
		if v < floor {
			mel[i] = floor
		}
	}

	// Normalize each mel band across time to zero mean, unit variance.
	out := make([]float32, NumMelBands*numSteps)
	for band := 0; band < NumMelBands; band++ {
		row := mel[band*numSteps : (band+1)*numSteps]

		var mean float64
		for _, v := range row {
			mean += v
		}
		mean /= float64(numSteps)

		var variance float64
		for _, v := range row {
			d := v - mean
			variance += d * d
		}
		std := math.Sqrt(variance / float64(numSteps))

		for step, v := range row {
			out[band*numSteps+step] = float32((v - mean) / (std + normEpsilon))
		}
	}

	return &Tensor{Data: out, Bands: NumMelBands, Steps: numSteps}, nil
}

// paddedHannWindow builds a periodic Hann window of winLength samples,
// centered inside a zero-padded buffer of fftSize samples.
func paddedHannWindow(winLength, fftSize int) []float64 {
	window := make([]float64, fftSize)
	offset := (fftSize - winLength) / 2
	for n := 0; n < winLength; n++ {
		window[offset+n] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(n)/float64(winLength))
	}
	return window
}
