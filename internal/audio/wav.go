package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

const (
	// TargetSampleRate is the sample rate the acoustic model was trained on.
	TargetSampleRate = 16000

	// MinClipSeconds and MaxClipSeconds bound the accepted clip duration.
	// Uploads outside this range are rejected before any inference cost.
	MinClipSeconds = 5.0
	MaxClipSeconds = 10.0
)

// DecodeError indicates that an audio file could not be decoded into samples.
// It is a per-request failure; retrying with the same content will not help.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode audio %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Waveform holds normalized mono audio samples at a fixed sample rate.
type Waveform struct {
	Samples    []float32 // normalized to [-1, 1]
	SampleRate int
}

// Duration returns the waveform length in seconds.
func (w *Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// ValidClipDuration reports whether a clip duration is inside the accepted
// [MinClipSeconds, MaxClipSeconds] range (boundaries inclusive).
func ValidClipDuration(seconds float64) bool {
	return seconds >= MinClipSeconds && seconds <= MaxClipSeconds
}

// LoadWAV decodes a WAV file into a normalized mono waveform at
// TargetSampleRate. Stereo input is downmixed by channel averaging and
// non-16kHz input is resampled to match what the model expects.
func LoadWAV(path string) (*Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("not a valid WAV file")}
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("failed to read PCM data: %w", err)}
	}

	if buf == nil || len(buf.Data) == 0 {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("no audio samples found")}
	}

	numChannels := buf.Format.NumChannels
	if numChannels < 1 {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("invalid channel count: %d", numChannels)}
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	// Downmix to mono and normalize to [-1, 1] in one pass
	numFrames := len(buf.Data) / numChannels
	samples := make([]float32, numFrames)
	for i := 0; i < numFrames; i++ {
		var sum float64
		for c := 0; c < numChannels; c++ {
			sum += float64(buf.Data[i*numChannels+c])
		}
		samples[i] = float32(sum / float64(numChannels) / scale)
	}

	sampleRate := int(decoder.SampleRate)
	if sampleRate <= 0 {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("invalid sample rate: %d", sampleRate)}
	}

	if sampleRate != TargetSampleRate {
		samples, err = resample(samples, sampleRate, TargetSampleRate)
		if err != nil {
			return nil, &DecodeError{Path: path, Err: fmt.Errorf("failed to resample from %d Hz: %w", sampleRate, err)}
		}
	}

	if len(samples) == 0 {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("no audio samples after decoding")}
	}

	return &Waveform{Samples: samples, SampleRate: TargetSampleRate}, nil
}
