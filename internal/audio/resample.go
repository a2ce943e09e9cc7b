package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// resample converts mono samples from srcRate to dstRate using a pure Go
// bandlimited resampler. The converter is created per call; clips are short
// (at most 10 seconds) so there is no benefit to pooling instances.
func resample(samples []float32, srcRate, dstRate int) ([]float32, error) {
	if srcRate == dstRate {
		return samples, nil
	}

	converter, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s)
	}

	output, err := converter.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}

	result := make([]float32, len(output))
	for i, s := range output {
		result[i] = float32(s)
	}

	return result, nil
}
