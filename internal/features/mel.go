package features

// Mel filter bank construction. Frequencies are mapped through the Slaney
// mel scale (linear below 1 kHz, logarithmic above) and each triangular
// filter is area-normalized by its bandwidth, matching the filter bank the
// acoustic model was trained with.

import "math"

const (
	melBreakHz   = 1000.0
	melLinearSp  = 200.0 / 3.0 // Hz per mel in the linear region
	melBreakMels = melBreakHz / melLinearSp
)

var melLogStep = math.Log(6.4) / 27.0

// hzToMel converts a frequency in Hz to the Slaney mel scale.
func hzToMel(hz float64) float64 {
	if hz < melBreakHz {
		return hz / melLinearSp
	}
	return melBreakMels + math.Log(hz/melBreakHz)/melLogStep
}

// melToHz converts a Slaney mel value back to Hz.
func melToHz(mel float64) float64 {
	if mel < melBreakMels {
		return mel * melLinearSp
	}
	return melBreakHz * math.Exp(melLogStep*(mel-melBreakMels))
}

// melFilterbank builds numBands triangular filters over the FFT bins of an
// fftSize transform at the given sample rate. Each row has fftSize/2+1
// weights.
func melFilterbank(numBands, fftSize, sampleRate int, fMin, fMax float64) [][]float64 {
	numBins := fftSize/2 + 1

	// Band edge frequencies: numBands+2 points evenly spaced in mels.
	minMel := hzToMel(fMin)
	maxMel := hzToMel(fMax)
	edges := make([]float64, numBands+2)
	for i := range edges {
		mel := minMel + (maxMel-minMel)*float64(i)/float64(numBands+1)
		edges[i] = melToHz(mel)
	}

	// Center frequency of each FFT bin.
	binFreqs := make([]float64, numBins)
	for k := 0; k < numBins; k++ {
		binFreqs[k] = float64(k) * float64(sampleRate) / float64(fftSize)
	}

	filters := make([][]float64, numBands)
	for m := 0; m < numBands; m++ {
		lower, center, upper := edges[m], edges[m+1], edges[m+2]
		row := make([]float64, numBins)

		// Area normalization: divide by the filter bandwidth so each
		// band carries roughly equal energy.
		enorm := 2.0 / (upper - lower)

		for k, f := range binFreqs {
			rising := (f - lower) / (center - lower)
			falling := (upper - f) / (upper - center)
			weight := math.Min(rising, falling)
			if weight < 0 {
				weight = 0
			}
			row[k] = weight * enorm
		}
		filters[m] = row
	}

	return filters
}
