// Package features turns mono 16 kHz waveforms into the normalized log-mel
// spectrogram tensors consumed by the acoustic model.
package features
