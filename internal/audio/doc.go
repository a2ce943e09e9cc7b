// Package audio provides WAV decoding into normalized mono waveforms and the
// clip duration gate applied before transcription.
package audio
