// Package transcribe composes audio decoding, feature extraction, model
// inference and CTC decoding into the audio-to-text pipeline.
package transcribe
