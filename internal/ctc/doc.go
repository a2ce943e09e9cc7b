// Package ctc implements greedy CTC collapse of frame-aligned token id
// sequences into text.
package ctc
