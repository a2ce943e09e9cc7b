// Package inference runs the acoustic model through ONNX Runtime behind a
// fixed-size worker pool that keeps blocking numeric calls off the request
// handling path.
package inference
