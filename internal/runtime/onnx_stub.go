//go:build !onnx

package runtime

// loadGraph reports the portable-graph runtime as unavailable when the
// 'onnx' build tag is not set. Load then falls back to the statistical path.
func loadGraph(path string) (Runtime, error) {
	return nil, ErrRuntimeUnavailable("onnx support not built (missing 'onnx' build tag)")
}
