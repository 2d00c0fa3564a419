// Package runtime wraps exactly one loaded model behind a narrow capability
// interface. Two variants exist: the native statistical runtime and the
// portable-graph (ONNX) runtime, selected once at load time and never
// switched afterwards.
package runtime

import (
	"gonum.org/v1/gonum/mat"

	"inferd/pkg/types"
)

// Result is the output of one inference call.
type Result struct {
	// One output per input row, in row order. Classifiers yield class
	// labels, regressors yield numeric values.
	Predictions []any
	// Per-row distribution over the descriptor's classes; nil when the
	// runtime could not produce probabilities.
	Probabilities [][]float64
}

// Runtime is the capability interface over the loaded model. Implementations
// are safe for concurrent use: the model is read-only after load.
type Runtime interface {
	// Describe returns the immutable model descriptor.
	Describe() types.ModelDescriptor
	// Predict runs inference over the feature matrix, one row per record.
	Predict(x *mat.Dense) (Result, error)
	// Close releases resources held by the runtime.
	Close() error
}
