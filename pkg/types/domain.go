package types

// RuntimeKind identifies which execution backend serves the loaded model.
type RuntimeKind string

const (
	// RuntimeStatistical is the native statistical-model runtime (double precision).
	RuntimeStatistical RuntimeKind = "statistical"
	// RuntimeONNX is the portable-graph runtime (single precision at the tensor boundary).
	RuntimeONNX RuntimeKind = "onnx"
)

// ModelDescriptor is an immutable summary of the loaded model's shape and
// capabilities. It is built once at load time and shared read-only by every
// request for the process lifetime.
type ModelDescriptor struct {
	// Model type name as reported by the runtime.
	// example: LogisticRegression
	Type string `json:"type" example:"LogisticRegression"`
	// Runtime backend serving the model.
	// example: statistical
	Runtime RuntimeKind `json:"runtime" example:"statistical"`
	// True when the runtime exposes a probability-producing capability.
	// example: true
	IsClassifier bool `json:"is_classifier" example:"true"`
	// Declared feature order; nil when the runtime does not expose names.
	FeatureNames []string `json:"feature_names"`
	// Ordered class labels; nil when the runtime cannot recover them.
	// Labels are opaque and round-trip to the caller uninterpreted.
	Classes []any `json:"classes"`
}
