package types

import "encoding/json"

// PredictRequest is the body of POST /predict and the payload of the
// stream transport's predict command. Input is either a single record
// (object) or a batch (array of objects); it stays raw until the
// normalizer resolves the shape.
type PredictRequest struct {
	// Single record or batch of records, keyed by feature name.
	// example: {"x": 1, "y": 2}
	Input json.RawMessage `json:"input"`
}

// PredictResponse carries one prediction per input record, order-preserving.
type PredictResponse struct {
	// One scalar output per input record. For classifiers these are the
	// predicted class labels.
	Prediction []any `json:"prediction"`
	// Per-row distribution over Classes. Present only when the model is a
	// classifier and the runtime produced probabilities; absence is not an error.
	Probabilities [][]float64 `json:"probabilities,omitempty"`
	// Class labels matching the probability columns, echoed from the descriptor.
	Classes []any `json:"classes,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// Overall server health.
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// Model type name.
	// example: LogisticRegression
	ModelType string `json:"model_type" example:"LogisticRegression"`
	// True when the model can produce class probabilities.
	// example: true
	IsClassifier bool `json:"is_classifier" example:"true"`
	// Declared feature order, if known.
	FeatureNames []string `json:"feature_names"`
	// Ordered class labels, if known.
	Classes []any `json:"classes"`
	// Runtime backend serving the model.
	// example: statistical
	Runtime RuntimeKind `json:"runtime" example:"statistical"`
}

// ErrorDetail is the inner object of every non-2xx JSON body.
type ErrorDetail struct {
	// Stable machine-readable error code.
	// example: MISSING_FEATURE
	Code string `json:"code" example:"MISSING_FEATURE"`
	// Human-readable message.
	// example: row 1: missing features: y
	Message string `json:"message" example:"row 1: missing features: y"`
	// Optional structured context (e.g. row index and missing names).
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the consistent JSON error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
