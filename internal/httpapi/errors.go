package httpapi

import (
	"encoding/json"
	"net/http"

	"inferd/pkg/types"
)

// Error codes carried in non-2xx envelopes.
const (
	CodeRequestTooLarge = "REQUEST_TOO_LARGE"
	CodeMissingFeature  = "MISSING_FEATURE"
	CodeInvalidInput    = "INVALID_INPUT"
	CodePredictionError = "PREDICTION_ERROR"
	CodeRateLimited     = "RATE_LIMITED"
	CodeModelNotLoaded  = "MODEL_NOT_LOADED"
)

// writeJSONError writes the consistent error envelope
// {"error": {"code", "message", "details"?}}.
func writeJSONError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: types.ErrorDetail{
		Code:    code,
		Message: msg,
		Details: details,
	}})
}
