package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"inferd/internal/sentinel"
)

type ctxKey int

const requestStateKey ctxKey = iota

// requestState is placed in the context by the logging middleware and
// written through by the predict handler, so the completion log can carry
// the batch size without ever touching the input payload.
type requestState struct {
	id        string
	batchSize int
}

// RequestIDFromContext returns the identifier assigned to this request.
func RequestIDFromContext(ctx context.Context) string {
	if st, ok := ctx.Value(requestStateKey).(*requestState); ok {
		return st.id
	}
	return ""
}

func setBatchSize(r *http.Request, n int) {
	if st, ok := r.Context().Value(requestStateKey).(*requestState); ok {
		st.batchSize = n
	}
}

// requestLogger assigns a fresh request identifier, times the request and
// emits exactly one structured entry after the handler returns: identifier,
// method, path, status and latency — never input feature values. The same
// entry is mirrored as a __REQUEST__ frame for the parent process.
func requestLogger(log zerolog.Logger, emit *sentinel.Emitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := &requestState{id: uuid.NewString(), batchSize: 1}
			r = r.WithContext(context.WithValue(r.Context(), requestStateKey, st))
			sr := &statusRecorder{ResponseWriter: w, status: 200}
			start := time.Now()
			next.ServeHTTP(sr, r)
			latency := time.Since(start)

			log.Info().
				Str("request_id", st.id).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sr.status).
				Dur("latency", latency).
				Int("batch_size", st.batchSize).
				Msg("request")
			if emit != nil {
				_ = emit.Request(sentinel.RequestEntry{
					ID:          st.id,
					TimestampMS: time.Now().UnixMilli(),
					Method:      r.Method,
					Path:        r.URL.Path,
					StatusCode:  sr.status,
					LatencyMS:   float64(latency.Microseconds()) / 1000,
					BatchSize:   st.batchSize,
				})
			}
		})
	}
}
