// Package httpapi exposes the loaded model over HTTP for ad-hoc testing:
// GET /health and POST /predict, plus /metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"inferd/internal/feature"
	"inferd/internal/runtime"
	"inferd/internal/sentinel"
	"inferd/pkg/types"
)

// Defaults match the documented transport policy.
const (
	DefaultMaxBodyBytes   = 1_000_000
	DefaultMaxBatchSize   = 1000
	DefaultRatePerMinute  = 100
	DefaultRequestTimeout = 30 * time.Second
)

// Service defines what the HTTP layer needs from the prediction layer.
type Service interface {
	Describe() types.ModelDescriptor
	Ready() bool
	ExecuteRecords(ctx context.Context, records []feature.Record) (types.PredictResponse, error)
}

// Options configures the HTTP transport. Zero values take the defaults above.
type Options struct {
	MaxBodyBytes   int64
	MaxBatchSize   int
	RatePerMinute  int
	RequestTimeout time.Duration
	// Origin allow-list; "*" permits any origin. Empty disables CORS entirely.
	CORSOrigins []string
	Logger      zerolog.Logger
	// Emitter mirrors request metadata to the parent process; optional.
	Emitter *sentinel.Emitter
}

func (o Options) withDefaults() Options {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if o.MaxBatchSize <= 0 {
		o.MaxBatchSize = DefaultMaxBatchSize
	}
	if o.RatePerMinute <= 0 {
		o.RatePerMinute = DefaultRatePerMinute
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	return o
}

// NewMux builds the router with the full middleware chain: size ceiling,
// per-client rate limit, request id + logging, metrics.
func NewMux(svc Service, opts Options) http.Handler {
	opts = opts.withDefaults()
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
		}))
	}
	r.Use(maxBytesMiddleware(opts.MaxBodyBytes))
	r.Use(newRateLimiter(opts.RatePerMinute).Middleware)
	r.Use(requestLogger(opts.Logger, opts.Emitter))
	r.Use(MetricsMiddleware)

	r.Get("/health", handleHealth(svc))
	r.Post("/predict", handlePredict(svc, opts))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

// maxBytesMiddleware rejects oversized requests on the declared content
// length before the body is read, then caps the actual read as a backstop
// against undeclared lengths.
func maxBytesMiddleware(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > max {
				writeJSONError(w, http.StatusRequestEntityTooLarge, CodeRequestTooLarge,
					fmt.Sprintf("request size %d exceeds maximum of %d bytes", r.ContentLength, max), nil)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, max)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// handleHealth returns the descriptor summary.
//
// @Summary Health check
// @Produce json
// @Success 200 {object} types.HealthResponse
// @Failure 503 {object} types.ErrorResponse
// @Router /health [get]
func handleHealth(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !svc.Ready() {
			writeJSONError(w, http.StatusServiceUnavailable, CodeModelNotLoaded, "model not loaded", nil)
			return
		}
		desc := svc.Describe()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(types.HealthResponse{
			Status:       "healthy",
			ModelType:    desc.Type,
			IsClassifier: desc.IsClassifier,
			FeatureNames: desc.FeatureNames,
			Classes:      desc.Classes,
			Runtime:      desc.Runtime,
		})
	}
}

// handlePredict validates the batch and runs the executor under the
// transport timeout.
//
// @Summary Run prediction
// @Accept json
// @Produce json
// @Param request body types.PredictRequest true "single record or batch"
// @Success 200 {object} types.PredictResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 413 {object} types.ErrorResponse
// @Failure 429 {object} types.ErrorResponse
// @Failure 500 {object} types.ErrorResponse
// @Failure 503 {object} types.ErrorResponse
// @Router /predict [post]
func handlePredict(svc Service, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !svc.Ready() {
			writeJSONError(w, http.StatusServiceUnavailable, CodeModelNotLoaded, "model not loaded", nil)
			return
		}
		var req types.PredictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, CodeInvalidInput, "invalid JSON body", nil)
			return
		}
		records, err := feature.ParseInput(req.Input)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, CodeInvalidInput, err.Error(), nil)
			return
		}
		setBatchSize(r, len(records))
		if len(records) == 0 {
			writeJSONError(w, http.StatusBadRequest, CodeInvalidInput, feature.ErrEmptyBatch().Error(), nil)
			return
		}
		if len(records) > opts.MaxBatchSize {
			err := feature.ErrBatchTooLarge(len(records), opts.MaxBatchSize)
			writeJSONError(w, http.StatusBadRequest, CodeInvalidInput, err.Error(),
				map[string]any{"batch_size": len(records), "max": opts.MaxBatchSize})
			return
		}
		ObserveBatchSize(len(records))

		ctx, cancel := context.WithTimeout(r.Context(), opts.RequestTimeout)
		defer cancel()
		type result struct {
			resp types.PredictResponse
			err  error
		}
		done := make(chan result, 1)
		go func() {
			resp, err := svc.ExecuteRecords(ctx, records)
			done <- result{resp: resp, err: err}
		}()
		select {
		case <-ctx.Done():
			// The abandoned runtime call is side-effect-free; letting it
			// finish in the background leaves no inconsistent state.
			writeJSONError(w, http.StatusInternalServerError, CodePredictionError, "prediction timed out", nil)
			return
		case res := <-done:
			if res.err != nil {
				writePredictError(w, res.err, opts.Logger)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(res.resp)
		}
	}
}

// writePredictError maps executor errors onto the envelope. Runtime internals
// are never echoed to the caller; the real error goes to the log only.
func writePredictError(w http.ResponseWriter, err error, log zerolog.Logger) {
	switch {
	case feature.IsMissingFeature(err):
		row, names, _ := feature.MissingFeatureDetails(err)
		writeJSONError(w, http.StatusBadRequest, CodeMissingFeature, err.Error(),
			map[string]any{"row": row, "missing": names})
	case feature.IsEmptyBatch(err), feature.IsInvalidInput(err), feature.IsBatchTooLarge(err):
		writeJSONError(w, http.StatusBadRequest, CodeInvalidInput, err.Error(), nil)
	case runtime.IsPredict(err):
		log.Error().Err(err).Msg("prediction failed")
		writeJSONError(w, http.StatusInternalServerError, CodePredictionError, "prediction failed", nil)
	default:
		log.Error().Err(err).Msg("prediction failed")
		writeJSONError(w, http.StatusInternalServerError, CodePredictionError, "prediction failed", nil)
	}
}
