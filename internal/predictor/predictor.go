// Package predictor orchestrates one prediction call: normalize the input,
// run the runtime, assemble the response.
package predictor

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"inferd/internal/feature"
	"inferd/internal/runtime"
	"inferd/pkg/types"
)

// Predictor owns the loaded runtime and its immutable descriptor. It is
// shared by both transports; all state is read-only after construction, so
// concurrent use needs no locking.
type Predictor struct {
	rt   runtime.Runtime
	desc types.ModelDescriptor
	log  zerolog.Logger
}

// New wraps a loaded runtime.
func New(rt runtime.Runtime, log zerolog.Logger) *Predictor {
	return &Predictor{rt: rt, desc: rt.Describe(), log: log}
}

// Describe returns the model descriptor.
func (p *Predictor) Describe() types.ModelDescriptor { return p.desc }

// Ready reports whether a model is loaded.
func (p *Predictor) Ready() bool { return p.rt != nil }

// Close releases the underlying runtime.
func (p *Predictor) Close() error { return p.rt.Close() }

// Execute parses raw input and runs one prediction call.
func (p *Predictor) Execute(ctx context.Context, raw json.RawMessage) (types.PredictResponse, error) {
	records, err := feature.ParseInput(raw)
	if err != nil {
		return types.PredictResponse{}, err
	}
	return p.ExecuteRecords(ctx, records)
}

// ExecuteRecords runs one prediction call over already-parsed records.
// Predictions are always returned when computed; a classifier that fails to
// produce probabilities simply omits them, that failure is never surfaced.
func (p *Predictor) ExecuteRecords(ctx context.Context, records []feature.Record) (types.PredictResponse, error) {
	if err := ctx.Err(); err != nil {
		return types.PredictResponse{}, runtime.ErrPredict("request canceled")
	}
	x, err := feature.Normalize(records, p.desc)
	if err != nil {
		return types.PredictResponse{}, err
	}
	res, err := p.rt.Predict(x)
	if err != nil {
		return types.PredictResponse{}, err
	}
	resp := types.PredictResponse{Prediction: res.Predictions}
	if p.desc.IsClassifier {
		if len(res.Probabilities) > 0 {
			resp.Probabilities = res.Probabilities
			resp.Classes = p.desc.Classes
		} else {
			p.log.Debug().Msg("classifier produced no probabilities; omitting")
		}
	}
	return resp, nil
}
