package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"inferd/internal/feature"
	"inferd/internal/runtime"
	"inferd/pkg/types"
)

// stubRuntime lets tests control descriptor and result without a model file.
type stubRuntime struct {
	desc types.ModelDescriptor
	res  runtime.Result
	err  error
	rows int
}

func (s *stubRuntime) Describe() types.ModelDescriptor { return s.desc }
func (s *stubRuntime) Close() error                    { return nil }
func (s *stubRuntime) Predict(x *mat.Dense) (runtime.Result, error) {
	s.rows, _ = x.Dims()
	return s.res, s.err
}

func TestExecuteSingleRecord(t *testing.T) {
	rt := &stubRuntime{
		desc: types.ModelDescriptor{FeatureNames: []string{"x", "y"}},
		res:  runtime.Result{Predictions: []any{1.5}},
	}
	p := New(rt, zerolog.Nop())
	resp, err := p.Execute(context.Background(), json.RawMessage(`{"x":1,"y":2}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(resp.Prediction) != 1 || rt.rows != 1 {
		t.Fatalf("resp=%+v rows=%d", resp, rt.rows)
	}
	if resp.Probabilities != nil || resp.Classes != nil {
		t.Fatalf("non-classifier leaked probabilities: %+v", resp)
	}
}

func TestExecuteBatchPreservesOrder(t *testing.T) {
	rt := &stubRuntime{
		desc: types.ModelDescriptor{FeatureNames: []string{"x"}},
		res:  runtime.Result{Predictions: []any{10.0, 20.0, 30.0}},
	}
	p := New(rt, zerolog.Nop())
	resp, err := p.Execute(context.Background(), json.RawMessage(`[{"x":1},{"x":2},{"x":3}]`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if rt.rows != 3 || len(resp.Prediction) != 3 {
		t.Fatalf("rows=%d preds=%v", rt.rows, resp.Prediction)
	}
	if resp.Prediction[0] != 10.0 || resp.Prediction[2] != 30.0 {
		t.Fatalf("order broken: %v", resp.Prediction)
	}
}

func TestExecuteAttachesClassifierProbabilities(t *testing.T) {
	classes := []any{"a", "b"}
	rt := &stubRuntime{
		desc: types.ModelDescriptor{IsClassifier: true, Classes: classes, FeatureNames: []string{"x"}},
		res: runtime.Result{
			Predictions:   []any{"a"},
			Probabilities: [][]float64{{0.8, 0.2}},
		},
	}
	p := New(rt, zerolog.Nop())
	resp, err := p.Execute(context.Background(), json.RawMessage(`{"x":1}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(resp.Probabilities) != 1 || len(resp.Classes) != 2 {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestExecuteSwallowsMissingProbabilities(t *testing.T) {
	rt := &stubRuntime{
		desc: types.ModelDescriptor{IsClassifier: true, Classes: []any{"a", "b"}, FeatureNames: []string{"x"}},
		res:  runtime.Result{Predictions: []any{"a"}},
	}
	p := New(rt, zerolog.Nop())
	resp, err := p.Execute(context.Background(), json.RawMessage(`{"x":1}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if resp.Probabilities != nil || resp.Classes != nil {
		t.Fatalf("expected probabilities omitted, got %+v", resp)
	}
	if len(resp.Prediction) != 1 {
		t.Fatalf("predictions lost: %+v", resp)
	}
}

func TestExecutePropagatesValidationErrors(t *testing.T) {
	rt := &stubRuntime{desc: types.ModelDescriptor{FeatureNames: []string{"x", "y"}}}
	p := New(rt, zerolog.Nop())
	_, err := p.Execute(context.Background(), json.RawMessage(`[{"x":1,"y":2},{"x":3}]`))
	if !feature.IsMissingFeature(err) {
		t.Fatalf("expected missing feature, got %v", err)
	}
	if rt.rows != 0 {
		t.Fatalf("runtime called despite validation failure")
	}
}

func TestExecutePropagatesPredictErrors(t *testing.T) {
	rt := &stubRuntime{
		desc: types.ModelDescriptor{FeatureNames: []string{"x"}},
		err:  runtime.ErrPredict("boom"),
	}
	p := New(rt, zerolog.Nop())
	_, err := p.Execute(context.Background(), json.RawMessage(`{"x":1}`))
	if !runtime.IsPredict(err) {
		t.Fatalf("expected predict error, got %v", err)
	}
}

func TestExecuteCanceledContext(t *testing.T) {
	rt := &stubRuntime{desc: types.ModelDescriptor{FeatureNames: []string{"x"}}}
	p := New(rt, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.ExecuteRecords(ctx, []feature.Record{map[string]any{"x": json.Number("1")}})
	if !runtime.IsPredict(err) {
		t.Fatalf("expected predict error, got %v", err)
	}
	if errors.Is(err, context.Canceled) {
		t.Fatalf("raw context error leaked")
	}
}
