package runtime

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"inferd/pkg/types"
)

func writeModel(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return path
}

const linearModel = `{
	"model_type": "LinearRegression",
	"kind": "linear",
	"coefficients": [[2.0, 3.0]],
	"intercepts": [1.0],
	"feature_names": ["x", "y"]
}`

const binaryModel = `{
	"model_type": "LogisticRegression",
	"kind": "logistic",
	"coefficients": [[1.0, -1.0]],
	"intercepts": [0.0],
	"classes": ["a", "b"],
	"feature_names": ["x", "y"]
}`

const multiclassModel = `{
	"kind": "logistic",
	"coefficients": [[1.0, 0.0], [0.0, 1.0], [-1.0, -1.0]],
	"intercepts": [0.0, 0.0, 0.0],
	"classes": [0, 1, 2]
}`

func TestLoadStatisticalLinear(t *testing.T) {
	rt, err := LoadStatistical(writeModel(t, linearModel))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	desc := rt.Describe()
	if desc.Type != "LinearRegression" || desc.Runtime != types.RuntimeStatistical {
		t.Fatalf("descriptor=%+v", desc)
	}
	if desc.IsClassifier {
		t.Fatalf("linear model flagged classifier")
	}
	if len(desc.FeatureNames) != 2 {
		t.Fatalf("feature names=%v", desc.FeatureNames)
	}
	res, err := rt.Predict(mat.NewDense(2, 2, []float64{1, 1, 2, 0}))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(res.Predictions) != 2 {
		t.Fatalf("predictions=%v", res.Predictions)
	}
	if res.Predictions[0].(float64) != 6 || res.Predictions[1].(float64) != 5 {
		t.Fatalf("predictions=%v", res.Predictions)
	}
	if res.Probabilities != nil {
		t.Fatalf("regressor produced probabilities")
	}
}

func TestBinaryLogisticProbabilitiesSumToOne(t *testing.T) {
	rt, err := LoadStatistical(writeModel(t, binaryModel))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !rt.Describe().IsClassifier {
		t.Fatalf("expected classifier")
	}
	res, err := rt.Predict(mat.NewDense(2, 2, []float64{3, 0, 0, 3}))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(res.Probabilities) != 2 {
		t.Fatalf("probabilities=%v", res.Probabilities)
	}
	for i, row := range res.Probabilities {
		if len(row) != 2 {
			t.Fatalf("row %d len=%d", i, len(row))
		}
		sum := row[0] + row[1]
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("row %d sums to %v", i, sum)
		}
	}
	// Positive score favors class "b", negative favors "a".
	if res.Predictions[0] != "b" || res.Predictions[1] != "a" {
		t.Fatalf("predictions=%v", res.Predictions)
	}
}

func TestMulticlassSoftmax(t *testing.T) {
	rt, err := LoadStatistical(writeModel(t, multiclassModel))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	desc := rt.Describe()
	if len(desc.Classes) != 3 || desc.FeatureNames != nil {
		t.Fatalf("descriptor=%+v", desc)
	}
	res, err := rt.Predict(mat.NewDense(1, 2, []float64{0, 5}))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	row := res.Probabilities[0]
	var sum float64
	for _, p := range row {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("probabilities sum to %v", sum)
	}
	if res.Predictions[0].(float64) != 1 {
		t.Fatalf("predictions=%v", res.Predictions)
	}
}

func TestPredictFeatureCountMismatch(t *testing.T) {
	rt, _ := LoadStatistical(writeModel(t, linearModel))
	_, err := rt.Predict(mat.NewDense(1, 3, []float64{1, 2, 3}))
	if !IsPredict(err) {
		t.Fatalf("expected predict error, got %v", err)
	}
}

func TestLoadStatisticalRejectsBadDocs(t *testing.T) {
	cases := map[string]string{
		"unknown kind":       `{"kind":"forest","coefficients":[[1]],"intercepts":[0]}`,
		"no coefficients":    `{"kind":"linear","coefficients":[],"intercepts":[]}`,
		"ragged rows":        `{"kind":"logistic","coefficients":[[1,2],[3]],"intercepts":[0,0],"classes":[0,1]}`,
		"intercept mismatch": `{"kind":"linear","coefficients":[[1,2]],"intercepts":[0,0]}`,
		"class mismatch":     `{"kind":"logistic","coefficients":[[1,2]],"intercepts":[0],"classes":[0,1,2]}`,
		"name mismatch":      `{"kind":"linear","coefficients":[[1,2]],"intercepts":[0],"feature_names":["x"]}`,
		"not json":           `not-json`,
	}
	for name, body := range cases {
		if _, err := LoadStatistical(writeModel(t, body)); !IsLoad(err) {
			t.Fatalf("%s: expected load error, got %v", name, err)
		}
	}
}

func TestLoadStatisticalMissingFile(t *testing.T) {
	_, err := LoadStatistical(filepath.Join(t.TempDir(), "missing.json"))
	if !IsLoad(err) {
		t.Fatalf("expected load error, got %v", err)
	}
}
