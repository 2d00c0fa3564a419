package runtime

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"inferd/pkg/types"
)

// Statistical model kinds understood by the native runtime.
const (
	kindLinear   = "linear"
	kindRidge    = "ridge"
	kindLogistic = "logistic"
)

// statDoc is the on-disk JSON document for the native statistical runtime.
// Coefficients are row-major, one row per output; logistic models with a
// single coefficient row are binary (two classes).
type statDoc struct {
	ModelType    string      `json:"model_type"`
	Kind         string      `json:"kind"`
	Coefficients [][]float64 `json:"coefficients"`
	Intercepts   []float64   `json:"intercepts"`
	Classes      []any       `json:"classes"`
	FeatureNames []string    `json:"feature_names"`
}

// statModel evaluates a linear-family model in double precision.
type statModel struct {
	desc       types.ModelDescriptor
	kind       string
	coef       *mat.Dense // outputs x features
	intercepts []float64
	features   int
}

// LoadStatistical loads a model document from disk. Any failure here is a
// LoadError: startup must not proceed without a model.
func LoadStatistical(path string) (Runtime, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrLoad("failed to load model: " + err.Error())
	}
	var doc statDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, ErrLoad("failed to load model: " + err.Error())
	}
	return newStatModel(doc)
}

func newStatModel(doc statDoc) (Runtime, error) {
	switch doc.Kind {
	case kindLinear, kindRidge, kindLogistic:
	default:
		return nil, ErrLoad(fmt.Sprintf("unsupported model kind %q", doc.Kind))
	}
	rows := len(doc.Coefficients)
	if rows == 0 {
		return nil, ErrLoad("model has no coefficients")
	}
	cols := len(doc.Coefficients[0])
	if cols == 0 {
		return nil, ErrLoad("model has no features")
	}
	data := make([]float64, 0, rows*cols)
	for i, row := range doc.Coefficients {
		if len(row) != cols {
			return nil, ErrLoad(fmt.Sprintf("coefficient row %d has %d values, expected %d", i, len(row), cols))
		}
		data = append(data, row...)
	}
	if len(doc.Intercepts) != rows {
		return nil, ErrLoad(fmt.Sprintf("model has %d intercepts for %d outputs", len(doc.Intercepts), rows))
	}
	if doc.Kind == kindLogistic {
		want := rows
		if rows == 1 {
			want = 2
		}
		if len(doc.Classes) != want {
			return nil, ErrLoad(fmt.Sprintf("logistic model declares %d classes for %d outputs", len(doc.Classes), rows))
		}
	} else if rows != 1 {
		return nil, ErrLoad(fmt.Sprintf("%s model must have exactly one output, got %d", doc.Kind, rows))
	}
	if len(doc.FeatureNames) > 0 && len(doc.FeatureNames) != cols {
		return nil, ErrLoad(fmt.Sprintf("model declares %d feature names for %d features", len(doc.FeatureNames), cols))
	}
	modelType := doc.ModelType
	if modelType == "" {
		modelType = doc.Kind
	}
	desc := types.ModelDescriptor{
		Type:         modelType,
		Runtime:      types.RuntimeStatistical,
		IsClassifier: doc.Kind == kindLogistic,
		FeatureNames: doc.FeatureNames,
		Classes:      doc.Classes,
	}
	return &statModel{
		desc:       desc,
		kind:       doc.Kind,
		coef:       mat.NewDense(rows, cols, data),
		intercepts: doc.Intercepts,
		features:   cols,
	}, nil
}

func (m *statModel) Describe() types.ModelDescriptor { return m.desc }

func (m *statModel) Close() error { return nil }

func (m *statModel) Predict(x *mat.Dense) (Result, error) {
	n, d := x.Dims()
	if d != m.features {
		return Result{}, ErrPredict(fmt.Sprintf("expected %d features, got %d", m.features, d))
	}
	var scores mat.Dense
	scores.Mul(x, m.coef.T())
	for i := 0; i < n; i++ {
		for j := range m.intercepts {
			scores.Set(i, j, scores.At(i, j)+m.intercepts[j])
		}
	}
	if m.kind != kindLogistic {
		preds := make([]any, n)
		for i := 0; i < n; i++ {
			preds[i] = scores.At(i, 0)
		}
		return Result{Predictions: preds}, nil
	}
	return m.classify(&scores, n), nil
}

// classify turns decision scores into class labels and probabilities. Binary
// models carry one score column (sigmoid); multiclass models one per class
// (softmax).
func (m *statModel) classify(scores *mat.Dense, n int) Result {
	k := len(m.desc.Classes)
	preds := make([]any, n)
	probs := make([][]float64, n)
	_, outs := scores.Dims()
	for i := 0; i < n; i++ {
		row := make([]float64, k)
		if outs == 1 {
			p := sigmoid(scores.At(i, 0))
			row[0] = 1 - p
			row[1] = p
		} else {
			softmax(scores.RawRowView(i), row)
		}
		best := 0
		for j := 1; j < k; j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		preds[i] = m.desc.Classes[best]
		probs[i] = row
	}
	return Result{Predictions: preds, Probabilities: probs}
}

func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

// softmax writes the normalized distribution of src into dst, shifting by the
// row max for numeric stability.
func softmax(src, dst []float64) {
	max := src[0]
	for _, v := range src[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	for j, v := range src {
		e := math.Exp(v - max)
		dst[j] = e
		sum += e
	}
	for j := range dst {
		dst[j] /= sum
	}
}
