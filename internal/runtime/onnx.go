//go:build onnx

package runtime

import (
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gonum.org/v1/gonum/mat"

	"inferd/pkg/types"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

func initEnvironment() error {
	ortInitOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// graphModel serves a portable graph through onnxruntime. The graph's
// numeric convention is single precision; the float64 matrix is narrowed at
// the tensor boundary.
type graphModel struct {
	desc        types.ModelDescriptor
	sess        *ort.DynamicAdvancedSession
	outputNames []string
}

func loadGraph(path string) (Runtime, error) {
	if err := initEnvironment(); err != nil {
		return nil, ErrRuntimeUnavailable("onnx runtime unavailable: " + err.Error())
	}
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, ErrLoad("failed to inspect onnx model: " + err.Error())
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, ErrLoad("onnx model declares no inputs or outputs")
	}
	outputNames := make([]string, len(outputs))
	for i, o := range outputs {
		outputNames[i] = o.Name
	}
	sess, err := ort.NewDynamicAdvancedSession(path, []string{inputs[0].Name}, outputNames, nil)
	if err != nil {
		return nil, ErrLoad("failed to load onnx model: " + err.Error())
	}
	return &graphModel{
		desc: types.ModelDescriptor{
			Type:         "ONNX",
			Runtime:      types.RuntimeONNX,
			IsClassifier: looksLikeClassifier(outputNames),
			// The graph format preserves neither original class labels nor
			// feature names; both stay absent.
		},
		sess:        sess,
		outputNames: outputNames,
	}, nil
}

// looksLikeClassifier applies the output-name heuristic: any output whose
// name contains "probabilit" or "label" flags the graph as a classifier.
// Kept verbatim for compatibility with the existing metadata contract.
func looksLikeClassifier(outputNames []string) bool {
	for _, name := range outputNames {
		n := strings.ToLower(name)
		if strings.Contains(n, "probabilit") || strings.Contains(n, "label") {
			return true
		}
	}
	return false
}

func (g *graphModel) Describe() types.ModelDescriptor { return g.desc }

func (g *graphModel) Close() error {
	if g.sess == nil {
		return nil
	}
	err := g.sess.Destroy()
	g.sess = nil
	return err
}

func (g *graphModel) Predict(x *mat.Dense) (Result, error) {
	rows, cols := x.Dims()
	data := make([]float32, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data[i*cols+j] = float32(x.At(i, j))
		}
	}
	in, err := ort.NewTensor(ort.NewShape(int64(rows), int64(cols)), data)
	if err != nil {
		return Result{}, ErrPredict("failed to build input tensor: " + err.Error())
	}
	defer in.Destroy()
	outs := make([]ort.Value, len(g.outputNames))
	if err := g.sess.Run([]ort.Value{in}, outs); err != nil {
		return Result{}, ErrPredict("graph execution failed: " + err.Error())
	}
	defer func() {
		for _, o := range outs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	res := Result{}
	switch t := outs[0].(type) {
	case *ort.Tensor[float32]:
		d := t.GetData()
		if len(d) < rows {
			return Result{}, ErrPredict("graph returned fewer outputs than input rows")
		}
		for i := 0; i < rows; i++ {
			res.Predictions = append(res.Predictions, float64(d[i]))
		}
	case *ort.Tensor[int64]:
		d := t.GetData()
		if len(d) < rows {
			return Result{}, ErrPredict("graph returned fewer outputs than input rows")
		}
		for i := 0; i < rows; i++ {
			res.Predictions = append(res.Predictions, d[i])
		}
	default:
		return Result{}, ErrPredict("unsupported graph output type")
	}

	// A second float tensor of shape [rows, k] is taken as per-row class
	// probabilities; anything else leaves probabilities absent.
	if len(outs) > 1 {
		if t, ok := outs[1].(*ort.Tensor[float32]); ok {
			shape := t.GetShape()
			if len(shape) == 2 && shape[0] == int64(rows) {
				k := int(shape[1])
				d := t.GetData()
				probs := make([][]float64, rows)
				for i := 0; i < rows; i++ {
					row := make([]float64, k)
					for j := 0; j < k; j++ {
						row[j] = float64(d[i*k+j])
					}
					probs[i] = row
				}
				res.Probabilities = probs
			}
		}
	}
	return res, nil
}
