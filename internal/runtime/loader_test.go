package runtime

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"inferd/pkg/types"
)

// Without the onnx build tag the graph path is unavailable, which must fall
// back to the statistical runtime without surfacing an error.
func TestLoadFallsBackToStatistical(t *testing.T) {
	model := writeModel(t, linearModel)
	rt, err := Load(model, filepath.Join(t.TempDir(), "model.onnx"), zerolog.Nop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer rt.Close()
	if rt.Describe().Runtime != types.RuntimeStatistical {
		t.Fatalf("runtime=%s", rt.Describe().Runtime)
	}
}

func TestLoadWithoutGraphPath(t *testing.T) {
	rt, err := Load(writeModel(t, binaryModel), "", zerolog.Nop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer rt.Close()
	if !rt.Describe().IsClassifier {
		t.Fatalf("expected classifier descriptor")
	}
}

func TestLoadFatalWhenStatisticalPathFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"), "", zerolog.Nop())
	if !IsLoad(err) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestGraphStubReportsUnavailable(t *testing.T) {
	_, err := loadGraph("whatever.onnx")
	if err == nil {
		t.Skip("built with onnx tag")
	}
	if !IsRuntimeUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestErrorPredicatesAreDisjoint(t *testing.T) {
	if IsLoad(ErrPredict("x")) || IsPredict(ErrLoad("x")) || IsRuntimeUnavailable(ErrLoad("x")) {
		t.Fatalf("predicates overlap")
	}
}
