// Package feature converts loosely-typed caller input into the ordered
// rectangular numeric matrix the model runtime requires.
package feature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"inferd/pkg/types"
)

// Record is one decoded input sample: a map of feature name to scalar, or an
// ordered slice of scalars for positional input.
type Record any

// ParseInput decodes the raw request input into a batch of records. A bare
// object is a one-record batch; an array is a batch of records.
func ParseInput(raw json.RawMessage) ([]Record, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrInvalidInput("input is required")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, ErrInvalidInput("input must be an object or an array of objects")
	}
	switch t := v.(type) {
	case map[string]any:
		return []Record{t}, nil
	case []any:
		records := make([]Record, 0, len(t))
		for i, el := range t {
			switch el.(type) {
			case map[string]any, []any:
				records = append(records, el)
			default:
				return nil, ErrInvalidInput(fmt.Sprintf("row %d: record must be an object or an array", i))
			}
		}
		return records, nil
	default:
		return nil, ErrInvalidInput("input must be an object or an array of objects")
	}
}

// Normalize builds a rectangular float64 matrix from the batch, one row per
// record in input order.
//
// When the descriptor declares feature names, every record must contain all
// of them and values are collected in declared order; the first incomplete
// row fails the whole batch. Without names, mapping records contribute their
// values under lexicographically sorted keys and positional records are used
// as-is; consistent ordering across records is the caller's responsibility.
func Normalize(records []Record, desc types.ModelDescriptor) (*mat.Dense, error) {
	if len(records) == 0 {
		return nil, ErrEmptyBatch()
	}
	if len(desc.FeatureNames) > 0 {
		return normalizeNamed(records, desc.FeatureNames)
	}
	return normalizeBare(records)
}

func normalizeNamed(records []Record, names []string) (*mat.Dense, error) {
	data := make([]float64, 0, len(records)*len(names))
	for i, r := range records {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, ErrInvalidInput(fmt.Sprintf("row %d: record must be an object with named features", i))
		}
		var missing []string
		for _, name := range names {
			if _, present := m[name]; !present {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return nil, ErrMissingFeature(i, missing)
		}
		for _, name := range names {
			f, err := coerce(m[name])
			if err != nil {
				return nil, ErrInvalidInput(fmt.Sprintf("row %d: feature %q: %v", i, name, err))
			}
			data = append(data, f)
		}
	}
	return mat.NewDense(len(records), len(names), data), nil
}

func normalizeBare(records []Record) (*mat.Dense, error) {
	var cols int
	var data []float64
	for i, r := range records {
		vals, err := rowValues(r)
		if err != nil {
			return nil, ErrInvalidInput(fmt.Sprintf("row %d: %v", i, err))
		}
		if i == 0 {
			cols = len(vals)
			if cols == 0 {
				return nil, ErrInvalidInput("row 0: record has no values")
			}
		} else if len(vals) != cols {
			return nil, ErrInvalidInput(fmt.Sprintf("row %d: expected %d values, got %d", i, cols, len(vals)))
		}
		data = append(data, vals...)
	}
	return mat.NewDense(len(records), cols, data), nil
}

func rowValues(r Record) ([]float64, error) {
	switch t := r.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]float64, 0, len(keys))
		for _, k := range keys {
			f, err := coerce(t[k])
			if err != nil {
				return nil, fmt.Errorf("feature %q: %v", k, err)
			}
			out = append(out, f)
		}
		return out, nil
	case []any:
		out := make([]float64, 0, len(t))
		for j, v := range t {
			f, err := coerce(v)
			if err != nil {
				return nil, fmt.Errorf("index %d: %v", j, err)
			}
			out = append(out, f)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("record must be an object or an array")
	}
}

func coerce(v any) (float64, error) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("value %v is not numeric", t)
		}
		return f, nil
	case float64:
		return t, nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("value %v is not numeric", v)
	}
}
