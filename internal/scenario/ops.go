package scenario

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// aggregate folds the values of the fields a computed field depends on.
type aggregate func(values []any) (any, error)

var ops = map[string]aggregate{
	"sum": numeric(0, func(acc, v float64) float64 { return acc + v }),

	"product": numeric(1, func(acc, v float64) float64 { return acc * v }),

	"min": numeric(math.Inf(1), math.Min),
	"max": numeric(math.Inf(-1), math.Max),

	// count is the number of non-nil values
	"count": func(values []any) (any, error) {
		n := 0
		for _, v := range values {
			if v != nil {
				n++
			}
		}
		return n, nil
	},

	// join concatenates the non-nil values with a space
	"join": func(values []any) (any, error) {
		parts := make([]string, 0, len(values))
		for _, v := range values {
			if v != nil {
				parts = append(parts, fmt.Sprint(v))
			}
		}
		return strings.Join(parts, " "), nil
	},
}

func opNames() []string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func numeric(seed float64, fold func(acc, v float64) float64) aggregate {
	return func(values []any) (any, error) {
		acc := seed
		for _, v := range values {
			f, err := number(v)
			if err != nil {
				return nil, err
			}
			acc = fold(acc, f)
		}
		return acc, nil
	}
}

func number(v any) (float64, error) {
	switch v := v.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	}
	return 0, fmt.Errorf("%q is not a number", fmt.Sprint(v))
}
