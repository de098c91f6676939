package artifact

import (
	"encoding/json"
	"fmt"
)

// reshape round-trips v through encoding/json so struct fields become maps.
// Go marshals map keys in sorted order, which is what makes the output
// canonical regardless of field declaration order.
func reshape(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var shaped any
	if err := json.Unmarshal(data, &shaped); err != nil {
		return nil, fmt.Errorf("failed to reshape value: %w", err)
	}
	return shaped, nil
}

// Canonical returns compact JSON with keys sorted at every nesting level.
// Identical logical values always produce identical bytes, which is the basis
// for content-addressed ids.
func Canonical(v any) ([]byte, error) {
	shaped, err := reshape(v)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(shaped)
	if err != nil {
		return nil, fmt.Errorf("failed to encode canonical form: %w", err)
	}
	return data, nil
}

// MarshalSorted returns two-space indented JSON with keys sorted at every
// nesting level, used for structured query output.
func MarshalSorted(v any) ([]byte, error) {
	shaped, err := reshape(v)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(shaped, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode sorted form: %w", err)
	}
	return data, nil
}
