package registry

import (
	"encoding/json"
	"fmt"
)

// Constructor turns one decoded JSON value into a typed result.
type Constructor func(raw any) (any, error)

// Models maps model class names (as used in configuration) to constructors.
type Models map[string]Constructor

// Model returns a Constructor that decodes the payload into a *T.
func Model[T any]() Constructor {
	return func(raw any) (any, error) {
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		out := new(T)
		if err := json.Unmarshal(b, out); err != nil {
			return nil, fmt.Errorf("decode into %T: %w", out, err)
		}
		return out, nil
	}
}
