package client

import (
	"fmt"

	"github.com/gi8lino/restgen/pkg/registry"
)

// Kind tells which field of a Result is populated.
type Kind int

const (
	None   Kind = iota // the call failed and the error was ignored
	Value              // a single, possibly constructed, value
	List               // a sequence of values
	Paged              // a pagination cursor
)

func (k Kind) String() string {
	switch k {
	case Value:
		return "value"
	case List:
		return "list"
	case Paged:
		return "cursor"
	default:
		return "none"
	}
}

// Result is the mapped outcome of one call.
type Result struct {
	Kind   Kind
	Value  any
	Items  []any
	Cursor *Cursor
}

// Data returns the payload of r as a plain value: the single value, the
// items of a list or the items of the current page.
func (r *Result) Data() any {
	if r == nil {
		return nil
	}
	switch r.Kind {
	case Value:
		return r.Value
	case List:
		return r.Items
	case Paged:
		return r.Cursor.Items()
	default:
		return nil
	}
}

// mapResult wraps a decoded payload. A paginated payload needs only the
// "next" key to be present, even when its value is null.
func mapResult(payload any, paginated bool, ctor registry.Constructor, load pageLoader) (*Result, error) {
	if m, ok := payload.(map[string]any); ok && paginated {
		if _, hasNext := m["next"]; hasNext {
			page, err := parsePage(m, ctor)
			if err != nil {
				return nil, err
			}
			return &Result{Kind: Paged, Cursor: newCursor(page, load)}, nil
		}
	}

	if seq, ok := asSequence(payload); ok {
		items, err := constructAll(ctor, seq)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: List, Items: items}, nil
	}

	v, err := construct(ctor, payload)
	if err != nil {
		return nil, err
	}
	return &Result{Kind: Value, Value: v}, nil
}

// construct applies ctor to v; without a constructor v is returned raw.
func construct(ctor registry.Constructor, v any) (any, error) {
	if ctor == nil {
		return v, nil
	}
	out, err := ctor(v)
	if err != nil {
		return nil, fmt.Errorf("construct result: %w", err)
	}
	return out, nil
}

// constructAll applies ctor to every element of seq.
func constructAll(ctor registry.Constructor, seq []any) ([]any, error) {
	out := make([]any, 0, len(seq))
	for i, v := range seq {
		item, err := construct(ctor, v)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, item)
	}
	return out, nil
}
