// Package filter implements the filter pipeline (C2): an ordered list of
// transforms threaded over a payload, where each stage may fan a single
// input out into zero or more outputs (e.g. extract_json against an array).
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yalp/jsonpath"

	"github.com/kaans/mqtli/internal/payload"
)

var (
	// ErrWrongPayloadFormat is returned when a filter requires a payload
	// kind its input isn't already, and coercion to it failed.
	ErrWrongPayloadFormat = errors.New("filter: wrong payload format for this filter")
	// ErrWrongJSONPath is returned when a JSONPath expression is malformed.
	// A well-formed expression that simply matches nothing yields an empty
	// result instead of this error.
	ErrWrongJSONPath = errors.New("filter: jsonpath expression failed")
)

// Kind names one of the supported filter stages.
type Kind string

const (
	KindExtractJSON Kind = "extract_json"
	KindToUpperCase Kind = "to_upper"
	KindToLowerCase Kind = "to_lower"
	KindToText      Kind = "to_text"
	KindToJSON      Kind = "to_json"
)

// Filter is one stage in a pipeline.
type Filter struct {
	Kind     Kind
	JSONPath string // only used by KindExtractJSON
}

// Apply threads in through every filter in order via a left fold: each
// stage consumes the full list of Formats produced by the previous stage
// and produces its own list, supporting fan-out stages like extract_json
// against a JSON array. This mirrors the original's try_fold over
// Vec<PayloadFormat>.
func Apply(filters []Filter, in []payload.Format) ([]payload.Format, error) {
	current := in
	for _, f := range filters {
		next := make([]payload.Format, 0, len(current))
		for _, item := range current {
			out, err := apply1(f, item)
			if err != nil {
				return nil, err
			}
			next = append(next, out...)
		}
		current = next
	}
	return current, nil
}

func apply1(f Filter, in payload.Format) ([]payload.Format, error) {
	switch f.Kind {
	case KindToText:
		return coerceTo(in, payload.KindText)
	case KindToJSON:
		return coerceTo(in, payload.KindJson)
	case KindToUpperCase:
		return mapText(in, strings.ToUpper)
	case KindToLowerCase:
		return mapText(in, strings.ToLower)
	case KindExtractJSON:
		return extractJSON(in, f.JSONPath)
	default:
		return nil, fmt.Errorf("filter: unknown filter kind %q", f.Kind)
	}
}

func coerceTo(in payload.Format, kind payload.Kind) ([]payload.Format, error) {
	out, err := payload.Convert(in, kind, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongPayloadFormat, err)
	}
	return []payload.Format{out}, nil
}

func mapText(in payload.Format, transform func(string) string) ([]payload.Format, error) {
	text, err := payload.Convert(in, payload.KindText, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongPayloadFormat, err)
	}
	return []payload.Format{payload.NewText(transform(text.Text))}, nil
}

func extractJSON(in payload.Format, path string) ([]payload.Format, error) {
	asJSON, err := payload.Convert(in, payload.KindJson, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongPayloadFormat, err)
	}

	var doc any
	if err := jsonUnmarshal(asJSON.Text, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongJSONPath, err)
	}

	// Prepare parses/compiles path and fails only on malformed expressions.
	// The returned filter function is applied separately so a well-formed
	// path that simply matches nothing can be told apart from a bad one:
	// it yields an empty result rather than ErrWrongJSONPath.
	filter, err := jsonpath.Prepare(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongJSONPath, err)
	}

	result, err := filter(doc)
	if err != nil {
		return nil, nil
	}

	if slice, ok := result.([]any); ok {
		out := make([]payload.Format, 0, len(slice))
		for _, elem := range slice {
			b, err := jsonMarshal(elem)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrWrongJSONPath, err)
			}
			out = append(out, payload.Format{Kind: payload.KindJson, Text: string(b)})
		}
		return out, nil
	}

	b, err := jsonMarshal(result)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongJSONPath, err)
	}
	return []payload.Format{{Kind: payload.KindJson, Text: string(b)}}, nil
}
