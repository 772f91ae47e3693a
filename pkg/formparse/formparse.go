// Package formparse converts loosely-typed form-data values into Go types.
// Multipart forms deliver everything as strings, so the coercion rules live
// here once instead of being re-implemented per field.
package formparse

import (
	"strings"
	"time"

	dErrors "iaset/pkg/domain-errors"
)

// Bool applies the transport boolean truth table: "true"/"1" and "false"/"0",
// case-insensitive and trimmed. Any other value is a validation failure, never
// a silent default.
func Bool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, dErrors.New(dErrors.CodeBadRequest, "invalid boolean value: "+raw)
	}
}

// OptionalBool parses a tri-state query value: empty means "no filter".
func OptionalBool(raw string) (*bool, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := Bool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// Date parses an ISO8601 date (YYYY-MM-DD, full timestamps tolerated).
func Date(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, dErrors.New(dErrors.CodeBadRequest, "invalid date format, expected ISO8601 YYYY-MM-DD")
}

// OptionalDate parses a date field that may be absent.
func OptionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := Date(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Order normalizes a creation-order direction; empty defaults to descending.
func Order(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "desc":
		return "desc", nil
	case "asc":
		return "asc", nil
	default:
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid order, expected asc or desc")
	}
}
