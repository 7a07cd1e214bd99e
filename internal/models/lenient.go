package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Records produced by a language model are untrusted: a field that should be
// a string may arrive as a number or a list, and a list may arrive as a
// single string. The types in this file decode any well-formed JSON value
// into the closest usable shape instead of failing the whole record.

// Text is a string field that accepts any JSON value.
// Arrays are joined with newlines and objects are rendered as
// "key: value" pairs in document order.
type Text string

// String returns the text as a plain string.
func (t Text) String() string {
	return string(t)
}

// Or returns t, or fallback when t is blank.
func (t Text) Or(fallback string) string {
	if strings.TrimSpace(string(t)) == "" {
		return fallback
	}
	return string(t)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	s, err := flatten(data)
	if err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

// StringList is a list-of-strings field that also accepts a single value.
// Blank elements are dropped.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if isNull(data) {
		*l = nil
		return nil
	}

	var out StringList
	if data[0] != '[' {
		s, err := flatten(data)
		if err != nil {
			return err
		}
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
		*l = out
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	for _, item := range items {
		s, err := flatten(item)
		if err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	*l = out
	return nil
}

// decodeObjects decodes a JSON array of objects into records of type T.
// Elements that are not objects are flattened to text and handed to
// fromText; blank elements are skipped. A non-array value is treated as a
// one-element array.
func decodeObjects[T any](data []byte, fromText func(string) T) ([]T, error) {
	data = bytes.TrimSpace(data)
	if isNull(data) {
		return nil, nil
	}

	var items []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
	} else {
		items = []json.RawMessage{data}
	}

	var out []T
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '{' {
			var v T
			if err := json.Unmarshal(item, &v); err != nil {
				return nil, err
			}
			out = append(out, v)
			continue
		}
		s, err := flatten(item)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, fromText(s))
	}
	return out, nil
}

func isNull(data []byte) bool {
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}

// flatten converts any JSON value into display text.
func flatten(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if isNull(data) {
		return "", nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return "", err
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			s, err := flatten(item)
			if err != nil {
				return "", err
			}
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n"), nil
	case '{':
		return flattenObject(data)
	default:
		// number or boolean literal
		if !json.Valid(data) {
			return "", fmt.Errorf("invalid JSON value %q", data)
		}
		return string(data), nil
	}
}

// flattenObject renders an object as "key: value; key: value", keeping the
// key order of the source document.
func flattenObject(data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return "", err
	}

	var parts []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return "", err
		}
		value, err := flatten(raw)
		if err != nil {
			return "", err
		}
		if value == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", key, value))
	}
	return strings.Join(parts, "; "), nil
}
