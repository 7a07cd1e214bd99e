// Package normalize turns raw completion text into structured records.
//
// Models are asked for bare JSON but often wrap it in a markdown code
// fence. StripFence removes that wrapper; Plan and Cases then parse the
// remainder and return both the typed record and the exact JSON that was
// parsed, which becomes the artifact sidecar.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/qadocs/internal/models"
)

const fence = "```"

// StripFence removes an optional surrounding code fence. An opening fence
// and any language tag on its line are dropped, as is a closing fence.
// Either may appear without the other. Text without a fence is only
// trimmed.
func StripFence(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, fence) {
		text = strings.TrimPrefix(text, fence)
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			if isLanguageTag(text[:nl]) {
				text = text[nl+1:]
			}
		} else if isLanguageTag(text) {
			text = ""
		} else if len(text) >= 4 && strings.EqualFold(text[:4], "json") {
			text = text[4:]
		}
	}

	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, fence)
	return strings.TrimSpace(text)
}

// isLanguageTag reports whether s, the remainder of an opening fence line,
// is empty or a bare info string such as "json".
func isLanguageTag(s string) bool {
	s = strings.TrimSpace(s)
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '+' || r == '.') {
			return false
		}
	}
	return true
}

// Plan parses a test-plan response. The top-level value must be an object.
func Plan(raw string) (*models.TestPlan, json.RawMessage, error) {
	text := StripFence(raw)
	data := []byte(text)

	if err := checkJSON(data); err != nil {
		return nil, nil, models.NewMalformedResponseError(text, err)
	}
	if data[0] != '{' {
		return nil, nil, models.NewMalformedResponseError(text, errors.New("expected a JSON object"))
	}

	var plan models.TestPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, nil, models.NewMalformedResponseError(text, err)
	}
	return &plan, json.RawMessage(data), nil
}

// Cases parses a test-case response. The top-level value must be an array
// of objects, or an object whose "test_cases" member is such an array.
// The returned cases have no defaults applied.
func Cases(raw string) ([]models.TestCase, json.RawMessage, error) {
	text := StripFence(raw)
	data := []byte(text)

	if err := checkJSON(data); err != nil {
		return nil, nil, models.NewMalformedResponseError(text, err)
	}

	if data[0] == '{' {
		var wrapper struct {
			TestCases json.RawMessage `json:"test_cases"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, nil, models.NewMalformedResponseError(text, err)
		}
		inner := bytes.TrimSpace(wrapper.TestCases)
		if len(inner) == 0 || inner[0] != '[' {
			return nil, nil, models.NewMalformedResponseError(text, errors.New(`expected a JSON array or an object with a "test_cases" array`))
		}
		data = inner
	}
	if data[0] != '[' {
		return nil, nil, models.NewMalformedResponseError(text, errors.New("expected a JSON array"))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, nil, models.NewMalformedResponseError(text, err)
	}

	cases := make([]models.TestCase, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return nil, nil, models.NewMalformedResponseError(text, fmt.Errorf("test case %d is not a JSON object", i+1))
		}
		var tc models.TestCase
		if err := json.Unmarshal(item, &tc); err != nil {
			return nil, nil, models.NewMalformedResponseError(text, fmt.Errorf("test case %d: %w", i+1, err))
		}
		cases = append(cases, tc)
	}
	return cases, json.RawMessage(data), nil
}

func checkJSON(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty response")
	}
	var v interface{}
	return json.Unmarshal(data, &v)
}
