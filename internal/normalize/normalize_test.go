package normalize

import (
	"encoding/json"
	"testing"

	"github.com/harrison/qadocs/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "no fence", raw: `{"a": 1}`, want: `{"a": 1}`},
		{name: "no fence with whitespace", raw: "\n  [1, 2]  \n", want: `[1, 2]`},
		{name: "fence with language tag", raw: "```json\n[{\"id\": \"TC_001\"}]\n```", want: `[{"id": "TC_001"}]`},
		{name: "fence with upper case tag", raw: "```JSON\n{}\n```", want: `{}`},
		{name: "fence without tag", raw: "```\n{\"goal\": \"x\"}\n```", want: `{"goal": "x"}`},
		{name: "fence only at start", raw: "```json\n{\"goal\": \"x\"}", want: `{"goal": "x"}`},
		{name: "fence only at end", raw: "{\"goal\": \"x\"}\n```", want: `{"goal": "x"}`},
		{name: "single line fence", raw: "```[1]```", want: `[1]`},
		{name: "single line fence with tag", raw: "```json{\"a\":1}```", want: `{"a":1}`},
		{name: "surrounding whitespace", raw: "  \n```json\n  []  \n```\n  ", want: `[]`},
		{name: "fence characters inside value", raw: "```json\n{\"note\": \"use ``` blocks\"}\n```", want: "{\"note\": \"use ``` blocks\"}"},
		{name: "empty", raw: "", want: ""},
		{name: "bare fence", raw: "```", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFence(tt.raw))
		})
	}
}

func TestStripFence_Idempotent(t *testing.T) {
	inputs := []string{
		"```json\n[{\"a\": 1}]\n```",
		`{"a": 1}`,
		"```\n[]\n```",
	}
	for _, in := range inputs {
		once := StripFence(in)
		assert.Equal(t, once, StripFence(once))
	}
}

const threeCases = `[
  {"id": "TC_001", "module": "Auth", "title": "Valid login", "priority": "P1", "type": "Functional", "platform": "Both"},
  {"module": "Auth", "title": "Invalid password"},
  {"module": "Performance", "title": "Login under 2 seconds", "type": "performance"}
]`

func TestCases_FencedEqualsBare(t *testing.T) {
	bare, bareRaw, err := Cases(threeCases)
	require.NoError(t, err)

	fenced, fencedRaw, err := Cases("```json\n" + threeCases + "\n```")
	require.NoError(t, err)

	assert.Equal(t, bare, fenced)
	assert.JSONEq(t, string(bareRaw), string(fencedRaw))
	assert.Len(t, fenced, 3)
}

func TestCases_NoDefaultsApplied(t *testing.T) {
	cases, _, err := Cases(threeCases)
	require.NoError(t, err)
	assert.Empty(t, cases[1].ID)
	assert.Empty(t, cases[1].Priority)
}

func TestCases_Wrapped(t *testing.T) {
	cases, raw, err := Cases(`{"test_cases": [{"title": "One"}, {"title": "Two"}]}`)
	require.NoError(t, err)
	assert.Len(t, cases, 2)

	var arr []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &arr))
	assert.Len(t, arr, 2)
}

func TestCases_Empty(t *testing.T) {
	cases, raw, err := Cases("[]")
	require.NoError(t, err)
	assert.Empty(t, cases)
	assert.Equal(t, "[]", string(raw))
}

func TestCases_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "not json"},
		{name: "empty", raw: ""},
		{name: "truncated", raw: "```json\n[{\"id\": \"TC_001\"\n```"},
		{name: "object without test_cases", raw: `{"cases": []}`},
		{name: "scalar", raw: `"just text"`},
		{name: "array of strings", raw: `["a", "b"]`},
		{name: "prose before json", raw: "Here are your test cases:\n[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cases, raw, err := Cases(tt.raw)
			require.Error(t, err)
			assert.Nil(t, cases)
			assert.Nil(t, raw)

			var malformed *models.MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, models.StageNormalize, models.StageOf(err))
		})
	}
}

func TestPlan(t *testing.T) {
	raw := "```json\n{\"project_name\": \"Acme\", \"version\": \"1.0\", \"risks\": []}\n```"
	plan, sidecar, err := Plan(raw)
	require.NoError(t, err)

	assert.Equal(t, "Acme", plan.Title(""))
	assert.Nil(t, plan.Risks)
	assert.JSONEq(t, `{"project_name": "Acme", "version": "1.0", "risks": []}`, string(sidecar))
}

func TestPlan_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "not json"},
		{name: "array", raw: `[{"project_name": "Acme"}]`},
		{name: "unterminated", raw: `{"project_name": "Acme"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, _, err := Plan(tt.raw)
			assert.Nil(t, plan)

			var malformed *models.MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, StripFence(tt.raw), malformed.Excerpt)
		})
	}
}
