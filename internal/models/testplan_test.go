package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlanJSON = `{
  "project_name": "Acme",
  "version": "2.1",
  "description": "Login service",
  "introduction": ["Part one.", "Part two."],
  "goal": "Ship it",
  "test_strategy": ["Risk based", "Automation first"],
  "in_scope": "Login",
  "out_of_scope": [],
  "functional_requirements": [
    {"id": "FR-1", "title": "Email login", "description": "Users log in", "acceptance_criteria": ["Valid creds work", "Invalid creds fail"]}
  ],
  "non_functional_requirements": ["Login under 2 seconds"],
  "impact_zones": {"red": ["Auth"], "yellow": ["Profile"], "green": []},
  "entry_criteria": ["Build deployed"],
  "exit_criteria": ["No P1 open"],
  "test_environment": [{"name": "Staging", "purpose": "Integration"}, {"name": "Prod-like", "purpose": "Perf"}],
  "testing_activities": [{"activity": "Smoke", "details": "Basic flows", "duration": "1 day"}],
  "roles_responsibilities": [{"role": "QA Lead", "name": "TBD", "responsibilities": "Sign-off"}],
  "risks": ["Third-party outage"],
  "deliverables": ["Test report"],
  "extra_field": {"ignored": true}
}`

func TestTestPlan_Decode(t *testing.T) {
	var plan TestPlan
	require.NoError(t, json.Unmarshal([]byte(samplePlanJSON), &plan))

	assert.Equal(t, "Acme", plan.Title("Other"))
	assert.Equal(t, "2.1", plan.VersionOrDefault())
	assert.Equal(t, Text("Part one.\nPart two."), plan.Introduction)
	assert.Equal(t, StringList{"Login"}, plan.InScope)
	assert.Nil(t, plan.OutOfScope)

	require.Len(t, plan.FunctionalRequirements, 1)
	fr := plan.FunctionalRequirements[0]
	assert.Equal(t, Text("Email login"), fr.Title)
	assert.Equal(t, StringList{"Valid creds work", "Invalid creds fail"}, fr.AcceptanceCriteria)

	assert.Equal(t, StringList{"Auth"}, plan.ImpactZones.Red)
	assert.Nil(t, plan.ImpactZones.Green)
	assert.Equal(t, []string{"Staging", "Prod-like"}, plan.EnvironmentNames())
	assert.Nil(t, plan.Assumptions)
}

func TestTestPlan_RoundTrip(t *testing.T) {
	var original TestPlan
	require.NoError(t, json.Unmarshal([]byte(samplePlanJSON), &original))

	data, err := json.MarshalIndent(&original, "", "  ")
	require.NoError(t, err)

	var decoded TestPlan
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestTestPlan_Defaults(t *testing.T) {
	var plan TestPlan
	require.NoError(t, json.Unmarshal([]byte(`{}`), &plan))

	assert.Equal(t, "Mobile App", plan.Title("Mobile App"))
	assert.Equal(t, DefaultProjectName, plan.Title(""))
	assert.Equal(t, DefaultProjectName, plan.Title("   "))
	assert.Equal(t, DefaultVersion, plan.VersionOrDefault())
	assert.Equal(t, Placeholder, plan.Goal.Or(Placeholder))
	assert.True(t, plan.ImpactZones.IsZero())
	assert.Empty(t, plan.EnvironmentNames())
}

func TestImpactZones_NonObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "array", input: `{"impact_zones": ["Auth"]}`},
		{name: "string", input: `{"impact_zones": "none"}`},
		{name: "null", input: `{"impact_zones": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var plan TestPlan
			require.NoError(t, json.Unmarshal([]byte(tt.input), &plan))
			assert.True(t, plan.ImpactZones.IsZero())
		})
	}
}

func TestTestPlan_SubRecordStrings(t *testing.T) {
	input := `{
		"test_environment": ["QA"],
		"testing_activities": "Regression",
		"roles_responsibilities": ["Developer"]
	}`
	var plan TestPlan
	require.NoError(t, json.Unmarshal([]byte(input), &plan))

	require.Len(t, plan.TestEnvironment, 1)
	assert.Equal(t, Text("QA"), plan.TestEnvironment[0].Name)
	require.Len(t, plan.TestingActivities, 1)
	assert.Equal(t, Text("Regression"), plan.TestingActivities[0].Activity)
	require.Len(t, plan.RolesResponsibilities, 1)
	assert.Equal(t, Text("Developer"), plan.RolesResponsibilities[0].Role)
}
