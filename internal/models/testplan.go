package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	// DefaultProjectName is used when neither the record nor the caller
	// names the project.
	DefaultProjectName = "Project"

	// DefaultVersion is the plan version shown when the record has none.
	DefaultVersion = "1.0"

	// Placeholder is rendered for empty narrative fields.
	Placeholder = "N/A"
)

// TestPlan is the structured test-plan record returned by the completion
// service. Every field is optional.
type TestPlan struct {
	ProjectName  Text `json:"project_name,omitempty"`
	Version      Text `json:"version,omitempty"`
	Description  Text `json:"description,omitempty"`
	Introduction Text `json:"introduction,omitempty"`
	Goal         Text `json:"goal,omitempty"`

	TestStrategy              StringList             `json:"test_strategy,omitempty"`
	InScope                   StringList             `json:"in_scope,omitempty"`
	OutOfScope                StringList             `json:"out_of_scope,omitempty"`
	FunctionalRequirements    FunctionalRequirements `json:"functional_requirements,omitempty"`
	NonFunctionalRequirements StringList             `json:"non_functional_requirements,omitempty"`
	ImpactZones               ImpactZones            `json:"impact_zones"`
	EntryCriteria             StringList             `json:"entry_criteria,omitempty"`
	ExitCriteria              StringList             `json:"exit_criteria,omitempty"`
	TestDataRequirements      StringList             `json:"test_data_requirements,omitempty"`
	TestEnvironment           TestEnvironments       `json:"test_environment,omitempty"`
	TestingActivities         TestingActivities      `json:"testing_activities,omitempty"`
	RolesResponsibilities     Roles                  `json:"roles_responsibilities,omitempty"`
	Risks                     StringList             `json:"risks,omitempty"`
	Assumptions               StringList             `json:"assumptions,omitempty"`
	Dependencies              StringList             `json:"dependencies,omitempty"`
	DefectManagement          StringList             `json:"defect_management,omitempty"`
	TestMetrics               StringList             `json:"test_metrics,omitempty"`
	Deliverables              StringList             `json:"deliverables,omitempty"`
	Limitations               StringList             `json:"limitations,omitempty"`
}

// FunctionalRequirement is one requirement section of the plan.
type FunctionalRequirement struct {
	ID                 Text       `json:"id,omitempty"`
	Title              Text       `json:"title,omitempty"`
	Description        Text       `json:"description,omitempty"`
	AcceptanceCriteria StringList `json:"acceptance_criteria,omitempty"`
}

// TestEnvironment is a row of the test environment table.
type TestEnvironment struct {
	Name    Text `json:"name,omitempty"`
	Purpose Text `json:"purpose,omitempty"`
}

// TestingActivity is a row of the testing activities table.
type TestingActivity struct {
	Activity Text `json:"activity,omitempty"`
	Details  Text `json:"details,omitempty"`
	Duration Text `json:"duration,omitempty"`
}

// Role is a row of the roles and responsibilities table.
type Role struct {
	Role             Text `json:"role,omitempty"`
	Name             Text `json:"name,omitempty"`
	Responsibilities Text `json:"responsibilities,omitempty"`
}

// ImpactZones partitions functional areas by required test depth.
type ImpactZones struct {
	Red    StringList `json:"red,omitempty"`
	Yellow StringList `json:"yellow,omitempty"`
	Green  StringList `json:"green,omitempty"`
}

// UnmarshalJSON accepts only an object; any other value leaves the zones
// empty.
func (z *ImpactZones) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*z = ImpactZones{}
		return nil
	}
	type plain ImpactZones
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*z = ImpactZones(v)
	return nil
}

// IsZero reports whether no zone has entries.
func (z ImpactZones) IsZero() bool {
	return len(z.Red) == 0 && len(z.Yellow) == 0 && len(z.Green) == 0
}

// FunctionalRequirements is a lenient list of FunctionalRequirement.
type FunctionalRequirements []FunctionalRequirement

func (l *FunctionalRequirements) UnmarshalJSON(data []byte) error {
	v, err := decodeObjects(data, func(s string) FunctionalRequirement {
		return FunctionalRequirement{Title: Text(s)}
	})
	*l = v
	return err
}

// TestEnvironments is a lenient list of TestEnvironment.
type TestEnvironments []TestEnvironment

func (l *TestEnvironments) UnmarshalJSON(data []byte) error {
	v, err := decodeObjects(data, func(s string) TestEnvironment {
		return TestEnvironment{Name: Text(s)}
	})
	*l = v
	return err
}

// TestingActivities is a lenient list of TestingActivity.
type TestingActivities []TestingActivity

func (l *TestingActivities) UnmarshalJSON(data []byte) error {
	v, err := decodeObjects(data, func(s string) TestingActivity {
		return TestingActivity{Activity: Text(s)}
	})
	*l = v
	return err
}

// Roles is a lenient list of Role.
type Roles []Role

func (l *Roles) UnmarshalJSON(data []byte) error {
	v, err := decodeObjects(data, func(s string) Role {
		return Role{Role: Text(s)}
	})
	*l = v
	return err
}

// Title returns the project name shown in the document. The record's own
// name wins over fallback, which is usually the name given on the command
// line.
func (p *TestPlan) Title(fallback string) string {
	if name := strings.TrimSpace(string(p.ProjectName)); name != "" {
		return name
	}
	if fallback = strings.TrimSpace(fallback); fallback != "" {
		return fallback
	}
	return DefaultProjectName
}

// VersionOrDefault returns the plan version, defaulting to 1.0.
func (p *TestPlan) VersionOrDefault() string {
	return p.Version.Or(DefaultVersion)
}

// EnvironmentNames returns the non-empty environment names in order.
func (p *TestPlan) EnvironmentNames() []string {
	var names []string
	for _, env := range p.TestEnvironment {
		if name := strings.TrimSpace(string(env.Name)); name != "" {
			names = append(names, name)
		}
	}
	return names
}
