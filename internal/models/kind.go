package models

import "fmt"

// Kind selects which artifact a pipeline run produces.
type Kind string

const (
	KindTestPlan  Kind = "test_plan"
	KindTestCases Kind = "test_cases"
)

// Kinds lists every artifact kind in generation order.
var Kinds = []Kind{KindTestPlan, KindTestCases}

// Label is the human-readable name used in console output.
func (k Kind) Label() string {
	switch k {
	case KindTestPlan:
		return "test plan"
	case KindTestCases:
		return "test cases"
	default:
		return string(k)
	}
}

// FileStem is the suffix appended to the project name in artifact
// filenames.
func (k Kind) FileStem() string {
	switch k {
	case KindTestPlan:
		return "Test_Plan"
	case KindTestCases:
		return "Test_Cases"
	default:
		return string(k)
	}
}

// Extension is the rendered artifact's file extension, including the dot.
func (k Kind) Extension() string {
	switch k {
	case KindTestPlan:
		return ".docx"
	case KindTestCases:
		return ".xlsx"
	default:
		return ""
	}
}

// ParseKind accepts the canonical kind names plus the short CLI forms
// "plan" and "cases".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "test_plan", "plan":
		return KindTestPlan, nil
	case "test_cases", "cases":
		return KindTestCases, nil
	default:
		return "", fmt.Errorf("unknown document kind %q", s)
	}
}
