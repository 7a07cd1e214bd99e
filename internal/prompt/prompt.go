// Package prompt builds the instructions sent to the completion service.
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/harrison/qadocs/internal/models"
)

// Target size of a generated test-case suite.
const (
	MinCases = 40
	MaxCases = 60
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("prompts").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

var templateNames = map[models.Kind]string{
	models.KindTestPlan:  "test_plan.tmpl",
	models.KindTestCases: "test_cases.tmpl",
}

type data struct {
	Project      string
	Requirements string
	Priorities   []string
	Types        []string
	Platforms    []string
	MinCases     int
	MaxCases     int
}

// Build returns the prompt for kind with the requirements text embedded
// verbatim. An empty project name is replaced with the default placeholder.
func Build(kind models.Kind, requirements, project string) (string, error) {
	name, ok := templateNames[kind]
	if !ok {
		return "", fmt.Errorf("no prompt template for %q", kind)
	}

	project = strings.TrimSpace(project)
	if project == "" {
		project = models.DefaultProjectName
	}

	var sb strings.Builder
	err := templates.ExecuteTemplate(&sb, name, data{
		Project:      project,
		Requirements: requirements,
		Priorities:   models.Priorities,
		Types:        models.CaseTypes,
		Platforms:    models.Platforms,
		MinCases:     MinCases,
		MaxCases:     MaxCases,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", kind.Label(), err)
	}
	return sb.String(), nil
}
