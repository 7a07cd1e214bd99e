package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/harrison/qadocs/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(html.WithXHTML()),
)

// TestPlanMarkdown renders plan as Markdown with the same sections, in the
// same order, as TestPlanDocument.
func TestPlanMarkdown(plan *models.TestPlan, project string) string {
	if plan == nil {
		plan = &models.TestPlan{}
	}
	name := plan.Title(project)
	version := plan.VersionOrDefault()

	var b mdBuilder
	b.line("# " + escapeInline(TestPlanTitle(name)))
	b.line("")
	b.line("*Version " + escapeInline(version) + "*")
	b.line("")
	b.table([]string{"Field", "Value"}, [][]string{
		{"**Project Name**", name},
		{"**Document Status**", DocumentStatus},
		{"**Version**", version},
		{"**Team Members**", TeamMembers},
		{"**Test Environment**", strings.Join(plan.EnvironmentNames(), ", ")},
	})

	b.narrative("Description", plan.Description)
	b.narrative("Introduction", plan.Introduction)
	b.narrative("Goal", plan.Goal)
	b.bullets("## Test Strategy", plan.TestStrategy)

	b.heading("## Test Scope")
	b.bullets("### In-Scope", plan.InScope)
	b.bullets("### Out-of-Scope", plan.OutOfScope)

	b.heading("## Functional Requirements")
	for i, req := range plan.FunctionalRequirements {
		b.heading(fmt.Sprintf("### %d. %s", i+1, escapeInline(req.Title.Or("Requirement"))))
		if desc := strings.TrimSpace(string(req.Description)); desc != "" {
			b.line(escapeHTML(desc))
			b.line("")
		}
		if len(req.AcceptanceCriteria) > 0 {
			b.line("- Acceptance Criteria:")
			for _, c := range req.AcceptanceCriteria {
				b.line("    - " + escapeInline(c))
			}
			b.line("")
		}
	}

	b.bullets("## Non-Functional Requirements", plan.NonFunctionalRequirements)

	b.heading("## Impacted Areas")
	b.bullets("### Red Zones (Critical)", plan.ImpactZones.Red)
	b.bullets("### Yellow Zones (Medium Impact)", plan.ImpactZones.Yellow)
	b.bullets("### Green Zones (Low Impact)", plan.ImpactZones.Green)

	b.heading("## Entry & Exit Criteria")
	b.bullets("### Entry Criteria", plan.EntryCriteria)
	b.bullets("### Exit Criteria", plan.ExitCriteria)

	b.bullets("## Test Data Requirements", plan.TestDataRequirements)

	b.heading("## Test Environment")
	var envRows [][]string
	for _, env := range plan.TestEnvironment {
		envRows = append(envRows, []string{string(env.Name), string(env.Purpose)})
	}
	b.table([]string{"Environment", "Purpose"}, envRows)

	b.heading("## Testing Activities")
	var actRows [][]string
	for _, a := range plan.TestingActivities {
		actRows = append(actRows, []string{string(a.Activity), string(a.Details), string(a.Duration)})
	}
	b.table([]string{"Activity", "Details", "Duration"}, actRows)

	b.heading("## Roles & Responsibilities")
	var roleRows [][]string
	for _, r := range plan.RolesResponsibilities {
		roleRows = append(roleRows, []string{string(r.Role), string(r.Name), string(r.Responsibilities)})
	}
	b.table([]string{"Role", "Name", "Responsibilities"}, roleRows)

	b.bullets("## Risks", plan.Risks)

	b.heading("## Assumptions & Dependencies")
	b.bullets("### Assumptions", plan.Assumptions)
	b.bullets("### Dependencies", plan.Dependencies)

	b.bullets("## Defect Management Process", plan.DefectManagement)
	b.bullets("## Test Metrics & KPIs", plan.TestMetrics)
	b.bullets("## Deliverables", plan.Deliverables)
	b.bullets("## Limitations & Exclusions", plan.Limitations)

	b.heading("## Approval")
	b.table([]string{"Role", "Name", "Signature / Date"}, approvalRows())

	return b.String()
}

// TestCasesTitle returns the page title for a project's test cases.
func TestCasesTitle(project string) string {
	return project + " - QA Test Cases"
}

// TestCasesMarkdown renders cases as a summary table followed by counts per
// priority and type. Defaults are applied by position.
func TestCasesMarkdown(cases []models.TestCase, project string) string {
	if project == "" {
		project = models.DefaultProjectName
	}
	cases = models.ApplyCaseDefaults(cases)
	stats := models.Summarize(cases)

	var b mdBuilder
	b.heading("# " + escapeInline(TestCasesTitle(project)))
	b.line(fmt.Sprintf("Total test cases: **%d**", stats.Total))
	b.line("")

	rows := make([][]string, 0, len(cases))
	for _, tc := range cases {
		rows = append(rows, []string{
			string(tc.ID), string(tc.Module), string(tc.Title),
			string(tc.Priority), string(tc.Type), string(tc.Platform),
		})
	}
	b.table([]string{"ID", "Module", "Title", "Priority", "Type", "Platform"}, rows)

	b.heading("## By Priority")
	for _, k := range models.SortedKeys(stats.Priorities) {
		b.line(fmt.Sprintf("- %s: %d", escapeInline(k), stats.Priorities[k]))
	}
	b.line("")
	b.heading("## By Type")
	for _, k := range models.SortedKeys(stats.Types) {
		b.line(fmt.Sprintf("- %s: %d", escapeInline(k), stats.Types[k]))
	}
	return b.String()
}

// MarkdownToXHTML converts Markdown (with GFM tables) to XHTML suitable for
// wiki storage formats.
func MarkdownToXHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return buf.String(), nil
}

type mdBuilder struct {
	strings.Builder
}

func (b *mdBuilder) line(s string) {
	b.WriteString(s)
	b.WriteByte('\n')
}

func (b *mdBuilder) heading(h string) {
	b.line(h)
	b.line("")
}

func (b *mdBuilder) narrative(heading string, text models.Text) {
	b.heading("## " + heading)
	b.line(escapeHTML(strings.TrimSpace(text.Or(models.Placeholder))))
	b.line("")
}

func (b *mdBuilder) bullets(heading string, items models.StringList) {
	b.heading(heading)
	if len(items) == 0 {
		return
	}
	for _, item := range items {
		b.line("- " + escapeInline(item))
	}
	b.line("")
}

func (b *mdBuilder) table(header []string, rows [][]string) {
	b.line("| " + strings.Join(header, " | ") + " |")
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	b.line("| " + strings.Join(sep, " | ") + " |")
	for _, row := range rows {
		cells := make([]string, len(header))
		for i := range cells {
			if i < len(row) {
				cells[i] = escapeCell(row[i])
			}
		}
		b.line("| " + strings.Join(cells, " | ") + " |")
	}
	b.line("")
}

// escapeInline keeps list items on one line.
func escapeInline(s string) string {
	return escapeHTML(strings.Join(strings.Fields(s), " "))
}

// escapeHTML stops goldmark from treating model text as raw HTML.
func escapeHTML(s string) string {
	return strings.ReplaceAll(s, "<", `\<`)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(escapeInline(s), "|", `\|`)
}
