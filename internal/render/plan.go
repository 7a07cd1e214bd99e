// Package render turns structured QA records into office documents.
package render

import (
	"fmt"
	"strings"

	"github.com/harrison/qadocs/internal/docx"
	"github.com/harrison/qadocs/internal/models"
)

// Fixed content of the generated plan.
const (
	DocumentStatus = "DRAFT"
	TeamMembers    = "QA Team"
	Creator        = "qadocs"
)

// TestPlanTitle returns the document title for a project.
func TestPlanTitle(project string) string {
	return project + " - QA Test Plan"
}

// TestPlanDocument walks plan section by section in canonical order.
// Missing fields render as empty sections or placeholders; the walk never
// fails. project is used when the record does not name the project.
func TestPlanDocument(plan *models.TestPlan, project string) *docx.Document {
	if plan == nil {
		plan = &models.TestPlan{}
	}
	name := plan.Title(project)
	version := plan.VersionOrDefault()

	d := docx.New()
	d.Properties = docx.Properties{
		Title:   TestPlanTitle(name),
		Subject: "QA Test Plan",
		Creator: Creator,
	}

	d.AddTitle(TestPlanTitle(name))
	d.AddSubtitle("Version " + version)
	d.AddBlank()

	d.AddTable(docx.Table{
		Rows: [][]string{
			{"Project Name", name},
			{"Document Status", DocumentStatus},
			{"Version", version},
			{"Team Members", TeamMembers},
			{"Test Environment", strings.Join(plan.EnvironmentNames(), ", ")},
		},
		BoldFirstColumn: true,
	})
	d.AddBlank()

	narrative(d, "Description", plan.Description)
	narrative(d, "Introduction", plan.Introduction)
	narrative(d, "Goal", plan.Goal)

	bulletSection(d, "Test Strategy", 1, plan.TestStrategy)

	d.AddHeading("Test Scope", 1)
	bulletSection(d, "In-Scope", 2, plan.InScope)
	bulletSection(d, "Out-of-Scope", 2, plan.OutOfScope)

	d.AddHeading("Functional Requirements", 1)
	for i, req := range plan.FunctionalRequirements {
		d.AddHeading(fmt.Sprintf("%d. %s", i+1, req.Title.Or("Requirement")), 2)
		d.AddParagraph(string(req.Description))
		if len(req.AcceptanceCriteria) > 0 {
			d.AddBullet("Acceptance Criteria:", 1)
			for _, c := range req.AcceptanceCriteria {
				d.AddBullet(c, 2)
			}
		}
	}

	bulletSection(d, "Non-Functional Requirements", 1, plan.NonFunctionalRequirements)

	d.AddHeading("Impacted Areas", 1)
	bulletSection(d, "Red Zones (Critical)", 2, plan.ImpactZones.Red)
	bulletSection(d, "Yellow Zones (Medium Impact)", 2, plan.ImpactZones.Yellow)
	bulletSection(d, "Green Zones (Low Impact)", 2, plan.ImpactZones.Green)

	d.AddHeading("Entry & Exit Criteria", 1)
	bulletSection(d, "Entry Criteria", 2, plan.EntryCriteria)
	bulletSection(d, "Exit Criteria", 2, plan.ExitCriteria)

	bulletSection(d, "Test Data Requirements", 1, plan.TestDataRequirements)

	d.AddHeading("Test Environment", 1)
	envRows := make([][]string, 0, len(plan.TestEnvironment))
	for _, env := range plan.TestEnvironment {
		envRows = append(envRows, []string{string(env.Name), string(env.Purpose)})
	}
	d.AddTable(docx.Table{Header: []string{"Environment", "Purpose"}, Rows: envRows})
	d.AddBlank()

	d.AddHeading("Testing Activities", 1)
	actRows := make([][]string, 0, len(plan.TestingActivities))
	for _, a := range plan.TestingActivities {
		actRows = append(actRows, []string{string(a.Activity), string(a.Details), string(a.Duration)})
	}
	d.AddTable(docx.Table{Header: []string{"Activity", "Details", "Duration"}, Rows: actRows})
	d.AddBlank()

	d.AddHeading("Roles & Responsibilities", 1)
	roleRows := make([][]string, 0, len(plan.RolesResponsibilities))
	for _, r := range plan.RolesResponsibilities {
		roleRows = append(roleRows, []string{string(r.Role), string(r.Name), string(r.Responsibilities)})
	}
	d.AddTable(docx.Table{Header: []string{"Role", "Name", "Responsibilities"}, Rows: roleRows})
	d.AddBlank()

	bulletSection(d, "Risks", 1, plan.Risks)

	d.AddHeading("Assumptions & Dependencies", 1)
	bulletSection(d, "Assumptions", 2, plan.Assumptions)
	bulletSection(d, "Dependencies", 2, plan.Dependencies)

	bulletSection(d, "Defect Management Process", 1, plan.DefectManagement)
	bulletSection(d, "Test Metrics & KPIs", 1, plan.TestMetrics)
	bulletSection(d, "Deliverables", 1, plan.Deliverables)
	bulletSection(d, "Limitations & Exclusions", 1, plan.Limitations)

	d.AddHeading("Approval", 1)
	d.AddTable(docx.Table{
		Header: []string{"Role", "Name", "Signature / Date"},
		Rows:   approvalRows(),
	})

	return d
}

// approvalRows are the sign-off rows, left blank for signatures.
func approvalRows() [][]string {
	return [][]string{
		{"QA Lead", "TBD", ""},
		{"Product Manager", "TBD", ""},
	}
}

func narrative(d *docx.Document, heading string, text models.Text) {
	d.AddHeading(heading, 1)
	d.AddParagraph(text.Or(models.Placeholder))
}

func bulletSection(d *docx.Document, heading string, level int, items models.StringList) {
	d.AddHeading(heading, level)
	d.AddBullets(items)
}
