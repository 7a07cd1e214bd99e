package render

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/harrison/qadocs/internal/docx"
	"github.com/harrison/qadocs/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodePlan(t *testing.T, raw string) *models.TestPlan {
	t.Helper()
	var plan models.TestPlan
	require.NoError(t, json.Unmarshal([]byte(raw), &plan))
	return &plan
}

func headings(blocks []docx.Block, level int) []string {
	var out []string
	for _, b := range blocks {
		if b.Kind == docx.KindHeading && b.Level == level {
			out = append(out, b.Text)
		}
	}
	return out
}

func TestTestPlanDocument_CanonicalOrder(t *testing.T) {
	doc := TestPlanDocument(&models.TestPlan{}, "Acme")
	blocks := doc.Blocks()

	require.GreaterOrEqual(t, len(blocks), 2)
	assert.Equal(t, docx.Block{Kind: docx.KindTitle, Text: "Acme - QA Test Plan"}, blocks[0])
	assert.Equal(t, docx.Block{Kind: docx.KindSubtitle, Text: "Version 1.0"}, blocks[1])

	assert.Equal(t, []string{
		"Description",
		"Introduction",
		"Goal",
		"Test Strategy",
		"Test Scope",
		"Functional Requirements",
		"Non-Functional Requirements",
		"Impacted Areas",
		"Entry & Exit Criteria",
		"Test Data Requirements",
		"Test Environment",
		"Testing Activities",
		"Roles & Responsibilities",
		"Risks",
		"Assumptions & Dependencies",
		"Defect Management Process",
		"Test Metrics & KPIs",
		"Deliverables",
		"Limitations & Exclusions",
		"Approval",
	}, headings(blocks, 1))

	assert.Equal(t, []string{
		"In-Scope",
		"Out-of-Scope",
		"Red Zones (Critical)",
		"Yellow Zones (Medium Impact)",
		"Green Zones (Low Impact)",
		"Entry Criteria",
		"Exit Criteria",
		"Assumptions",
		"Dependencies",
	}, headings(blocks, 2))
}

func TestTestPlanDocument_EmptyRisksHasHeadingAndNoBullets(t *testing.T) {
	plan := decodePlan(t, `{"project_name": "Acme", "risks": [], "deliverables": ["Report"]}`)
	doc := TestPlanDocument(plan, "")

	risks, ok := doc.Section("Risks")
	require.True(t, ok, "Risks section must be present")
	assert.Empty(t, risks)

	deliverables, ok := doc.Section("Deliverables")
	require.True(t, ok)
	require.Len(t, deliverables, 1)
	assert.Equal(t, docx.Block{Kind: docx.KindBullet, Text: "Report", Level: 1}, deliverables[0])
}

func TestTestPlanDocument_Placeholders(t *testing.T) {
	doc := TestPlanDocument(nil, "")
	blocks := doc.Blocks()
	assert.Equal(t, "Project - QA Test Plan", blocks[0].Text)

	goal, ok := doc.Section("Goal")
	require.True(t, ok)
	require.Len(t, goal, 1)
	assert.Equal(t, models.Placeholder, goal[0].Text)
}

func TestTestPlanDocument_InfoTable(t *testing.T) {
	plan := decodePlan(t, `{
		"project_name": "Acme",
		"version": "2.0",
		"test_environment": [{"name": "Dev", "purpose": "Development"}, {"name": "UAT", "purpose": "Acceptance"}]
	}`)
	blocks := TestPlanDocument(plan, "Ignored").Blocks()

	var info *docx.Table
	for _, b := range blocks {
		if b.Kind == docx.KindTable {
			info = b.Table
			break
		}
	}
	require.NotNil(t, info)
	assert.Nil(t, info.Header)
	assert.True(t, info.BoldFirstColumn)
	assert.Equal(t, [][]string{
		{"Project Name", "Acme"},
		{"Document Status", "DRAFT"},
		{"Version", "2.0"},
		{"Team Members", "QA Team"},
		{"Test Environment", "Dev, UAT"},
	}, info.Rows)
}

func TestTestPlanDocument_FunctionalRequirements(t *testing.T) {
	plan := decodePlan(t, `{"functional_requirements": [
		{"id": "FR-1", "title": "Email login", "description": "Users log in", "acceptance_criteria": ["Valid", "Invalid"]},
		{"description": "No title, no criteria"}
	]}`)
	section, ok := TestPlanDocument(plan, "Acme").Section("Functional Requirements")
	require.True(t, ok)

	assert.Equal(t, []docx.Block{
		{Kind: docx.KindHeading, Text: "1. Email login", Level: 2},
		{Kind: docx.KindParagraph, Text: "Users log in"},
		{Kind: docx.KindBullet, Text: "Acceptance Criteria:", Level: 1},
		{Kind: docx.KindBullet, Text: "Valid", Level: 2},
		{Kind: docx.KindBullet, Text: "Invalid", Level: 2},
		{Kind: docx.KindHeading, Text: "2. Requirement", Level: 2},
		{Kind: docx.KindParagraph, Text: "No title, no criteria"},
	}, section)
}

func TestTestPlanDocument_Tables(t *testing.T) {
	plan := decodePlan(t, `{
		"testing_activities": [{"activity": "Smoke", "details": "Core flows", "duration": "1 day"}],
		"roles_responsibilities": ["QA Engineer"]
	}`)
	doc := TestPlanDocument(plan, "Acme")

	activities, ok := doc.Section("Testing Activities")
	require.True(t, ok)
	require.Equal(t, docx.KindTable, activities[0].Kind)
	assert.Equal(t, []string{"Activity", "Details", "Duration"}, activities[0].Table.Header)
	assert.Equal(t, [][]string{{"Smoke", "Core flows", "1 day"}}, activities[0].Table.Rows)

	roles, _ := doc.Section("Roles & Responsibilities")
	assert.Equal(t, [][]string{{"QA Engineer", "", ""}}, roles[0].Table.Rows)

	env, _ := doc.Section("Test Environment")
	assert.Equal(t, []string{"Environment", "Purpose"}, env[0].Table.Header)
	assert.Empty(t, env[0].Table.Rows)

	approval, _ := doc.Section("Approval")
	require.Len(t, approval, 1)
	assert.Equal(t, [][]string{{"QA Lead", "TBD", ""}, {"Product Manager", "TBD", ""}}, approval[0].Table.Rows)
}

func TestTestPlanDocument_WritesReadableDocx(t *testing.T) {
	doc := TestPlanDocument(decodePlan(t, `{"project_name": "Überprüfung"}`), "")
	data, err := doc.Bytes()
	require.NoError(t, err)

	paras, err := docx.ReadParagraphs(data)
	require.NoError(t, err)
	assert.Equal(t, "Überprüfung - QA Test Plan", paras[0].Text)
	assert.Equal(t, "Title", paras[0].Style)
}

func sampleCases(n int) []models.TestCase {
	cases := make([]models.TestCase, n)
	for i := range cases {
		cases[i] = models.TestCase{
			Module: "Auth",
			Title:  models.Text(fmt.Sprintf("Case %d", i+1)),
			Steps:  "1. Open\n2. Tap",
		}
	}
	return cases
}

func TestTestCaseWorkbook_Shape(t *testing.T) {
	for _, n := range []int{0, 1, 3, 45} {
		t.Run(fmt.Sprintf("%d cases", n), func(t *testing.T) {
			f, err := TestCaseWorkbook(sampleCases(n))
			require.NoError(t, err)
			defer f.Close()

			assert.Equal(t, []string{SheetName}, f.GetSheetList())

			rows, err := f.GetRows(SheetName)
			require.NoError(t, err)
			require.Len(t, rows, n+1)
			for _, row := range rows {
				assert.Len(t, row, len(Columns))
			}
			assert.Equal(t, "Test Case ID", rows[0][0])
			assert.Equal(t, "Platform", rows[0][9])
		})
	}
}

func TestTestCaseWorkbook_Defaults(t *testing.T) {
	cases := []models.TestCase{
		{ID: "LOGIN_1", Priority: "p1", Type: "security", Platform: "ios"},
		{Title: "Missing everything"},
	}
	f, err := TestCaseWorkbook(cases)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "LOGIN_1", rows[1][0])
	assert.Equal(t, []string{"P1", "Security", "iOS"}, rows[1][7:10])
	assert.Equal(t, "TC_002", rows[2][0])
	assert.Equal(t, []string{"P2", "Functional", "Both"}, rows[2][7:10])
	assert.Equal(t, "", rows[2][1], "module is not defaulted in the sheet")
}

func TestTestCaseWorkbook_Styles(t *testing.T) {
	f, err := TestCaseWorkbook(sampleCases(2))
	require.NoError(t, err)
	defer f.Close()

	headerID, err := f.GetCellStyle(SheetName, "A1")
	require.NoError(t, err)
	dataID, err := f.GetCellStyle(SheetName, "A2")
	require.NoError(t, err)
	assert.NotEqual(t, headerID, dataID)

	lastHeader, err := f.GetCellStyle(SheetName, "J1")
	require.NoError(t, err)
	assert.Equal(t, headerID, lastHeader)

	header, err := f.GetStyle(headerID)
	require.NoError(t, err)
	require.NotNil(t, header.Font)
	assert.True(t, header.Font.Bold)
	assert.Equal(t, "center", header.Alignment.Horizontal)
	assert.True(t, header.Alignment.WrapText)

	data, err := f.GetStyle(dataID)
	require.NoError(t, err)
	assert.Equal(t, "top", data.Alignment.Vertical)
	assert.True(t, data.Alignment.WrapText)

	panes, err := f.GetPanes(SheetName)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)
	assert.Equal(t, "A2", panes.TopLeftCell)

	width, err := f.GetColWidth(SheetName, "F")
	require.NoError(t, err)
	assert.Equal(t, 50.0, width)
}

func TestTestPlanMarkdown(t *testing.T) {
	plan := decodePlan(t, `{
		"project_name": "Acme",
		"goal": "Ship | safely",
		"risks": [],
		"in_scope": ["Login\nand logout"],
		"test_environment": [{"name": "Dev", "purpose": "a|b"}]
	}`)
	md := TestPlanMarkdown(plan, "")

	assert.True(t, strings.HasPrefix(md, "# Acme - QA Test Plan\n"))
	assert.Contains(t, md, "*Version 1.0*")
	assert.Contains(t, md, "## Risks\n\n## Assumptions & Dependencies")
	assert.Contains(t, md, "- Login and logout\n")
	assert.Contains(t, md, `| Dev | a\|b |`)
	assert.Contains(t, md, "## Description\n\nN/A\n")

	riskIdx := strings.Index(md, "## Risks")
	approvalIdx := strings.Index(md, "## Approval")
	assert.Less(t, riskIdx, approvalIdx)
}

func TestMarkdownToXHTML(t *testing.T) {
	md := TestPlanMarkdown(decodePlan(t, `{"project_name": "A & B", "deliverables": ["Report <final>"]}`), "")
	html, err := MarkdownToXHTML(md)
	require.NoError(t, err)

	assert.Contains(t, html, "<h1>A &amp; B - QA Test Plan</h1>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<li>Report &lt;final&gt;</li>")
	assert.NotContains(t, html, "<br>")
}

func TestTestCasesMarkdown(t *testing.T) {
	cases := []models.TestCase{
		{ID: "TC_001", Module: "Auth", Title: "Login | logout", Priority: "P1"},
		{Title: "Defaults"},
	}
	md := TestCasesMarkdown(cases, "Acme")

	assert.True(t, strings.HasPrefix(md, "# Acme - QA Test Cases\n"))
	assert.Contains(t, md, "Total test cases: **2**")
	assert.Contains(t, md, `| TC_001 | Auth | Login \| logout | P1 | Functional | Both |`)
	assert.Contains(t, md, "| TC_002 |  | Defaults | P2 | Functional | Both |")
	assert.Contains(t, md, "- P1: 1\n- P2: 1\n")
	assert.Contains(t, md, "- Functional: 2")

	html, err := MarkdownToXHTML(md)
	require.NoError(t, err)
	assert.Contains(t, html, "<td>TC_002</td>")
}
