package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/qadocs/internal/artifact"
	"github.com/harrison/qadocs/internal/docx"
	"github.com/harrison/qadocs/internal/models"
	"github.com/harrison/qadocs/internal/render"
	"github.com/xuri/excelize/v2"
)

// Document is a generated artifact prepared for publishing.
type Document struct {
	Kind     models.Kind
	Title    string
	Body     string
	Filename string
	Data     []byte
}

// NewDocument builds the page for an in-memory artifact from its
// normalized record.
func NewDocument(kind models.Kind, project, filename string, data []byte, record json.RawMessage) (*Document, error) {
	title, md, err := pageFromRecord(kind, project, record)
	if err != nil {
		return nil, err
	}
	return newDocument(kind, title, md, filename, data)
}

// LoadDocument reads a generated .docx or .xlsx. The page body comes from
// the JSON sidecar next to it; without one, the content is read back from
// the document itself.
func LoadDocument(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var kind models.Kind
	switch ext {
	case models.KindTestPlan.Extension():
		kind = models.KindTestPlan
	case models.KindTestCases.Extension():
		kind = models.KindTestCases
	default:
		return nil, fmt.Errorf("unsupported document %s: expected .docx or .xlsx", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &models.InputNotFoundError{Path: path}
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	filename := filepath.Base(path)
	project := projectFromFilename(filename, kind)

	sidecarPath := strings.TrimSuffix(path, filepath.Ext(path)) + artifact.SidecarExt
	if record, err := os.ReadFile(sidecarPath); err == nil {
		return NewDocument(kind, project, filename, data, record)
	}

	var title, md string
	if kind == models.KindTestPlan {
		title, md, err = pageFromDocx(data, project)
	} else {
		title, md, err = pageFromWorkbook(data, project)
	}
	if err != nil {
		return nil, err
	}
	return newDocument(kind, title, md, filename, data)
}

// UploadResult describes a published document.
type UploadResult struct {
	Page       *Page
	Attachment string
}

// Upload verifies the space, creates the page and attaches the original
// file.
func (c *Client) Upload(ctx context.Context, doc *Document) (*UploadResult, error) {
	if err := c.CheckSpace(ctx); err != nil {
		return nil, err
	}
	page, err := c.CreatePage(ctx, doc.Title, doc.Body)
	if err != nil {
		return nil, err
	}
	if err := c.Attach(ctx, page.ID, doc.Filename, doc.Data); err != nil {
		return nil, fmt.Errorf("page %s created but attachment failed: %w", page.ID, err)
	}
	if c.logger != nil {
		c.logger.LogInfo(fmt.Sprintf("Uploaded %s to %s", doc.Filename, page.Title))
	}
	return &UploadResult{Page: page, Attachment: doc.Filename}, nil
}

func newDocument(kind models.Kind, title, md, filename string, data []byte) (*Document, error) {
	body, err := render.MarkdownToXHTML(md)
	if err != nil {
		return nil, err
	}
	return &Document{Kind: kind, Title: title, Body: body, Filename: filename, Data: data}, nil
}

func pageFromRecord(kind models.Kind, project string, record json.RawMessage) (string, string, error) {
	switch kind {
	case models.KindTestPlan:
		var plan models.TestPlan
		if err := json.Unmarshal(record, &plan); err != nil {
			return "", "", fmt.Errorf("failed to parse test plan record: %w", err)
		}
		return render.TestPlanTitle(plan.Title(project)), render.TestPlanMarkdown(&plan, project), nil
	case models.KindTestCases:
		var cases []models.TestCase
		if err := json.Unmarshal(record, &cases); err != nil {
			return "", "", fmt.Errorf("failed to parse test case record: %w", err)
		}
		return render.TestCasesTitle(project), render.TestCasesMarkdown(cases, project), nil
	default:
		return "", "", fmt.Errorf("unsupported document kind %q", kind)
	}
}

// projectFromFilename recovers the project name from an artifact filename
// such as "My_App_Test_Plan.docx".
func projectFromFilename(filename string, kind models.Kind) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	stem = strings.TrimSuffix(stem, "_"+kind.FileStem())
	if stem == "" {
		return models.DefaultProjectName
	}
	return strings.ReplaceAll(stem, "_", " ")
}

func pageFromDocx(data []byte, project string) (string, string, error) {
	paras, err := docx.ReadParagraphs(data)
	if err != nil {
		return "", "", err
	}

	title := render.TestPlanTitle(project)
	var b strings.Builder
	for _, p := range paras {
		text := strings.TrimSpace(p.Text)
		if text == "" || p.InTable {
			continue
		}
		switch p.Style {
		case "Title":
			title = text
			b.WriteString("# " + text + "\n\n")
		case "Subtitle":
			b.WriteString("*" + text + "*\n\n")
		case "Heading1":
			b.WriteString("## " + text + "\n\n")
		case "Heading2":
			b.WriteString("### " + text + "\n\n")
		case "ListBullet":
			b.WriteString("- " + text + "\n")
		case "ListBullet2":
			b.WriteString("    - " + text + "\n")
		default:
			b.WriteString(text + "\n\n")
		}
	}
	return title, strings.ReplaceAll(b.String(), "<", `\<`), nil
}

func pageFromWorkbook(data []byte, project string) (string, string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(render.SheetName)
	if err != nil {
		return "", "", fmt.Errorf("failed to read sheet %q: %w", render.SheetName, err)
	}

	var cases []models.TestCase
	for i, row := range rows {
		if i == 0 {
			continue
		}
		cell := func(n int) models.Text {
			if n < len(row) {
				return models.Text(row[n])
			}
			return ""
		}
		cases = append(cases, models.TestCase{
			ID:            cell(0),
			Module:        cell(1),
			Title:         cell(2),
			Description:   cell(3),
			Preconditions: cell(4),
			Steps:         cell(5),
			Expected:      cell(6),
			Priority:      cell(7),
			Type:          cell(8),
			Platform:      cell(9),
		})
	}
	return render.TestCasesTitle(project), render.TestCasesMarkdown(cases, project), nil
}
