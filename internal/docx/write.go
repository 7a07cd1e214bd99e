package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/gomutex/godocx"
	gdocx "github.com/gomutex/godocx/docx"
	"github.com/gomutex/godocx/wml/stypes"
)

// Style IDs from the default template.
const (
	styleTitle       = "Title"
	styleSubtitle    = "Subtitle"
	styleListBullet  = "ListBullet"
	styleListBullet2 = "ListBullet2"
	styleTable       = "TableGrid"
)

const headerFill = "D9E2F3"

const corePropsPart = "docProps/core.xml"

// WriteTo writes the .docx container to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	data, err := d.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Bytes returns the serialized .docx container.
func (d *Document) Bytes() ([]byte, error) {
	root, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("failed to load docx template: %w", err)
	}
	defer root.Close()

	for _, b := range d.blocks {
		writeBlock(root, b)
	}
	// Word requires a paragraph between a trailing table and the section.
	if n := len(d.blocks); n > 0 && d.blocks[n-1].Kind == KindTable {
		root.AddEmptyParagraph()
	}
	root.FileMap.Store(corePropsPart, []byte(corePropsXML(d)))

	var buf bytes.Buffer
	if err := root.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write docx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeBlock(root *gdocx.RootDoc, b Block) {
	switch b.Kind {
	case KindTitle:
		p := styled(root, styleTitle, b.Text)
		p.Justification(stypes.JustificationCenter)
	case KindSubtitle:
		p := styled(root, styleSubtitle, b.Text)
		p.Justification(stypes.JustificationCenter)
	case KindHeading:
		styled(root, fmt.Sprintf("Heading%d", b.Level), b.Text)
	case KindParagraph:
		addLines(root.AddEmptyParagraph(), b.Text, false)
	case KindBullet:
		style := styleListBullet
		if b.Level == 2 {
			style = styleListBullet2
		}
		styled(root, style, b.Text)
	case KindBlank:
		root.AddEmptyParagraph()
	case KindTable:
		if b.Table != nil {
			writeTable(root, b.Table)
		}
	}
}

func styled(root *gdocx.RootDoc, style, text string) *gdocx.Paragraph {
	p := root.AddEmptyParagraph()
	p.Style(style)
	addLines(p, text, false)
	return p
}

// addLines appends text as runs, turning newlines into breaks.
func addLines(p *gdocx.Paragraph, text string, bold bool) []*gdocx.Run {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	runs := make([]*gdocx.Run, 0, len(lines))
	for i, line := range lines {
		if i > 0 {
			runs[i-1].AddBreak(nil)
		}
		r := p.AddText(line)
		if bold {
			r.Bold(true)
		}
		runs = append(runs, r)
	}
	return runs
}

func writeTable(root *gdocx.RootDoc, t *Table) {
	cols := t.Columns()
	if cols == 0 {
		return
	}
	tbl := root.AddTable()
	tbl.Style(styleTable)

	if t.Header != nil {
		row := tbl.AddRow()
		for i := 0; i < cols; i++ {
			for _, r := range addLines(row.AddCell().AddEmptyPara(), cell(t.Header, i), true) {
				r.Shading(stypes.ShdClear, "auto", headerFill)
			}
		}
	}
	for _, cells := range t.Rows {
		row := tbl.AddRow()
		for i := 0; i < cols; i++ {
			addLines(row.AddCell().AddEmptyPara(), cell(cells, i), t.BoldFirstColumn && i == 0)
		}
	}
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

func corePropsXML(d *Document) string {
	return xml.Header +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
		`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" ` +
		`xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
		`<dc:title>` + escape(d.Properties.Title) + `</dc:title>` +
		`<dc:subject>` + escape(d.Properties.Subject) + `</dc:subject>` +
		`<dc:creator>` + escape(d.Properties.Creator) + `</dc:creator>` +
		`</cp:coreProperties>`
}
