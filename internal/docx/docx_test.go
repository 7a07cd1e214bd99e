package docx

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *Document {
	d := New()
	d.Properties = Properties{Title: "Acme - QA Test Plan", Creator: "qadocs"}
	d.AddTitle("Acme - QA Test Plan")
	d.AddSubtitle("Version 1.0")
	d.AddBlank()
	d.AddTable(Table{
		Rows:            [][]string{{"Project Name", "Acme"}, {"Document Status", "DRAFT"}},
		BoldFirstColumn: true,
	})
	d.AddHeading("Description", 1)
	d.AddParagraph("Line one\nLine two & <more>")
	d.AddHeading("Risks", 1)
	d.AddHeading("Scope", 1)
	d.AddBullets([]string{"Login", "Logout"})
	d.AddBullet("Nested", 2)
	d.AddHeading("Approval", 1)
	d.AddTable(Table{Header: []string{"Role", "Name", "Signature / Date"}, Rows: [][]string{{"QA Lead", "TBD", ""}}})
	return d
}

func TestDocument_Blocks(t *testing.T) {
	d := sampleDocument()
	blocks := d.Blocks()

	require.NotEmpty(t, blocks)
	assert.Equal(t, KindTitle, blocks[0].Kind)
	assert.Equal(t, KindSubtitle, blocks[1].Kind)
	assert.Equal(t, KindBlank, blocks[2].Kind)
	assert.Equal(t, KindTable, blocks[3].Kind)

	// mutating the copy does not affect the document
	blocks[0].Text = "changed"
	assert.Equal(t, "Acme - QA Test Plan", d.Blocks()[0].Text)
}

func TestDocument_Section(t *testing.T) {
	d := sampleDocument()

	risks, ok := d.Section("Risks")
	require.True(t, ok)
	assert.Empty(t, risks)

	scope, ok := d.Section("Scope")
	require.True(t, ok)
	require.Len(t, scope, 3)
	assert.Equal(t, 2, scope[2].Level)

	approval, ok := d.Section("Approval")
	require.True(t, ok)
	require.Len(t, approval, 1)
	assert.Equal(t, KindTable, approval[0].Kind)

	_, ok = d.Section("Missing")
	assert.False(t, ok)
}

func TestAddHeading_ClampsLevel(t *testing.T) {
	d := New()
	d.AddHeading("zero", 0)
	d.AddHeading("three", 3)
	d.AddBullet("deep", 5)

	blocks := d.Blocks()
	assert.Equal(t, 1, blocks[0].Level)
	assert.Equal(t, 2, blocks[1].Level)
	assert.Equal(t, 2, blocks[2].Level)
}

func TestBytes_ValidPackage(t *testing.T) {
	data, err := sampleDocument().Bytes()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"word/document.xml",
		"word/styles.xml",
		"word/numbering.xml",
		"word/_rels/document.xml.rels",
		"docProps/core.xml",
	} {
		assert.True(t, names[want], "missing part %s", want)
	}

	core := readPart(t, zr, "docProps/core.xml")
	assert.Contains(t, core, "<dc:title>Acme - QA Test Plan</dc:title>")

	styles := readPart(t, zr, "word/styles.xml")
	for _, id := range []string{"Title", "Subtitle", "Heading1", "Heading2", "ListBullet", "ListBullet2"} {
		assert.Contains(t, styles, `w:styleId="`+id+`"`)
	}
}

func TestBytes_EscapesText(t *testing.T) {
	data, err := sampleDocument().Bytes()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	body := readPart(t, zr, "word/document.xml")

	assert.Contains(t, body, "Line two &amp; &lt;more&gt;")
	assert.Contains(t, body, "<w:br")
	assert.True(t, strings.HasSuffix(body, "</w:body></w:document>"))
}

func TestReadParagraphs_RoundTrip(t *testing.T) {
	data, err := sampleDocument().Bytes()
	require.NoError(t, err)

	paras, err := ReadParagraphs(data)
	require.NoError(t, err)
	require.NotEmpty(t, paras)

	assert.Equal(t, Paragraph{Style: "Title", Text: "Acme - QA Test Plan"}, paras[0])
	assert.Equal(t, Paragraph{Style: "Subtitle", Text: "Version 1.0"}, paras[1])

	var description, nested Paragraph
	var tableCells []string
	for _, p := range paras {
		if strings.HasPrefix(p.Text, "Line one") {
			description = p
		}
		if p.Style == "ListBullet2" {
			nested = p
		}
		if p.InTable && p.Text != "" {
			tableCells = append(tableCells, p.Text)
		}
	}
	assert.Equal(t, "Line one\nLine two & <more>", description.Text)
	assert.Equal(t, "Nested", nested.Text)
	assert.Equal(t, []string{"Project Name", "Acme", "Document Status", "DRAFT", "Role", "Name", "Signature / Date", "QA Lead", "TBD"}, tableCells)
}

func TestReadParagraphs_Invalid(t *testing.T) {
	_, err := ReadParagraphs([]byte("not a zip"))
	assert.Error(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err = zw.Create("other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = ReadParagraphs(buf.Bytes())
	assert.Error(t, err)
}

func readPart(t *testing.T, zr *zip.Reader, name string) string {
	t.Helper()
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			return string(data)
		}
	}
	t.Fatalf("part %s not found", name)
	return ""
}
