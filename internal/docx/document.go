// Package docx builds WordprocessingML (.docx) documents.
//
// A Document is an ordered list of blocks (title, headings, paragraphs,
// bullets and tables) that is serialized through godocx onto its default
// template. The block list stays inspectable so callers can verify what
// will be written without parsing XML.
package docx

import "strings"

// Kind identifies the type of a Block.
type Kind int

const (
	KindTitle Kind = iota
	KindSubtitle
	KindHeading
	KindParagraph
	KindBullet
	KindTable
	KindBlank
)

func (k Kind) String() string {
	switch k {
	case KindTitle:
		return "title"
	case KindSubtitle:
		return "subtitle"
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindBullet:
		return "bullet"
	case KindTable:
		return "table"
	case KindBlank:
		return "blank"
	default:
		return "unknown"
	}
}

// Block is one body element of a document.
type Block struct {
	Kind Kind
	Text string

	// Level is 1 or 2 for headings and bullets, 0 otherwise.
	Level int

	Table *Table
}

// Table is a grid of plain-text cells.
type Table struct {
	// Header is rendered bold on a shaded row. Nil means no header row.
	Header []string
	Rows   [][]string

	// BoldFirstColumn renders the first cell of every body row in bold,
	// for key/value tables.
	BoldFirstColumn bool
}

// Columns returns the widest row length, including the header.
func (t *Table) Columns() int {
	n := len(t.Header)
	for _, row := range t.Rows {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// Properties are written to docProps/core.xml.
type Properties struct {
	Title   string
	Subject string
	Creator string
}

// Document accumulates blocks in order.
type Document struct {
	Properties Properties
	blocks     []Block
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// Blocks returns a copy of the document's blocks in order.
func (d *Document) Blocks() []Block {
	out := make([]Block, len(d.blocks))
	copy(out, d.blocks)
	return out
}

// AddTitle appends a centered document title.
func (d *Document) AddTitle(text string) {
	d.blocks = append(d.blocks, Block{Kind: KindTitle, Text: text})
}

// AddSubtitle appends a centered grey subtitle line.
func (d *Document) AddSubtitle(text string) {
	d.blocks = append(d.blocks, Block{Kind: KindSubtitle, Text: text})
}

// AddHeading appends a heading. Levels outside 1..2 are clamped.
func (d *Document) AddHeading(text string, level int) {
	d.blocks = append(d.blocks, Block{Kind: KindHeading, Text: text, Level: clampLevel(level)})
}

// AddParagraph appends a body paragraph. Newlines become line breaks.
func (d *Document) AddParagraph(text string) {
	d.blocks = append(d.blocks, Block{Kind: KindParagraph, Text: text})
}

// AddBullet appends a bulleted list item at level 1 or 2.
func (d *Document) AddBullet(text string, level int) {
	d.blocks = append(d.blocks, Block{Kind: KindBullet, Text: text, Level: clampLevel(level)})
}

// AddBullets appends one level-1 bullet per item.
func (d *Document) AddBullets(items []string) {
	for _, item := range items {
		d.AddBullet(item, 1)
	}
}

// AddBlank appends an empty spacer paragraph.
func (d *Document) AddBlank() {
	d.blocks = append(d.blocks, Block{Kind: KindBlank})
}

// AddTable appends a table.
func (d *Document) AddTable(t Table) {
	d.blocks = append(d.blocks, Block{Kind: KindTable, Table: &t})
}

// Section returns the blocks that follow the first level-1 heading with
// the given text, up to the next level-1 heading. ok is false when no such
// heading exists.
func (d *Document) Section(heading string) (blocks []Block, ok bool) {
	start := -1
	for i, b := range d.blocks {
		if b.Kind != KindHeading || b.Level != 1 {
			continue
		}
		if start >= 0 {
			return d.blocks[start:i], true
		}
		if strings.EqualFold(b.Text, heading) {
			start = i + 1
		}
	}
	if start < 0 {
		return nil, false
	}
	return d.blocks[start:], true
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 2 {
		return 2
	}
	return level
}
