package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Paragraph is a paragraph read back from a .docx body.
type Paragraph struct {
	Style   string
	Text    string
	InTable bool
}

// ReadParagraphs returns every paragraph of word/document.xml in body
// order, including paragraphs inside table cells. Line breaks are returned
// as newlines.
func ReadParagraphs(data []byte) ([]Paragraph, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		defer rc.Close()
		return parseBody(rc)
	}
	return nil, errors.New("docx has no word/document.xml")
}

func parseBody(r io.Reader) ([]Paragraph, error) {
	dec := xml.NewDecoder(r)

	var (
		out        []Paragraph
		current    *Paragraph
		text       strings.Builder
		inText     bool
		tableDepth int
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "p":
				current = &Paragraph{InTable: tableDepth > 0}
				text.Reset()
			case "pStyle":
				if current != nil {
					current.Style = attr(t, "val")
				}
			case "t":
				inText = true
			case "br":
				if current != nil {
					text.WriteByte('\n')
				}
			case "tab":
				if current != nil {
					text.WriteByte('\t')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth--
			case "t":
				inText = false
			case "p":
				if current != nil {
					current.Text = text.String()
					out = append(out, *current)
					current = nil
				}
			}
		case xml.CharData:
			if inText && current != nil {
				text.Write(t)
			}
		}
	}
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
