package extract

import (
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// pdfSource adapts a pdf.Reader to PageSource. The pdf package panics on
// some malformed inputs, so every call into it recovers.
type pdfSource struct {
	reader *pdf.Reader
	pages  int
}

func openReader(r io.ReaderAt, size int64) (src *pdfSource, err error) {
	if size == 0 {
		return nil, errors.New("empty document")
	}
	defer func() {
		if p := recover(); p != nil {
			src = nil
			err = fmt.Errorf("malformed PDF: %v", p)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	return &pdfSource{reader: reader, pages: reader.NumPage()}, nil
}

func (s *pdfSource) NumPage() int {
	return s.pages
}

func (s *pdfSource) PageText(page int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			text = ""
			err = fmt.Errorf("malformed page: %v", p)
		}
	}()

	p := s.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}
