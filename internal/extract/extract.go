// Package extract pulls the visible text out of a requirements PDF.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/harrison/qadocs/internal/models"
)

// PageSeparator is inserted between the text of consecutive pages so the
// last word of one page never merges with the first word of the next.
const PageSeparator = "\n"

// PageSource is a document whose pages can be read one at a time.
// Page numbers are 1-based.
type PageSource interface {
	NumPage() int
	PageText(page int) (string, error)
}

// ProgressFunc is called after each page is extracted.
type ProgressFunc func(page, total int)

// Option configures an extraction.
type Option func(*options)

type options struct {
	progress ProgressFunc
	path     string
}

// WithProgress reports per-page progress to fn.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithSourceName sets the name used for the document in errors.
func WithSourceName(name string) Option {
	return func(o *options) {
		o.path = name
	}
}

// PageError reports the page whose extraction failed.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// Concatenate reads every page of src in increasing order and joins the
// texts with PageSeparator. A source with no pages yields "".
func Concatenate(src PageSource, progress ProgressFunc) (string, error) {
	total := src.NumPage()
	if total <= 0 {
		return "", nil
	}

	var sb strings.Builder
	for i := 1; i <= total; i++ {
		text, err := src.PageText(i)
		if err != nil {
			return "", &PageError{Page: i, Err: err}
		}
		if i > 1 {
			sb.WriteString(PageSeparator)
		}
		sb.WriteString(text)
		if progress != nil {
			progress(i, total)
		}
	}
	return sb.String(), nil
}

// PDF extracts the text of the PDF read from r.
func PDF(r io.ReaderAt, size int64, opts ...Option) (string, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	src, err := openReader(r, size)
	if err != nil {
		return "", &models.DocumentReadError{Path: o.path, Err: err}
	}

	text, err := Concatenate(src, o.progress)
	if err != nil {
		readErr := &models.DocumentReadError{Path: o.path, Err: err}
		var pageErr *PageError
		if errors.As(err, &pageErr) {
			readErr.Page = pageErr.Page
			readErr.Err = pageErr.Err
		}
		return "", readErr
	}
	return text, nil
}

// Bytes extracts the text of an in-memory PDF, such as an upload.
func Bytes(data []byte, opts ...Option) (string, error) {
	return PDF(bytes.NewReader(data), int64(len(data)), opts...)
}

// File extracts the text of the PDF at path. A missing file is reported as
// an InputNotFoundError before any parsing is attempted.
func File(path string, opts ...Option) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &models.InputNotFoundError{Path: path}
		}
		return "", &models.DocumentReadError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", &models.DocumentReadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return "", &models.DocumentReadError{Path: path, Err: errors.New("is a directory")}
	}

	opts = append([]Option{WithSourceName(path)}, opts...)
	return PDF(f, info.Size(), opts...)
}
