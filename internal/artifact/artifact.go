// Package artifact persists rendered QA documents together with the JSON
// record they were rendered from.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/harrison/qadocs/internal/filelock"
	"github.com/harrison/qadocs/internal/models"
)

// SidecarExt is the extension of the JSON record written next to each
// rendered document.
const SidecarExt = ".json"

// Artifact is one rendered document and its normalized record.
type Artifact struct {
	Kind    models.Kind
	Project string
	Data    []byte
	Record  json.RawMessage
}

// Paths locates the files written for an artifact.
type Paths struct {
	Document string
	Sidecar  string
}

// Buffers holds an artifact in memory along with the filenames it would
// have on disk.
type Buffers struct {
	DocumentName string
	Document     []byte
	SidecarName  string
	Sidecar      []byte
}

// BaseName is the filename stem for a project's artifact: spaces in the
// project name become underscores, and an empty name falls back to
// "Project".
func BaseName(project string, kind models.Kind) string {
	project = strings.TrimSpace(project)
	if project == "" {
		project = models.DefaultProjectName
	}
	return strings.ReplaceAll(project, " ", "_") + "_" + kind.FileStem()
}

// DocumentName is the rendered document's filename.
func (a Artifact) DocumentName() string {
	return BaseName(a.Project, a.Kind) + a.Kind.Extension()
}

// SidecarName is the JSON record's filename.
func (a Artifact) SidecarName() string {
	return BaseName(a.Project, a.Kind) + SidecarExt
}

// Sidecar formats a normalized record as two-space indented JSON with a
// trailing newline. Keys keep the order the model produced, numbers keep
// their literal form, and escaped non-ASCII text is written as characters.
func Sidecar(record json.RawMessage) ([]byte, error) {
	if len(bytes.TrimSpace(record)) == 0 {
		return nil, errors.New("empty record")
	}
	compact, err := unescape(record)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// unescape re-encodes record token by token, so string escapes such as
// \u00e9 are decoded while member order is preserved.
func unescape(record []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(record))
	dec.UseNumber()

	type frame struct {
		object bool
		n      int
	}
	var (
		out   bytes.Buffer
		stack []frame
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if d, ok := tok.(json.Delim); ok && (d == '}' || d == ']') {
			stack = stack[:len(stack)-1]
			out.WriteByte(byte(d))
			continue
		}
		if n := len(stack); n > 0 {
			f := &stack[n-1]
			switch {
			case f.object && f.n%2 == 1:
				out.WriteByte(':')
			case f.n > 0:
				out.WriteByte(',')
			}
			f.n++
		}

		switch v := tok.(type) {
		case json.Delim:
			out.WriteByte(byte(v))
			stack = append(stack, frame{object: v == '{'})
		case string:
			if err := writeString(&out, v); err != nil {
				return nil, err
			}
		case json.Number:
			out.WriteString(v.String())
		case bool:
			out.WriteString(strconv.FormatBool(v))
		case nil:
			out.WriteString("null")
		}
	}
	return out.Bytes(), nil
}

func writeString(out *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	out.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// Writer stores artifacts on disk or in memory.
type Writer struct{}

// NewWriter returns a Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteFiles writes the document and its sidecar into dir while holding the
// directory's lock. Each file is replaced atomically. Failures are reported
// as *models.WriteError naming the file.
func (w *Writer) WriteFiles(ctx context.Context, dir string, a Artifact) (*Paths, error) {
	paths := &Paths{
		Document: filepath.Join(dir, a.DocumentName()),
		Sidecar:  filepath.Join(dir, a.SidecarName()),
	}

	sidecar, err := Sidecar(a.Record)
	if err != nil {
		return nil, &models.WriteError{Path: paths.Sidecar, Err: err}
	}

	err = filelock.LockAndWrite(ctx,
		filelock.File{Path: paths.Document, Data: a.Data},
		filelock.File{Path: paths.Sidecar, Data: sidecar},
	)
	if err != nil {
		path := paths.Document
		var fe *filelock.FileError
		if errors.As(err, &fe) {
			path = fe.Path
			err = fe.Err
		}
		return nil, &models.WriteError{Path: path, Err: err}
	}
	return paths, nil
}

// Bytes returns the document and sidecar without touching the filesystem.
func (w *Writer) Bytes(a Artifact) (*Buffers, error) {
	sidecar, err := Sidecar(a.Record)
	if err != nil {
		return nil, &models.WriteError{Path: a.SidecarName(), Err: err}
	}
	return &Buffers{
		DocumentName: a.DocumentName(),
		Document:     a.Data,
		SidecarName:  a.SidecarName(),
		Sidecar:      sidecar,
	}, nil
}
