package models

import (
	"errors"
	"fmt"
)

// Stage identifies the pipeline step that produced an error.
type Stage string

const (
	StageInput      Stage = "input"
	StageExtract    Stage = "extract"
	StagePrompt     Stage = "prompt"
	StageCredential Stage = "credential"
	StageCompletion Stage = "completion"
	StageNormalize  Stage = "normalize"
	StageRender     Stage = "render"
	StageWrite      Stage = "write"
)

// excerptLimit caps the response text carried by MalformedResponseError.
const excerptLimit = 500

// InputNotFoundError reports a requirements PDF path that does not exist.
type InputNotFoundError struct {
	Path string
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("PDF file not found: %s", e.Path)
}

// DocumentReadError reports a PDF that cannot be parsed, or a page whose
// text cannot be extracted. Page is 1-based and zero when the whole
// document failed to open.
type DocumentReadError struct {
	Path string
	Page int
	Err  error
}

func (e *DocumentReadError) Error() string {
	source := e.Path
	if source == "" {
		source = "<upload>"
	}
	if e.Page > 0 {
		return fmt.Sprintf("error reading PDF %s (page %d): %v", source, e.Page, e.Err)
	}
	return fmt.Sprintf("error reading PDF %s: %v", source, e.Err)
}

func (e *DocumentReadError) Unwrap() error {
	return e.Err
}

// CredentialMissingError reports that no completion-service credential is
// configured. It is raised before any network call is attempted.
type CredentialMissingError struct {
	Provider string
	EnvVar   string
}

func (e *CredentialMissingError) Error() string {
	return fmt.Sprintf("%s environment variable not set (required by the %s provider)", e.EnvVar, e.Provider)
}

// CompletionError reports a failed request to the completion service.
// StatusCode is zero for transport-level failures.
type CompletionError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *CompletionError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s completion request failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s completion request failed: %v", e.Provider, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports a model response that is not valid JSON
// of the expected shape after fence stripping.
type MalformedResponseError struct {
	Excerpt string
	Err     error
}

// NewMalformedResponseError builds a MalformedResponseError keeping at most
// the first 500 characters of text.
func NewMalformedResponseError(text string, err error) *MalformedResponseError {
	runes := []rune(text)
	if len(runes) > excerptLimit {
		text = string(runes[:excerptLimit]) + "..."
	}
	return &MalformedResponseError{Excerpt: text, Err: err}
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("error parsing JSON: %v (response text: %q)", e.Err, e.Excerpt)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// RenderError reports a failure while building a document or spreadsheet.
type RenderError struct {
	Artifact string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render %s: %v", e.Artifact, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// WriteError reports a failure while persisting an artifact.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// StageOf maps an error from any pipeline step back to the stage that
// raised it. Unknown errors return the empty stage.
func StageOf(err error) Stage {
	var (
		notFound  *InputNotFoundError
		readErr   *DocumentReadError
		credErr   *CredentialMissingError
		complErr  *CompletionError
		malformed *MalformedResponseError
		renderErr *RenderError
		writeErr  *WriteError
	)
	switch {
	case errors.As(err, &notFound):
		return StageInput
	case errors.As(err, &readErr):
		return StageExtract
	case errors.As(err, &credErr):
		return StageCredential
	case errors.As(err, &complErr):
		return StageCompletion
	case errors.As(err, &malformed):
		return StageNormalize
	case errors.As(err, &renderErr):
		return StageRender
	case errors.As(err, &writeErr):
		return StageWrite
	default:
		return ""
	}
}
