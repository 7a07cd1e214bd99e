// Package pipeline runs the requirements-to-document stages for the test
// plan and the test cases.
//
// Each kind is an independent instance of the same sequence:
//
//	credential -> extract -> prompt -> complete -> normalize -> render -> write
//
// Any stage failure aborts that instance only. Nothing is written unless
// every earlier stage succeeded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrison/qadocs/internal/artifact"
	"github.com/harrison/qadocs/internal/extract"
	"github.com/harrison/qadocs/internal/llm"
	"github.com/harrison/qadocs/internal/models"
	"github.com/harrison/qadocs/internal/normalize"
	"github.com/harrison/qadocs/internal/prompt"
	"github.com/harrison/qadocs/internal/render"
)

// Completer sends a prompt to the completion service.
type Completer interface {
	CheckCredential() error
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Logger receives stage events.
type Logger interface {
	LogStageStart(kind models.Kind, stage models.Stage)
	LogStageComplete(kind models.Kind, stage models.Stage, duration time.Duration)
	LogStageFail(kind models.Kind, stage models.Stage, err error)
}

// Input is one requirements document. Text, when set, is used as the
// requirements and extraction is skipped; otherwise PDF bytes take
// precedence over PDFPath.
type Input struct {
	PDFPath string
	PDF     []byte
	Text    string
	Project string

	extracted bool
}

// ProjectName returns the trimmed project name used for titles and
// filenames, or the default when it is blank.
func (in Input) ProjectName() string {
	name := strings.TrimSpace(in.Project)
	if name == "" {
		return models.DefaultProjectName
	}
	return name
}

// Result is a successful pipeline instance.
type Result struct {
	Kind    models.Kind
	Project string

	// Plan is set for KindTestPlan.
	Plan *models.TestPlan

	// Cases and Stats are set for KindTestCases. Cases carry defaults.
	Cases []models.TestCase
	Stats *models.CaseStats

	// Paths is set for file targets, Buffers for in-memory targets.
	Paths   *artifact.Paths
	Buffers *artifact.Buffers

	Model    string
	Usage    llm.TokenUsage
	Duration time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutputDir writes artifacts into dir.
func WithOutputDir(dir string) Option {
	return func(r *Runner) {
		r.outputDir = dir
	}
}

// WithBufferTarget keeps artifacts in memory instead of writing files.
func WithBufferTarget() Option {
	return func(r *Runner) {
		r.inMemory = true
	}
}

// WithLogger sets the stage logger.
func WithLogger(l Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithProgress reports per-page extraction progress.
func WithProgress(fn extract.ProgressFunc) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// Runner executes pipeline instances against one Completer.
type Runner struct {
	completer Completer
	writer    *artifact.Writer
	logger    Logger
	progress  extract.ProgressFunc
	outputDir string
	inMemory  bool
}

// NewRunner creates a Runner writing into the current directory by default.
func NewRunner(c Completer, opts ...Option) *Runner {
	r := &Runner{
		completer: c,
		writer:    artifact.NewWriter(),
		logger:    noopLogger{},
		outputDir: ".",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plan generates the test-plan document and its sidecar.
func (r *Runner) Plan(ctx context.Context, in Input) (*Result, error) {
	return r.run(ctx, models.KindTestPlan, in)
}

// Cases generates the test-case workbook and its sidecar.
func (r *Runner) Cases(ctx context.Context, in Input) (*Result, error) {
	return r.run(ctx, models.KindTestCases, in)
}

// Selection chooses which instances Generate runs.
type Selection struct {
	Plan  bool
	Cases bool
}

// Kinds returns the selected kinds in generation order.
func (s Selection) Kinds() []models.Kind {
	var kinds []models.Kind
	if s.Plan {
		kinds = append(kinds, models.KindTestPlan)
	}
	if s.Cases {
		kinds = append(kinds, models.KindTestCases)
	}
	return kinds
}

// Outcome is the result of one instance run by Generate.
type Outcome struct {
	Kind   models.Kind
	Result *Result
	Err    error
}

// Generate runs the selected instances one after another. The PDF is read
// once and shared. A failing instance does not stop the next one.
func (r *Runner) Generate(ctx context.Context, in Input, sel Selection) []Outcome {
	kinds := sel.Kinds()
	outcomes := make([]Outcome, 0, len(kinds))

	if in.Text == "" && len(kinds) > 1 {
		text, err := r.prepare(ctx, models.KindTestPlan, in)
		if err != nil {
			for _, kind := range kinds {
				outcomes = append(outcomes, Outcome{Kind: kind, Err: err})
			}
			return outcomes
		}
		in.Text, in.extracted = text, true
	}

	for _, kind := range kinds {
		res, err := r.run(ctx, kind, in)
		outcomes = append(outcomes, Outcome{Kind: kind, Result: res, Err: err})
	}
	return outcomes
}

// Err joins the errors of failed outcomes, or returns nil.
func Err(outcomes []Outcome) error {
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Kind.Label(), o.Err))
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) run(ctx context.Context, kind models.Kind, in Input) (*Result, error) {
	start := time.Now()
	res := &Result{Kind: kind, Project: in.ProjectName()}

	text := in.Text
	if text == "" && !in.extracted {
		var err error
		if text, err = r.prepare(ctx, kind, in); err != nil {
			return nil, err
		}
	} else if err := r.stage(kind, models.StageCredential, r.completer.CheckCredential); err != nil {
		return nil, err
	}

	var p string
	err := r.stage(kind, models.StagePrompt, func() error {
		var err error
		p, err = prompt.Build(kind, text, in.ProjectName())
		return err
	})
	if err != nil {
		return nil, err
	}

	var resp *llm.Response
	err = r.stage(kind, models.StageCompletion, func() error {
		var err error
		resp, err = r.completer.Complete(ctx, llm.Request{Prompt: p})
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Model = resp.Model
	res.Usage = resp.Usage

	var record []byte
	err = r.stage(kind, models.StageNormalize, func() error {
		switch kind {
		case models.KindTestPlan:
			plan, raw, err := normalize.Plan(resp.Content)
			if err != nil {
				return err
			}
			res.Plan, record = plan, raw
		default:
			cases, raw, err := normalize.Cases(resp.Content)
			if err != nil {
				return err
			}
			res.Cases = models.ApplyCaseDefaults(cases)
			stats := models.Summarize(res.Cases)
			res.Stats, record = &stats, raw
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var data []byte
	err = r.stage(kind, models.StageRender, func() error {
		var err error
		data, err = r.render(res)
		return err
	})
	if err != nil {
		return nil, err
	}

	a := artifact.Artifact{Kind: kind, Project: res.Project, Data: data, Record: record}
	err = r.stage(kind, models.StageWrite, func() error {
		var err error
		if r.inMemory {
			res.Buffers, err = r.writer.Bytes(a)
		} else {
			res.Paths, err = r.writer.WriteFiles(ctx, r.outputDir, a)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	return res, nil
}

// prepare checks the credential and extracts the requirements text.
func (r *Runner) prepare(ctx context.Context, kind models.Kind, in Input) (string, error) {
	if err := r.stage(kind, models.StageCredential, r.completer.CheckCredential); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var text string
	err := r.stage(kind, models.StageExtract, func() error {
		var err error
		opts := []extract.Option{extract.WithProgress(r.progress)}
		switch {
		case in.PDF != nil:
			if in.PDFPath != "" {
				opts = append(opts, extract.WithSourceName(in.PDFPath))
			}
			text, err = extract.Bytes(in.PDF, opts...)
		case in.PDFPath != "":
			text, err = extract.File(in.PDFPath, opts...)
		default:
			err = &models.InputNotFoundError{Path: in.PDFPath}
		}
		return err
	})
	return text, err
}

func (r *Runner) render(res *Result) ([]byte, error) {
	switch res.Kind {
	case models.KindTestPlan:
		data, err := render.TestPlanDocument(res.Plan, res.Project).Bytes()
		if err != nil {
			return nil, &models.RenderError{Artifact: "test plan document", Err: err}
		}
		return data, nil
	default:
		f, err := render.TestCaseWorkbook(res.Cases)
		if err != nil {
			return nil, &models.RenderError{Artifact: "test case workbook", Err: err}
		}
		defer f.Close()
		buf, err := f.WriteToBuffer()
		if err != nil {
			return nil, &models.RenderError{Artifact: "test case workbook", Err: err}
		}
		return buf.Bytes(), nil
	}
}

func (r *Runner) stage(kind models.Kind, stage models.Stage, fn func() error) error {
	start := time.Now()
	r.logger.LogStageStart(kind, stage)
	if err := fn(); err != nil {
		r.logger.LogStageFail(kind, stage, err)
		return err
	}
	r.logger.LogStageComplete(kind, stage, time.Since(start))
	return nil
}

type noopLogger struct{}

func (noopLogger) LogStageStart(models.Kind, models.Stage)                  {}
func (noopLogger) LogStageComplete(models.Kind, models.Stage, time.Duration) {}
func (noopLogger) LogStageFail(models.Kind, models.Stage, error)             {}
