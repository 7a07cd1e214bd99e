package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/harrison/qadocs/internal/config"
	"github.com/harrison/qadocs/internal/confluence"
	"github.com/harrison/qadocs/internal/display"
	"github.com/harrison/qadocs/internal/logger"
	"github.com/harrison/qadocs/internal/models"
	"github.com/harrison/qadocs/internal/pipeline"
	"github.com/spf13/cobra"
)

// newKindCommand creates the single-document "plan" and "cases" commands.
func newKindCommand(d deps, name string) *cobra.Command {
	kind, _ := models.ParseKind(name)
	sel := pipeline.Selection{Plan: kind == models.KindTestPlan, Cases: kind == models.KindTestCases}

	short := "Generate a QA test plan (.docx) from a requirements PDF"
	if kind == models.KindTestCases {
		short = "Generate QA test cases (.xlsx) from a requirements PDF"
	}

	cmd := &cobra.Command{
		Use:   name + " <requirements.pdf> [project-name]",
		Short: short,
		Long: short + `.

The project name is used in the document title and in the output filename
("<Project>_` + kind.FileStem() + kind.Extension() + `"). A JSON file with the model's answer is
written next to the document.

Examples:
  qadocs ` + name + ` requirements.pdf "Acme Mobile"
  qadocs ` + name + ` --output-dir out --provider openai requirements.pdf`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			upload, _ := cmd.Flags().GetBool("upload")
			return runGenerate(cmd, d, args, sel, upload)
		},
	}
	cmd.Flags().Bool("upload", false, "Publish the document to Confluence after generating it")
	return cmd
}

// newGenerateCommand creates the generate command.
func newGenerateCommand(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <requirements.pdf> [project-name]",
		Short: "Generate a test plan and test cases from one requirements PDF",
		Long: `Generate both QA documents from one requirements PDF.

The PDF is read once. Each document is generated independently: if one
fails, the other is still written and the command exits non-zero.

Examples:
  qadocs generate requirements.pdf "Acme Mobile"
  qadocs generate --cases requirements.pdf        # test cases only
  qadocs generate --upload requirements.pdf Acme  # and publish to Confluence`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, _ := cmd.Flags().GetBool("plan")
			cases, _ := cmd.Flags().GetBool("cases")
			if !plan && !cases {
				plan, cases = true, true
			}
			upload, _ := cmd.Flags().GetBool("upload")
			return runGenerate(cmd, d, args, pipeline.Selection{Plan: plan, Cases: cases}, upload)
		},
	}
	cmd.Flags().Bool("plan", false, "Generate the test plan")
	cmd.Flags().Bool("cases", false, "Generate the test cases")
	cmd.Flags().Bool("upload", false, "Publish generated documents to Confluence")
	return cmd
}

func runGenerate(cmd *cobra.Command, d deps, args []string, sel pipeline.Selection, upload bool) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	log, closeLog := openLogger(cmd, cfg)
	defer closeLog()

	completer, err := d.completer(cfg.LLMConfig(false), log)
	if err != nil {
		return err
	}

	in := pipeline.Input{PDFPath: args[0]}
	if len(args) > 1 {
		in.Project = args[1]
	}

	runner := pipeline.NewRunner(completer,
		pipeline.WithOutputDir(cfg.OutputDir),
		pipeline.WithLogger(log),
		pipeline.WithProgress(log.LogExtractProgress),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log.LogInfo(fmt.Sprintf("Generating %s for %q from %s", selectionLabel(sel), in.ProjectName(), in.PDFPath))
	outcomes := runner.Generate(ctx, in, sel)
	log.LogSummary(outcomes)

	out := cmd.OutOrStdout()
	report(out, outcomes)

	genErr := pipeline.Err(outcomes)
	if upload {
		if err := publishOutcomes(ctx, out, d, cfg, log, outcomes); err != nil {
			return errors.Join(genErr, err)
		}
	}
	return genErr
}

func selectionLabel(sel pipeline.Selection) string {
	switch {
	case sel.Plan && sel.Cases:
		return "test plan and test cases"
	case sel.Cases:
		return models.KindTestCases.Label()
	default:
		return models.KindTestPlan.Label()
	}
}

// report prints the written files and the test-case breakdown.
func report(out io.Writer, outcomes []pipeline.Outcome) {
	var paths []string
	var stats *models.CaseStats
	for _, o := range outcomes {
		if o.Err != nil || o.Result.Paths == nil {
			continue
		}
		paths = append(paths, o.Result.Paths.Document, o.Result.Paths.Sidecar)
		if o.Result.Stats != nil {
			stats = o.Result.Stats
		}
	}
	if len(paths) == 0 {
		return
	}
	fmt.Fprintln(out)
	display.Artifacts(out, paths...)
	display.CaseBreakdown(out, stats)
}

// publishOutcomes uploads every successfully written document. A missing
// Confluence configuration is a warning, not an error.
func publishOutcomes(ctx context.Context, out io.Writer, d deps, cfg *config.Config, log logger.Logger, outcomes []pipeline.Outcome) error {
	var files []string
	for _, o := range outcomes {
		if o.Err == nil && o.Result.Paths != nil {
			files = append(files, o.Result.Paths.Document)
		}
	}
	if len(files) == 0 {
		return nil
	}

	if err := cfg.Confluence.Validate(); err != nil {
		display.WarnUploadSkipped(err, files).Display(out)
		return nil
	}
	return uploadFiles(ctx, out, d, cfg.Confluence, log, files)
}

// uploadFiles publishes each file, continuing past failures.
func uploadFiles(ctx context.Context, out io.Writer, d deps, cc confluence.Config, log logger.Logger, files []string) error {
	pub, err := d.publisher(cc, log)
	if err != nil {
		return err
	}

	progress := display.NewProgressIndicator(out, len(files), "Publishing to Confluence")
	progress.Start()

	var errs []error
	done := 0
	for _, path := range files {
		progress.Step(path)
		doc, err := confluence.LoadDocument(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		res, err := pub.Upload(ctx, doc)
		if err != nil {
			log.LogError(fmt.Sprintf("upload of %s failed: %v", path, err))
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		done++
		fmt.Fprintf(out, "      %s\n", res.Page.URL)
		log.LogInfo(fmt.Sprintf("published %q as page %s", res.Page.Title, res.Page.ID))
	}
	progress.Complete("Published", done)
	return errors.Join(errs...)
}
