package cmd

import (
	"github.com/harrison/qadocs/internal/confluence"
	"github.com/harrison/qadocs/internal/llm"
	"github.com/harrison/qadocs/internal/pipeline"
	"github.com/harrison/qadocs/internal/web"
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// deps builds the external clients. Tests replace them with fakes.
type deps struct {
	completer func(cfg llm.Config, log llm.Logger) (pipeline.Completer, error)
	publisher func(cfg confluence.Config, log confluence.Logger) (web.Publisher, error)
}

func defaultDeps() deps {
	return deps{
		completer: func(cfg llm.Config, log llm.Logger) (pipeline.Completer, error) {
			return llm.NewClient(cfg, llm.WithLogger(log))
		},
		publisher: func(cfg confluence.Config, log confluence.Logger) (web.Publisher, error) {
			return confluence.NewClient(cfg, confluence.WithLogger(log))
		},
	}
}

// NewRootCommand creates and returns the root cobra command for qadocs
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultDeps())
}

func newRootCommand(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qadocs",
		Short: "Generate QA test plans and test cases from requirements PDFs",
		Long: `qadocs turns a requirements document (PDF) into QA documentation.

It extracts the document text, asks a language model for a structured test
plan or a list of test cases, and renders the answer as a Word document
(.docx) or an Excel workbook (.xlsx) with a JSON copy of the model's answer
next to it. Documents can be published to Confluence.

Configuration is read from .qadocs/config.yaml and credentials from the
environment or a .env file. CLI flags override both.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to config file (default: .qadocs/config.yaml)")
	flags.String("env-file", ".env", "Path to a .env file with credentials")
	flags.String("output-dir", "", "Directory for generated documents")
	flags.String("log-dir", "", "Directory for run logs")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flags.Bool("verbose", false, "Show stage-by-stage progress (same as --log-level debug)")
	flags.String("provider", "", "Completion provider: anthropic, openai, gemini")
	flags.String("model", "", "Model name (default: the provider's default model)")

	cmd.AddCommand(newKindCommand(d, "plan"))
	cmd.AddCommand(newKindCommand(d, "cases"))
	cmd.AddCommand(newGenerateCommand(d))
	cmd.AddCommand(newUploadCommand(d))
	cmd.AddCommand(newServeCommand(d))

	return cmd
}
