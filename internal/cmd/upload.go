package cmd

import (
	"fmt"

	"github.com/harrison/qadocs/internal/fileutil"
	"github.com/spf13/cobra"
)

// newUploadCommand creates the upload command.
func newUploadCommand(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <document.docx|cases.xlsx|directory>...",
		Short: "Publish generated documents to Confluence",
		Long: `Publish previously generated documents to Confluence.

Each document becomes a page in the configured space (under the parent page
when one is set) with the original file attached. The page content is built
from the JSON file written next to the document, or read from the document
itself when that file is missing. A directory argument publishes every
*_Test_Plan.docx and *_Test_Cases.xlsx in it.

Requires CONFLUENCE_URL, CONFLUENCE_EMAIL, CONFLUENCE_API_TOKEN and
CONFLUENCE_SPACE_KEY (CONFLUENCE_PARENT_PAGE_ID is optional).

Examples:
  qadocs upload Acme_Test_Plan.docx
  qadocs upload out/
  qadocs upload --recursive reports/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Confluence.Validate(); err != nil {
				return fmt.Errorf("confluence is not configured: %w", err)
			}
			recursive, _ := cmd.Flags().GetBool("recursive")
			files, err := fileutil.ExpandDocuments(args, recursive)
			if err != nil {
				return err
			}
			log, closeLog := openLogger(cmd, cfg)
			defer closeLog()

			return uploadFiles(cmd.Context(), cmd.OutOrStdout(), d, cfg.Confluence, log, files)
		},
	}
	cmd.Flags().BoolP("recursive", "r", false, "Search directories recursively")
	return cmd
}
