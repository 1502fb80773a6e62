package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/foldertalk/internal/app"
	"github.com/custodia-labs/foldertalk/internal/core/domain"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the text foldertalk would index from a local file",
	Long: `Run a local file through the same text extraction used during indexing.
The content type is taken from the file extension unless --mime is given.

Examples:
  foldertalk extract report.pdf
  foldertalk extract notes --mime text/plain`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("mime", "", "content type (default from extension)")
	rootCmd.AddCommand(extractCmd)
}

var extensionMIMETypes = map[string]string{
	".txt":  domain.MIMETypePlainText,
	".md":   domain.MIMETypePlainText,
	".csv":  domain.MIMETypeCSV,
	".htm":  domain.MIMETypeHTML,
	".html": domain.MIMETypeHTML,
	".rtf":  domain.MIMETypeRTF,
	".pdf":  domain.MIMETypePDF,
	".docx": domain.MIMETypeDOCX,
	".xlsx": domain.MIMETypeXLSX,
}

// mimeForPath returns the content type for a file name, or "".
func mimeForPath(path string) string {
	return extensionMIMETypes[strings.ToLower(filepath.Ext(path))]
}

func runExtract(cmd *cobra.Command, args []string) error {
	path := args[0]

	mimeType, _ := cmd.Flags().GetString("mime")
	if mimeType == "" {
		mimeType = mimeForPath(path)
	}
	if mimeType == "" {
		return fmt.Errorf("%w: cannot tell the content type of %s, use --mime", domain.ErrUnsupportedType, path)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	name := filepath.Base(path)
	doc, err := app.NewExtractor(cfg.Extraction).Extract(cmd.Context(), &domain.RawDocument{
		File:     domain.FileDescriptor{ID: name, Name: name, MIMEType: mimeType},
		MIMEType: mimeType,
		Content:  content,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), doc.Content)
	return nil
}
