package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/blockcerts"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/coverpage"
)

type coverPageOptions struct {
	outFile   string
	recordURL string
	format    string
}

func newCoverPageCmd() *cobra.Command {
	opts := &coverPageOptions{}

	cmd := &cobra.Command{
		Use:   "cover-page <certificate-file>",
		Short: "Render the PDF cover page of a certificate",
		Long: `Render the printable cover page of a certificate as an HTML fragment.

The QR code links to --record-url or, when the flag is not set, to RECORD_BASE_URL followed by
the certificate id. Without either the cover page has no QR code.

Example:
  certviewer cover-page ./certificates/eularia.json --out cover.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoverPage(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.outFile, "out", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&opts.recordURL, "record-url", "", "Link encoded in the QR code")
	cmd.Flags().StringVar(&opts.format, "format", "html", "Output format: html or json")
	return cmd
}

func runCoverPage(cmd *cobra.Command, path string, opts *coverPageOptions) error {
	if opts.format != "html" && opts.format != outputJSON {
		return fmt.Errorf("invalid format: %s (must be 'html' or 'json')", opts.format)
	}

	def, err := readDefinition(path)
	if err != nil {
		return err
	}

	recordURL := opts.recordURL
	if recordURL == "" {
		recordURL = blockcerts.RecordURL(cfg.RecordBaseURL, def.ID)
	}

	page, err := blockcerts.CoverPageFor(def, recordURL)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.outFile != "" {
		f, err := os.Create(opts.outFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if opts.format == outputJSON {
		return printJSON(out, page)
	}

	html, err := coverpage.Render(page)
	if err != nil {
		return fmt.Errorf("failed to render cover page: %w", err)
	}
	if _, err := io.WriteString(out, html); err != nil {
		return err
	}
	if opts.outFile != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Cover page: %s\n", opts.outFile)
	}
	return nil
}
