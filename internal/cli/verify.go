package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/blockcerts"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/certificate"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/events"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
)

// errVerificationFailed makes the process exit with a non-zero status when a certificate does not verify.
var errVerificationFailed = errors.New("certificate verification failed")

type verifyOptions struct {
	output      string
	quiet       bool
	concurrency int
}

func newVerifyCmd() *cobra.Command {
	opts := &verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify <certificate-file>...",
		Short: "Verify Blockcerts certificates",
		Long: `Run every verification step against certificate documents and print the results.

When a single certificate is verified, step progress is written to stderr as the run advances.
Results are written to stdout in the order of the arguments.
The command exits with a non-zero status when any certificate does not verify.

Example:
  certviewer verify ./certificates/eularia.json --output yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", outputTable, "Output format: table, json or yaml")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print step progress")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 4, "Maximum number of certificates verified at once")
	return cmd
}

func runVerify(cmd *cobra.Command, paths []string, opts *verifyOptions) error {
	if err := validateOutputFormat(opts.output); err != nil {
		return err
	}
	if opts.concurrency < 1 {
		return fmt.Errorf("invalid concurrency: %d (must be at least 1)", opts.concurrency)
	}

	defs := make([]*certificate.Definition, len(paths))
	for i, path := range paths {
		def, err := readDefinition(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		defs[i] = def
	}

	ctx := cmd.Context()
	verifier, err := blockcerts.NewDefaultVerifier(ctx, cfg.VerifierSettings(), appLogger)
	if err != nil {
		return err
	}

	var progress io.Writer
	if !opts.quiet && len(defs) == 1 {
		progress = cmd.ErrOrStderr()
	}

	reports := make([]verificationReport, len(defs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)
	for i, def := range defs {
		g.Go(func() error {
			report, err := verifyDefinition(ctx, verifier, def, progress)
			if err != nil {
				return fmt.Errorf("%s: %w", paths[i], err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := false
	for _, report := range reports {
		if err := printReport(cmd.OutOrStdout(), opts.output, report); err != nil {
			return err
		}
		if !report.Status.IsSuccess() {
			failed = true
		}
	}
	if failed {
		return errVerificationFailed
	}
	return nil
}

// verifyDefinition runs one verification in its own store. Step events are printed to progress when it is not nil.
func verifyDefinition(ctx context.Context, verifier certificate.Verifier, def *certificate.Definition, progress io.Writer) (verificationReport, error) {
	bus := events.NewBus(appLogger)
	if progress != nil {
		sub, err := bus.Subscribe(events.CertificateVerifyStep, printStepProgress(progress))
		if err != nil {
			return verificationReport{}, err
		}
		defer bus.Unsubscribe(sub)
	}

	// the CLI always verifies explicitly, whatever DISABLE_AUTO_VERIFY and DISABLE_VERIFY say
	store := certificate.NewStore(certificate.Options{DisableAutoVerify: true}, verifier, bus, appLogger)
	if err := store.UpdateCertificateDefinition(ctx, def); err != nil {
		return verificationReport{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.VerifyTimeout)
	defer cancel()

	if _, err := store.VerifyCertificate(ctx); err != nil {
		return verificationReport{}, fmt.Errorf("verification could not run: %w", err)
	}
	return newVerificationReport(store.State()), nil
}

func readDefinition(path string) (*certificate.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}
	return certificate.ParseDefinition(data)
}

// printStepProgress prints a line each time a step finishes.
func printStepProgress(w io.Writer) events.Listener {
	return func(e events.Event) {
		step := e.Detail.Step
		if step == nil || !step.Status.IsFinished() {
			return
		}
		mark := "✓"
		if step.Status == verification.StatusFailure {
			mark = "✗"
		}
		indent := ""
		if step.ParentStep != "" {
			indent = "  "
		}
		fmt.Fprintf(w, "%s%s %s\n", indent, mark, step.Label)
	}
}
