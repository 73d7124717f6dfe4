package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/blockcerts"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/crypto"
)

type issueOptions struct {
	keyFile       string
	chain         string
	transactionID string
	outputDir     string
	ledgerPath    string
}

func newIssueCmd() *cobra.Command {
	opts := &issueOptions{}

	cmd := &cobra.Command{
		Use:   "issue <certificate-file>...",
		Short: "Sign a batch of certificates",
		Long: `Sign a batch of unsigned certificate documents with an issuer key.

A merkle tree is built over the batch and every document gets a MerkleProof2019 signature block.
For mocknet the merkle root is its own transaction id. For other chains pass the id of the
transaction carrying the merkle root, and --ledger to record it in a ledger file for LEDGER_PATH.

Example:
  certviewer issue ./unsigned/*.json --key ./keys/example-university.private.jwk --outputdir ./certificates`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIssue(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.keyFile, "key", "", "Issuer private key JWK file [required]")
	cmd.Flags().StringVar(&opts.chain, "chain", "mocknet", "Anchor chain")
	cmd.Flags().StringVar(&opts.transactionID, "txid", "", "Transaction carrying the merkle root (not used for mocknet)")
	cmd.Flags().StringVarP(&opts.outputDir, "outputdir", "o", "", "Output directory for signed certificates [required]")
	cmd.Flags().StringVar(&opts.ledgerPath, "ledger", "", "Ledger file to record the anchor in")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("outputdir")
	return cmd
}

func runIssue(cmd *cobra.Command, paths []string, opts *issueOptions) error {
	out := cmd.OutOrStdout()

	privateKey, keyID, err := crypto.ReadEd25519PrivateKeyFromJWKFile(filepath.Dir(opts.keyFile), filepath.Base(opts.keyFile))
	if err != nil {
		return err
	}

	outputDir, err := filepath.Abs(opts.outputDir)
	if err != nil {
		return fmt.Errorf("invalid output directory: %w", err)
	}

	docs := make([][]byte, len(paths))
	targets := make([]string, len(paths))
	seen := make(map[string]string, len(paths))
	for i, path := range paths {
		if docs[i], err = os.ReadFile(path); err != nil {
			return fmt.Errorf("failed to read certificate: %w", err)
		}

		targets[i] = filepath.Join(outputDir, filepath.Base(path))
		if abs, err := filepath.Abs(path); err == nil && abs == targets[i] {
			return fmt.Errorf("%s would be overwritten: choose another output directory", path)
		}
		if other, ok := seen[targets[i]]; ok {
			return fmt.Errorf("%s and %s have the same file name", other, path)
		}
		seen[targets[i]] = path
	}

	batch, err := blockcerts.Issue(blockcerts.IssueRequest{
		Documents:     docs,
		PrivateKey:    privateKey,
		KeyID:         keyID,
		Chain:         opts.chain,
		TransactionID: opts.transactionID,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for i, doc := range batch.Documents {
		if err := os.WriteFile(targets[i], doc, 0644); err != nil {
			return fmt.Errorf("failed to write signed certificate: %w", err)
		}
		fmt.Fprintf(out, "✓ Signed: %s\n", targets[i])
	}
	fmt.Fprintf(out, "Merkle root:    %s\n", batch.MerkleRoot)
	fmt.Fprintf(out, "Transaction id: %s (%s)\n", batch.TransactionID, opts.chain)

	if opts.ledgerPath != "" {
		entry := blockcerts.LedgerEntry{Chain: opts.chain, TransactionID: batch.TransactionID, MerkleRoot: batch.MerkleRoot}
		if err := blockcerts.AppendLedgerEntry(opts.ledgerPath, entry); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Ledger: %s\n", opts.ledgerPath)
	}
	return nil
}
