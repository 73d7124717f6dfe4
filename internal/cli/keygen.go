package cli

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/crypto"
)

// file naming convention - name.public.jwk and name.private.jwk
const (
	publicKeyFileNameFormat  = "%s.public.jwk"
	privateKeyFileNameFormat = "%s.private.jwk"
)

type keygenOptions struct {
	name      string
	outputDir string
	kid       string
}

func newKeygenCmd() *cobra.Command {
	opts := &keygenOptions{}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an issuer signing key",
		Long: `Generate an Ed25519 issuer key pair in JWK format.

The private key signs certificate batches (see issue).
The public key can be published in the issuer profile or dropped into PINNED_KEYS_DIR.

Example:
  certviewer keygen --name example-university --outputdir ./keys`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "Key file name prefix (e.g. example-university) [required]")
	cmd.Flags().StringVarP(&opts.outputDir, "outputdir", "o", "", "Output directory for generated keys [required]")
	cmd.Flags().StringVarP(&opts.kid, "kid", "k", "", "Key ID (default: auto-generated from thumbprint)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("outputdir")
	return cmd
}

func runKeygen(cmd *cobra.Command, opts *keygenOptions) error {
	out := cmd.OutOrStdout()

	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	fmt.Fprintf(out, "Generating Ed25519 key pair: %s\n", opts.name)

	privateKey, err := crypto.GenerateEd25519KeyPair()
	if err != nil {
		return fmt.Errorf("failed to generate Ed25519 key: %w", err)
	}
	publicKey := privateKey.Public().(ed25519.PublicKey)

	keyID := opts.kid
	if keyID == "" {
		keyID, err = crypto.KeyIDFromEd25519Key(publicKey)
		if err != nil {
			return fmt.Errorf("failed to generate key ID: %w", err)
		}
	}

	publicFile := fmt.Sprintf(publicKeyFileNameFormat, opts.name)
	if err := crypto.SaveEd25519PublicKeyToJWKFile(publicKey, keyID, opts.outputDir, publicFile); err != nil {
		return fmt.Errorf("failed to save public key: %w", err)
	}
	fmt.Fprintf(out, "✓ Public JWK:  %s (kid: %s)\n", filepath.Join(opts.outputDir, publicFile), keyID)

	privateFile := fmt.Sprintf(privateKeyFileNameFormat, opts.name)
	if err := crypto.SaveEd25519PrivateKeyToJWKFile(privateKey, keyID, opts.outputDir, privateFile); err != nil {
		return fmt.Errorf("failed to save private key: %w", err)
	}
	fmt.Fprintf(out, "✓ Private JWK: %s (kid: %s)\n", filepath.Join(opts.outputDir, privateFile), keyID)

	appLogger.Debug("issuer key pair generated")
	return nil
}
