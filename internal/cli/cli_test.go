package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/blockcerts"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/blockcerts/testutil"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/crypto"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
)

const testCertificateID = "urn:uuid:bbba8553-8ec1-445f-82c9-a57251dd731c"

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--log-level", "none"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// newPinnedIssuer creates an issuer whose key the verifier trusts through PINNED_KEYS_DIR
func newPinnedIssuer(t *testing.T) *testutil.Issuer {
	t.Helper()
	issuer, err := testutil.NewIssuer()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := issuer.PinKey(dir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PINNED_KEYS_DIR", dir)
	t.Setenv("ENVIRONMENT", "dev")
	return issuer
}

// signedCertificateFile writes a mocknet certificate of a pinned issuer
func signedCertificateFile(t *testing.T) string {
	t.Helper()
	issuer := newPinnedIssuer(t)
	doc, err := issuer.SignedCertificate(testCertificateID)
	if err != nil {
		t.Fatal(err)
	}
	return writeFile(t, t.TempDir(), "certificate.json", doc)
}

func TestVerify(t *testing.T) {
	path := signedCertificateFile(t)

	t.Run("table", func(t *testing.T) {
		stdout, stderr, err := execute(t, "verify", path)
		if err != nil {
			t.Fatalf("verify returned error: %v", err)
		}
		for _, want := range []string{testCertificateID, "Comparing hashes", "SUCCESS", blockcerts.MockSuccessFinalStep.Label} {
			if !strings.Contains(stdout, want) {
				t.Errorf("output does not contain %q:\n%s", want, stdout)
			}
		}
		if !strings.Contains(stderr, "✓") {
			t.Errorf("expected step progress on stderr, got %q", stderr)
		}
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := execute(t, "verify", path, "--output", "json", "--quiet")
		if err != nil {
			t.Fatalf("verify returned error: %v", err)
		}
		var report verificationReport
		if err := json.Unmarshal([]byte(stdout), &report); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if report.Status != verification.StatusSuccess || report.FinalStep == nil || report.FinalStep.Label != blockcerts.MockSuccessFinalStep.Label {
			t.Errorf("unexpected report %+v", report)
		}
		if len(report.Steps) != 3 {
			t.Errorf("expected 3 step groups, got %d", len(report.Steps))
		}
	})

	t.Run("yaml", func(t *testing.T) {
		stdout, stderr, err := execute(t, "verify", path, "-o", "yaml", "-q")
		if err != nil {
			t.Fatalf("verify returned error: %v", err)
		}
		if stderr != "" {
			t.Errorf("quiet run printed progress: %q", stderr)
		}
		var report verificationReport
		if err := yaml.Unmarshal([]byte(stdout), &report); err != nil {
			t.Fatalf("output is not YAML: %v", err)
		}
		if report.CertificateID != testCertificateID || report.Status != verification.StatusSuccess {
			t.Errorf("unexpected report %+v", report)
		}
	})
}

func TestVerifyFailures(t *testing.T) {
	valid, err := os.ReadFile(signedCertificateFile(t))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	tampered := writeFile(t, dir, "tampered.json", bytes.Replace(valid, []byte("Eularia Landroth"), []byte("Mallory"), 1))
	invalid := writeFile(t, dir, "invalid.json", []byte(`{"badge": {}}`))

	tests := []struct {
		name       string
		args       []string
		wantFailed bool
	}{
		{"tampered certificate", []string{"verify", tampered, "-q"}, true},
		{"invalid certificate", []string{"verify", invalid}, false},
		{"missing file", []string{"verify", filepath.Join(dir, "missing.json")}, false},
		{"bad output format", []string{"verify", tampered, "--output", "xml"}, false},
		{"bad concurrency", []string{"verify", tampered, "--concurrency", "0"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errors.Is(err, errVerificationFailed); got != tt.wantFailed {
				t.Errorf("errors.Is(err, errVerificationFailed) = %v, want %v (%v)", got, tt.wantFailed, err)
			}
			if tt.wantFailed && !strings.Contains(stdout, "FAILURE") {
				t.Errorf("failed verification should still print the report:\n%s", stdout)
			}
		})
	}
}

func TestVerifyMocknetOutsideDevelopment(t *testing.T) {
	path := signedCertificateFile(t)

	for _, environment := range []string{"staging", "prod"} {
		t.Run(environment, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", environment)
			stdout, _, err := execute(t, "verify", path, "-q")
			if !errors.Is(err, errVerificationFailed) {
				t.Fatalf("expected errVerificationFailed, got %v", err)
			}
			if !strings.Contains(stdout, "Getting transaction ID") || !strings.Contains(stdout, "FAILURE") {
				t.Errorf("unexpected report:\n%s", stdout)
			}
		})
	}

	t.Run("trusted explicitly", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "prod")
		t.Setenv("TRUSTED_CHAINS", "mocknet")
		if _, _, err := execute(t, "verify", path, "-q"); err != nil {
			t.Errorf("verify returned error: %v", err)
		}
	})
}

func TestCoverPage(t *testing.T) {
	path := signedCertificateFile(t)

	stdout, _, err := execute(t, "cover-page", path, "--record-url", "https://certs.example.com/records/1")
	if err != nil {
		t.Fatalf("cover-page returned error: %v", err)
	}
	for _, want := range []string{"buv-c-pdf-cover-page", "Eularia Landroth", "data:image/png;base64,"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("cover page does not contain %q", want)
		}
	}

	t.Setenv("RECORD_BASE_URL", "")
	outFile := filepath.Join(t.TempDir(), "cover.json")
	if _, _, err := execute(t, "cover-page", path, "--format", "json", "--out", outFile); err != nil {
		t.Fatalf("cover-page returned error: %v", err)
	}
	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	if fields["recipientName"] != "Eularia Landroth" {
		t.Errorf("recipientName = %q", fields["recipientName"])
	}
	if _, ok := fields["qrCodeImage"]; ok {
		t.Error("no QR code expected without a record url")
	}

	if _, _, err := execute(t, "cover-page", path, "--format", "pdf"); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}

func TestKeygen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")

	stdout, _, err := execute(t, "keygen", "--name", "example-university", "--outputdir", dir, "--kid", "issuer-key-1")
	if err != nil {
		t.Fatalf("keygen returned error: %v", err)
	}
	if !strings.Contains(stdout, "kid: issuer-key-1") {
		t.Errorf("unexpected output %q", stdout)
	}

	_, kid, err := crypto.ReadEd25519PrivateKeyFromJWKFile(dir, "example-university.private.jwk")
	if err != nil {
		t.Fatalf("failed to read generated private key: %v", err)
	}
	if kid != "issuer-key-1" {
		t.Errorf("kid = %q", kid)
	}
	data, err := os.ReadFile(filepath.Join(dir, "example-university.public.jwk"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := crypto.ParseKeySet(data); err != nil {
		t.Errorf("public key file is not a JWK set: %v", err)
	}

	if _, _, err := execute(t, "keygen", "--outputdir", dir); err == nil {
		t.Error("expected an error without --name")
	}
}

func TestIssueThenVerify(t *testing.T) {
	issuer := newPinnedIssuer(t)
	keyDir := t.TempDir()
	if err := crypto.SaveEd25519PrivateKeyToJWKFile(issuer.PrivateKey, issuer.KeyID, keyDir, "issuer.private.jwk"); err != nil {
		t.Fatal(err)
	}

	srcDir := t.TempDir()
	var inputs []string
	for i, id := range []string{"urn:uuid:1", "urn:uuid:2", "urn:uuid:3"} {
		doc, err := testutil.UnsignedCertificate(id, issuer.Profile())
		if err != nil {
			t.Fatal(err)
		}
		inputs = append(inputs, writeFile(t, srcDir, []string{"a.json", "b.json", "c.json"}[i], doc))
	}

	outDir := filepath.Join(t.TempDir(), "signed")
	ledger := filepath.Join(t.TempDir(), "ledger.yaml")
	args := append([]string{"issue", "--key", filepath.Join(keyDir, "issuer.private.jwk"), "--outputdir", outDir,
		"--chain", "bitcoin", "--txid", "2378076e8e140012814e98a2b2cb1af07ec760b239c1d6d93ba54d658a010ecd", "--ledger", ledger}, inputs...)
	stdout, _, err := execute(t, args...)
	if err != nil {
		t.Fatalf("issue returned error: %v", err)
	}
	if strings.Count(stdout, "✓ Signed") != 3 {
		t.Errorf("expected 3 signed certificates:\n%s", stdout)
	}
	if _, err := blockcerts.LoadStaticLedger(ledger); err != nil {
		t.Errorf("ledger was not written: %v", err)
	}
	t.Setenv("LEDGER_PATH", ledger)

	verifyArgs := []string{"verify", "--concurrency", "2"}
	for _, name := range []string{"a.json", "b.json", "c.json"} {
		verifyArgs = append(verifyArgs, filepath.Join(outDir, name))
	}
	stdout, stderr, err := execute(t, verifyArgs...)
	if err != nil {
		t.Fatalf("issued certificates do not verify: %v", err)
	}
	if strings.Count(stdout, "SUCCESS") < 3 || strings.Count(stdout, blockcerts.SuccessFinalStep.Label) != 3 {
		t.Errorf("expected a verified report per certificate:\n%s", stdout)
	}
	if stderr != "" {
		t.Errorf("progress should only be printed for a single certificate, got %q", stderr)
	}

	// one bad certificate in the batch fails the command
	signed, err := os.ReadFile(filepath.Join(outDir, "b.json"))
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, outDir, "b.json", bytes.Replace(signed, []byte("Eularia Landroth"), []byte("Mallory"), 1))
	if _, _, err := execute(t, verifyArgs...); !errors.Is(err, errVerificationFailed) {
		t.Errorf("expected errVerificationFailed, got %v", err)
	}
}

func TestIssueErrors(t *testing.T) {
	issuer, err := testutil.NewIssuer()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := crypto.SaveEd25519PrivateKeyToJWKFile(issuer.PrivateKey, issuer.KeyID, dir, "issuer.private.jwk"); err != nil {
		t.Fatal(err)
	}
	doc, err := testutil.UnsignedCertificate(testCertificateID, issuer.Profile())
	if err != nil {
		t.Fatal(err)
	}
	input := writeFile(t, dir, "cert.json", doc)
	key := filepath.Join(dir, "issuer.private.jwk")
	out := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"overwrites input", []string{"issue", "--key", key, "--outputdir", dir, input}},
		{"bitcoin without txid", []string{"issue", "--key", key, "--outputdir", out, "--chain", "bitcoin", input}},
		{"unknown chain", []string{"issue", "--key", key, "--outputdir", out, "--chain", "dogecoin", input}},
		{"missing key", []string{"issue", "--key", filepath.Join(dir, "missing.jwk"), "--outputdir", out, input}},
		{"no documents", []string{"issue", "--key", key, "--outputdir", out}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := execute(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
