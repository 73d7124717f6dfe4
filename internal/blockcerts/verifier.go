package blockcerts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/certificate"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/crypto"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
)

// KeySource supplies the key provider used to verify an issuer's signature.
type KeySource interface {
	KeyProvider(issuer Issuer) (jws.KeyProvider, error)
}

// Verifier is the default certificate.Verifier.
type Verifier struct {
	lookup        TransactionLookup
	keys          KeySource
	trustedChains map[string]bool
	allowMocknet  bool
	now           func() time.Time
	logger        *slog.Logger
}

type Option func(*Verifier)

// WithClock replaces the clock used by the expiration check.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithTrustedChains restricts anchors to the listed chain codes. An empty list accepts every known
// chain except mocknet (see WithMocknet).
func WithTrustedChains(chains []string) Option {
	return func(v *Verifier) {
		for _, c := range chains {
			if c = strings.TrimSpace(strings.ToLower(c)); c != "" {
				v.trustedChains[c] = true
			}
		}
	}
}

// WithMocknet accepts mocknet anchors when no trusted chains are listed.
// Mocknet proves nothing: the anchor is the merkle root the certificate already carries.
func WithMocknet(allow bool) Option {
	return func(v *Verifier) { v.allowMocknet = allow }
}

func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) { v.logger = logger }
}

func NewVerifier(lookup TransactionLookup, keys KeySource, opts ...Option) *Verifier {
	v := &Verifier{
		lookup:        lookup,
		keys:          keys,
		trustedChains: make(map[string]bool),
		now:           time.Now,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// PinnedKeySet returns the operator pinned issuer keys, or an empty set when the key source has none.
func (v *Verifier) PinnedKeySet() (jwk.Set, error) {
	if src, ok := v.keys.(interface{ PinnedKeySet() (jwk.Set, error) }); ok {
		return src.PinnedKeySet()
	}
	return jwk.NewSet(), nil
}

// Plan implements certificate.Verifier.
// The plan is the same for every certificate; the document is parsed so that malformed
// certificates are rejected when they are loaded.
func (v *Verifier) Plan(def *certificate.Definition) ([]verification.StepTemplate, error) {
	if _, err := ParseDocument(def.Payload); err != nil {
		return nil, err
	}
	return StepPlan(), nil
}

// run carries what earlier steps learned to later ones
type run struct {
	payload    []byte
	doc        *Document
	anchor     Anchor
	localHash  string
	remoteRoot string
	provider   jws.KeyProvider
	header     crypto.JWSHeader
}

// Verify implements certificate.Verifier.
//
// Each group is reported STARTED, then each sub step STARTED followed by SUCCESS or FAILURE,
// then the group's own status. The first failing check ends the run with a FAILURE outcome
// whose description is the check's message. An error is only returned when the run could not
// be carried out (unreadable document, cancelled context, rejected step callback).
func (v *Verifier) Verify(ctx context.Context, def *certificate.Definition, onStep certificate.StepCallback) (verification.Outcome, error) {
	doc, err := ParseDocument(def.Payload)
	if err != nil {
		return verification.Outcome{}, err
	}
	r := &run{payload: def.Payload, doc: doc}

	for _, g := range stepGroups {
		if err := onStep(verification.StepUpdate{Code: g.code, Status: verification.StatusStarted}); err != nil {
			return verification.Outcome{}, err
		}

		for _, s := range g.steps {
			if err := ctx.Err(); err != nil {
				return verification.Outcome{}, err
			}
			if err := onStep(verification.StepUpdate{Code: s.Code, Status: verification.StatusStarted}); err != nil {
				return verification.Outcome{}, err
			}

			checkErr := v.check(ctx, s.Code, r)
			if checkErr != nil {
				message := describe(checkErr)
				v.logger.Debug("verification step failed",
					slog.String("certificate_id", doc.ID),
					slog.String("step", s.Code),
					slog.String("error", checkErr.Error()))

				if err := onStep(verification.StepUpdate{Code: s.Code, Status: verification.StatusFailure, Description: message}); err != nil {
					return verification.Outcome{}, err
				}
				if err := onStep(verification.StepUpdate{Code: g.code, Status: verification.StatusFailure}); err != nil {
					return verification.Outcome{}, err
				}
				return verification.Outcome{
					Status:  verification.StatusFailure,
					Message: verification.FinalStep{Label: "Verification failed", Description: message},
				}, nil
			}

			if err := onStep(verification.StepUpdate{Code: s.Code, Status: verification.StatusSuccess}); err != nil {
				return verification.Outcome{}, err
			}
		}

		if err := onStep(verification.StepUpdate{Code: g.code, Status: verification.StatusSuccess}); err != nil {
			return verification.Outcome{}, err
		}
	}

	if r.anchor.Chain == mocknetChain {
		return verification.Outcome{Status: verification.StatusSuccess, Message: MockSuccessFinalStep}, nil
	}
	return verification.Outcome{Status: verification.StatusSuccess, Message: SuccessFinalStep}, nil
}

func (v *Verifier) check(ctx context.Context, code string, r *run) error {
	switch code {
	case StepGetTransactionID:
		return v.getTransactionID(r)
	case StepComputeLocalHash:
		return computeLocalHash(r)
	case StepFetchRemoteHash:
		return v.fetchRemoteHash(ctx, r)
	case StepGetIssuerProfile:
		return getIssuerProfile(r)
	case StepParseIssuerKeys:
		return v.parseIssuerKeys(r)
	case StepCompareHashes:
		return compareHashes(r)
	case StepCheckMerkleRoot:
		return checkMerkleRoot(r)
	case StepCheckReceipt:
		return checkReceipt(r)
	case StepCheckAuthenticity:
		return checkAuthenticity(ctx, r)
	case StepCheckRevokedStatus:
		return checkRevokedStatus(r)
	case StepCheckExpiresDate:
		return v.checkExpiresDate(r)
	}
	return fmt.Errorf("no check registered for step %s", code)
}

func (v *Verifier) getTransactionID(r *run) error {
	if r.doc.Signature == nil {
		return NewCheckFailedError("The certificate has no signature block.")
	}
	anchor, ok := r.doc.Anchor()
	if !ok || anchor.SourceID == "" {
		return NewCheckFailedError("Cannot verify this certificate without a transaction ID to compare against.")
	}
	chain, ok := LookupChain(anchor.Chain)
	if !ok {
		return NewCheckFailedError(fmt.Sprintf("The certificate is anchored to an unsupported chain: %s.", anchor.Chain))
	}
	if len(v.trustedChains) > 0 && !v.trustedChains[chain.Code] {
		return NewCheckFailedError(fmt.Sprintf("The certificate is anchored to %s which is not a trusted chain.", chain.Name))
	}
	if len(v.trustedChains) == 0 && chain.Code == mocknetChain && !v.allowMocknet {
		return NewCheckFailedError("Mocknet certificates are not recorded on a blockchain and are not accepted by this viewer.")
	}
	anchor.Chain = chain.Code
	r.anchor = anchor
	return nil
}

func computeLocalHash(r *run) error {
	canonical, err := crypto.CanonicalizeWithout(r.payload, "signature")
	if err != nil {
		return WrapCheckFailedError(err, "Failed to compute the local hash of the certificate.")
	}
	h, err := crypto.Hash(canonical)
	if err != nil {
		return WrapCheckFailedError(err, "Failed to compute the local hash of the certificate.")
	}
	r.localHash = h
	return nil
}

func (v *Verifier) fetchRemoteHash(ctx context.Context, r *run) error {
	if v.lookup == nil {
		return NewAnchorError("No transaction lookup is configured.")
	}
	root, err := v.lookup.MerkleRoot(ctx, r.anchor)
	if err != nil {
		return WrapAnchorError(err, "Unable to get the remote hash.")
	}
	r.remoteRoot = strings.ToLower(root)
	return nil
}

func getIssuerProfile(r *run) error {
	issuer := r.doc.Badge.Issuer
	if strings.TrimSpace(issuer.Name) == "" {
		return NewCheckFailedError("The issuer profile is missing or has no name.")
	}
	return nil
}

func (v *Verifier) parseIssuerKeys(r *run) error {
	if r.doc.Signature.IssuerSignature == "" {
		return NewCheckFailedError("The certificate has no issuer signature.")
	}
	header, err := crypto.ParseHeader(r.doc.Signature.IssuerSignature)
	if err != nil {
		return WrapCheckFailedError(err, "The issuer signature is malformed.")
	}
	if v.keys == nil {
		return NewIssuerKeyError("No issuer key source is configured.")
	}
	provider, err := v.keys.KeyProvider(r.doc.Badge.Issuer)
	if err != nil {
		return WrapIssuerKeyError(err, "Unable to parse the issuer keys.")
	}
	r.header = header
	r.provider = provider
	return nil
}

func compareHashes(r *run) error {
	if r.localHash != strings.ToLower(r.doc.Signature.TargetHash) {
		return NewCheckFailedError("Computed hash does not match remote hash")
	}
	return nil
}

func checkMerkleRoot(r *run) error {
	sig := r.doc.Signature
	ok, err := crypto.VerifyMerkleProof(sig.TargetHash, sig.Proof, sig.MerkleRoot)
	if err != nil {
		return WrapCheckFailedError(err, "The Merkle receipt is malformed.")
	}
	if !ok {
		return NewCheckFailedError("Invalid Merkle Receipt. Proof hash did not match Merkle root")
	}
	return nil
}

func checkReceipt(r *run) error {
	if r.remoteRoot != strings.ToLower(r.doc.Signature.MerkleRoot) {
		return NewCheckFailedError("Remote hash does not match verified Merkle root")
	}
	return nil
}

func checkAuthenticity(ctx context.Context, r *run) error {
	for _, kid := range r.doc.Badge.Issuer.RevokedKeys {
		if kid == r.header.KeyID {
			return NewCheckFailedError(fmt.Sprintf("The key used to sign this certificate (%s) has been revoked by the issuer.", kid))
		}
	}

	payload, err := crypto.VerifyWithKeyProvider(ctx, r.doc.Signature.IssuerSignature, r.provider)
	if err != nil {
		return WrapCheckFailedError(err, "The issuer signature could not be verified.")
	}
	if !strings.EqualFold(string(payload), r.doc.Signature.MerkleRoot) {
		return NewCheckFailedError("The issuer signature does not cover this Merkle root.")
	}
	return nil
}

func checkRevokedStatus(r *run) error {
	reason, revoked := r.doc.RevocationReason()
	if !revoked {
		return nil
	}
	if reason == "" {
		return NewCheckFailedError("This certificate has been revoked by the issuer.")
	}
	return NewCheckFailedError(fmt.Sprintf("This certificate has been revoked by the issuer. Reason given: %s", reason))
}

func (v *Verifier) checkExpiresDate(r *run) error {
	if r.doc.Expires == nil {
		return nil
	}
	if !v.now().Before(*r.doc.Expires) {
		return NewCheckFailedError(fmt.Sprintf("This certificate expired on %s.", r.doc.Expires.UTC().Format(time.DateOnly)))
	}
	return nil
}

// describe returns the user facing message of a check failure
func describe(err error) string {
	var bcErr *BlockcertsError
	if errors.As(err, &bcErr) {
		return bcErr.Message()
	}
	return err.Error()
}
