package blockcerts

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/certificate"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/crypto"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
)

var testIssuedOn = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testIssuer holds an issuer signing key
type testIssuer struct {
	privateKey ed25519.PrivateKey
	kid        string
	publicJWK  json.RawMessage
}

func newTestIssuer(t *testing.T) testIssuer {
	t.Helper()
	privateKey, err := crypto.GenerateEd25519KeyPair()
	if err != nil {
		t.Fatalf("could not create issuer key: %v", err)
	}
	publicKey := privateKey.Public().(ed25519.PublicKey)
	kid, err := crypto.KeyIDFromEd25519Key(publicKey)
	if err != nil {
		t.Fatalf("could not derive kid: %v", err)
	}
	key, err := crypto.Ed25519PublicKeyToJWK(publicKey, kid)
	if err != nil {
		t.Fatalf("could not create JWK: %v", err)
	}
	publicJWK, err := json.Marshal(key)
	if err != nil {
		t.Fatalf("could not marshal JWK: %v", err)
	}
	return testIssuer{privateKey: privateKey, kid: kid, publicJWK: publicJWK}
}

func (ti testIssuer) publicKey() ed25519.PublicKey {
	return ti.privateKey.Public().(ed25519.PublicKey)
}

// profile returns an issuer profile without keys: the key is pinned or served from a jwksUrl
func (ti testIssuer) profile() map[string]any {
	return map[string]any{
		"id":    "https://issuer.example.com/profile.json",
		"name":  "Example University",
		"image": "data:image/png;base64,aWNvbg==",
	}
}

func unsignedDocument(t *testing.T, id string, issuer map[string]any, mutate func(doc map[string]any)) []byte {
	t.Helper()
	doc := map[string]any{
		"@context": []string{"https://w3id.org/openbadges/v2", "https://w3id.org/blockcerts/v2"},
		"type":     "Assertion",
		"id":       id,
		"badge": map[string]any{
			"id":          "urn:uuid:82a4c9f2-3588-457b-80ea-da695571b8fc",
			"name":        "Certificate of Accomplishment",
			"description": "Awarded for completing the course",
			"issuer":      issuer,
		},
		"recipientProfile": map[string]any{"name": "Eularia Landroth"},
		"issuedOn":         testIssuedOn.Format(time.RFC3339),
	}
	if mutate != nil {
		mutate(doc)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("could not marshal document: %v", err)
	}
	return data
}

func (ti testIssuer) issue(t *testing.T, chain, transactionID string, docs ...[]byte) *IssuedBatch {
	t.Helper()
	batch, err := Issue(IssueRequest{
		Documents:     docs,
		PrivateKey:    ti.privateKey,
		KeyID:         ti.kid,
		Chain:         chain,
		TransactionID: transactionID,
	})
	if err != nil {
		t.Fatalf("Issue() returned error: %v", err)
	}
	return batch
}

func definitionOf(t *testing.T, data []byte) *certificate.Definition {
	t.Helper()
	def, err := certificate.ParseDefinition(data)
	if err != nil {
		t.Fatalf("ParseDefinition() returned error: %v", err)
	}
	return def
}

// newTestKeyManager returns a key manager with the keys of the given issuers pinned
func newTestKeyManager(t *testing.T, pinned ...testIssuer) *IssuerKeyManager {
	t.Helper()
	km, err := NewIssuerKeyManager(context.Background(), &KeyManagerConfig{
		HTTPTimeout:  5 * time.Second,
		SkipJWKCache: true,
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewIssuerKeyManager() returned error: %v", err)
	}
	for _, ti := range pinned {
		if err := km.Pin(ti.kid, ti.publicKey()); err != nil {
			t.Fatalf("Pin() returned error: %v", err)
		}
	}
	return km
}

// newMocknetVerifier accepts mocknet anchors and trusts the pinned issuers
func newMocknetVerifier(t *testing.T, pinned ...testIssuer) *Verifier {
	t.Helper()
	return NewVerifier(NewChainRouter(nil), newTestKeyManager(t, pinned...), WithMocknet(true))
}

// issueOnLedger signs the documents as a bitcoin batch and records the anchor in a ledger
func (ti testIssuer) issueOnLedger(t *testing.T, docs ...[]byte) (*IssuedBatch, *StaticLedger) {
	t.Helper()
	batch := ti.issue(t, "bitcoin", "2378076e8e140012814e98a2b2cb1af07ec760b239c1d6d93ba54d658a010ecd", docs...)
	ledger := NewStaticLedger()
	ledger.Record("bitcoin", batch.TransactionID, batch.MerkleRoot)
	return batch, ledger
}

// stepRecorder collects the updates reported by the verifier
type stepRecorder struct {
	updates []verification.StepUpdate
	queue   *verification.Queue
}

func newStepRecorder(t *testing.T) *stepRecorder {
	t.Helper()
	q := verification.NewQueue()
	if err := q.Initialize(StepPlan()); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	return &stepRecorder{queue: q}
}

func (r *stepRecorder) onStep(update verification.StepUpdate) error {
	r.updates = append(r.updates, update)
	_, err := r.queue.UpdateStepStatus(update.Code, update.Status, update.Options()...)
	return err
}

func (r *stepRecorder) status(code string) verification.Status {
	s, _ := r.queue.Step(code)
	return s.Status
}
