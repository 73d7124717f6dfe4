package certificate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/events"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
)

const (
	validCertificateID   = "urn:uuid:bbba8553-8ec1-445f-82c9-a57251dd731c"
	invalidCertificateID = "urn:uuid:ab569127-34bb-5784-bced-00b7e0e82ac9"
)

var validFinalStep = verification.FinalStep{
	Label:       "Verified",
	Description: "This is a valid ${chain} certificate.",
	LinkText:    "View transaction link",
}

// testPlan mirrors the grouped plan of a Blockcerts verifier
func testPlan() []verification.StepTemplate {
	return []verification.StepTemplate{
		{Code: "formatValidation", Label: "Format validation"},
		{Code: "getTransactionId", Label: "Getting transaction ID", ParentStep: "formatValidation"},
		{Code: "computeLocalHash", Label: "Computing local hash", ParentStep: "formatValidation"},
		{Code: "hashComparison", Label: "Hash comparison"},
		{Code: "compareHashes", Label: "Comparing hashes", ParentStep: "hashComparison"},
		{Code: "checkMerkleRoot", Label: "Checking Merkle root", ParentStep: "hashComparison"},
		{Code: "statusCheck", Label: "Status check"},
		{Code: "checkRevokedStatus", Label: "Checking revoked status", ParentStep: "statusCheck"},
	}
}

// groupUpdates reports a whole group: parent started, each child started then finished, parent finished.
func groupUpdates(parent string, children []string, failAt string) []verification.StepUpdate {
	updates := []verification.StepUpdate{{Code: parent, Status: verification.StatusStarted}}
	for _, child := range children {
		updates = append(updates, verification.StepUpdate{Code: child, Status: verification.StatusStarted})
		if child == failAt {
			updates = append(updates,
				verification.StepUpdate{Code: child, Status: verification.StatusFailure, Description: "Computed hash does not match remote hash"},
				verification.StepUpdate{Code: parent, Status: verification.StatusFailure},
			)
			return updates
		}
		updates = append(updates, verification.StepUpdate{Code: child, Status: verification.StatusSuccess})
	}
	return append(updates, verification.StepUpdate{Code: parent, Status: verification.StatusSuccess})
}

func validUpdates() []verification.StepUpdate {
	var updates []verification.StepUpdate
	updates = append(updates, groupUpdates("formatValidation", []string{"getTransactionId", "computeLocalHash"}, "")...)
	updates = append(updates, groupUpdates("hashComparison", []string{"compareHashes", "checkMerkleRoot"}, "")...)
	updates = append(updates, groupUpdates("statusCheck", []string{"checkRevokedStatus"}, "")...)
	return updates
}

func invalidUpdates() []verification.StepUpdate {
	var updates []verification.StepUpdate
	updates = append(updates, groupUpdates("formatValidation", []string{"getTransactionId", "computeLocalHash"}, "")...)
	updates = append(updates, groupUpdates("hashComparison", []string{"compareHashes", "checkMerkleRoot"}, "compareHashes")...)
	return updates
}

func initialStepsAssertions() []StepView {
	var views []StepView
	for _, t := range testPlan() {
		views = append(views, StepView{Code: t.Code, Label: t.Label, Status: verification.StatusNotStarted})
	}
	return views
}

func validStepsAssertions() []StepView {
	views := initialStepsAssertions()
	for i := range views {
		views[i].Status = verification.StatusSuccess
	}
	return views
}

func invalidStepsAssertions() []StepView {
	views := initialStepsAssertions()
	status := map[string]verification.Status{
		"formatValidation": verification.StatusSuccess,
		"getTransactionId": verification.StatusSuccess,
		"computeLocalHash": verification.StatusSuccess,
		"hashComparison":   verification.StatusFailure,
		"compareHashes":    verification.StatusFailure,
	}
	for i := range views {
		if s, ok := status[views[i].Code]; ok {
			views[i].Status = s
		}
		if views[i].Code == "compareHashes" {
			views[i].Description = "Computed hash does not match remote hash"
		}
	}
	return views
}

// scenario describes how the stub verifier behaves for one certificate id
type scenario struct {
	plan       []verification.StepTemplate
	planErr    error
	updates    []verification.StepUpdate
	outcome    verification.Outcome
	err        error
	panicValue any

	// when release is set Verify signals entered and then blocks until release is closed
	entered chan struct{}
	release chan struct{}
}

// stubVerifier plays back canned step updates, the way a stubbed certificate verifier would
type stubVerifier struct {
	mu        sync.Mutex
	scenarios map[string]*scenario
	calls     int
	callsByID map[string]int
}

func newStubVerifier() *stubVerifier {
	return &stubVerifier{callsByID: make(map[string]int), scenarios: map[string]*scenario{
		validCertificateID: {
			plan:    testPlan(),
			updates: validUpdates(),
			outcome: verification.Outcome{Status: verification.StatusSuccess, Message: validFinalStep},
		},
		invalidCertificateID: {
			plan:    testPlan(),
			updates: invalidUpdates(),
			outcome: verification.Outcome{
				Status:  verification.StatusFailure,
				Message: verification.FinalStep{Label: "Verification failed", Description: "Computed hash does not match remote hash"},
			},
		},
	}}
}

func (v *stubVerifier) set(id string, sc *scenario) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scenarios[id] = sc
}

func (v *stubVerifier) callsFor(id string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.callsByID[id]
}

func (v *stubVerifier) scenario(id string) (*scenario, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	sc, ok := v.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("no scenario for %s", id)
	}
	return sc, nil
}

func (v *stubVerifier) Plan(def *Definition) ([]verification.StepTemplate, error) {
	sc, err := v.scenario(def.ID)
	if err != nil {
		return nil, err
	}
	if sc.planErr != nil {
		return nil, sc.planErr
	}
	return sc.plan, nil
}

func (v *stubVerifier) Verify(ctx context.Context, def *Definition, onStep StepCallback) (verification.Outcome, error) {
	v.mu.Lock()
	v.calls++
	v.callsByID[def.ID]++
	v.mu.Unlock()

	sc, err := v.scenario(def.ID)
	if err != nil {
		return verification.Outcome{}, err
	}
	if sc.release != nil {
		sc.entered <- struct{}{}
		<-sc.release
	}
	if sc.panicValue != nil {
		panic(sc.panicValue)
	}
	for _, u := range sc.updates {
		if err := onStep(u); err != nil {
			return verification.Outcome{}, err
		}
	}
	return sc.outcome, sc.err
}

func mustDefinition(t *testing.T, id string) *Definition {
	t.Helper()
	data, err := json.Marshal(map[string]any{"id": id, "badge": map[string]any{"name": "test"}})
	if err != nil {
		t.Fatalf("failed to marshal certificate: %v", err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		t.Fatalf("ParseDefinition() returned error: %v", err)
	}
	return def
}

// newTestStore returns a store with auto verification disabled and the certificate loaded
func newTestStore(t *testing.T, verifier Verifier, id string) *Store {
	t.Helper()
	store := NewStore(Options{DisableAutoVerify: true}, verifier, events.NewBus(nil), nil)
	if err := store.UpdateCertificateDefinition(context.Background(), mustDefinition(t, id)); err != nil {
		t.Fatalf("UpdateCertificateDefinition() returned error: %v", err)
	}
	return store
}

func assertSteps(t *testing.T, got, want []StepView) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d steps, want %d\ngot:  %+v\nwant: %+v", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d:\ngot:  %+v\nwant: %+v", i, got[i], want[i])
		}
	}
}
