package certificate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/events"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
)

func TestVerifyCertificate_SetsStartedBeforeAnyStep(t *testing.T) {
	verifier := newStubVerifier()
	sc := &scenario{
		plan:    testPlan(),
		updates: validUpdates(),
		outcome: verification.Outcome{Status: verification.StatusSuccess, Message: validFinalStep},
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	verifier.set(validCertificateID, sc)
	store := newTestStore(t, verifier, validCertificateID)

	done := make(chan verification.Result, 1)
	go func() {
		result, err := store.VerifyCertificate(context.Background())
		if err != nil {
			t.Errorf("VerifyCertificate() returned error: %v", err)
		}
		done <- result
	}()

	<-sc.entered
	state := store.State()
	if got := VerificationStatus(state); got != verification.StatusStarted {
		t.Errorf("status while the verifier runs = %s, want STARTED", got)
	}
	assertSteps(t, VerifiedSteps(state), initialStepsAssertions())
	if _, ok := FinalStep(state); ok {
		t.Error("final step should not be available while the run is in progress")
	}

	close(sc.release)
	result := <-done

	if result.Status != verification.StatusSuccess {
		t.Errorf("result status = %s, want SUCCESS", result.Status)
	}
}

func TestVerifyCertificate_EmitsVerifyEventOnce(t *testing.T) {
	store := newTestStore(t, newStubVerifier(), validCertificateID)

	var ids []string
	sub, err := store.Bus().Subscribe(events.CertificateVerify, func(e events.Event) {
		ids = append(ids, e.Detail.CertificateID)
	})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Bus().Unsubscribe(sub)

	if _, err := store.VerifyCertificate(context.Background()); err != nil {
		t.Fatalf("VerifyCertificate() returned error: %v", err)
	}

	// add failsafe, if the listener is never called the test would be a false positive
	if len(ids) != 1 {
		t.Fatalf("certificate-verify fired %d times, want 1", len(ids))
	}
	if ids[0] != validCertificateID {
		t.Errorf("certificate id = %s, want %s", ids[0], validCertificateID)
	}
}

func TestVerifyCertificate_ValidCertificate(t *testing.T) {
	store := newTestStore(t, newStubVerifier(), validCertificateID)

	if _, err := store.VerifyCertificate(context.Background()); err != nil {
		t.Fatalf("VerifyCertificate() returned error: %v", err)
	}
	state := store.State()

	if got := VerificationStatus(state); got != verification.StatusSuccess {
		t.Errorf("status = %s, want SUCCESS", got)
	}
	finalStep, ok := FinalStep(state)
	if !ok {
		t.Fatal("final step not set")
	}
	if finalStep != validFinalStep {
		t.Errorf("final step = %+v, want %+v", finalStep, validFinalStep)
	}
	assertSteps(t, VerifiedSteps(state), validStepsAssertions())
}

func TestVerifyCertificate_InvalidCertificate(t *testing.T) {
	store := newTestStore(t, newStubVerifier(), invalidCertificateID)

	result, err := store.VerifyCertificate(context.Background())
	if err != nil {
		t.Fatalf("VerifyCertificate() returned error: %v", err)
	}
	if result.Status != verification.StatusFailure {
		t.Errorf("result status = %s, want FAILURE", result.Status)
	}

	state := store.State()
	assertSteps(t, VerifiedSteps(state), invalidStepsAssertions())
	if got := VerificationStatus(state); got != verification.StatusFailure {
		t.Errorf("status = %s, want FAILURE", got)
	}
}

func TestVerifyCertificate_StepEventsFollowVerifierOrder(t *testing.T) {
	store := newTestStore(t, newStubVerifier(), validCertificateID)

	var got []verification.StepUpdate
	sub, err := store.Bus().Subscribe(events.CertificateVerifyStep, func(e events.Event) {
		got = append(got, verification.StepUpdate{Code: e.Detail.Step.Code, Status: e.Detail.Step.Status})
	})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Bus().Unsubscribe(sub)

	var verified []events.Event
	verifiedSub, err := store.Bus().Subscribe(events.CertificateVerified, func(e events.Event) {
		verified = append(verified, e)
	})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Bus().Unsubscribe(verifiedSub)

	if _, err := store.VerifyCertificate(context.Background()); err != nil {
		t.Fatalf("VerifyCertificate() returned error: %v", err)
	}

	want := validUpdates()
	if len(got) != len(want) {
		t.Fatalf("got %d step events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Code != want[i].Code || got[i].Status != want[i].Status {
			t.Errorf("event %d = %+v, want %s %s", i, got[i], want[i].Code, want[i].Status)
		}
	}

	if len(verified) != 1 {
		t.Fatalf("certificate-verified fired %d times, want 1", len(verified))
	}
	if verified[0].Detail.Result == nil || verified[0].Detail.Result.Status != verification.StatusSuccess {
		t.Errorf("unexpected verified detail %+v", verified[0].Detail)
	}
}

func TestVerifyCertificate_SecondCertificateReplacesSteps(t *testing.T) {
	verifier := newStubVerifier()
	otherPlan := []verification.StepTemplate{
		{Code: "proofVerification", Label: "Proof verification"},
		{Code: "checkSignature", Label: "Checking signature", ParentStep: "proofVerification"},
	}
	verifier.set(invalidCertificateID, &scenario{
		plan: otherPlan,
		updates: []verification.StepUpdate{
			{Code: "proofVerification", Status: verification.StatusStarted},
			{Code: "checkSignature", Status: verification.StatusFailure},
			{Code: "proofVerification", Status: verification.StatusFailure},
		},
		outcome: verification.Outcome{Status: verification.StatusFailure, Message: verification.FinalStep{Label: "Verification failed", Description: "bad signature"}},
	})
	store := newTestStore(t, verifier, validCertificateID)

	if _, err := store.VerifyCertificate(context.Background()); err != nil {
		t.Fatalf("VerifyCertificate() returned error: %v", err)
	}

	if err := store.UpdateCertificateDefinition(context.Background(), mustDefinition(t, invalidCertificateID)); err != nil {
		t.Fatalf("UpdateCertificateDefinition() returned error: %v", err)
	}

	// loading resets the run
	state := store.State()
	if got := VerificationStatus(state); got != verification.StatusNotStarted {
		t.Errorf("status after reload = %s, want NOT_STARTED", got)
	}
	if _, ok := FinalStep(state); ok {
		t.Error("final step of the previous certificate survived the reload")
	}

	if _, err := store.VerifyCertificate(context.Background()); err != nil {
		t.Fatalf("VerifyCertificate() returned error: %v", err)
	}

	steps := VerifiedSteps(store.State())
	want := []StepView{
		{Code: "proofVerification", Label: "Proof verification", Status: verification.StatusFailure},
		{Code: "checkSignature", Label: "Checking signature", Status: verification.StatusFailure},
	}
	assertSteps(t, steps, want)
	if CertificateID(store.State()) != invalidCertificateID {
		t.Errorf("CertificateID() = %s", CertificateID(store.State()))
	}
}

func TestVerifyCertificate_Disabled(t *testing.T) {
	store := NewStore(Options{DisableVerify: true}, newStubVerifier(), events.NewBus(nil), nil)
	if err := store.UpdateCertificateDefinition(context.Background(), mustDefinition(t, validCertificateID)); err != nil {
		t.Fatalf("UpdateCertificateDefinition() returned error: %v", err)
	}

	fired := false
	sub, err := store.Bus().Subscribe(events.CertificateVerify, func(events.Event) { fired = true })
	if err != nil {
		t.Fatal(err)
	}
	defer store.Bus().Unsubscribe(sub)

	result, err := store.VerifyCertificate(context.Background())
	if err != nil {
		t.Fatalf("VerifyCertificate() returned error: %v", err)
	}
	store.Wait()

	if result != (verification.Result{}) {
		t.Errorf("expected zero result, got %+v", result)
	}
	state := store.State()
	assertSteps(t, VerifiedSteps(state), initialStepsAssertions())
	if got := VerificationStatus(state); got != verification.StatusNotStarted {
		t.Errorf("status = %s, want NOT_STARTED", got)
	}
	if fired {
		t.Error("certificate-verify fired while verification is disabled")
	}
}

func TestVerifyCertificate_NoCertificateLoaded(t *testing.T) {
	store := NewStore(Options{}, newStubVerifier(), nil, nil)

	_, err := store.VerifyCertificate(context.Background())
	if !verification.HasCode(err, verification.ErrCodeNoCertificate) {
		t.Fatalf("expected NO_CERTIFICATE, got %v", err)
	}
	if got := VerificationStatus(store.State()); got != verification.StatusNotStarted {
		t.Errorf("status = %s, want NOT_STARTED", got)
	}
}

func TestVerifyCertificate_VerifierFailuresSettle(t *testing.T) {
	tests := []struct {
		name string
		sc   *scenario
		want verification.FinalStep
	}{
		{
			name: "verifier returns error",
			sc:   &scenario{plan: testPlan(), err: errors.New("network unreachable")},
			want: InternalErrorFinalStep,
		},
		{
			name: "verifier panics",
			sc:   &scenario{plan: testPlan(), panicValue: "unexpected nil"},
			want: InternalErrorFinalStep,
		},
		{
			name: "verifier reports an unknown step",
			sc: &scenario{
				plan:    testPlan(),
				updates: []verification.StepUpdate{{Code: "notPlanned", Status: verification.StatusStarted}},
				outcome: verification.Outcome{Status: verification.StatusSuccess, Message: validFinalStep},
			},
			want: InternalErrorFinalStep,
		},
		{
			name: "verifier reports success with a failed step",
			sc: &scenario{
				plan: testPlan(),
				updates: []verification.StepUpdate{
					{Code: "formatValidation", Status: verification.StatusFailure},
				},
				outcome: verification.Outcome{Status: verification.StatusSuccess, Message: validFinalStep},
			},
			want: IncompleteFinalStep,
		},
		{
			name: "verifier reports success without running every step",
			sc: &scenario{
				plan:    testPlan(),
				updates: groupUpdates("formatValidation", []string{"getTransactionId", "computeLocalHash"}, ""),
				outcome: verification.Outcome{Status: verification.StatusSuccess, Message: validFinalStep},
			},
			want: IncompleteFinalStep,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := newStubVerifier()
			verifier.set(validCertificateID, tt.sc)
			store := newTestStore(t, verifier, validCertificateID)

			result, err := store.VerifyCertificate(context.Background())
			if err != nil {
				t.Fatalf("VerifyCertificate() returned error: %v", err)
			}
			if result.Status != verification.StatusFailure {
				t.Errorf("result status = %s, want FAILURE", result.Status)
			}

			state := store.State()
			if got := VerificationStatus(state); got != verification.StatusFailure {
				t.Errorf("status = %s, want FAILURE", got)
			}
			finalStep, ok := FinalStep(state)
			if !ok {
				t.Fatal("final step not set")
			}
			if finalStep != tt.want {
				t.Errorf("final step = %+v, want %+v", finalStep, tt.want)
			}
		})
	}
}

func TestVerifyCertificate_SupersededRunIsDropped(t *testing.T) {
	verifier := newStubVerifier()
	slow := &scenario{
		plan:    testPlan(),
		updates: validUpdates(),
		outcome: verification.Outcome{Status: verification.StatusSuccess, Message: validFinalStep},
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	verifier.set(validCertificateID, slow)
	store := newTestStore(t, verifier, validCertificateID)

	var staleVerified int
	sub, err := store.Bus().Subscribe(events.CertificateVerified, func(e events.Event) {
		if e.Detail.CertificateID == validCertificateID {
			staleVerified++
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Bus().Unsubscribe(sub)

	firstRun := make(chan verification.Result, 1)
	go func() {
		result, err := store.VerifyCertificate(context.Background())
		if err != nil {
			t.Errorf("first VerifyCertificate() returned error: %v", err)
		}
		firstRun <- result
	}()
	<-slow.entered

	// load certificate B while A is still being verified
	if err := store.UpdateCertificateDefinition(context.Background(), mustDefinition(t, invalidCertificateID)); err != nil {
		t.Fatalf("UpdateCertificateDefinition() returned error: %v", err)
	}
	if _, err := store.VerifyCertificate(context.Background()); err != nil {
		t.Fatalf("VerifyCertificate() returned error: %v", err)
	}

	close(slow.release)
	if result := <-firstRun; result != (verification.Result{}) {
		t.Errorf("superseded run returned %+v, want zero result", result)
	}

	state := store.State()
	assertSteps(t, VerifiedSteps(state), invalidStepsAssertions())
	if got := VerificationStatus(state); got != verification.StatusFailure {
		t.Errorf("status = %s, want FAILURE of certificate B", got)
	}
	if CertificateID(state) != invalidCertificateID {
		t.Errorf("CertificateID() = %s", CertificateID(state))
	}
	if staleVerified != 0 {
		t.Errorf("superseded run published certificate-verified %d times", staleVerified)
	}
}

func TestUpdateCertificateDefinition_AutoVerify(t *testing.T) {
	verifier := newStubVerifier()
	store := NewStore(Options{}, verifier, events.NewBus(nil), nil)

	if err := store.UpdateCertificateDefinition(context.Background(), mustDefinition(t, validCertificateID)); err != nil {
		t.Fatalf("UpdateCertificateDefinition() returned error: %v", err)
	}
	store.Wait()

	state := store.State()
	if got := VerificationStatus(state); got != verification.StatusSuccess {
		t.Errorf("status = %s, want SUCCESS", got)
	}
	if verifier.calls != 1 {
		t.Errorf("verifier called %d times, want 1", verifier.calls)
	}
}

func TestUpdateCertificateDefinition_SupersededAutoVerify(t *testing.T) {
	for i := 0; i < 20; i++ {
		verifier := newStubVerifier()
		store := NewStore(Options{}, verifier, events.NewBus(nil), nil)

		var mu sync.Mutex
		verifyEvents := make(map[string]int)
		if _, err := store.Bus().Subscribe(events.CertificateVerify, func(e events.Event) {
			mu.Lock()
			defer mu.Unlock()
			verifyEvents[e.Detail.CertificateID]++
		}); err != nil {
			t.Fatal(err)
		}

		// load A then B: A's automatic run must not verify B
		if err := store.UpdateCertificateDefinition(context.Background(), mustDefinition(t, validCertificateID)); err != nil {
			t.Fatalf("UpdateCertificateDefinition(A) returned error: %v", err)
		}
		if err := store.UpdateCertificateDefinition(context.Background(), mustDefinition(t, invalidCertificateID)); err != nil {
			t.Fatalf("UpdateCertificateDefinition(B) returned error: %v", err)
		}
		store.Wait()

		if got := verifier.callsFor(invalidCertificateID); got != 1 {
			t.Fatalf("iteration %d: certificate B verified %d times, want 1", i, got)
		}
		if got := verifier.callsFor(validCertificateID); got > 1 {
			t.Fatalf("iteration %d: certificate A verified %d times", i, got)
		}
		mu.Lock()
		gotEvents := verifyEvents[invalidCertificateID]
		mu.Unlock()
		if gotEvents != 1 {
			t.Fatalf("iteration %d: certificate-verify fired %d times for B, want 1", i, gotEvents)
		}

		state := store.State()
		if CertificateID(state) != invalidCertificateID || VerificationStatus(state) != verification.StatusFailure {
			t.Fatalf("iteration %d: state = %s %s, want B FAILURE", i, CertificateID(state), VerificationStatus(state))
		}
		assertSteps(t, VerifiedSteps(state), invalidStepsAssertions())
	}
}

func TestVerifyCertificate_ConcurrentRunsPublishInRunOrder(t *testing.T) {
	store := newTestStore(t, newStubVerifier(), validCertificateID)

	var (
		mu       sync.Mutex
		received []events.Event
	)
	subs, err := store.Bus().SubscribeAll(func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
	})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Bus().Unsubscribe(subs...)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.VerifyCertificate(context.Background()); err != nil {
				t.Errorf("VerifyCertificate() returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()

	var latest uint64
	var verifyEvents, verifiedEvents int
	for i, e := range received {
		gen := e.Detail.RunGeneration
		if gen < latest {
			t.Fatalf("event %d (%s) of run %d published after run %d started", i, e.Name, gen, latest)
		}
		switch e.Name {
		case events.CertificateVerify:
			verifyEvents++
			latest = gen
		case events.CertificateVerified:
			verifiedEvents++
		}
	}
	if verifyEvents != 20 {
		t.Errorf("certificate-verify fired %d times, want 20", verifyEvents)
	}
	if verifiedEvents < 1 {
		t.Error("no run completed")
	}

	// the run that started last is the one committed
	if got := store.State().Generation; got != latest {
		t.Errorf("committed generation = %d, want %d", got, latest)
	}
	if got := VerificationStatus(store.State()); got != verification.StatusSuccess {
		t.Errorf("status = %s, want SUCCESS", got)
	}
}

func TestUpdateCertificateDefinition_PlanErrors(t *testing.T) {
	tests := []struct {
		name     string
		sc       *scenario
		wantCode verification.ErrorCode
	}{
		{"plan error", &scenario{planErr: errors.New("unsupported certificate version")}, verification.ErrCodeInvalidDefinition},
		{"duplicate code", &scenario{plan: []verification.StepTemplate{{Code: "a"}, {Code: "a"}}}, verification.ErrCodeDuplicateStepCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := newStubVerifier()
			verifier.set("urn:uuid:broken", tt.sc)
			store := newTestStore(t, verifier, validCertificateID)

			err := store.UpdateCertificateDefinition(context.Background(), mustDefinition(t, "urn:uuid:broken"))
			if !verification.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}

			// the previously loaded certificate is untouched
			if CertificateID(store.State()) != validCertificateID {
				t.Errorf("CertificateID() = %s, want %s", CertificateID(store.State()), validCertificateID)
			}
		})
	}
}

func TestUpdateCertificateDefinition_Nil(t *testing.T) {
	store := NewStore(Options{}, newStubVerifier(), nil, nil)
	err := store.UpdateCertificateDefinition(context.Background(), nil)
	if !verification.HasCode(err, verification.ErrCodeInvalidDefinition) {
		t.Fatalf("expected INVALID_DEFINITION, got %v", err)
	}
}

func TestStore_GenerationAdvances(t *testing.T) {
	store := newTestStore(t, newStubVerifier(), validCertificateID)
	loaded := store.Generation()

	if _, err := store.VerifyCertificate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.Generation() <= loaded {
		t.Errorf("generation did not advance: %d -> %d", loaded, store.Generation())
	}
}
