package verification

import (
	"testing"
)

func testTemplates() []StepTemplate {
	return []StepTemplate{
		{Code: "formatValidation", Label: "Format validation"},
		{Code: "getTransactionId", Label: "Getting transaction ID", ParentStep: "formatValidation"},
		{Code: "computeLocalHash", Label: "Computing local hash", ParentStep: "formatValidation"},
		{Code: "hashComparison", Label: "Hash comparison"},
		{Code: "compareHashes", Label: "Comparing hashes", ParentStep: "hashComparison"},
	}
}

func codes(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Code
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestQueue_Initialize(t *testing.T) {
	q := NewQueue()
	if err := q.Initialize(testTemplates()); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	steps := q.OrderedSteps()
	if len(steps) != 5 {
		t.Fatalf("expected 5 steps, got %d", len(steps))
	}
	for _, s := range steps {
		if s.Status != StatusNotStarted {
			t.Errorf("step %s: expected NOT_STARTED, got %s", s.Code, s.Status)
		}
	}
}

func TestQueue_InitializeDuplicateCode(t *testing.T) {
	q := NewQueue()
	if err := q.Initialize(testTemplates()); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	templates := []StepTemplate{{Code: "a"}, {Code: "b"}, {Code: "a"}}
	err := q.Initialize(templates)
	if !HasCode(err, ErrCodeDuplicateStepCode) {
		t.Fatalf("expected DUPLICATE_STEP_CODE, got %v", err)
	}

	// the previous plan must survive a failed initialize
	if q.Len() != 5 {
		t.Errorf("queue was modified by failed Initialize: %d steps", q.Len())
	}
}

func TestQueue_InitializeReplacesWholesale(t *testing.T) {
	q := NewQueue()
	if err := q.Initialize(testTemplates()); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if _, err := q.UpdateStepStatus("compareHashes", StatusSuccess); err != nil {
		t.Fatalf("UpdateStepStatus() returned error: %v", err)
	}

	if err := q.Initialize([]StepTemplate{{Code: "other"}}); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if _, ok := q.Step("compareHashes"); ok {
		t.Error("step from the previous plan is still present")
	}
	if got := codes(q.OrderedSteps()); !equalStrings(got, []string{"other"}) {
		t.Errorf("unexpected steps %v", got)
	}
}

func TestQueue_UpdatePreservesOrder(t *testing.T) {
	q := NewQueue()
	if err := q.Initialize(testTemplates()); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	want := codes(q.OrderedSteps())

	// update in an order unrelated to the insertion order
	updates := []string{"compareHashes", "formatValidation", "computeLocalHash", "hashComparison", "getTransactionId"}
	for _, code := range updates {
		steps, err := q.UpdateStepStatus(code, StatusStarted)
		if err != nil {
			t.Fatalf("UpdateStepStatus(%s) returned error: %v", code, err)
		}
		if got := codes(steps); !equalStrings(got, want) {
			t.Fatalf("order changed after updating %s: got %v, want %v", code, got, want)
		}
	}
	for _, code := range []string{"hashComparison", "getTransactionId", "compareHashes"} {
		if _, err := q.UpdateStepStatus(code, StatusSuccess); err != nil {
			t.Fatalf("UpdateStepStatus(%s) returned error: %v", code, err)
		}
	}
	if got := codes(q.OrderedSteps()); !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestQueue_UpdateUnknownCode(t *testing.T) {
	q := NewQueue()
	if err := q.Initialize(testTemplates()); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	before := q.OrderedSteps()

	_, err := q.UpdateStepStatus("doesNotExist", StatusSuccess)
	if !HasCode(err, ErrCodeUnknownStepCode) {
		t.Fatalf("expected UNKNOWN_STEP_CODE, got %v", err)
	}

	after := q.OrderedSteps()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("step %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestQueue_UpdateWithText(t *testing.T) {
	q := NewQueue()
	if err := q.Initialize(testTemplates()); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	// placeholders are passed through unmodified
	description := "This is a valid ${chain} certificate."
	if _, err := q.UpdateStepStatus("compareHashes", StatusSuccess,
		WithDescription(description), WithLinkText("View transaction link")); err != nil {
		t.Fatalf("UpdateStepStatus() returned error: %v", err)
	}

	step, ok := q.Step("compareHashes")
	if !ok {
		t.Fatal("step not found")
	}
	if step.Description != description {
		t.Errorf("Description = %q, want %q", step.Description, description)
	}
	if step.LinkText != "View transaction link" {
		t.Errorf("LinkText = %q", step.LinkText)
	}
	if step.Label != "Comparing hashes" {
		t.Errorf("Label should be unchanged, got %q", step.Label)
	}
}

// finished steps must not regress within a run
func TestQueue_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []Status
		wantErr bool
	}{
		{"start then succeed", []Status{StatusStarted, StatusSuccess}, false},
		{"direct failure", []Status{StatusFailure}, false},
		{"success re-reported", []Status{StatusSuccess, StatusSuccess}, false},
		{"success back to started", []Status{StatusSuccess, StatusStarted}, true},
		{"failure to success", []Status{StatusFailure, StatusSuccess}, true},
		{"started back to not started", []Status{StatusStarted, StatusNotStarted}, true},
		{"unknown status", []Status{Status("PAUSED")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue()
			if err := q.Initialize(testTemplates()); err != nil {
				t.Fatalf("Initialize() returned error: %v", err)
			}

			var err error
			for _, s := range tt.path {
				if _, err = q.UpdateStepStatus("computeLocalHash", s); err != nil {
					break
				}
			}
			if tt.wantErr && !HasCode(err, ErrCodeInvalidTransition) {
				t.Errorf("expected INVALID_STEP_TRANSITION, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestQueue_Children(t *testing.T) {
	q := NewQueue()
	if err := q.Initialize(testTemplates()); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	got := codes(q.Children("formatValidation"))
	want := []string{"getTransactionId", "computeLocalHash"}
	if !equalStrings(got, want) {
		t.Errorf("Children() = %v, want %v", got, want)
	}
	if len(q.Children("computeLocalHash")) != 0 {
		t.Error("leaf step should have no children")
	}
	if len(q.Children("")) != 0 {
		t.Error("top level steps must not be reported as children of the empty code")
	}
}

func TestQueue_OrderedStepsIsACopy(t *testing.T) {
	q := NewQueue()
	if err := q.Initialize(testTemplates()); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	steps := q.OrderedSteps()
	steps[0].Status = StatusFailure

	step, _ := q.Step(steps[0].Code)
	if step.Status != StatusNotStarted {
		t.Error("mutating the snapshot changed the queue")
	}
}

func TestAllSucceeded(t *testing.T) {
	if AllSucceeded(nil) {
		t.Error("empty step list should not count as success")
	}
	steps := []Step{{Code: "a", Status: StatusSuccess}, {Code: "b", Status: StatusNotStarted}}
	if AllSucceeded(steps) {
		t.Error("expected false with a NOT_STARTED step")
	}
	steps[1].Status = StatusSuccess
	if !AllSucceeded(steps) {
		t.Error("expected true")
	}
}
