package verification

// Step is one atomic check of a verification run.
//
// ParentStep holds the code of the containing step (if any). Children are never stored on
// the parent; use ChildrenOf or Queue.Children to find them.
type Step struct {
	Code        string `json:"code"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	LinkText    string `json:"linkText,omitempty"`
	Status      Status `json:"status"`
	ParentStep  string `json:"parentStep,omitempty"`
}

// StepTemplate is the planned form of a step, as declared by a verifier before the run starts.
type StepTemplate struct {
	Code        string
	Label       string
	Description string
	ParentStep  string
}

// StepUpdate is a single status transition reported by a verifier.
//
// Label, Description and LinkText are optional: empty values leave the step text unchanged.
type StepUpdate struct {
	Code        string `json:"code"`
	Status      Status `json:"status"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	LinkText    string `json:"linkText,omitempty"`
}

// Options converts the optional text of the update into queue update options.
func (u StepUpdate) Options() []UpdateOption {
	var opts []UpdateOption
	if u.Label != "" {
		opts = append(opts, WithLabel(u.Label))
	}
	if u.Description != "" {
		opts = append(opts, WithDescription(u.Description))
	}
	if u.LinkText != "" {
		opts = append(opts, WithLinkText(u.LinkText))
	}
	return opts
}

// FinalStep is the human facing verdict shown once a run has completed.
type FinalStep struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	LinkText    string `json:"linkText"`
}

// Outcome is the terminal result reported by a verifier.
type Outcome struct {
	Status  Status
	Message FinalStep
}

// Result is the outcome of a run as committed to the certificate store.
type Result struct {
	Status    Status    `json:"status"`
	FinalStep FinalStep `json:"finalStep"`
}

// ChildrenOf returns the steps whose ParentStep is code, in their original order.
func ChildrenOf(steps []Step, code string) []Step {
	var children []Step
	for _, s := range steps {
		if s.ParentStep != "" && s.ParentStep == code {
			children = append(children, s)
		}
	}
	return children
}

// AllSucceeded reports whether every step resolved to SUCCESS.
// An empty slice is not considered successful.
func AllSucceeded(steps []Step) bool {
	if len(steps) == 0 {
		return false
	}
	for _, s := range steps {
		if !s.Status.IsSuccess() {
			return false
		}
	}
	return true
}
