package certificate

import "github.com/information-sharing-networks/blockcerts-viewer/internal/verification"

// StepView is the display projection of a step.
type StepView struct {
	Code        string              `json:"code"`
	Label       string              `json:"label"`
	Description string              `json:"description,omitempty"`
	LinkText    string              `json:"linkText,omitempty"`
	Status      verification.Status `json:"status"`
}

// StepGroup is a top level step with its sub steps.
type StepGroup struct {
	StepView
	SubSteps []StepView `json:"subSteps,omitempty"`
}

// VerificationStatus returns the overall status of the current run.
func VerificationStatus(st State) verification.Status {
	if st.Status == "" {
		return verification.StatusNotStarted
	}
	return st.Status
}

// VerifiedSteps returns the steps of the current run in display order.
func VerifiedSteps(st State) []StepView {
	views := make([]StepView, 0, len(st.Steps))
	for _, s := range st.Steps {
		views = append(views, viewOf(s))
	}
	return views
}

// VerifiedStepGroups returns the top level steps with their sub steps, both in display order.
func VerifiedStepGroups(st State) []StepGroup {
	var groups []StepGroup
	for _, s := range st.Steps {
		if s.ParentStep != "" {
			continue
		}
		group := StepGroup{StepView: viewOf(s)}
		for _, child := range verification.ChildrenOf(st.Steps, s.Code) {
			group.SubSteps = append(group.SubSteps, viewOf(child))
		}
		groups = append(groups, group)
	}
	return groups
}

// FinalStep returns the verdict of the last completed run, if any.
func FinalStep(st State) (verification.FinalStep, bool) {
	if st.Result == nil {
		return verification.FinalStep{}, false
	}
	return st.Result.FinalStep, true
}

// CertificateID returns the id of the loaded certificate, or "" if none is loaded.
func CertificateID(st State) string {
	if st.Definition == nil {
		return ""
	}
	return st.Definition.ID
}

func viewOf(s verification.Step) StepView {
	return StepView{
		Code:        s.Code,
		Label:       s.Label,
		Description: s.Description,
		LinkText:    s.LinkText,
		Status:      s.Status,
	}
}
