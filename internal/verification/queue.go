package verification

import "fmt"

// Queue is the ordered registry of steps for one verification run, keyed by step code.
//
// Insertion order is display order. UpdateStepStatus is the only way to change a step once
// the queue has been initialized.
type Queue struct {
	steps []Step
	index map[string]int
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{index: make(map[string]int)}
}

// UpdateOption sets optional step text during UpdateStepStatus.
type UpdateOption func(*Step)

// WithLabel replaces the label of the updated step.
func WithLabel(label string) UpdateOption {
	return func(s *Step) { s.Label = label }
}

// WithDescription replaces the description of the updated step.
func WithDescription(description string) UpdateOption {
	return func(s *Step) { s.Description = description }
}

// WithLinkText replaces the link text of the updated step.
func WithLinkText(linkText string) UpdateOption {
	return func(s *Step) { s.LinkText = linkText }
}

// Initialize replaces the content of the queue with the given templates.
// Every step starts as NOT_STARTED.
//
// If two templates share a code the queue is left unchanged and a DUPLICATE_STEP_CODE error is returned.
func (q *Queue) Initialize(templates []StepTemplate) error {
	steps := make([]Step, 0, len(templates))
	index := make(map[string]int, len(templates))

	for i, t := range templates {
		if t.Code == "" {
			return NewInvalidDefinitionError(fmt.Sprintf("step template %d has no code", i))
		}
		if _, exists := index[t.Code]; exists {
			return NewDuplicateStepCodeError(t.Code)
		}
		index[t.Code] = i
		steps = append(steps, Step{
			Code:        t.Code,
			Label:       t.Label,
			Description: t.Description,
			ParentStep:  t.ParentStep,
			Status:      StatusNotStarted,
		})
	}

	q.steps = steps
	q.index = index
	return nil
}

// UpdateStepStatus sets the status of the step identified by code and returns the updated snapshot.
//
// Unknown codes return UNKNOWN_STEP_CODE and regressions (e.g. SUCCESS back to STARTED) return
// INVALID_STEP_TRANSITION; in both cases the queue is not modified.
func (q *Queue) UpdateStepStatus(code string, status Status, opts ...UpdateOption) ([]Step, error) {
	i, ok := q.index[code]
	if !ok {
		return nil, NewUnknownStepCodeError(code)
	}

	current := q.steps[i]
	if !current.Status.canTransition(status) {
		return nil, NewInvalidTransitionError(code, current.Status, status)
	}

	updated := current
	updated.Status = status
	for _, opt := range opts {
		opt(&updated)
	}
	q.steps[i] = updated

	return q.OrderedSteps(), nil
}

// OrderedSteps returns a copy of the steps in insertion order.
func (q *Queue) OrderedSteps() []Step {
	out := make([]Step, len(q.steps))
	copy(out, q.steps)
	return out
}

// Step returns the step with the given code.
func (q *Queue) Step(code string) (Step, bool) {
	i, ok := q.index[code]
	if !ok {
		return Step{}, false
	}
	return q.steps[i], true
}

// Children returns the steps whose parent is code, in insertion order.
func (q *Queue) Children(code string) []Step {
	return ChildrenOf(q.steps, code)
}

// Len returns the number of steps in the queue.
func (q *Queue) Len() int { return len(q.steps) }
