package verification

// Status is the status of a verification run or of a single verification step.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusStarted    Status = "STARTED"
	StatusSuccess    Status = "SUCCESS"
	StatusFailure    Status = "FAILURE"
)

// Valid reports whether s is one of the four known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusStarted, StatusSuccess, StatusFailure:
		return true
	}
	return false
}

// IsStarted reports whether a run (or step) is in progress.
func (s Status) IsStarted() bool { return s == StatusStarted }

// IsFinished reports whether s is a terminal status (SUCCESS or FAILURE).
func (s Status) IsFinished() bool { return s == StatusSuccess || s == StatusFailure }

// IsSuccess reports whether s is SUCCESS.
func (s Status) IsSuccess() bool { return s == StatusSuccess }

// canTransition reports whether a step may move from s to next within one run.
//
// A finished step can only be re-reported with the same status (used by verifiers that reveal
// the final wording of a step after it completed).
func (s Status) canTransition(next Status) bool {
	if !next.Valid() {
		return false
	}
	switch s {
	case StatusNotStarted:
		return true
	case StatusStarted:
		return next != StatusNotStarted
	default:
		return next == s
	}
}
