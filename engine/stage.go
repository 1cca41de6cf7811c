package engine

import "github.com/rustyeddy/propbot/journal"

// Stage is a step in a position's lifecycle:
//
//	Proposed -> RiskChecked -> Sized -> Submitted -> Open <-> TrailingUpdated
//	  -> ExitSignaled -> Closed
//
// Rejected is reachable from RiskChecked, when the live price or the
// sizer refuses the order, and from Sized and Submitted.
type Stage int

const (
	StageProposed Stage = iota
	StageRiskChecked
	StageSized
	StageSubmitted
	StageOpen
	StageTrailingUpdated
	StageExitSignaled
	StageClosed
	StageRejected
)

var stageNames = [...]string{
	StageProposed:        "proposed",
	StageRiskChecked:     "risk_checked",
	StageSized:           "sized",
	StageSubmitted:       "submitted",
	StageOpen:            "open",
	StageTrailingUpdated: "trailing_updated",
	StageExitSignaled:    "exit_signaled",
	StageClosed:          "closed",
	StageRejected:        "rejected",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Status is the journal status recorded for s.
func (s Stage) Status() journal.Status {
	switch s {
	case StageProposed:
		return journal.StatusProposed
	case StageRiskChecked:
		return journal.StatusRiskChecked
	case StageSized:
		return journal.StatusSized
	case StageSubmitted:
		return journal.StatusSubmitted
	case StageOpen:
		return journal.StatusFilled
	case StageTrailingUpdated:
		return journal.StatusUpdated
	case StageExitSignaled:
		return journal.StatusExitSignaled
	case StageClosed:
		return journal.StatusClosed
	case StageRejected:
		return journal.StatusRejected
	}
	return journal.StatusError
}

var transitions = map[Stage][]Stage{
	StageProposed:        {StageRiskChecked},
	StageRiskChecked:     {StageSized, StageRejected},
	StageSized:           {StageSubmitted, StageRejected},
	StageSubmitted:       {StageOpen, StageRejected},
	StageOpen:            {StageTrailingUpdated, StageExitSignaled},
	StageTrailingUpdated: {StageOpen, StageTrailingUpdated, StageExitSignaled},
	StageExitSignaled:    {StageClosed},
}

// CanTransition reports whether to may follow s.
func (s Stage) CanTransition(to Stage) bool {
	for _, n := range transitions[s] {
		if n == to {
			return true
		}
	}
	return false
}
