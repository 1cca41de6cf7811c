// Package journal is the append-only execution log: every order attempt,
// signal, skip, exit, trailing update and kill-switch action.
package journal

import (
	"errors"
	"time"
)

type Action string

const (
	ActionBuy    Action = "BUY"
	ActionSell   Action = "SELL"
	ActionSignal Action = "SIGNAL"
	ActionSkip   Action = "SKIP"
	ActionExit   Action = "EXIT"
	ActionTrail  Action = "TRAIL"
	ActionKill   Action = "KILL"
)

// Status mirrors the position lifecycle plus the terminal failure codes.
type Status string

const (
	StatusProposed     Status = "PROPOSED"
	StatusRiskChecked  Status = "RISK_CHECKED"
	StatusSized        Status = "SIZED"
	StatusSubmitted    Status = "SUBMITTED"
	StatusFilled       Status = "FILLED"
	StatusUpdated      Status = "UPDATED"
	StatusExitSignaled Status = "EXIT_SIGNALED"
	StatusClosed       Status = "CLOSED"
	StatusRejected     Status = "REJECTED"
	StatusBlocked      Status = "BLOCKED"
	StatusError        Status = "ERROR"
	StatusKillFail     Status = "KILL_FAIL"
)

// Entry is one journal row.
type Entry struct {
	ID         string
	Timestamp  time.Time
	Symbol     string
	Action     Action
	Status     Status
	Size       float64
	Price      float64
	Stop       float64
	SpreadPips float64
	Comment    string
}

// Columns is the on-disk column order.
var Columns = []string{"timestamp", "symbol", "action", "status", "size", "price", "stop", "spread_pips", "comment"}

type Journal interface {
	Append(Entry) error
	Close() error
}

// Multi fans an entry out to several journals. Every journal is attempted.
type Multi []Journal

func (m Multi) Append(e Entry) error {
	var errs []error
	for _, j := range m {
		if err := j.Append(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, j := range m {
		if err := j.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Append(Entry) error { return nil }
func (Discard) Close() error       { return nil }
