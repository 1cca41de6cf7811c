package engine

import "sync/atomic"

// BlockFlag suspends entry scans. The fast loop is the only writer; the
// slow loop reads it before scanning.
type BlockFlag struct {
	blocked atomic.Bool
	reason  atomic.Pointer[string]
}

// Set records the state and reports whether it changed.
func (b *BlockFlag) Set(blocked bool, reason string) bool {
	if blocked {
		b.reason.Store(&reason)
	} else {
		b.reason.Store(nil)
	}
	return b.blocked.Swap(blocked) != blocked
}

func (b *BlockFlag) Blocked() bool { return b.blocked.Load() }

func (b *BlockFlag) Reason() string {
	if r := b.reason.Load(); r != nil {
		return *r
	}
	return ""
}
