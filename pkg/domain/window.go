package domain

import "time"

// ProductionWindow is an observation state slot: a half-open interval [Begin, End)
// with an optional production classification.
type ProductionWindow struct {
	MachineID int
	Begin     time.Time
	// End is the exclusive upper bound. A zero End means the slot is still open.
	End time.Time
	// Production is nil when the slot is not classified yet.
	Production *bool
}

// Covers reports whether t lies inside [Begin, End).
func (w ProductionWindow) Covers(t time.Time) bool {
	if t.Before(w.Begin) {
		return false
	}
	return w.End.IsZero() || t.Before(w.End)
}

// Classified reports whether the window carries a production classification.
func (w ProductionWindow) Classified() bool {
	return w.Production != nil
}

// Limit returns the instant until which a decision derived from the window stays valid.
// An open window yields the maximum representable time.
func (w ProductionWindow) Limit() time.Time {
	if w.End.IsZero() {
		return MaxTime
	}
	return w.End
}

// MaxTime is the latest instant the engine reasons about.
var MaxTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
