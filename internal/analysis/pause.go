package analysis

import (
	"sync/atomic"

	"github.com/aretw0/cadence/pkg/domain"
)

// Pause is a process-wide analysis pause request, held by at most one requester.
// The zero value is ready to use.
type Pause struct {
	holder atomic.Int64
}

// Request takes the pause for requester id. It returns false when another
// requester holds it. id must not be zero.
func (p *Pause) Request(id int64) bool {
	if id == 0 {
		return false
	}
	return p.holder.CompareAndSwap(0, id) || p.holder.Load() == id
}

// Release gives the pause back.
// Returns domain.ErrPauseNotHeld if id does not hold it.
func (p *Pause) Release(id int64) error {
	if id == 0 || !p.holder.CompareAndSwap(id, 0) {
		return domain.ErrPauseNotHeld
	}
	return nil
}

// Held reports whether id holds the pause.
func (p *Pause) Held(id int64) bool {
	return id != 0 && p.holder.Load() == id
}

// Requested reports whether anyone holds the pause.
func (p *Pause) Requested() bool {
	return p.holder.Load() != 0
}
