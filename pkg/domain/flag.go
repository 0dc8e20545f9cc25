package domain

import (
	"strconv"
	"time"
)

// CatchUpKeyPrefix is the common prefix of the catch-up flags.
const CatchUpKeyPrefix = "Analysis.CatchUp."

// CatchUpGlobalKey is the catch-up flag of the global analysis.
const CatchUpGlobalKey = CatchUpKeyPrefix + "g"

// Flag is a persisted application state. Only its presence is meaningful to the
// state machine; Value is kept for operators.
type Flag struct {
	Key       string    `json:"key"`
	Value     string    `json:"value,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CatchUpKey returns the catch-up flag key of a machine, or the global key when
// machine is nil or global.
func CatchUpKey(machine *Machine) string {
	if machine == nil || machine.IsGlobal() {
		return CatchUpGlobalKey
	}
	return CatchUpKeyPrefix + strconv.Itoa(machine.ID)
}
