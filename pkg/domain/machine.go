package domain

import "fmt"

// GlobalMachineID identifies the machine-less, global analysis scope.
const GlobalMachineID = 0

// Machine is a monitored device as seen by the analysis.
type Machine struct {
	ID        int    `json:"id" yaml:"id" mapstructure:"id"`
	Name      string `json:"name" yaml:"name" mapstructure:"name"`
	Monitored bool   `json:"monitored" yaml:"monitored" mapstructure:"monitored"`
}

// IsGlobal reports whether m denotes the global scope.
func (m Machine) IsGlobal() bool {
	return m.ID == GlobalMachineID
}

// Label returns a short identifier used in logs and metric labels.
func (m Machine) Label() string {
	if m.IsGlobal() {
		return "global"
	}
	return fmt.Sprintf("%d", m.ID)
}

func (m Machine) String() string {
	if m.Name == "" {
		return m.Label()
	}
	return fmt.Sprintf("%s(%d)", m.Name, m.ID)
}
