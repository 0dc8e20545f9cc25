package extensions

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/cadence/pkg/domain"
)

// LiveOpsSettings configures the liveops extension.
type LiveOpsSettings struct {
	NormalModificationPriority   int           `mapstructure:"normal_modification_priority"`
	LowModificationPriority      int           `mapstructure:"low_modification_priority"`
	LowPriorityFrequency         time.Duration `mapstructure:"low_priority_frequency"`
	VeryLowPriorityFrequency     time.Duration `mapstructure:"very_low_priority_frequency"`
	PendingModificationsMaxTime  time.Duration `mapstructure:"pending_modifications_max_time"`
	ProcessingReasonSlotsMaxTime time.Duration `mapstructure:"processing_reason_slots_max_time"`
	ReasonSlotsLastPeriod        time.Duration `mapstructure:"reason_slots_last_period"`
	CatchUpMaxTime               time.Duration `mapstructure:"catch_up_max_time"`
	OperationSlotSplitPeriod     time.Duration `mapstructure:"operation_slot_split_period"`
	// OpenWindowRefresh is how long the production switch trusts a slot that is still open.
	OpenWindowRefresh time.Duration `mapstructure:"open_window_refresh"`
	// Steps are additional steps run in sequence before the pending modifications.
	Steps []string `mapstructure:"steps"`
}

func defaultLiveOpsSettings() LiveOpsSettings {
	return LiveOpsSettings{
		NormalModificationPriority:   100,
		LowModificationPriority:      50,
		LowPriorityFrequency:         10 * time.Second,
		VeryLowPriorityFrequency:     time.Minute,
		PendingModificationsMaxTime:  10 * time.Second,
		ProcessingReasonSlotsMaxTime: 5 * time.Second,
		ReasonSlotsLastPeriod:        8 * time.Hour,
		CatchUpMaxTime:               24 * time.Hour,
		OperationSlotSplitPeriod:     31 * 24 * time.Hour,
		OpenWindowRefresh:            time.Minute,
	}
}

// GlobalSettings configures the global extension.
type GlobalSettings struct {
	TemplatesMaxTime            time.Duration `mapstructure:"templates_max_time"`
	PendingModificationsMaxTime time.Duration `mapstructure:"pending_modifications_max_time"`
	CleanFlaggedMaxTime         time.Duration `mapstructure:"clean_flagged_max_time"`
	AllPriorityFrequency        time.Duration `mapstructure:"all_priority_frequency"`
	NormalModificationPriority  int           `mapstructure:"normal_modification_priority"`
	CatchUpMaxTime              time.Duration `mapstructure:"catch_up_max_time"`
	Steps                       []string      `mapstructure:"steps"`
}

func defaultGlobalSettings() GlobalSettings {
	return GlobalSettings{
		TemplatesMaxTime:            5 * time.Second,
		PendingModificationsMaxTime: 10 * time.Second,
		CleanFlaggedMaxTime:         5 * time.Second,
		AllPriorityFrequency:        time.Minute,
		NormalModificationPriority:  100,
		CatchUpMaxTime:              24 * time.Hour,
	}
}

// decodeSettings decodes raw extension settings over the defaults already in out.
// Durations are given as strings, e.g. "5m".
func decodeSettings(raw map[string]any, out any) error {
	if len(raw) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	return nil
}

// machineFilter restricts an extension to a set of machine ids. Empty matches all.
type machineFilter map[int]bool

func newMachineFilter(ids []int) machineFilter {
	f := make(machineFilter, len(ids))
	for _, id := range ids {
		f[id] = true
	}
	return f
}

func (f machineFilter) match(m domain.Machine) bool {
	return len(f) == 0 || f[m.ID]
}
