package extensions

// Analysis step names.
const (
	StepMachineStateTemplate                = "MachineStateTemplate"
	StepOperationSlotSplit                  = "OperationSlotSplit"
	StepProduction                          = "Production"
	StepActivity                            = "Activity"
	StepProcessingReasonSlots               = "ProcessingReasonSlots"
	StepDetection                           = "Detection"
	StepAutoSequence                        = "AutoSequence"
	StepPendingModifications                = "PendingModifications"
	StepIsCleanFlaggedModificationsRequired = "IsCleanFlaggedModificationsRequired"
	StepCleanFlaggedModifications           = "CleanFlaggedModifications"
	StepDayTemplates                        = "DayTemplates"
	StepShiftTemplates                      = "ShiftTemplates"
	StepWeekNumbers                         = "WeekNumbers"
)

// Step argument keys.
const (
	ArgMinPastPriority    = "min_past_priority"
	ArgMinPresentPriority = "min_present_priority"
	ArgPeriod             = "period"
	ArgMaxLoops           = "max_loops"
)

// Steps returns the names of the steps the built-in graphs call.
func Steps() []string {
	return []string{
		StepMachineStateTemplate,
		StepOperationSlotSplit,
		StepProduction,
		StepActivity,
		StepProcessingReasonSlots,
		StepDetection,
		StepAutoSequence,
		StepPendingModifications,
		StepIsCleanFlaggedModificationsRequired,
		StepCleanFlaggedModifications,
		StepDayTemplates,
		StepShiftTemplates,
		StepWeekNumbers,
	}
}
