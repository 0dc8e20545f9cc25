package fsm

import "time"

// MaxAnalysisTime returns the ceiling of one analysis step started at now.
//
// runStart+runMaxTime is the run ceiling. The step may last at least localMin and
// at most localMax: the run ceiling applies unless it falls before now+localMin, and
// now+localMax always wins when it is the earliest.
func MaxAnalysisTime(runStart time.Time, runMaxTime time.Duration, now time.Time, localMax, localMin time.Duration) time.Time {
	runCeiling := runStart.Add(runMaxTime)
	maxDateTime := now.Add(localMax)
	minDateTime := now.Add(localMin)
	if runCeiling.Before(maxDateTime) {
		if minDateTime.Before(runCeiling) {
			return runCeiling
		}
		return minDateTime
	}
	return maxDateTime
}
