package booking

import (
	"fmt"
	"time"
)

// validGranularities are the slot widths a tenant may configure.
var validGranularities = map[int]bool{5: true, 15: true}

// Boundaries is the result of aligning a requested start to the tenant's slot
// grid.
type Boundaries struct {
	AlignedStart   time.Time
	AlignedEnd     time.Time
	RequiredSlots  int
	AdjustmentMade bool
}

// ComputeBoundaries aligns requestedStart up to the next granularity boundary
// and extends by ceil(durationMin/granularity) slots. Pure; the coordinator
// and the availability query both call it so the two can never disagree on
// slot geometry.
func ComputeBoundaries(requestedStart time.Time, durationMin, granularityMin int) (Boundaries, error) {
	if durationMin <= 0 {
		return Boundaries{}, fmt.Errorf("duration must be positive, got %d", durationMin)
	}
	if !validGranularities[granularityMin] {
		return Boundaries{}, fmt.Errorf("granularity must be 5 or 15 minutes, got %d", granularityMin)
	}

	granularity := time.Duration(granularityMin) * time.Minute
	alignedStart := requestedStart.Truncate(granularity)
	adjusted := false
	if alignedStart.Before(requestedStart) {
		alignedStart = alignedStart.Add(granularity)
		adjusted = true
	}

	required := RequiredSlots(durationMin, granularityMin)
	return Boundaries{
		AlignedStart:   alignedStart,
		AlignedEnd:     alignedStart.Add(time.Duration(required) * granularity),
		RequiredSlots:  required,
		AdjustmentMade: adjusted,
	}, nil
}

// RequiredSlots is ⌈durationMin / granularityMin⌉.
func RequiredSlots(durationMin, granularityMin int) int {
	return (durationMin + granularityMin - 1) / granularityMin
}

// SlotStarts expands the aligned window into the start instant of every slot
// it covers, ascending.
func (b Boundaries) SlotStarts(granularityMin int) []time.Time {
	starts := make([]time.Time, 0, b.RequiredSlots)
	step := time.Duration(granularityMin) * time.Minute
	for t := b.AlignedStart; t.Before(b.AlignedEnd); t = t.Add(step) {
		starts = append(starts, t)
	}
	return starts
}
