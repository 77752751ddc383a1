// File: services/schedule/compiler.go
package schedule

import (
	"sort"
	"time"

	"slotify/models"
)

// Interval is a half-open absolute time range.
type Interval struct {
	Start time.Time
	End   time.Time
}

// DayIntervals projects the tenant's weekly business hours onto one local
// calendar date, subtracts holidays and the resource's time-offs, and returns
// the surviving absolute intervals. Wall-clock arithmetic goes through the
// tenant's location so DST transitions yield fewer or more slots, never
// misaligned ones.
func DayIntervals(tenant *models.Tenant, date time.Time, hours []models.BusinessHour, holidays map[string]bool, timeOffs []models.TimeOff) []Interval {
	loc := tenant.Location()
	local := date.In(loc)
	y, m, d := local.Date()

	if holidays[local.Format("2006-01-02")] {
		return nil
	}

	var open []Interval
	for _, bh := range hours {
		if time.Weekday(bh.Weekday) != local.Weekday() {
			continue
		}
		if bh.EffectiveFrom != nil && local.Before(bh.EffectiveFrom.In(loc)) {
			continue
		}
		if bh.EffectiveTo != nil && !local.Before(bh.EffectiveTo.In(loc)) {
			continue
		}
		start := time.Date(y, m, d, bh.OpenMin/60, bh.OpenMin%60, 0, 0, loc)
		end := time.Date(y, m, d, bh.CloseMin/60, bh.CloseMin%60, 0, 0, loc)
		if !start.Before(end) {
			continue
		}
		open = append(open, Interval{Start: start.UTC(), End: end.UTC()})
	}
	open = mergeIntervals(open)

	for _, off := range timeOffs {
		open = subtractInterval(open, Interval{Start: off.StartAt.UTC(), End: off.EndAt.UTC()})
	}
	return open
}

// SlotsForIntervals splits intervals into aligned [t, t+granularity) slots at
// full capacity. Partial trailing fragments are dropped.
func SlotsForIntervals(intervals []Interval, tenantID, resourceID int64, granularityMin, capacity int) []models.Slot {
	granularity := time.Duration(granularityMin) * time.Minute
	var slots []models.Slot
	for _, iv := range intervals {
		t := iv.Start.Truncate(granularity)
		if t.Before(iv.Start) {
			t = t.Add(granularity)
		}
		for ; !t.Add(granularity).After(iv.End); t = t.Add(granularity) {
			slots = append(slots, models.Slot{
				TenantID:          tenantID,
				ResourceID:        resourceID,
				StartAt:           t,
				EndAt:             t.Add(granularity),
				AvailableCapacity: capacity,
			})
		}
	}
	return slots
}

func mergeIntervals(in []Interval) []Interval {
	if len(in) <= 1 {
		return in
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Start.Before(in[j].Start) })
	out := []Interval{in[0]}
	for _, iv := range in[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

func subtractInterval(in []Interval, cut Interval) []Interval {
	var out []Interval
	for _, iv := range in {
		if !cut.Start.Before(iv.End) || !iv.Start.Before(cut.End) {
			out = append(out, iv)
			continue
		}
		if iv.Start.Before(cut.Start) {
			out = append(out, Interval{Start: iv.Start, End: cut.Start})
		}
		if cut.End.Before(iv.End) {
			out = append(out, Interval{Start: cut.End, End: iv.End})
		}
	}
	return out
}
