package schedule

import (
	"testing"
	"time"

	"slotify/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utcTenant() *models.Tenant {
	return &models.Tenant{ID: 1, Timezone: "UTC", SlotGranularityMin: 15}
}

// Tuesday.
var testDay = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func hoursFor(weekday, openMin, closeMin int) []models.BusinessHour {
	return []models.BusinessHour{{ID: 1, TenantID: 1, Weekday: weekday, OpenMin: openMin, CloseMin: closeMin}}
}

func TestDayIntervalsBasicWindow(t *testing.T) {
	got := DayIntervals(utcTenant(), testDay, hoursFor(2, 9*60, 17*60), nil, nil)

	require.Len(t, got, 1)
	assert.Equal(t, testDay.Add(9*time.Hour), got[0].Start)
	assert.Equal(t, testDay.Add(17*time.Hour), got[0].End)
}

func TestDayIntervalsWeekdayMismatch(t *testing.T) {
	got := DayIntervals(utcTenant(), testDay, hoursFor(3, 9*60, 17*60), nil, nil)
	assert.Empty(t, got)
}

func TestDayIntervalsHoliday(t *testing.T) {
	holidays := map[string]bool{"2026-09-01": true}
	got := DayIntervals(utcTenant(), testDay, hoursFor(2, 9*60, 17*60), holidays, nil)
	assert.Empty(t, got)
}

func TestDayIntervalsTimeOffSplitsWindow(t *testing.T) {
	offs := []models.TimeOff{{
		ResourceID: 7,
		StartAt:    testDay.Add(12 * time.Hour),
		EndAt:      testDay.Add(13 * time.Hour),
	}}
	got := DayIntervals(utcTenant(), testDay, hoursFor(2, 9*60, 17*60), nil, offs)

	require.Len(t, got, 2)
	assert.Equal(t, testDay.Add(9*time.Hour), got[0].Start)
	assert.Equal(t, testDay.Add(12*time.Hour), got[0].End)
	assert.Equal(t, testDay.Add(13*time.Hour), got[1].Start)
	assert.Equal(t, testDay.Add(17*time.Hour), got[1].End)
}

func TestDayIntervalsTimeOffCoversWholeDay(t *testing.T) {
	offs := []models.TimeOff{{
		StartAt: testDay,
		EndAt:   testDay.Add(24 * time.Hour),
	}}
	got := DayIntervals(utcTenant(), testDay, hoursFor(2, 9*60, 17*60), nil, offs)
	assert.Empty(t, got)
}

func TestDayIntervalsEffectiveWindow(t *testing.T) {
	future := testDay.Add(30 * 24 * time.Hour)
	past := testDay.Add(-30 * 24 * time.Hour)

	hours := hoursFor(2, 9*60, 17*60)
	hours[0].EffectiveFrom = &future
	assert.Empty(t, DayIntervals(utcTenant(), testDay, hours, nil, nil))

	hours[0].EffectiveFrom = nil
	hours[0].EffectiveTo = &past
	assert.Empty(t, DayIntervals(utcTenant(), testDay, hours, nil, nil))

	hours[0].EffectiveFrom = &past
	hours[0].EffectiveTo = &future
	assert.Len(t, DayIntervals(utcTenant(), testDay, hours, nil, nil), 1)
}

func TestDayIntervalsMergesOverlappingWindows(t *testing.T) {
	hours := []models.BusinessHour{
		{Weekday: 2, OpenMin: 9 * 60, CloseMin: 13 * 60},
		{Weekday: 2, OpenMin: 12 * 60, CloseMin: 17 * 60},
	}
	got := DayIntervals(utcTenant(), testDay, hours, nil, nil)

	require.Len(t, got, 1)
	assert.Equal(t, testDay.Add(9*time.Hour), got[0].Start)
	assert.Equal(t, testDay.Add(17*time.Hour), got[0].End)
}

// Business hours are wall-clock, so the UTC offset of "9:00" changes across
// the spring-forward transition.
func TestDayIntervalsDSTSpringForward(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	tenant := &models.Tenant{ID: 1, Timezone: "America/New_York", SlotGranularityMin: 15}

	hours := []models.BusinessHour{
		{Weekday: 6, OpenMin: 9 * 60, CloseMin: 17 * 60}, // Saturday
		{Weekday: 0, OpenMin: 9 * 60, CloseMin: 17 * 60}, // Sunday
	}

	// Saturday 2026-03-07, EST (UTC-5): 9:00 local is 14:00 UTC.
	sat := time.Date(2026, 3, 7, 0, 0, 0, 0, loc)
	got := DayIntervals(tenant, sat, hours, nil, nil)
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2026, 3, 7, 14, 0, 0, 0, time.UTC), got[0].Start)

	// Sunday 2026-03-08 crosses into EDT (UTC-4): 9:00 local is 13:00 UTC.
	sun := time.Date(2026, 3, 8, 0, 0, 0, 0, loc)
	got = DayIntervals(tenant, sun, hours, nil, nil)
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2026, 3, 8, 13, 0, 0, 0, time.UTC), got[0].Start)
	assert.Equal(t, 8*time.Hour, got[0].End.Sub(got[0].Start))
}

func TestSlotsForIntervals(t *testing.T) {
	iv := []Interval{{Start: testDay.Add(9 * time.Hour), End: testDay.Add(10 * time.Hour)}}
	slots := SlotsForIntervals(iv, 1, 7, 15, 3)

	require.Len(t, slots, 4)
	for i, s := range slots {
		assert.Equal(t, int64(1), s.TenantID)
		assert.Equal(t, int64(7), s.ResourceID)
		assert.Equal(t, 3, s.AvailableCapacity)
		assert.Equal(t, testDay.Add(9*time.Hour+time.Duration(i)*15*time.Minute), s.StartAt)
		assert.Equal(t, s.StartAt.Add(15*time.Minute), s.EndAt)
	}
}

func TestSlotsForIntervalsAlignsUnevenStart(t *testing.T) {
	iv := []Interval{{Start: testDay.Add(9*time.Hour + 7*time.Minute), End: testDay.Add(10 * time.Hour)}}
	slots := SlotsForIntervals(iv, 1, 7, 15, 1)

	require.Len(t, slots, 3)
	assert.Equal(t, testDay.Add(9*time.Hour+15*time.Minute), slots[0].StartAt)
}

func TestSlotsForIntervalsDropsTrailingFragment(t *testing.T) {
	iv := []Interval{{Start: testDay.Add(9 * time.Hour), End: testDay.Add(9*time.Hour + 50*time.Minute)}}
	slots := SlotsForIntervals(iv, 1, 7, 15, 1)

	require.Len(t, slots, 3)
	assert.Equal(t, testDay.Add(9*time.Hour+30*time.Minute), slots[2].StartAt)
}

func TestSlotsForIntervalsEmptyInterval(t *testing.T) {
	iv := []Interval{{Start: testDay, End: testDay.Add(10 * time.Minute)}}
	assert.Empty(t, SlotsForIntervals(iv, 1, 7, 15, 1))
}
