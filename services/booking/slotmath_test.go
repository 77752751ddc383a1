package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBoundaries(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		requested    time.Time
		durationMin  int
		granularity  int
		wantStart    time.Time
		wantEnd      time.Time
		wantSlots    int
		wantAdjusted bool
	}{
		{
			name:        "aligned start stays put",
			requested:   base,
			durationMin: 30,
			granularity: 15,
			wantStart:   base,
			wantEnd:     base.Add(30 * time.Minute),
			wantSlots:   2,
		},
		{
			name:         "unaligned start rounds up",
			requested:    base.Add(7 * time.Minute),
			durationMin:  30,
			granularity:  15,
			wantStart:    base.Add(15 * time.Minute),
			wantEnd:      base.Add(45 * time.Minute),
			wantSlots:    2,
			wantAdjusted: true,
		},
		{
			name:        "duration not a multiple rounds slots up",
			requested:   base,
			durationMin: 50,
			granularity: 15,
			wantStart:   base,
			wantEnd:     base.Add(60 * time.Minute),
			wantSlots:   4,
		},
		{
			name:         "five minute granularity",
			requested:    base.Add(2 * time.Minute),
			durationMin:  20,
			granularity:  5,
			wantStart:    base.Add(5 * time.Minute),
			wantEnd:      base.Add(25 * time.Minute),
			wantSlots:    4,
			wantAdjusted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeBoundaries(tt.requested, tt.durationMin, tt.granularity)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, got.AlignedStart)
			assert.Equal(t, tt.wantEnd, got.AlignedEnd)
			assert.Equal(t, tt.wantSlots, got.RequiredSlots)
			assert.Equal(t, tt.wantAdjusted, got.AdjustmentMade)
		})
	}
}

func TestComputeBoundariesRejectsBadInput(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, err := ComputeBoundaries(base, 0, 15)
	assert.Error(t, err)

	_, err = ComputeBoundaries(base, 30, 10)
	assert.Error(t, err)
}

func TestSlotStartsCoverWindow(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	bounds, err := ComputeBoundaries(base, 45, 15)
	require.NoError(t, err)

	starts := bounds.SlotStarts(15)
	require.Len(t, starts, 3)
	assert.Equal(t, base, starts[0])
	assert.Equal(t, base.Add(15*time.Minute), starts[1])
	assert.Equal(t, base.Add(30*time.Minute), starts[2])

	// Contiguous and inside the window.
	for i := 1; i < len(starts); i++ {
		assert.Equal(t, 15*time.Minute, starts[i].Sub(starts[i-1]))
	}
	assert.True(t, starts[len(starts)-1].Before(bounds.AlignedEnd))
}

func TestRequiredSlots(t *testing.T) {
	assert.Equal(t, 1, RequiredSlots(1, 15))
	assert.Equal(t, 1, RequiredSlots(15, 15))
	assert.Equal(t, 2, RequiredSlots(16, 15))
	assert.Equal(t, 4, RequiredSlots(60, 15))
	assert.Equal(t, 12, RequiredSlots(60, 5))
}

func TestConfirmationCode(t *testing.T) {
	createdAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	code := ConfirmationCode(42, createdAt)
	assert.Len(t, code, 8)
	assert.Equal(t, code, ConfirmationCode(42, createdAt), "must be deterministic")
	assert.NotEqual(t, code, ConfirmationCode(43, createdAt))
	assert.NotEqual(t, code, ConfirmationCode(42, createdAt.Add(time.Nanosecond)))
}
