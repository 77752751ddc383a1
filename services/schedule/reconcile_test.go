package schedule

import (
	"context"
	"sort"
	"testing"
	"time"

	"slotify/database"
	catalogRepo "slotify/database/repository/catalog"
	"slotify/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubTx struct{}

func (stubTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

type fakeRunner struct{}

func (fakeRunner) WithinTx(ctx context.Context, fn func(tx database.Tx) error) error {
	return fn(stubTx{})
}

type fakeCatalog struct {
	tenants   map[int64]*models.Tenant
	resources map[int64]*models.Resource
	hours     []models.BusinessHour
	holidays  []models.Holiday
	timeOffs  []models.TimeOff
}

func (f *fakeCatalog) GetTenant(ctx context.Context, tx database.Tx, id int64) (*models.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok {
		return nil, catalogRepo.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeCatalog) ActiveTenants(ctx context.Context, tx database.Tx) ([]models.Tenant, error) {
	var out []models.Tenant
	for _, t := range f.tenants {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCatalog) GetService(ctx context.Context, tx database.Tx, tenantID, serviceID int64) (*models.Service, error) {
	return nil, catalogRepo.ErrNotFound
}

func (f *fakeCatalog) GetResource(ctx context.Context, tx database.Tx, tenantID, resourceID int64) (*models.Resource, error) {
	r, ok := f.resources[resourceID]
	if !ok || r.TenantID != tenantID {
		return nil, catalogRepo.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeCatalog) ResourcesForService(ctx context.Context, tx database.Tx, tenantID, serviceID int64) ([]models.Resource, error) {
	return nil, nil
}

func (f *fakeCatalog) ActiveResources(ctx context.Context, tx database.Tx, tenantID int64) ([]models.Resource, error) {
	var out []models.Resource
	for _, r := range f.resources {
		if r.TenantID == tenantID && r.Active {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCatalog) ServiceLinkedToResource(ctx context.Context, tx database.Tx, serviceID, resourceID int64) (bool, error) {
	return false, nil
}

func (f *fakeCatalog) BusinessHours(ctx context.Context, tx database.Tx, tenantID int64) ([]models.BusinessHour, error) {
	return f.hours, nil
}

func (f *fakeCatalog) Holidays(ctx context.Context, tx database.Tx, tenantID int64, from, to string) ([]models.Holiday, error) {
	return f.holidays, nil
}

func (f *fakeCatalog) TimeOffs(ctx context.Context, tx database.Tx, resourceID int64, from, to time.Time) ([]models.TimeOff, error) {
	return f.timeOffs, nil
}

type fakeSlots struct {
	slots         map[int64]*models.Slot
	booked        map[int64]int
	nextID        int64
	lockedWindows int
}

func newFakeSlots() *fakeSlots {
	return &fakeSlots{slots: make(map[int64]*models.Slot), booked: make(map[int64]int)}
}

func (f *fakeSlots) add(tenantID, resourceID int64, start, end time.Time, capacity int) *models.Slot {
	f.nextID++
	s := &models.Slot{
		ID:                f.nextID,
		TenantID:          tenantID,
		ResourceID:        resourceID,
		StartAt:           start,
		EndAt:             end,
		AvailableCapacity: capacity,
	}
	f.slots[s.ID] = s
	return s
}

func (f *fakeSlots) byStart(out []models.Slot) []models.Slot {
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out
}

func (f *fakeSlots) LockSequence(ctx context.Context, tx database.Tx, tenantID, resourceID int64, starts []time.Time) ([]models.Slot, error) {
	return nil, nil
}

func (f *fakeSlots) LockByIDs(ctx context.Context, tx database.Tx, tenantID int64, ids []int64) ([]models.Slot, error) {
	return nil, nil
}

func (f *fakeSlots) DecrementCapacity(ctx context.Context, tx database.Tx, ids []int64) (int64, error) {
	return 0, nil
}

func (f *fakeSlots) IncrementCapacity(ctx context.Context, tx database.Tx, ids []int64) error {
	return nil
}

func (f *fakeSlots) ExistingForWindow(ctx context.Context, tx database.Tx, tenantID, resourceID int64, from, to time.Time) ([]models.Slot, error) {
	var out []models.Slot
	for _, s := range f.slots {
		if s.TenantID == tenantID && s.ResourceID == resourceID &&
			!s.StartAt.Before(from) && s.StartAt.Before(to) {
			out = append(out, *s)
		}
	}
	return f.byStart(out), nil
}

func (f *fakeSlots) LockForWindow(ctx context.Context, tx database.Tx, tenantID, resourceID int64, from, to time.Time) ([]models.Slot, error) {
	f.lockedWindows++
	return f.ExistingForWindow(ctx, tx, tenantID, resourceID, from, to)
}

func (f *fakeSlots) CreateMany(ctx context.Context, tx database.Tx, slots []models.Slot) error {
	for _, s := range slots {
		f.add(s.TenantID, s.ResourceID, s.StartAt, s.EndAt, s.AvailableCapacity)
	}
	return nil
}

func (f *fakeSlots) SetCapacity(ctx context.Context, tx database.Tx, id int64, capacity int) error {
	if s, ok := f.slots[id]; ok {
		s.AvailableCapacity = capacity
	}
	return nil
}

func (f *fakeSlots) DeleteIfUntouched(ctx context.Context, tx database.Tx, id int64, fullCapacity int) (bool, error) {
	s, ok := f.slots[id]
	if !ok || s.AvailableCapacity != fullCapacity {
		return false, nil
	}
	delete(f.slots, id)
	return true, nil
}

func (f *fakeSlots) BookedUnits(ctx context.Context, tx database.Tx, resourceID int64, from, to time.Time) (map[int64]int, error) {
	out := make(map[int64]int)
	for id, n := range f.booked {
		if s, ok := f.slots[id]; ok && s.ResourceID == resourceID &&
			!s.StartAt.Before(from) && s.StartAt.Before(to) {
			out[id] = n
		}
	}
	return out, nil
}

func (f *fakeSlots) OpenSlotsInWindow(ctx context.Context, tx database.Tx, tenantID, resourceID int64, from, to time.Time) ([]models.Slot, error) {
	return nil, nil
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) InvalidateWindow(ctx context.Context, tenantID, resourceID int64, from, to time.Time) {
	c.calls++
}

// Tenant 1 is UTC with hourly slots; resource 7 works Tuesdays 9:00-12:00.
func newCompilerFixture() (*DefaultCompiler, *fakeCatalog, *fakeSlots, *countingInvalidator) {
	catalog := &fakeCatalog{
		tenants: map[int64]*models.Tenant{
			1: {ID: 1, Timezone: "UTC", SlotGranularityMin: 60},
		},
		resources: map[int64]*models.Resource{
			7: {ID: 7, TenantID: 1, Kind: models.ResourceStaff, Name: "Alice", Capacity: 2, Active: true},
		},
		hours: []models.BusinessHour{
			{TenantID: 1, Weekday: 2, OpenMin: 9 * 60, CloseMin: 12 * 60},
		},
	}
	slots := newFakeSlots()
	cache := &countingInvalidator{}
	compiler := &DefaultCompiler{
		DB:      fakeRunner{},
		Q:       stubTx{},
		Catalog: catalog,
		Slots:   slots,
		Cache:   cache,
		Logger:  zap.NewNop(),
		Now:     func() time.Time { return testDay },
	}
	return compiler, catalog, slots, cache
}

func TestCompileResourceCreatesSlots(t *testing.T) {
	compiler, _, slots, cache := newCompilerFixture()

	report, err := compiler.CompileResource(context.Background(), 1, 7, testDay, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Created)
	assert.Zero(t, report.Removed)
	assert.Empty(t, report.Conflicts)
	require.Len(t, slots.slots, 3)
	for _, s := range slots.slots {
		assert.Equal(t, 2, s.AvailableCapacity)
	}
	assert.Equal(t, 1, cache.calls)
}

func TestCompileResourceIsIdempotent(t *testing.T) {
	compiler, _, slots, _ := newCompilerFixture()
	to := testDay.AddDate(0, 0, 1)

	_, err := compiler.CompileResource(context.Background(), 1, 7, testDay, to)
	require.NoError(t, err)
	report, err := compiler.CompileResource(context.Background(), 1, 7, testDay, to)
	require.NoError(t, err)

	assert.Zero(t, report.Created)
	assert.Zero(t, report.Removed)
	assert.Zero(t, report.Resized)
	assert.Len(t, slots.slots, 3)
}

func TestCompileResourceResizesAfterCapacityChange(t *testing.T) {
	compiler, catalog, slots, _ := newCompilerFixture()

	// One hold against the 9:00 slot, then the resource grows to capacity 3.
	s := slots.add(1, 7, testDay.Add(9*time.Hour), testDay.Add(10*time.Hour), 1)
	slots.booked[s.ID] = 1
	catalog.resources[7].Capacity = 3

	report, err := compiler.CompileResource(context.Background(), 1, 7, testDay, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Resized)
	assert.Equal(t, 2, slots.slots[s.ID].AvailableCapacity)

	// The resize worked off rows read under row locks; a plain read would let
	// a concurrent decrement vanish under SetCapacity.
	assert.Equal(t, 1, slots.lockedWindows)
}

func TestCompileResourceConflictWhenHoldsExceedCapacity(t *testing.T) {
	compiler, catalog, slots, _ := newCompilerFixture()

	s := slots.add(1, 7, testDay.Add(9*time.Hour), testDay.Add(10*time.Hour), 0)
	slots.booked[s.ID] = 2
	catalog.resources[7].Capacity = 1

	report, err := compiler.CompileResource(context.Background(), 1, 7, testDay, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)

	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, s.ID, report.Conflicts[0].SlotID)
	assert.Equal(t, "bookings exceed new capacity", report.Conflicts[0].Reason)
	// The slot survives untouched.
	assert.Equal(t, 0, slots.slots[s.ID].AvailableCapacity)
}

func TestCompileResourceRemovesOutOfScheduleSlots(t *testing.T) {
	compiler, _, slots, _ := newCompilerFixture()

	// 20:00 is outside Tuesday business hours.
	stale := slots.add(1, 7, testDay.Add(20*time.Hour), testDay.Add(21*time.Hour), 2)

	report, err := compiler.CompileResource(context.Background(), 1, 7, testDay, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Removed)
	assert.NotContains(t, slots.slots, stale.ID)
}

func TestCompileResourceKeepsBookedOutOfScheduleSlots(t *testing.T) {
	compiler, _, slots, _ := newCompilerFixture()

	held := slots.add(1, 7, testDay.Add(20*time.Hour), testDay.Add(21*time.Hour), 1)
	slots.booked[held.ID] = 1

	report, err := compiler.CompileResource(context.Background(), 1, 7, testDay, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Zero(t, report.Removed)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, "booked outside the new schedule", report.Conflicts[0].Reason)
	assert.Contains(t, slots.slots, held.ID)
}

func TestCompileResourceHolidayClearsDay(t *testing.T) {
	compiler, catalog, slots, _ := newCompilerFixture()
	catalog.holidays = []models.Holiday{{TenantID: 1, Date: "2026-09-01", Name: "Founders Day"}}

	slots.add(1, 7, testDay.Add(9*time.Hour), testDay.Add(10*time.Hour), 2)

	report, err := compiler.CompileResource(context.Background(), 1, 7, testDay, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Zero(t, report.Created)
	assert.Equal(t, 1, report.Removed)
	assert.Empty(t, slots.slots)
}

func TestCompileResourceUnknownResource(t *testing.T) {
	compiler, _, _, _ := newCompilerFixture()
	_, err := compiler.CompileResource(context.Background(), 1, 99, testDay, testDay.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, catalogRepo.ErrNotFound)
}

func TestCompileTenantCoversActiveResources(t *testing.T) {
	compiler, catalog, slots, _ := newCompilerFixture()
	catalog.resources[8] = &models.Resource{ID: 8, TenantID: 1, Kind: models.ResourceStaff, Name: "Bob", Capacity: 1, Active: true}
	catalog.resources[9] = &models.Resource{ID: 9, TenantID: 1, Kind: models.ResourceStaff, Name: "Carol", Capacity: 1, Active: false}

	reports, err := compiler.CompileTenant(context.Background(), 1, testDay, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)

	require.Len(t, reports, 2)
	assert.Len(t, slots.slots, 6)
}

func TestRollHorizonCompilesActiveTenants(t *testing.T) {
	compiler, _, slots, _ := newCompilerFixture()
	compiler.HorizonDays = 7

	require.NoError(t, compiler.RollHorizon(context.Background()))

	// One Tuesday falls inside the seven-day horizon.
	assert.Len(t, slots.slots, 3)
}
