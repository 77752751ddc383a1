package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"slotify/database"
	bookingRepo "slotify/database/repository/booking"
	catalogRepo "slotify/database/repository/catalog"
	"slotify/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// stubTx satisfies database.Tx; the fakes never touch it.
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

type fakeRunner struct {
	err error
}

func (r *fakeRunner) WithinTx(ctx context.Context, fn func(tx database.Tx) error) error {
	if r.err != nil {
		return r.err
	}
	return fn(stubTx{})
}

// fakeCatalog is populated once per test and read-only afterwards, so it
// needs no lock.
type fakeCatalog struct {
	tenants   map[int64]*models.Tenant
	services  map[int64]*models.Service
	resources map[int64]*models.Resource
	links     map[[2]int64]bool
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
	s, ok := f.services[serviceID]
	if !ok || s.TenantID != tenantID {
		return nil, catalogRepo.ErrNotFound
	}
	cp := *s
	return &cp, nil
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
	var out []models.Resource
	for _, r := range f.resources {
		if r.TenantID == tenantID && r.Active && f.links[[2]int64{serviceID, r.ID}] {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
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
	return f.links[[2]int64{serviceID, resourceID}], nil
}

func (f *fakeCatalog) BusinessHours(ctx context.Context, tx database.Tx, tenantID int64) ([]models.BusinessHour, error) {
	return nil, nil
}

func (f *fakeCatalog) Holidays(ctx context.Context, tx database.Tx, tenantID int64, from, to string) ([]models.Holiday, error) {
	return nil, nil
}

func (f *fakeCatalog) TimeOffs(ctx context.Context, tx database.Tx, resourceID int64, from, to time.Time) ([]models.TimeOff, error) {
	return nil, nil
}

// fakeSlots serializes every method on one mutex, the way row locks serialize
// competing transactions on the real store.
type fakeSlots struct {
	mu     sync.Mutex
	slots  map[int64]*models.Slot
	booked map[int64]int
	nextID int64
}

func newFakeSlots() *fakeSlots {
	return &fakeSlots{slots: make(map[int64]*models.Slot), booked: make(map[int64]int)}
}

func (f *fakeSlots) add(tenantID, resourceID int64, start time.Time, granularityMin, capacity int) *models.Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(tenantID, resourceID, start, granularityMin, capacity)
}

func (f *fakeSlots) addLocked(tenantID, resourceID int64, start time.Time, granularityMin, capacity int) *models.Slot {
	f.nextID++
	s := &models.Slot{
		ID:                f.nextID,
		TenantID:          tenantID,
		ResourceID:        resourceID,
		StartAt:           start,
		EndAt:             start.Add(time.Duration(granularityMin) * time.Minute),
		AvailableCapacity: capacity,
	}
	f.slots[s.ID] = s
	return s
}

func sortByStart(out []models.Slot) []models.Slot {
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out
}

func (f *fakeSlots) LockSequence(ctx context.Context, tx database.Tx, tenantID, resourceID int64, starts []time.Time) ([]models.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[int64]bool, len(starts))
	for _, t := range starts {
		want[t.Unix()] = true
	}
	var out []models.Slot
	for _, s := range f.slots {
		if s.TenantID == tenantID && s.ResourceID == resourceID && want[s.StartAt.Unix()] {
			out = append(out, *s)
		}
	}
	return sortByStart(out), nil
}

func (f *fakeSlots) LockByIDs(ctx context.Context, tx database.Tx, tenantID int64, ids []int64) ([]models.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Slot
	for _, id := range ids {
		if s, ok := f.slots[id]; ok && s.TenantID == tenantID {
			out = append(out, *s)
		}
	}
	return sortByStart(out), nil
}

func (f *fakeSlots) DecrementCapacity(ctx context.Context, tx database.Tx, ids []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var affected int64
	for _, id := range ids {
		if s, ok := f.slots[id]; ok && s.AvailableCapacity >= 1 {
			s.AvailableCapacity--
			affected++
		}
	}
	return affected, nil
}

func (f *fakeSlots) IncrementCapacity(ctx context.Context, tx database.Tx, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if s, ok := f.slots[id]; ok {
			s.AvailableCapacity++
		}
	}
	return nil
}

func (f *fakeSlots) ExistingForWindow(ctx context.Context, tx database.Tx, tenantID, resourceID int64, from, to time.Time) ([]models.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.windowLocked(tenantID, resourceID, from, to), nil
}

func (f *fakeSlots) LockForWindow(ctx context.Context, tx database.Tx, tenantID, resourceID int64, from, to time.Time) ([]models.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.windowLocked(tenantID, resourceID, from, to), nil
}

func (f *fakeSlots) windowLocked(tenantID, resourceID int64, from, to time.Time) []models.Slot {
	var out []models.Slot
	for _, s := range f.slots {
		if s.TenantID == tenantID && s.ResourceID == resourceID &&
			!s.StartAt.Before(from) && s.StartAt.Before(to) {
			out = append(out, *s)
		}
	}
	return sortByStart(out)
}

func (f *fakeSlots) CreateMany(ctx context.Context, tx database.Tx, slots []models.Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range slots {
		f.addLocked(s.TenantID, s.ResourceID, s.StartAt, int(s.EndAt.Sub(s.StartAt).Minutes()), s.AvailableCapacity)
	}
	return nil
}

func (f *fakeSlots) SetCapacity(ctx context.Context, tx database.Tx, id int64, capacity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.slots[id]; ok {
		s.AvailableCapacity = capacity
	}
	return nil
}

func (f *fakeSlots) DeleteIfUntouched(ctx context.Context, tx database.Tx, id int64, fullCapacity int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok || s.AvailableCapacity != fullCapacity {
		return false, nil
	}
	delete(f.slots, id)
	return true, nil
}

func (f *fakeSlots) BookedUnits(ctx context.Context, tx database.Tx, resourceID int64, from, to time.Time) (map[int64]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Slot
	for _, s := range f.slots {
		if s.TenantID == tenantID && s.ResourceID == resourceID &&
			!s.StartAt.Before(from) && s.StartAt.Before(to) && s.AvailableCapacity >= 1 {
			out = append(out, *s)
		}
	}
	return sortByStart(out), nil
}

func (f *fakeSlots) capacity(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.slots[id]; ok {
		return s.AvailableCapacity
	}
	return -1
}

type fakeBookings struct {
	mu            sync.Mutex
	customers     map[int64]*models.Customer
	bookings      map[int64]*models.Booking
	items         map[int64][]models.BookingItem
	cancellations []models.BookingCancellation
	nextID        int64
	now           time.Time
}

func newFakeBookings(now time.Time) *fakeBookings {
	return &fakeBookings{
		customers: make(map[int64]*models.Customer),
		bookings:  make(map[int64]*models.Booking),
		items:     make(map[int64][]models.BookingItem),
		now:       now,
	}
}

func (f *fakeBookings) CreateCustomer(ctx context.Context, tx database.Tx, c *models.Customer) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	c.CreatedAt = f.now
	cp := *c
	f.customers[c.ID] = &cp
	return c.ID, nil
}

func (f *fakeBookings) GetCustomer(ctx context.Context, tx database.Tx, tenantID, id int64) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok || c.TenantID != tenantID {
		return nil, bookingRepo.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeBookings) CreateBooking(ctx context.Context, tx database.Tx, b *models.Booking) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b.ID = f.nextID
	b.CreatedAt = f.now
	b.UpdatedAt = f.now
	cp := *b
	f.bookings[b.ID] = &cp
	return b.ID, nil
}

func (f *fakeBookings) CreateItems(ctx context.Context, tx database.Tx, items []models.BookingItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range items {
		f.nextID++
		items[i].ID = f.nextID
		f.items[items[i].BookingID] = append(f.items[items[i].BookingID], items[i])
	}
	return nil
}

func (f *fakeBookings) GetByID(ctx context.Context, tx database.Tx, tenantID, id int64) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getLocked(tenantID, id)
}

func (f *fakeBookings) getLocked(tenantID, id int64) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok || b.TenantID != tenantID {
		return nil, bookingRepo.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) LockBooking(ctx context.Context, tx database.Tx, tenantID, id int64) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getLocked(tenantID, id)
}

func (f *fakeBookings) ItemsForBooking(ctx context.Context, tx database.Tx, bookingID int64) ([]models.BookingItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[bookingID], nil
}

func (f *fakeBookings) UpdateStatus(ctx context.Context, tx database.Tx, id int64, status models.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	b.Status = status
	return nil
}

func (f *fakeBookings) SetConfirmationCode(ctx context.Context, tx database.Tx, id int64, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	b.ConfirmationCode = code
	return nil
}

func (f *fakeBookings) MarkPaid(ctx context.Context, tx database.Tx, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	b.Paid = true
	return nil
}

func (f *fakeBookings) CreateCancellation(ctx context.Context, tx database.Tx, c *models.BookingCancellation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	c.CancelledAt = f.now
	f.cancellations = append(f.cancellations, *c)
	return nil
}

func (f *fakeBookings) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bookings)
}

type fakeIdem struct {
	mu      sync.Mutex
	records map[string]*models.IdempotencyRecord
}

func newFakeIdem() *fakeIdem {
	return &fakeIdem{records: make(map[string]*models.IdempotencyRecord)}
}

func idemKey(tenantID int64, key string) string {
	return fmt.Sprintf("%d:%s", tenantID, key)
}

func (f *fakeIdem) TryInsert(ctx context.Context, tx database.Tx, tenantID int64, key, requestSHA string, expiresAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := idemKey(tenantID, key)
	if _, exists := f.records[k]; exists {
		return false, nil
	}
	f.records[k] = &models.IdempotencyRecord{
		TenantID:      tenantID,
		Key:           key,
		RequestSHA256: requestSHA,
		Status:        models.IdempotencyInProgress,
		ExpiresAt:     expiresAt,
	}
	return true, nil
}

func (f *fakeIdem) Get(ctx context.Context, tx database.Tx, tenantID int64, key string) (*models.IdempotencyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[idemKey(tenantID, key)]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeIdem) Finalize(ctx context.Context, tx database.Tx, tenantID int64, key string, status models.IdempotencyStatus, statusCode int, response []byte, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[idemKey(tenantID, key)]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	rec.Status = status
	rec.StatusCode = statusCode
	rec.Response = response
	rec.ExpiresAt = expiresAt
	return nil
}

func (f *fakeIdem) PurgeExpired(ctx context.Context, tx database.Tx, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var purged int64
	for k, rec := range f.records {
		if rec.ExpiresAt.Before(now) {
			delete(f.records, k)
			purged++
		}
	}
	return purged, nil
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []models.OutboxEvent
	nextID int64
}

func (f *fakeOutbox) Insert(ctx context.Context, tx database.Tx, ev *models.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ev.ID = f.nextID
	ev.Status = models.OutboxPending
	f.events = append(f.events, *ev)
	return nil
}

func (f *fakeOutbox) Claim(ctx context.Context, tx database.Tx, batch int, now time.Time) ([]models.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkCompleted(ctx context.Context, tx database.Tx, id int64, now time.Time) error {
	return nil
}

func (f *fakeOutbox) MarkRetry(ctx context.Context, tx database.Tx, id int64, attempts int, nextAttemptAt time.Time, lastErr string) error {
	return nil
}

func (f *fakeOutbox) MarkDeadLetter(ctx context.Context, tx database.Tx, id int64, lastErr string, now time.Time) error {
	return nil
}

func (f *fakeOutbox) ReleaseExpiredLeases(ctx context.Context, tx database.Tx, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeOutbox) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeInvalidator) InvalidateWindow(ctx context.Context, tenantID, resourceID int64, from, to time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}
