// File: services/schedule/reconcile.go
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotify/database"
	catalogRepo "slotify/database/repository/catalog"
	timeslotRepo "slotify/database/repository/timeslot"
	"slotify/models"
	"slotify/services/booking"

	"go.uber.org/zap"
)

// Report summarizes one reconciliation run over a resource window.
type Report struct {
	TenantID   int64                     `json:"tenant_id"`
	ResourceID int64                     `json:"resource_id"`
	From       time.Time                 `json:"from"`
	To         time.Time                 `json:"to"`
	Created    int                       `json:"created"`
	Removed    int                       `json:"removed"`
	Resized    int                       `json:"resized"`
	Conflicts  []models.ScheduleConflict `json:"conflicts,omitempty"`
}

// CompilerService reconciles the slot store against schedule rules.
type CompilerService interface {
	CompileResource(ctx context.Context, tenantID, resourceID int64, from, to time.Time) (*Report, error)
	CompileTenant(ctx context.Context, tenantID int64, from, to time.Time) ([]Report, error)
	RollHorizon(ctx context.Context) error
}

// DefaultCompiler materializes business hours minus holidays and time-offs
// into slot rows, one transaction per resource-day. Booked slots are never
// destroyed; they surface as conflicts instead.
type DefaultCompiler struct {
	DB          database.TxRunner
	Q           database.Tx
	Catalog     catalogRepo.CatalogRepository
	Slots       timeslotRepo.TimeSlotRepository
	Cache       booking.CacheInvalidator
	Logger      *zap.Logger
	HorizonDays int
	Now         func() time.Time
}

func (c *DefaultCompiler) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

func (c *DefaultCompiler) horizonDays() int {
	if c.HorizonDays <= 0 {
		return 30
	}
	return c.HorizonDays
}

// CompileResource reconciles one resource over [from, to). The window is
// walked in tenant-local days so DST days compile with their true number of
// wall-clock slots.
func (c *DefaultCompiler) CompileResource(ctx context.Context, tenantID, resourceID int64, from, to time.Time) (*Report, error) {
	tenant, err := c.Catalog.GetTenant(ctx, c.Q, tenantID)
	if err != nil {
		return nil, err
	}
	res, err := c.Catalog.GetResource(ctx, c.Q, tenantID, resourceID)
	if err != nil {
		return nil, err
	}
	hours, err := c.Catalog.BusinessHours(ctx, c.Q, tenantID)
	if err != nil {
		return nil, err
	}

	loc := tenant.Location()
	holidays, err := c.holidaySet(ctx, tenant, from, to)
	if err != nil {
		return nil, err
	}
	timeOffs, err := c.Catalog.TimeOffs(ctx, c.Q, resourceID, from, to)
	if err != nil {
		return nil, err
	}

	report := &Report{TenantID: tenantID, ResourceID: resourceID, From: from, To: to}

	day := localMidnight(from, loc)
	for ; day.Before(to); day = nextLocalDay(day, loc) {
		dayEnd := nextLocalDay(day, loc)
		intervals := DayIntervals(tenant, day, hours, holidays, timeOffs)
		desired := SlotsForIntervals(intervals, tenantID, resourceID, tenant.SlotGranularityMin, res.Capacity)

		err := c.DB.WithinTx(ctx, func(tx database.Tx) error {
			return c.reconcileDay(ctx, tx, res, desired, day.UTC(), dayEnd.UTC(), report)
		})
		if err != nil {
			return nil, fmt.Errorf("reconcile %s day %s: %w", res.Name, day.Format("2006-01-02"), err)
		}
		if c.Cache != nil {
			c.Cache.InvalidateWindow(ctx, tenantID, resourceID, day.UTC(), dayEnd.UTC())
		}
	}

	if len(report.Conflicts) > 0 {
		c.Logger.Warn("schedule compile left conflicts",
			zap.Int64("tenant_id", tenantID),
			zap.Int64("resource_id", resourceID),
			zap.Int("conflicts", len(report.Conflicts)))
	}
	return report, nil
}

// reconcileDay diffs desired vs existing inside one transaction. The existing
// rows are read FOR UPDATE so a booking committing between the read and a
// SetCapacity cannot have its decrement overwritten.
func (c *DefaultCompiler) reconcileDay(ctx context.Context, tx database.Tx, res *models.Resource, desired []models.Slot, dayStart, dayEnd time.Time, report *Report) error {
	existing, err := c.Slots.LockForWindow(ctx, tx, res.TenantID, res.ID, dayStart, dayEnd)
	if err != nil {
		return err
	}
	booked, err := c.Slots.BookedUnits(ctx, tx, res.ID, dayStart, dayEnd)
	if err != nil {
		return err
	}

	wanted := make(map[int64]bool, len(desired))
	have := make(map[int64]bool, len(existing))
	for _, s := range existing {
		have[s.StartAt.Unix()] = true
	}

	var toCreate []models.Slot
	for _, s := range desired {
		wanted[s.StartAt.Unix()] = true
		if !have[s.StartAt.Unix()] {
			toCreate = append(toCreate, s)
		}
	}
	if len(toCreate) > 0 {
		if err := c.Slots.CreateMany(ctx, tx, toCreate); err != nil {
			return err
		}
		report.Created += len(toCreate)
	}

	for _, s := range existing {
		held := booked[s.ID]
		if wanted[s.StartAt.Unix()] {
			target := res.Capacity - held
			if target < 0 {
				report.Conflicts = append(report.Conflicts, conflict(s, res.Capacity, "bookings exceed new capacity"))
				continue
			}
			if target != s.AvailableCapacity {
				if err := c.Slots.SetCapacity(ctx, tx, s.ID, target); err != nil {
					return err
				}
				report.Resized++
			}
			continue
		}

		// Slot fell out of the schedule.
		if held > 0 {
			report.Conflicts = append(report.Conflicts, conflict(s, res.Capacity, "booked outside the new schedule"))
			continue
		}
		deleted, err := c.Slots.DeleteIfUntouched(ctx, tx, s.ID, s.AvailableCapacity)
		if err != nil {
			return err
		}
		if deleted {
			report.Removed++
		} else {
			report.Conflicts = append(report.Conflicts, conflict(s, res.Capacity, "claimed while reconciling"))
		}
	}
	return nil
}

// CompileTenant reconciles every active resource of the tenant.
func (c *DefaultCompiler) CompileTenant(ctx context.Context, tenantID int64, from, to time.Time) ([]Report, error) {
	resources, err := c.Catalog.ActiveResources(ctx, c.Q, tenantID)
	if err != nil {
		return nil, err
	}
	var reports []Report
	for _, res := range resources {
		r, err := c.CompileResource(ctx, tenantID, res.ID, from, to)
		if err != nil {
			return reports, err
		}
		reports = append(reports, *r)
	}
	return reports, nil
}

// RollHorizon extends every active tenant's slot inventory to the rolling
// horizon. Runs daily; each run re-reconciles the whole window, so missed
// runs self-heal.
func (c *DefaultCompiler) RollHorizon(ctx context.Context) error {
	tenants, err := c.Catalog.ActiveTenants(ctx, c.Q)
	if err != nil {
		return err
	}

	now := c.now()
	var firstErr error
	for _, t := range tenants {
		loc := t.Location()
		from := localMidnight(now, loc)
		to := from.AddDate(0, 0, c.horizonDays())
		if _, err := c.CompileTenant(ctx, t.ID, from, to); err != nil {
			c.Logger.Error("horizon roll failed for tenant",
				zap.Int64("tenant_id", t.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return errors.New("horizon roll completed with errors")
	}
	return nil
}

func (c *DefaultCompiler) holidaySet(ctx context.Context, tenant *models.Tenant, from, to time.Time) (map[string]bool, error) {
	loc := tenant.Location()
	list, err := c.Catalog.Holidays(ctx, c.Q, tenant.ID,
		from.In(loc).Format("2006-01-02"), to.In(loc).Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(list))
	for _, h := range list {
		set[h.Date] = true
	}
	return set, nil
}

func conflict(s models.Slot, fullCapacity int, reason string) models.ScheduleConflict {
	return models.ScheduleConflict{
		ResourceID:        s.ResourceID,
		SlotID:            s.ID,
		StartAt:           s.StartAt,
		EndAt:             s.EndAt,
		AvailableCapacity: s.AvailableCapacity,
		FullCapacity:      fullCapacity,
		Reason:            reason,
	}
}

func localMidnight(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// nextLocalDay advances one calendar day in the location; on DST days this is
// 23 or 25 hours, never a silent skip.
func nextLocalDay(day time.Time, loc *time.Location) time.Time {
	lt := day.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day()+1, 0, 0, 0, 0, loc)
}
