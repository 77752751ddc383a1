// File: services/availability/availability.go
package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"slotify/database"
	catalogRepo "slotify/database/repository/catalog"
	timeslotRepo "slotify/database/repository/timeslot"
	"slotify/models"
	"slotify/services/booking"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Service is the advisory availability view over the slot store. Results may
// be cached briefly; only the coordinator's locked read is authoritative.
type Service interface {
	ListStarts(ctx context.Context, tenantID, serviceID int64, from, to time.Time) ([]models.AvailableStart, error)
	InvalidateWindow(ctx context.Context, tenantID, resourceID int64, from, to time.Time)
}

// DefaultService scans open slots per eligible resource and folds them into
// aligned candidate starts with full contiguous coverage.
type DefaultService struct {
	Q       database.Tx
	Catalog catalogRepo.CatalogRepository
	Slots   timeslotRepo.TimeSlotRepository
	Cache   *redis.Client
	Logger  *zap.Logger
	TTL     time.Duration
}

const maxCacheTTL = 30 * time.Second

func (s *DefaultService) ttl() time.Duration {
	if s.TTL <= 0 || s.TTL > maxCacheTTL {
		return maxCacheTTL
	}
	return s.TTL
}

func cacheKey(tenantID, resourceID int64, day time.Time) string {
	return fmt.Sprintf("avail:%d:%d:%s", tenantID, resourceID, day.Format("2006-01-02"))
}

// ListStarts returns every aligned start in [from, to) for which at least one
// eligible resource has a contiguous run of required slots with capacity.
func (s *DefaultService) ListStarts(ctx context.Context, tenantID, serviceID int64, from, to time.Time) ([]models.AvailableStart, error) {
	tenant, err := s.Catalog.GetTenant(ctx, s.Q, tenantID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrNotFound) {
			return nil, booking.NewError(booking.CodeValidationFailed, "unknown tenant %d", tenantID)
		}
		return nil, err
	}
	svc, err := s.Catalog.GetService(ctx, s.Q, tenantID, serviceID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrNotFound) {
			return nil, booking.NewError(booking.CodeValidationFailed, "unknown service %d", serviceID)
		}
		return nil, err
	}
	resources, err := s.Catalog.ResourcesForService(ctx, s.Q, tenantID, serviceID)
	if err != nil {
		return nil, err
	}

	granularity := time.Duration(tenant.SlotGranularityMin) * time.Minute
	required := booking.RequiredSlots(svc.TotalMinutes(), tenant.SlotGranularityMin)
	span := time.Duration(required) * granularity

	seen := make(map[int64]bool)
	var out []models.AvailableStart
	for _, res := range resources {
		// Read past `to` so a run straddling the window end still counts.
		open, err := s.openSlots(ctx, tenantID, res.ID, from, to.Add(span))
		if err != nil {
			return nil, err
		}
		for _, start := range runStarts(open, required, granularity) {
			if start.Before(from) || !start.Before(to) {
				continue
			}
			if seen[start.Unix()] {
				continue
			}
			seen[start.Unix()] = true
			out = append(out, models.AvailableStart{
				ResourceID: res.ID,
				StartAt:    start,
				EndAt:      start.Add(span),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

// openSlots reads open slot rows day by day through the cache.
func (s *DefaultService) openSlots(ctx context.Context, tenantID, resourceID int64, from, to time.Time) ([]models.Slot, error) {
	var all []models.Slot
	day := from.UTC().Truncate(24 * time.Hour)
	for ; day.Before(to); day = day.Add(24 * time.Hour) {
		slots, err := s.openSlotsForDay(ctx, tenantID, resourceID, day)
		if err != nil {
			return nil, err
		}
		for _, sl := range slots {
			if sl.StartAt.Before(from) || !sl.StartAt.Before(to) {
				continue
			}
			all = append(all, sl)
		}
	}
	return all, nil
}

func (s *DefaultService) openSlotsForDay(ctx context.Context, tenantID, resourceID int64, day time.Time) ([]models.Slot, error) {
	key := cacheKey(tenantID, resourceID, day)
	if s.Cache != nil {
		if data, err := s.Cache.Get(ctx, key).Result(); err == nil {
			var cached []models.Slot
			if err := json.Unmarshal([]byte(data), &cached); err == nil {
				return cached, nil
			}
		}
	}

	slots, err := s.Slots.OpenSlotsInWindow(ctx, s.Q, tenantID, resourceID, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if data, err := json.Marshal(slots); err == nil {
			if err := s.Cache.Set(ctx, key, data, s.ttl()).Err(); err != nil {
				s.Logger.Debug("availability cache set failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return slots, nil
}

// InvalidateWindow drops the cached days covering [from, to] for the
// resource. Called after any commit that changes that window.
func (s *DefaultService) InvalidateWindow(ctx context.Context, tenantID, resourceID int64, from, to time.Time) {
	if s.Cache == nil {
		return
	}
	day := from.UTC().Truncate(24 * time.Hour)
	end := to.UTC()
	for ; !day.After(end); day = day.Add(24 * time.Hour) {
		if err := s.Cache.Del(ctx, cacheKey(tenantID, resourceID, day)).Err(); err != nil {
			s.Logger.Debug("availability cache invalidate failed",
				zap.Int64("tenant_id", tenantID), zap.Int64("resource_id", resourceID), zap.Error(err))
		}
	}
}

// runStarts emits the start of every contiguous run of at least `required`
// open slots with step = granularity.
func runStarts(open []models.Slot, required int, granularity time.Duration) []time.Time {
	var starts []time.Time
	for i := 0; i+required <= len(open); i++ {
		ok := true
		for j := i + 1; j < i+required; j++ {
			if !open[j].StartAt.Equal(open[j-1].StartAt.Add(granularity)) {
				ok = false
				break
			}
		}
		if ok {
			starts = append(starts, open[i].StartAt)
		}
	}
	return starts
}
