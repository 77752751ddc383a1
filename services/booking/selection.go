package booking

import (
	"context"
	"errors"
	"time"

	"slotify/database"
	catalogRepo "slotify/database/repository/catalog"
	"slotify/models"
)

// lockByStart resolves a start_at request: align, choose a resource, lock the
// slot sequence. The advisory capacity read during selection is non-locking;
// the locked read is authoritative.
func (c *DefaultCoordinator) lockByStart(ctx context.Context, tx database.Tx, tenant *models.Tenant, svc *models.Service, in models.BookingInput) ([]models.Slot, Boundaries, *Error, error) {
	requested, perr := time.Parse(time.RFC3339, in.StartAt)
	if perr != nil {
		return nil, Boundaries{}, NewError(CodeInvalidRequest, "start_at must be RFC 3339").
			WithDetail("start_at", "invalid timestamp"), nil
	}

	bounds, berr := ComputeBoundaries(requested.UTC(), svc.TotalMinutes(), tenant.SlotGranularityMin)
	if berr != nil {
		return nil, Boundaries{}, NewError(CodeValidationFailed, "%s", berr.Error()), nil
	}

	resourceID, bizErr, err := c.selectResource(ctx, tx, tenant, svc, in.ResourceID, bounds)
	if err != nil || bizErr != nil {
		return nil, Boundaries{}, bizErr, err
	}

	starts := bounds.SlotStarts(tenant.SlotGranularityMin)
	locked, err := c.Slots.LockSequence(ctx, tx, tenant.ID, resourceID, starts)
	if err != nil {
		return nil, Boundaries{}, nil, err
	}
	if bizErr := checkSequence(locked, starts); bizErr != nil {
		return nil, Boundaries{}, bizErr, nil
	}
	return locked, bounds, nil, nil
}

// selectResource honors an explicit hint or picks deterministically: the
// lowest-id active resource linked to the service whose candidate window
// still shows capacity.
func (c *DefaultCoordinator) selectResource(ctx context.Context, tx database.Tx, tenant *models.Tenant, svc *models.Service, hint *int64, bounds Boundaries) (int64, *Error, error) {
	if hint != nil {
		res, err := c.Catalog.GetResource(ctx, tx, tenant.ID, *hint)
		if errors.Is(err, catalogRepo.ErrNotFound) {
			return 0, NewError(CodeValidationFailed, "unknown resource %d", *hint), nil
		}
		if err != nil {
			return 0, nil, err
		}
		if !res.Active {
			return 0, NewError(CodeValidationFailed, "resource %d is inactive", *hint), nil
		}
		linked, err := c.Catalog.ServiceLinkedToResource(ctx, tx, svc.ID, res.ID)
		if err != nil {
			return 0, nil, err
		}
		if !linked {
			return 0, NewError(CodeValidationFailed, "resource %d does not offer service %d", res.ID, svc.ID), nil
		}
		return res.ID, nil, nil
	}

	resources, err := c.Catalog.ResourcesForService(ctx, tx, tenant.ID, svc.ID)
	if err != nil {
		return 0, nil, err
	}
	if len(resources) == 0 {
		return 0, NewError(CodeValidationFailed, "no active resource offers service %d", svc.ID), nil
	}

	starts := bounds.SlotStarts(tenant.SlotGranularityMin)
	for _, res := range resources {
		open, err := c.Slots.OpenSlotsInWindow(ctx, tx, tenant.ID, res.ID, bounds.AlignedStart, bounds.AlignedEnd)
		if err != nil {
			return 0, nil, err
		}
		if coversAll(open, starts) {
			return res.ID, nil, nil
		}
	}

	// Nothing bookable: missing rows read as slot_not_found, present rows
	// without capacity as sold out.
	existing, err := c.Slots.ExistingForWindow(ctx, tx, tenant.ID, resources[0].ID, bounds.AlignedStart, bounds.AlignedEnd)
	if err != nil {
		return 0, nil, err
	}
	if len(existing) == 0 {
		return 0, NewError(CodeSlotNotFound, "no slots exist at %s", bounds.AlignedStart.UTC().Format(time.RFC3339)), nil
	}
	return 0, soldOut(bounds.AlignedStart), nil
}

// lockExplicitSlots resolves a timeslot_ids request.
func (c *DefaultCoordinator) lockExplicitSlots(ctx context.Context, tx database.Tx, tenant *models.Tenant, svc *models.Service, in models.BookingInput) ([]models.Slot, Boundaries, *Error, error) {
	locked, err := c.Slots.LockByIDs(ctx, tx, tenant.ID, in.TimeslotIDs)
	if err != nil {
		return nil, Boundaries{}, nil, err
	}
	if len(locked) != len(in.TimeslotIDs) {
		return nil, Boundaries{}, NewError(CodeSlotNotFound,
			"%d of %d requested timeslots do not exist", len(in.TimeslotIDs)-len(locked), len(in.TimeslotIDs)), nil
	}

	resourceID := locked[0].ResourceID
	for _, s := range locked[1:] {
		if s.ResourceID != resourceID {
			return nil, Boundaries{}, NewError(CodeValidationFailed,
				"timeslots must all belong to one resource"), nil
		}
	}
	if in.ResourceID != nil && *in.ResourceID != resourceID {
		return nil, Boundaries{}, NewError(CodeValidationFailed,
			"timeslots belong to resource %d, not requested resource %d", resourceID, *in.ResourceID), nil
	}

	// Explicit ids go through the same resource preconditions as start_at
	// selection: the resource must be active and offer the service.
	res, err := c.Catalog.GetResource(ctx, tx, tenant.ID, resourceID)
	if errors.Is(err, catalogRepo.ErrNotFound) {
		return nil, Boundaries{}, NewError(CodeValidationFailed, "unknown resource %d", resourceID), nil
	}
	if err != nil {
		return nil, Boundaries{}, nil, err
	}
	if !res.Active {
		return nil, Boundaries{}, NewError(CodeValidationFailed, "resource %d is inactive", resourceID), nil
	}
	linked, err := c.Catalog.ServiceLinkedToResource(ctx, tx, svc.ID, resourceID)
	if err != nil {
		return nil, Boundaries{}, nil, err
	}
	if !linked {
		return nil, Boundaries{}, NewError(CodeValidationFailed,
			"resource %d does not offer service %d", resourceID, svc.ID), nil
	}

	granularity := time.Duration(tenant.SlotGranularityMin) * time.Minute
	for i := 1; i < len(locked); i++ {
		if !locked[i].StartAt.Equal(locked[i-1].StartAt.Add(granularity)) {
			return nil, Boundaries{}, NewError(CodeSlotDiscontinuous,
				"timeslots are not contiguous at %s", locked[i].StartAt.UTC().Format(time.RFC3339)), nil
		}
	}

	required := RequiredSlots(svc.TotalMinutes(), tenant.SlotGranularityMin)
	if len(locked) != required {
		return nil, Boundaries{}, NewError(CodeValidationFailed,
			"service requires %d slots, got %d", required, len(locked)), nil
	}

	bounds := Boundaries{
		AlignedStart:  locked[0].StartAt,
		AlignedEnd:    locked[len(locked)-1].EndAt,
		RequiredSlots: required,
	}
	return locked, bounds, nil, nil
}

// checkSequence verifies the locked rows cover every expected start. A
// missing boundary row is slot_not_found; a hole inside the range is
// slot_discontinuous.
func checkSequence(locked []models.Slot, starts []time.Time) *Error {
	if len(locked) == len(starts) {
		return nil
	}
	present := make(map[int64]bool, len(locked))
	for _, s := range locked {
		present[s.StartAt.Unix()] = true
	}
	for i, want := range starts {
		if present[want.Unix()] {
			continue
		}
		if i == 0 || i == len(starts)-1 {
			return NewError(CodeSlotNotFound, "no slot exists at %s", want.UTC().Format(time.RFC3339))
		}
		return NewError(CodeSlotDiscontinuous, "slot sequence has a hole at %s", want.UTC().Format(time.RFC3339))
	}
	return NewError(CodeSlotNotFound, "slot sequence incomplete")
}

// coversAll reports whether the open slots include every expected start with
// remaining capacity.
func coversAll(open []models.Slot, starts []time.Time) bool {
	if len(open) < len(starts) {
		return false
	}
	byStart := make(map[int64]bool, len(open))
	for _, s := range open {
		byStart[s.StartAt.Unix()] = true
	}
	for _, want := range starts {
		if !byStart[want.Unix()] {
			return false
		}
	}
	return true
}
