// File: database/repository/catalog/interface.go
package catalogRepo

import (
	"context"
	"errors"
	"time"

	"slotify/database"
	"slotify/models"
)

// ErrNotFound is returned when a catalog row does not exist.
var ErrNotFound = errors.New("catalog: not found")

// CatalogRepository reads tenants, resources, services and schedule rules.
// All methods take the querier so they compose with the coordinator's
// transaction.
type CatalogRepository interface {
	GetTenant(ctx context.Context, tx database.Tx, id int64) (*models.Tenant, error)
	ActiveTenants(ctx context.Context, tx database.Tx) ([]models.Tenant, error)
	GetService(ctx context.Context, tx database.Tx, tenantID, serviceID int64) (*models.Service, error)
	GetResource(ctx context.Context, tx database.Tx, tenantID, resourceID int64) (*models.Resource, error)
	ResourcesForService(ctx context.Context, tx database.Tx, tenantID, serviceID int64) ([]models.Resource, error)
	ActiveResources(ctx context.Context, tx database.Tx, tenantID int64) ([]models.Resource, error)
	ServiceLinkedToResource(ctx context.Context, tx database.Tx, serviceID, resourceID int64) (bool, error)
	BusinessHours(ctx context.Context, tx database.Tx, tenantID int64) ([]models.BusinessHour, error)
	Holidays(ctx context.Context, tx database.Tx, tenantID int64, from, to string) ([]models.Holiday, error)
	TimeOffs(ctx context.Context, tx database.Tx, resourceID int64, from, to time.Time) ([]models.TimeOff, error)
}

// NewPgCatalogRepo constructs the Postgres-backed CatalogRepository.
func NewPgCatalogRepo() CatalogRepository {
	return &pgCatalogRepo{}
}

type pgCatalogRepo struct{}
