package repo

import (
	"context"
	"io/fs"
)

// Store defines the interface for data persistence. Both the Postgres
// and SQLite repositories satisfy it; the driver is chosen at startup.
type Store interface {
	// Lifecycle
	Close()
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context, filesystem fs.FS) error

	// Tenants
	CreateTenant(ctx context.Context, tenant NewTenant) (*Tenant, error)
	GetTenantByChannelID(ctx context.Context, channelID string) (*Tenant, error)
	ListTenants(ctx context.Context) ([]Tenant, error)
	SetTenantActive(ctx context.Context, tenantID string, active bool) (bool, error)

	// Menu
	UpsertMenuItem(ctx context.Context, tenantID, name string, price int64, glyph string) (*MenuItem, error)
	ListAvailableMenuItems(ctx context.Context, tenantID string) ([]MenuItem, error)
	UpdateMenuItemPrice(ctx context.Context, tenantID, name string, price int64) (bool, error)
	RemoveMenuItem(ctx context.Context, tenantID, name string) (bool, error)

	// Order audit trail
	InsertOrderLog(ctx context.Context, entry OrderLogEntry) error
}
