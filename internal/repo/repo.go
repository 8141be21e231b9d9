package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// Repository provides typed access to Postgres resources.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	schema string
}

// New opens a new connection pool to the database with the desired search_path.
func New(ctx context.Context, databaseURL, schema string, logger *slog.Logger) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if schema != "" {
		cfg.ConnConfig.RuntimeParams["search_path"] = schema
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	r := &Repository{
		pool:   pool,
		logger: logger.With("component", "repo"),
		schema: schema,
	}

	if err := r.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

// Close releases the connection pool.
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Ping ensures the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RunMigrations applies schema migrations on the connected database.
func (r *Repository) RunMigrations(ctx context.Context, filesystem fs.FS) error {
	return ApplyMigrations(ctx, r.pool, filesystem)
}

// CreateTenant registers a new restaurant bound to a WhatsApp channel id.
func (r *Repository) CreateTenant(ctx context.Context, tenant NewTenant) (*Tenant, error) {
	const q = `
INSERT INTO restaurants (channel_id, name, owner_contact, secret_hash)
VALUES ($1, $2, $3, $4)
RETURNING id, channel_id, name, owner_contact, secret_hash, active, created_at, updated_at;
`
	row := r.pool.QueryRow(ctx, q, tenant.ChannelID, tenant.Name, tenant.OwnerContact, tenant.SecretHash)

	var t Tenant
	if err := row.Scan(&t.ID, &t.ChannelID, &t.Name, &t.OwnerContact, &t.SecretHash, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateChannelID
		}
		return nil, fmt.Errorf("create restaurant: %w", err)
	}
	return &t, nil
}

// GetTenantByChannelID looks up the restaurant bound to channelID.
func (r *Repository) GetTenantByChannelID(ctx context.Context, channelID string) (*Tenant, error) {
	const q = `
SELECT id, channel_id, name, owner_contact, secret_hash, active, created_at, updated_at
FROM restaurants
WHERE channel_id = $1;
`
	var t Tenant
	err := r.pool.QueryRow(ctx, q, channelID).Scan(&t.ID, &t.ChannelID, &t.Name, &t.OwnerContact, &t.SecretHash, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get restaurant by channel id: %w", err)
	}
	return &t, nil
}

// ListTenants returns all restaurants, newest first.
func (r *Repository) ListTenants(ctx context.Context) ([]Tenant, error) {
	const q = `
SELECT id, channel_id, name, owner_contact, secret_hash, active, created_at, updated_at
FROM restaurants
ORDER BY created_at DESC;
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.ChannelID, &t.Name, &t.OwnerContact, &t.SecretHash, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan restaurant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restaurants: %w", err)
	}
	return tenants, nil
}

// SetTenantActive soft-enables or soft-disables a restaurant. Returns
// false when the restaurant does not exist.
func (r *Repository) SetTenantActive(ctx context.Context, tenantID string, active bool) (bool, error) {
	const q = `UPDATE restaurants SET active = $2, updated_at = NOW() WHERE id = $1;`
	ct, err := r.pool.Exec(ctx, q, tenantID, active)
	if err != nil {
		return false, fmt.Errorf("set restaurant active: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
