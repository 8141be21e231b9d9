package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// -- Tenants --

func (r *SQLiteRepository) CreateTenant(ctx context.Context, tenant NewTenant) (*Tenant, error) {
	// SQLite does not generate UUIDs; ids are generated in Go.
	const q = `
INSERT INTO restaurants (id, channel_id, name, owner_contact, secret_hash)
VALUES (?, ?, ?, ?, ?)
RETURNING id, channel_id, name, owner_contact, secret_hash, active, created_at, updated_at;
`
	row := r.db.QueryRowContext(ctx, q, randomUUID(), tenant.ChannelID, tenant.Name, tenant.OwnerContact, tenant.SecretHash)

	var t Tenant
	if err := row.Scan(&t.ID, &t.ChannelID, &t.Name, &t.OwnerContact, &t.SecretHash, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, ErrDuplicateChannelID
		}
		return nil, fmt.Errorf("create restaurant: %w", err)
	}
	return &t, nil
}

func (r *SQLiteRepository) GetTenantByChannelID(ctx context.Context, channelID string) (*Tenant, error) {
	const q = `
SELECT id, channel_id, name, owner_contact, secret_hash, active, created_at, updated_at
FROM restaurants
WHERE channel_id = ?
LIMIT 1;
`
	var t Tenant
	err := r.db.QueryRowContext(ctx, q, channelID).Scan(&t.ID, &t.ChannelID, &t.Name, &t.OwnerContact, &t.SecretHash, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get restaurant by channel id: %w", err)
	}
	return &t, nil
}

func (r *SQLiteRepository) ListTenants(ctx context.Context) ([]Tenant, error) {
	const q = `
SELECT id, channel_id, name, owner_contact, secret_hash, active, created_at, updated_at
FROM restaurants
ORDER BY created_at DESC, id DESC;
`
	rows, err := r.db.QueryContext(ctx, q)
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

func (r *SQLiteRepository) SetTenantActive(ctx context.Context, tenantID string, active bool) (bool, error) {
	const q = `UPDATE restaurants SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?;`
	res, err := r.db.ExecContext(ctx, q, active, tenantID)
	if err != nil {
		return false, fmt.Errorf("set restaurant active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set restaurant active rows: %w", err)
	}
	return affected > 0, nil
}

// -- Menu --

func (r *SQLiteRepository) UpsertMenuItem(ctx context.Context, tenantID, name string, price int64, glyph string) (*MenuItem, error) {
	if price < 0 {
		return nil, ErrInvalidPrice
	}
	const q = `
INSERT INTO menu_items (id, restaurant_id, name, price, glyph)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (restaurant_id, name) DO UPDATE SET
    price = excluded.price,
    glyph = excluded.glyph,
    available = 1,
    updated_at = CURRENT_TIMESTAMP
RETURNING id, restaurant_id, name, price, glyph, available, created_at, updated_at;
`
	var item MenuItem
	err := r.db.QueryRowContext(ctx, q, randomUUID(), tenantID, name, price, glyph).Scan(
		&item.ID, &item.TenantID, &item.Name, &item.Price, &item.Glyph, &item.Available, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert menu item: %w", err)
	}
	return &item, nil
}

func (r *SQLiteRepository) ListAvailableMenuItems(ctx context.Context, tenantID string) ([]MenuItem, error) {
	const q = `
SELECT id, restaurant_id, name, price, glyph, available, created_at, updated_at
FROM menu_items
WHERE restaurant_id = ? AND available = 1
ORDER BY name ASC;
`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		var item MenuItem
		if err := rows.Scan(&item.ID, &item.TenantID, &item.Name, &item.Price, &item.Glyph, &item.Available, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menu items: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) UpdateMenuItemPrice(ctx context.Context, tenantID, name string, price int64) (bool, error) {
	if price < 0 {
		return false, ErrInvalidPrice
	}
	const q = `
UPDATE menu_items SET price = ?, updated_at = CURRENT_TIMESTAMP
WHERE restaurant_id = ? AND name = ?;
`
	res, err := r.db.ExecContext(ctx, q, price, tenantID, name)
	if err != nil {
		return false, fmt.Errorf("update menu item price: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update menu item price rows: %w", err)
	}
	return affected > 0, nil
}

func (r *SQLiteRepository) RemoveMenuItem(ctx context.Context, tenantID, name string) (bool, error) {
	const q = `
UPDATE menu_items SET available = 0, updated_at = CURRENT_TIMESTAMP
WHERE restaurant_id = ? AND name = ? AND available = 1;
`
	res, err := r.db.ExecContext(ctx, q, tenantID, name)
	if err != nil {
		return false, fmt.Errorf("remove menu item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove menu item rows: %w", err)
	}
	return affected > 0, nil
}

// -- Order audit trail --

func (r *SQLiteRepository) InsertOrderLog(ctx context.Context, entry OrderLogEntry) error {
	const q = `
INSERT INTO order_logs (id, restaurant_id, sender, message, reply)
VALUES (?, NULLIF(?, ''), ?, ?, ?);
`
	_, err := r.db.ExecContext(ctx, q, randomUUID(), entry.TenantID, entry.Sender, entry.Message, entry.Reply)
	if err != nil {
		return fmt.Errorf("insert order log: %w", err)
	}
	return nil
}

func randomUUID() string {
	return uuid.NewString()
}

func isSQLiteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
