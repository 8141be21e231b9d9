package repo

import (
	"context"
	"fmt"
)

// UpsertMenuItem creates a menu item or, when (restaurant, name) already
// exists, replaces its price and glyph. The item is marked available again
// either way.
func (r *Repository) UpsertMenuItem(ctx context.Context, tenantID, name string, price int64, glyph string) (*MenuItem, error) {
	if price < 0 {
		return nil, ErrInvalidPrice
	}
	const q = `
INSERT INTO menu_items (restaurant_id, name, price, glyph)
VALUES ($1, $2, $3, $4)
ON CONFLICT (restaurant_id, name) DO UPDATE SET
    price = EXCLUDED.price,
    glyph = EXCLUDED.glyph,
    available = TRUE,
    updated_at = NOW()
RETURNING id, restaurant_id, name, price, glyph, available, created_at, updated_at;
`
	var item MenuItem
	err := r.pool.QueryRow(ctx, q, tenantID, name, price, glyph).Scan(
		&item.ID, &item.TenantID, &item.Name, &item.Price, &item.Glyph, &item.Available, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert menu item: %w", err)
	}
	return &item, nil
}

// ListAvailableMenuItems returns the restaurant's available items,
// alphabetical by name.
func (r *Repository) ListAvailableMenuItems(ctx context.Context, tenantID string) ([]MenuItem, error) {
	const q = `
SELECT id, restaurant_id, name, price, glyph, available, created_at, updated_at
FROM menu_items
WHERE restaurant_id = $1 AND available = TRUE
ORDER BY name ASC;
`
	rows, err := r.pool.Query(ctx, q, tenantID)
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

// UpdateMenuItemPrice changes the price of an existing item. Returns false
// when the item does not exist.
func (r *Repository) UpdateMenuItemPrice(ctx context.Context, tenantID, name string, price int64) (bool, error) {
	if price < 0 {
		return false, ErrInvalidPrice
	}
	const q = `
UPDATE menu_items SET price = $3, updated_at = NOW()
WHERE restaurant_id = $1 AND name = $2;
`
	ct, err := r.pool.Exec(ctx, q, tenantID, name, price)
	if err != nil {
		return false, fmt.Errorf("update menu item price: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// RemoveMenuItem marks an item unavailable. Rows are kept so the
// (restaurant, name) identity survives; read paths filter on the flag.
func (r *Repository) RemoveMenuItem(ctx context.Context, tenantID, name string) (bool, error) {
	const q = `
UPDATE menu_items SET available = FALSE, updated_at = NOW()
WHERE restaurant_id = $1 AND name = $2 AND available = TRUE;
`
	ct, err := r.pool.Exec(ctx, q, tenantID, name)
	if err != nil {
		return false, fmt.Errorf("remove menu item: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
