package repo

import (
	"context"
	"fmt"
)

// InsertOrderLog appends an audit record for a processed message. Entries
// with an unresolved tenant are stored with a NULL restaurant reference.
func (r *Repository) InsertOrderLog(ctx context.Context, entry OrderLogEntry) error {
	const q = `
INSERT INTO order_logs (restaurant_id, sender, message, reply)
VALUES (NULLIF($1, '')::uuid, $2, $3, $4);
`
	_, err := r.pool.Exec(ctx, q, entry.TenantID, entry.Sender, entry.Message, entry.Reply)
	if err != nil {
		return fmt.Errorf("insert order log: %w", err)
	}
	return nil
}
