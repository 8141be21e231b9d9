package repo

import "time"

// Tenant represents a restaurant account bound to a WhatsApp channel.
type Tenant struct {
	ID           string
	ChannelID    string
	Name         string
	OwnerContact string
	SecretHash   string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewTenant carries data used to register a restaurant.
type NewTenant struct {
	Name         string
	ChannelID    string
	OwnerContact string
	SecretHash   string
}

// MenuItem represents a priced item on a restaurant menu. Price is in
// minor currency units.
type MenuItem struct {
	ID        string
	TenantID  string
	Name      string
	Price     int64
	Glyph     string
	Available bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderLogEntry is the append-only audit record written for each
// processed message. It is never read back by the service.
type OrderLogEntry struct {
	TenantID string
	Sender   string
	Message  string
	Reply    string
}
