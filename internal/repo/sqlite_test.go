package repo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"chefbot/migrations"
)

func newTestStore(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(r.Close)

	if err := r.RunMigrations(ctx, migrations.Files); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return r
}

func mustCreateTenant(t *testing.T, r *SQLiteRepository, channelID string) *Tenant {
	t.Helper()
	tenant, err := r.CreateTenant(context.Background(), NewTenant{
		Name:         "Test Kitchen",
		ChannelID:    channelID,
		OwnerContact: "+2349012345678",
		SecretHash:   "$2a$10$hash",
	})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	return tenant
}

func TestCreateTenantDuplicateChannelID(t *testing.T) {
	r := newTestStore(t)
	ctx := context.Background()

	mustCreateTenant(t, r, "111222333")

	_, err := r.CreateTenant(ctx, NewTenant{
		Name:         "Another Kitchen",
		ChannelID:    "111222333",
		OwnerContact: "+2348000000000",
		SecretHash:   "$2a$10$hash",
	})
	if !errors.Is(err, ErrDuplicateChannelID) {
		t.Fatalf("err = %v, want ErrDuplicateChannelID", err)
	}

	tenants, err := r.ListTenants(ctx)
	if err != nil {
		t.Fatalf("list tenants: %v", err)
	}
	if len(tenants) != 1 {
		t.Fatalf("tenant count = %d, want 1 after failed duplicate", len(tenants))
	}
}

func TestGetTenantByChannelID(t *testing.T) {
	r := newTestStore(t)
	ctx := context.Background()

	created := mustCreateTenant(t, r, "111222333")

	got, err := r.GetTenantByChannelID(ctx, "111222333")
	if err != nil {
		t.Fatalf("get tenant: %v", err)
	}
	if got.ID != created.ID || got.Name != "Test Kitchen" || !got.Active {
		t.Fatalf("unexpected tenant: %+v", got)
	}

	if _, err := r.GetTenantByChannelID(ctx, "999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSetTenantActive(t *testing.T) {
	r := newTestStore(t)
	ctx := context.Background()

	tenant := mustCreateTenant(t, r, "111222333")

	ok, err := r.SetTenantActive(ctx, tenant.ID, false)
	if err != nil || !ok {
		t.Fatalf("set active: ok=%v err=%v", ok, err)
	}

	got, err := r.GetTenantByChannelID(ctx, "111222333")
	if err != nil {
		t.Fatalf("get tenant: %v", err)
	}
	if got.Active {
		t.Fatal("tenant should be inactive")
	}

	ok, err = r.SetTenantActive(ctx, "no-such-id", true)
	if err != nil {
		t.Fatalf("set active missing: %v", err)
	}
	if ok {
		t.Fatal("expected false for unknown tenant")
	}
}

func TestUpsertMenuItemIdempotent(t *testing.T) {
	r := newTestStore(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, r, "111222333")

	if _, err := r.UpsertMenuItem(ctx, tenant.ID, "Jollof Rice", 2500, "🍛"); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if _, err := r.UpsertMenuItem(ctx, tenant.ID, "Jollof Rice", 2700, "🍛"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	items, err := r.ListAvailableMenuItems(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("item count = %d, want 1", len(items))
	}
	if items[0].Name != "Jollof Rice" || items[0].Price != 2700 {
		t.Fatalf("unexpected item: %+v", items[0])
	}
}

func TestUpsertMenuItemInvalidPrice(t *testing.T) {
	r := newTestStore(t)
	tenant := mustCreateTenant(t, r, "111222333")

	_, err := r.UpsertMenuItem(context.Background(), tenant.ID, "Jollof Rice", -1, "🍛")
	if !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("err = %v, want ErrInvalidPrice", err)
	}
}

func TestListAvailableMenuItemsOrderingAndFiltering(t *testing.T) {
	r := newTestStore(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, r, "111222333")

	for _, item := range []struct {
		name  string
		price int64
	}{
		{"Suya", 1500},
		{"Chicken", 3000},
		{"Jollof Rice", 2500},
	} {
		if _, err := r.UpsertMenuItem(ctx, tenant.ID, item.name, item.price, ""); err != nil {
			t.Fatalf("upsert %s: %v", item.name, err)
		}
	}

	ok, err := r.RemoveMenuItem(ctx, tenant.ID, "Chicken")
	if err != nil || !ok {
		t.Fatalf("remove: ok=%v err=%v", ok, err)
	}

	items, err := r.ListAvailableMenuItems(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("item count = %d, want 2", len(items))
	}
	if items[0].Name != "Jollof Rice" || items[1].Name != "Suya" {
		t.Fatalf("unexpected order: %s, %s", items[0].Name, items[1].Name)
	}
}

func TestRemoveMenuItemThenUpsertRestores(t *testing.T) {
	r := newTestStore(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, r, "111222333")

	if _, err := r.UpsertMenuItem(ctx, tenant.ID, "Suya", 1500, "🍢"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if ok, err := r.RemoveMenuItem(ctx, tenant.ID, "Suya"); err != nil || !ok {
		t.Fatalf("remove: ok=%v err=%v", ok, err)
	}

	// Removing twice reports false; the row is already unavailable.
	if ok, err := r.RemoveMenuItem(ctx, tenant.ID, "Suya"); err != nil || ok {
		t.Fatalf("second remove: ok=%v err=%v", ok, err)
	}

	if _, err := r.UpsertMenuItem(ctx, tenant.ID, "Suya", 1800, "🍢"); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	items, err := r.ListAvailableMenuItems(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 || items[0].Price != 1800 {
		t.Fatalf("unexpected items after restore: %+v", items)
	}
}

func TestUpdateMenuItemPrice(t *testing.T) {
	r := newTestStore(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, r, "111222333")

	if _, err := r.UpsertMenuItem(ctx, tenant.ID, "Chicken", 3000, "🍗"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	ok, err := r.UpdateMenuItemPrice(ctx, tenant.ID, "Chicken", 3200)
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}

	items, err := r.ListAvailableMenuItems(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if items[0].Price != 3200 {
		t.Fatalf("price = %d, want 3200", items[0].Price)
	}

	ok, err = r.UpdateMenuItemPrice(ctx, tenant.ID, "Pizza", 5000)
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if ok {
		t.Fatal("expected false for unknown item")
	}
}

func TestInsertOrderLog(t *testing.T) {
	r := newTestStore(t)
	ctx := context.Background()
	tenant := mustCreateTenant(t, r, "111222333")

	if err := r.InsertOrderLog(ctx, OrderLogEntry{
		TenantID: tenant.ID,
		Sender:   "2348010000000",
		Message:  "What's on the menu?",
		Reply:    "We have Jollof Rice!",
	}); err != nil {
		t.Fatalf("insert order log: %v", err)
	}

	// Unresolved tenants are logged with a NULL restaurant reference.
	if err := r.InsertOrderLog(ctx, OrderLogEntry{
		Sender:  "2348010000001",
		Message: "hi",
		Reply:   "hello",
	}); err != nil {
		t.Fatalf("insert order log without tenant: %v", err)
	}
}
