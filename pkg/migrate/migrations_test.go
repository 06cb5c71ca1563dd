package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/angelmondragon/estore-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestInventoryMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_inventories"), []string{
		"CREATE TABLE IF NOT EXISTS inventories",
		"CHECK (quantity >= 0)",
		"CONSTRAINT ux_inventories_type_size UNIQUE (item_type, size)",
		"DROP TABLE IF EXISTS inventories",
	})
}

func TestCartMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_carts"), []string{
		"CHECK (quantity >= 1)",
		"UNIQUE (cart_id, inventory_id, item_id)",
		"FOREIGN KEY (cart_id) REFERENCES carts(id) ON DELETE CASCADE",
		"FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE SET NULL",
		"FOREIGN KEY (inventory_id) REFERENCES inventories(id) ON DELETE SET NULL",
	})
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"), []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_cart_pending ON orders (cart_id) WHERE status = 'pending'",
		"order_id uuid NOT NULL UNIQUE",
		"total_price numeric(10,2) NOT NULL",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"'delivery_refused'",
	})
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Tracking Index")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_tracking_index.sql") {
		t.Fatalf("unexpected path %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	if err := migrate.ValidateFS(migrate.Embedded()); err != nil {
		t.Fatalf("validate embedded: %v", err)
	}
	disk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	embedded, err := fs.Glob(migrate.Embedded(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	if len(disk) != len(embedded) {
		t.Fatalf("embedded has %d files, disk has %d", len(embedded), len(disk))
	}
}

func TestValidateFSRejectsDuplicateVersionAndSwappedSections(t *testing.T) {
	body := &fstest.MapFile{Data: []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")}
	dup := fstest.MapFS{
		"20260101000000_a.sql": body,
		"20260101000000_b.sql": body,
	}
	if err := migrate.ValidateFS(dup); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate version error, got %v", err)
	}

	swapped := fstest.MapFS{
		"20260101000000_a.sql": &fstest.MapFile{Data: []byte("-- +goose Down\n-- +goose Up\n")},
	}
	if err := migrate.ValidateFS(swapped); err == nil {
		t.Fatal("expected error for Down before Up")
	}
}

func TestCreateSQLMigrationSortsAfterFutureVersion(t *testing.T) {
	dir := t.TempDir()
	future := filepath.Join(dir, "29991231235959_later.sql")
	if err := os.WriteFile(future, []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	path, err := migrate.CreateSQLMigration(dir, "next")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) <= filepath.Base(future) {
		t.Fatalf("new migration %q must sort after %q", path, future)
	}
}
