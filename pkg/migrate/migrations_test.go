package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Fatalf("migration missing %q", check)
		}
	}
}

func TestProductsMigrationGuardsStock(t *testing.T) {
	assertContains(t, readMigration(t, "create_products"), []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CREATE TABLE IF NOT EXISTS product_variants",
		"CHECK (stock >= 0)",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
	})
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"), []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_line_items",
		"CREATE TABLE IF NOT EXISTS order_status_history",
		"CHECK (status IN ('pending', 'accepted', 'rejected', 'shipped', 'delivered', 'cancelled'))",
		"CHECK (payment_status IN ('unpaid', 'paid', 'refunded'))",
		"CHECK (quantity >= 1)",
		"ux_order_status_history_seq ON order_status_history (order_id, seq)",
		"idx_orders_user_created ON orders (user_id, created_at DESC, id DESC)",
	})
}

func TestOutboxMigrationIndexesPending(t *testing.T) {
	assertContains(t, readMigration(t, "create_outbox_events"), []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"WHERE published_at IS NULL",
	})
}

func TestValidateDirAcceptsMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Order Tracking!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "_add_order_tracking.sql") {
		t.Fatalf("unexpected path %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	embedded, err := migrate.Validate(migrate.Embedded())
	if err != nil {
		t.Fatalf("validate embedded: %v", err)
	}
	onDisk, err := migrate.Validate(os.DirFS("migrations"))
	if err != nil {
		t.Fatalf("validate disk: %v", err)
	}
	if strings.Join(embedded, ",") != strings.Join(onDisk, ",") {
		t.Fatalf("embedded %v differs from disk %v", embedded, onDisk)
	}
	if len(embedded) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(embedded))
	}
}

func TestNewRunnerRequiresDB(t *testing.T) {
	if _, err := migrate.NewRunner(nil, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestShouldAutoApply(t *testing.T) {
	cfg := &config.Config{
		App:          config.AppConfig{Env: config.AppEnvDev},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true},
		DB:           config.DBConfig{Driver: "postgres"},
	}
	if !migrate.ShouldAutoApply(cfg) {
		t.Fatal("expected dev postgres with the flag to auto-apply")
	}

	prod := *cfg
	prod.App.Env = config.AppEnvProd
	if migrate.ShouldAutoApply(&prod) {
		t.Fatal("prod must never auto-apply")
	}

	off := *cfg
	off.FeatureFlags.AutoMigrate = false
	if migrate.ShouldAutoApply(&off) || migrate.ShouldAutoApply(nil) {
		t.Fatal("flag off or missing config must not auto-apply")
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"20260101000000_ok.sql":       "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n",
		"20260101000001_no_down.sql":  "-- +goose Up\nSELECT 1;\n",
		"20260101000002_reversed.sql": "-- +goose Down\nSELECT 1;\n-- +goose Up\nSELECT 1;\n",
		"bad-name.sql":                "-- +goose Up\n-- +goose Down\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	_, err := migrate.Validate(os.DirFS(dir))
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"no_down", "reversed", "bad-name"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q reported, got %v", want, err)
		}
	}
	if strings.Contains(err.Error(), "_ok.sql") {
		t.Fatalf("valid migration reported as a problem: %v", err)
	}
}
