package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/courseworks/fulfillment-backend/pkg/migrate"
)

func TestValidateMigrationsDir(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestPaymentsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_payments.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS payments",
		"CHECK (amount_cents >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_payments_stripe_payment_id",
		"DROP TABLE IF EXISTS payments",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestEntitlementsMigrationContainsUniquePair(t *testing.T) {
	content := readMigration(t, "*_create_entitlements.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS entitlements",
		"ux_entitlements_customer_product ON entitlements (customer_identifier, product_id)",
		"DROP TABLE IF EXISTS entitlements",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestProcessingRecordsMigrationConstrainsStatus(t *testing.T) {
	content := readMigration(t, "*_create_processing_records.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS processing_records",
		"CHECK (status IN ('in_progress', 'done'))",
		"CHECK (outcome IN ('succeeded', 'failed', 'skipped'))",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
