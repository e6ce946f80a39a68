package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mediadesk/mediadesk-backend/pkg/migrate"
)

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

func TestReservationsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_reservations.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS reservations",
		"status TEXT NOT NULL DEFAULT 'unseen'",
		"CHECK (status IN ('unseen', 'seen', 'approved', 'denied'))",
		"messages_last_viewed_at TIMESTAMPTZ",
		"DROP TABLE IF EXISTS reservations",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCheckoutRecordsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_checkout_records.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS checkout_records",
		"FOREIGN KEY (item_id) REFERENCES equipment_items(id) ON DELETE CASCADE",
		"FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE SET NULL",
		"CHECK (status IN ('checked_out', 'returned'))",
		"DROP TABLE IF EXISTS checkout_records",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMessagesMigrationCascadesWithReservation(t *testing.T) {
	content := readMigration(t, "*_create_messages.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS messages",
		"FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE CASCADE",
		"body TEXT NOT NULL",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
