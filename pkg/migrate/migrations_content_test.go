package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestSiteContentMigrationContainsSchema(t *testing.T) {
	content := readMigration(t, "*_create_sitecontent.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS sitecontent",
		"tags TEXT[] NOT NULL DEFAULT '{}'",
		"CHECK (section IN ('Artwork', 'Leaks', 'Banner Slider'))",
		"idx_sitecontent_createdat",
		"DROP TABLE IF EXISTS sitecontent",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestBannersMigrationCascadesFromContent(t *testing.T) {
	content := readMigration(t, "*_create_banners.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS banners",
		"FOREIGN KEY (id) REFERENCES sitecontent(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS banners",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestAdminUsersMigrationContainsSchema(t *testing.T) {
	content := readMigration(t, "*_create_admin_users.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS admin_users",
		"email TEXT NOT NULL UNIQUE",
		"idx_admin_users_email_lower",
		"DROP TABLE IF EXISTS admin_users",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
