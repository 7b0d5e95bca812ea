package repo

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenSQLite_CreatesFileAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	// Schema is usable end to end.
	emp, err := CreateEmployee(context.Background(), db, "Alice", "alice@corp.test", "")
	if err != nil {
		t.Fatalf("create employee on migrated schema: %v", err)
	}
	if _, err := CreateMealChoice(context.Background(), db, emp.ID, "Pasta", "2024-01-15"); err != nil {
		t.Fatalf("create meal choice on migrated schema: %v", err)
	}
}

func TestOpenSQLite_MissingParentDirectory(t *testing.T) {
	if _, err := OpenSQLite(filepath.Join(t.TempDir(), "no", "such", "dir", "app.db")); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}
