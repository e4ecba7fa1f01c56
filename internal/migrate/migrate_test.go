package migrate

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// every new connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return db
}

func TestRun_appliesEmbeddedMigrationsOnce(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)

	n, err := Run(ctx, db)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n < 2 {
		t.Fatalf("Run applied %d migrations; want at least 2", n)
	}

	n, err = Run(ctx, db)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if n != 0 {
		t.Errorf("second Run applied %d migrations; want 0", n)
	}

	var species int
	if err := db.QueryRow(`SELECT COUNT(*) FROM species_ranges`).Scan(&species); err != nil {
		t.Fatalf("count species: %v", err)
	}
	if species == 0 {
		t.Error("species seed migration inserted no rows")
	}
}

func TestRun_ordersByVersion(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)

	fsys := fstest.MapFS{
		"sql/0002_fill.sql":   {Data: []byte(`INSERT INTO t (v) VALUES ('second');`)},
		"sql/0001_create.sql": {Data: []byte(`CREATE TABLE t (v TEXT);`)},
		"sql/README.md":       {Data: []byte(`not a migration`)},
	}
	n, err := runFS(ctx, db, fsys)
	if err != nil {
		t.Fatalf("runFS: %v", err)
	}
	if n != 2 {
		t.Fatalf("runFS applied %d; want 2", n)
	}
	var v string
	if err := db.QueryRow(`SELECT v FROM t`).Scan(&v); err != nil {
		t.Fatalf("select: %v", err)
	}
	if v != "second" {
		t.Errorf("v = %q; want second", v)
	}
}

func TestRun_failedMigrationIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)

	fsys := fstest.MapFS{
		"sql/0001_broken.sql": {Data: []byte(`CREATE TABLE (;`)},
	}
	if _, err := runFS(ctx, db, fsys); err == nil {
		t.Fatal("runFS with invalid SQL = nil; want error")
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("schema_migrations has %d rows; want 0", n)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in          string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{in: "0001_schema.sql", wantVersion: "0001", wantName: "schema", wantOK: true},
		{in: "0010_species_seed.sql", wantVersion: "0010", wantName: "species_seed", wantOK: true},
		{in: "1_schema.sql", wantOK: false},
		{in: "0001_schema.txt", wantOK: false},
	}
	for _, tt := range tests {
		v, n, ok := parseMigrationFilename(tt.in)
		if ok != tt.wantOK || v != tt.wantVersion || n != tt.wantName {
			t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v); want (%q, %q, %v)",
				tt.in, v, n, ok, tt.wantVersion, tt.wantName, tt.wantOK)
		}
	}
}
