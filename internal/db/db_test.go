package db

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"habitat-monitor/internal/config"
)

func TestBuildDSN(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		cfg     config.Config
		prefix  string
		hasWAL  bool
		checkFS string
	}{
		{name: "explicit dsn wins", cfg: config.Config{DSN: "file::memory:?cache=shared", Path: "ignored.db"}, prefix: "file::memory:?cache=shared"},
		{name: "plain path", cfg: config.Config{Path: filepath.Join(dir, "nested", "habitat.db")}, prefix: "file:" + filepath.Join(dir, "nested", "habitat.db") + "?", hasWAL: true, checkFS: filepath.Join(dir, "nested")},
		{name: "file uri with query", cfg: config.Config{Path: "file:" + filepath.Join(dir, "a.db") + "?mode=rwc"}, prefix: "file:" + filepath.Join(dir, "a.db") + "?mode=rwc&", hasWAL: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildDSN(tt.cfg)
			if err != nil {
				t.Fatalf("buildDSN: %v", err)
			}
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("dsn = %q; want prefix %q", got, tt.prefix)
			}
			if tt.hasWAL != strings.Contains(got, "_journal_mode=WAL") {
				t.Errorf("dsn = %q; WAL param presence want %v", got, tt.hasWAL)
			}
			if tt.checkFS != "" {
				if _, err := os.Stat(tt.checkFS); err != nil {
					t.Errorf("directory not created: %v", err)
				}
			}
		})
	}
}

func TestOpen(t *testing.T) {
	for _, logSQL := range []bool{false, true} {
		cfg := config.Config{Path: filepath.Join(t.TempDir(), "habitat.db"), MaxOpenConns: 1, MaxIdleConns: 1, LogSQL: logSQL}
		db, err := Open(context.Background(), cfg, slog.Default())
		if err != nil {
			t.Fatalf("Open(logSQL=%v): %v", logSQL, err)
		}
		var one int
		if err := db.QueryRow(`SELECT 1`).Scan(&one); err != nil || one != 1 {
			t.Errorf("SELECT 1 = %d, %v", one, err)
		}
		if err := Close(db); err != nil {
			t.Errorf("Close: %v", err)
		}
	}
	if err := Close(nil); err != nil {
		t.Errorf("Close(nil) = %v", err)
	}
}
