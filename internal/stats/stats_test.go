package stats

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	rec, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(rec.Runs) != 0 {
		t.Errorf("missing file produced %d counters, want 0", len(rec.Runs))
	}
}

func TestBumpAccumulates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.yaml")

	for i := 1; i <= 3; i++ {
		n, err := Bump(path, "convert")
		if err != nil {
			t.Fatalf("Bump failed: %v", err)
		}
		if n != i {
			t.Errorf("Bump returned %d, want %d", n, i)
		}
	}
	if _, err := Bump(path, "calibrate"); err != nil {
		t.Fatalf("Bump failed: %v", err)
	}

	rec, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if rec.Runs["convert"] != 3 {
		t.Errorf("convert count = %d, want 3", rec.Runs["convert"])
	}
	if rec.Runs["calibrate"] != 1 {
		t.Errorf("calibrate count = %d, want 1", rec.Runs["calibrate"])
	}
	if rec.LastRun == "" {
		t.Error("LastRun not recorded")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.yaml")
	if err := os.WriteFile(path, []byte("runs: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted unparseable YAML")
	}
}
