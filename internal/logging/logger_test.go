package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDisabledLoggingIsNoOp(t *testing.T) {
	if err := Initialize("", "info", false); err != nil {
		t.Fatalf("Initialize with debug off should not fail: %v", err)
	}
	l := Get(CategoryCampaign)
	if l.logger != nil {
		t.Error("expected no-op logger when debug mode is off")
	}
	// Must not panic.
	l.Info("ignored %d", 1)
	l.Error("ignored")
}

func TestEnabledLoggingWritesFile(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, "debug", true); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer func() {
		CloseAll()
		debugMode = false
		logsDir = ""
	}()

	Get(CategoryStore).Info("appended row %d", 42)
	CloseAll()

	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	if err != nil {
		t.Fatalf("logs dir missing: %v", err)
	}
	var found bool
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_store.log") {
			found = true
			data, err := os.ReadFile(filepath.Join(dir, "logs", e.Name()))
			if err != nil {
				t.Fatalf("read log: %v", err)
			}
			if !strings.Contains(string(data), "appended row 42") {
				t.Errorf("log content missing message: %s", data)
			}
		}
	}
	if !found {
		t.Error("no store category log file written")
	}
}
