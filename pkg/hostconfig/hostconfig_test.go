package hostconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kfly-project/kfly-comm/pkg/hostconfig"
)

func TestLoadOrDefaultReturnsDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kfly-host.toml")

	cfg, exists, err := hostconfig.LoadOrDefault(path)
	if err != nil {
		t.Fatalf("LoadOrDefault error: %v", err)
	}
	if exists {
		t.Fatalf("exists = true, want false for a missing file")
	}
	if cfg.Serial.Baud != 115200 {
		t.Fatalf("Serial.Baud = %d, want default 115200", cfg.Serial.Baud)
	}
}

func TestLoadOrDefaultFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kfly-host.toml")
	mustWriteFile(t, path, "[serial]\nport = \"/dev/ttyUSB0\"\n")

	cfg, exists, err := hostconfig.LoadOrDefault(path)
	if err != nil {
		t.Fatalf("LoadOrDefault error: %v", err)
	}
	if !exists {
		t.Fatalf("exists = false, want true")
	}
	if cfg.Serial.Port != "/dev/ttyUSB0" {
		t.Fatalf("Serial.Port = %q, want /dev/ttyUSB0", cfg.Serial.Port)
	}
	if cfg.Serial.Baud != 115200 {
		t.Fatalf("Serial.Baud should fall back to the default, got %d", cfg.Serial.Baud)
	}
	if cfg.Log.Path == "" {
		t.Fatalf("Log.Path should fall back to the default, got empty")
	}
}

func TestValidateRejectsEmptyPort(t *testing.T) {
	cfg := hostconfig.Default()
	cfg.Serial.Port = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for an empty serial port")
	}
}

func TestValidateRejectsNonPositiveBaud(t *testing.T) {
	cfg := hostconfig.Default()
	cfg.Serial.Baud = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for a non-positive baud rate")
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "kfly-host.toml")

	cfg := hostconfig.Default()
	cfg.Serial.Port = "/dev/ttyACM1"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := hostconfig.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Serial.Port != "/dev/ttyACM1" {
		t.Fatalf("Serial.Port = %q, want /dev/ttyACM1", loaded.Serial.Port)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
