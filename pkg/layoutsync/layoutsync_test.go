package layoutsync_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kfly-project/kfly-comm/pkg/layoutsync"
)

func TestScanFindsMatchingLayout(t *testing.T) {
	dir := t.TempDir()
	header := `
/* @kfly:id=0x04,cmd=GetRunningMode */
typedef struct __attribute__((packed)) {
    uint8_t sel;
} RunningModeFrame;
`
	mustWriteFile(t, filepath.Join(dir, "kfly_frames.h"), header)

	report, err := layoutsync.Scan(dir, layoutsync.ScanOptions{})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(report.Mismatches) != 0 {
		t.Fatalf("expected no mismatches, got %+v", report.Mismatches)
	}
	if len(report.Checked) != 1 {
		t.Fatalf("expected one checked file, got %d", len(report.Checked))
	}
}

func TestScanDetectsMismatch(t *testing.T) {
	dir := t.TempDir()
	header := `
/* @kfly:id=0x04,cmd=GetRunningMode */
typedef struct __attribute__((packed)) {
    uint8_t sel;
    uint8_t extra_byte;
} RunningModeFrame;
`
	mustWriteFile(t, filepath.Join(dir, "kfly_frames.h"), header)

	report, err := layoutsync.Scan(dir, layoutsync.ScanOptions{})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(report.Mismatches) != 1 {
		t.Fatalf("expected one mismatch, got %+v", report.Mismatches)
	}
	if err := report.Error(); err == nil {
		t.Fatalf("Report.Error() should be non-nil when mismatches exist")
	}
}

func TestScanReportsUnknownCommand(t *testing.T) {
	dir := t.TempDir()
	header := `
/* @kfly:id=0x70,cmd=NotARealCommand */
typedef struct __attribute__((packed)) {
    uint8_t x;
} SomeFrame;
`
	mustWriteFile(t, filepath.Join(dir, "kfly_frames.h"), header)

	report, err := layoutsync.Scan(dir, layoutsync.ScanOptions{})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(report.Unknown) != 1 {
		t.Fatalf("expected one unknown tagged struct, got %+v", report.Unknown)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
