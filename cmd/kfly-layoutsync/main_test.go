package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRunScanCleanTreeExitsZero(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "mode.h"), `
// @kfly:id=0x01,cmd=GetRunningMode
typedef struct __attribute__((packed)) {
	uint8_t mode;
} RunningModeFrame;
`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"scan", "--root", dir}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run() = %d, stderr=%s", code, stderr.String())
	}
}

func TestRunScanMismatchExitsOne(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "mode.h"), `
// @kfly:id=0x01,cmd=GetRunningMode
typedef struct __attribute__((packed)) {
	uint8_t mode;
	uint8_t extra;
} RunningModeFrame;
`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"scan", "--root", dir}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
	if stderr.Len() == 0 {
		t.Fatalf("expected a mismatch report on stderr")
	}
}

func TestRunWithNoArgsPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 2 {
		t.Fatalf("run() = %d, want 2", code)
	}
	if !bytes.Contains(stderr.Bytes(), []byte("Usage:")) {
		t.Fatalf("expected usage on stderr, got %q", stderr.String())
	}
}

func mustWriteFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
