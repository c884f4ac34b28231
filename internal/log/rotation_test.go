package log

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRotatingFile_RotatesBySize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.log")

	rf, err := NewRotatingFile(path, 32, 2)
	if err != nil {
		t.Fatalf("NewRotatingFile: %v", err)
	}
	defer rf.Close()

	line := []byte("0123456789abcdef0123\n") // 21 bytes
	for i := 0; i < 3; i++ {
		if _, err := rf.Write(line); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("expected rotated backup %s.1: %v", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat live file: %v", err)
	}
	if info.Size() > 32 {
		t.Errorf("live file exceeds max size: %d bytes", info.Size())
	}
}

func TestRotatingFile_KeepsOwnerOnlyPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.log")

	rf, err := NewRotatingFile(path, 1024, 1)
	if err != nil {
		t.Fatalf("NewRotatingFile: %v", err)
	}
	defer rf.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		t.Errorf("log file readable by group/other: %v", perm)
	}
}
