package lockfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLockUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.dat")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	lock, err := Lock(f)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.dat")
	f1, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		t.Fatalf("open f1: %v", err)
	}
	defer f1.Close()
	f2, err := os.OpenFile(path, os.O_RDWR, 0o666)
	if err != nil {
		t.Fatalf("open f2: %v", err)
	}
	defer f2.Close()

	lock1, err := Lock(f1)
	if err != nil {
		t.Fatalf("Lock f1: %v", err)
	}
	defer lock1.Unlock()

	if _, err := Lock(f2); err == nil {
		t.Fatal("expected second exclusive lock attempt to fail")
	}
}
