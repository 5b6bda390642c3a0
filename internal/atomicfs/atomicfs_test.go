package atomicfs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicCopy_RegularFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "out", "dst.txt")

	if err := os.WriteFile(src, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	if err := AtomicCopy(src, dst); err != nil {
		t.Fatalf("AtomicCopy: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("want %q, got %q", "hello", string(got))
	}

	// No leftover temp artifacts after a successful copy.
	entries, err := os.ReadDir(filepath.Dir(dst))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "dst.txt" {
			t.Fatalf("unexpected leftover entry: %s", e.Name())
		}
	}
}

func TestAtomicCopy_Symlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("write target: %v", err)
	}

	link := filepath.Join(dir, "link")
	if err := os.Symlink("real.txt", link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	dst := filepath.Join(dir, "mirror", "link")
	if err := AtomicCopy(link, dst); err != nil {
		t.Fatalf("AtomicCopy: %v", err)
	}

	info, err := os.Lstat(dst)
	if err != nil {
		t.Fatalf("lstat dst: %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatalf("expected dst to be a symlink")
	}

	got, err := os.Readlink(dst)
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if got != "real.txt" {
		t.Fatalf("want link text %q, got %q", "real.txt", got)
	}
}

func TestSafeDelete(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := SafeDelete(f); err != nil {
		t.Fatalf("SafeDelete file: %v", err)
	}
	if _, err := os.Stat(f); !os.IsNotExist(err) {
		t.Fatalf("expected file to be gone")
	}

	empty := filepath.Join(dir, "empty")
	if err := os.Mkdir(empty, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := SafeDelete(empty); err != nil {
		t.Fatalf("SafeDelete empty dir: %v", err)
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Retry(RetryPolicy{Times: 3, Delay: 0}, func() error {
		attempts++
		if attempts < 3 {
			return os.ErrInvalid
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("want 3 attempts, got %d", attempts)
	}
}

func TestRetry_SurfacesLastError(t *testing.T) {
	attempts := 0
	err := Retry(RetryPolicy{Times: 2, Delay: 0}, func() error {
		attempts++
		return os.ErrPermission
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 3 {
		t.Fatalf("want 3 total attempts (times+1), got %d", attempts)
	}
}

func TestCleanupTmpFiles(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "a.txt.sync_tmp.deadbeef")
	keep := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatalf("write stale: %v", err)
	}
	if err := os.WriteFile(keep, []byte("x"), 0o644); err != nil {
		t.Fatalf("write keep: %v", err)
	}

	if err := CleanupTmpFiles(dir); err != nil {
		t.Fatalf("CleanupTmpFiles: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale temp file to be removed")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("expected kept file to survive: %v", err)
	}
}
