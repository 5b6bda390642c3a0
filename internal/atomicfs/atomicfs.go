// Package atomicfs implements component B: atomic per-file copy via
// temp+rename, symlink replication, safe delete, and a retry wrapper.
// Grounded on the teacher's internal/maintenance/backup.go streaming-copy
// idiom (temp file in the destination directory, close-before-rename,
// cleanup on failure), generalized to also preserve symlinks and to expose
// the retry policy as a reusable higher-order wrapper (spec §9).
package atomicfs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// copyBufSize mirrors the teacher's 256KB streaming buffer.
const copyBufSize = 256 * 1024

// tmpInfix identifies the crash-recovery sentinel from spec §4.B
// / §6: temp files are always named *.sync_tmp* and live in the final
// file's target directory.
const tmpInfix = ".sync_tmp."

// RetryPolicy configures Retry.
type RetryPolicy struct {
	Times int
	Delay time.Duration
}

// DefaultRetryPolicy matches spec §4.B: retry(times=3, delay=0.3s).
var DefaultRetryPolicy = RetryPolicy{Times: 3, Delay: 300 * time.Millisecond}

// Retry is the dynamic-decorator wrapper from spec §9: call fn up to
// policy.Times+1 times total, sleeping policy.Delay between attempts, and
// surface the last error if every attempt fails.
func Retry(policy RetryPolicy, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= policy.Times; attempt++ {
		if err := fn(); err != nil {
			lastErr = err
			if attempt < policy.Times {
				time.Sleep(policy.Delay)
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("failed after %d attempts: %w", policy.Times+1, lastErr)
}

// AtomicCopy implements spec §4.B atomic_copy(src, dst).
func AtomicCopy(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("atomic copy: stat %s: %w", src, err)
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		return copySymlink(src, dst)
	}
	return copyRegular(src, dst, info)
}

// copySymlink reads src's link target and recreates it at dst, never
// following the link (spec §4.B step 1, invariant "symlinks ... never
// followed").
func copySymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("atomic copy: readlink %s: %w", src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("atomic copy: mkdir %s: %w", filepath.Dir(dst), err)
	}

	if _, err := os.Lstat(dst); err == nil {
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("atomic copy: remove existing %s: %w", dst, err)
		}
	}

	if err := os.Symlink(target, dst); err != nil {
		return fmt.Errorf("atomic copy: symlink %s -> %s: %w", dst, target, err)
	}

	// No portable lchmod/lchtimes in the stdlib; symlink metadata is not
	// replicated, matching the "best-effort" framing in spec §4.B.
	return nil
}

// copyRegular streams src into a uniquely named temp file inside dst's
// parent directory (guaranteeing a same-filesystem rename) and atomically
// renames it into place.
func copyRegular(src, dst string, srcInfo fs.FileInfo) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("atomic copy: mkdir %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, filepath.Base(dst)+tmpInfix+uuid.NewString())

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("atomic copy: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("atomic copy: create temp %s: %w", tmp, err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
	}()

	buf := make([]byte, copyBufSize)
	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		return fmt.Errorf("atomic copy: write %s: %w", tmp, err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("atomic copy: flush %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("atomic copy: close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("atomic copy: rename %s -> %s: %w", tmp, dst, err)
	}
	committed = true

	// Best-effort metadata copy; rename already succeeded so the target is
	// visible and correct even if this fails.
	_ = os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
	_ = os.Chmod(dst, srcInfo.Mode())

	return nil
}

// SafeDelete implements spec §4.B safe_delete(path): removes a directory
// only if empty, otherwise unlinks the file.
func SafeDelete(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("safe delete: stat %s: %w", path, err)
	}
	if info.IsDir() {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("safe delete: rmdir %s: %w", path, err)
		}
		return nil
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("safe delete: unlink %s: %w", path, err)
	}
	return nil
}

// CopyWithRetry wraps AtomicCopy with DefaultRetryPolicy (spec §4.B, §7
// IoTransient handling).
func CopyWithRetry(src, dst string) error {
	return Retry(DefaultRetryPolicy, func() error { return AtomicCopy(src, dst) })
}

// DeleteWithRetry wraps SafeDelete with DefaultRetryPolicy.
func DeleteWithRetry(path string) error {
	return Retry(DefaultRetryPolicy, func() error { return SafeDelete(path) })
}

// CleanupTmpFiles implements spec §4.B cleanup_tmp_files(): at task start,
// remove any leftover *.sync_tmp* artifacts under root (crash recovery per
// spec §8 scenario 6).
func CleanupTmpFiles(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.Contains(d.Name(), tmpInfix) || strings.Contains(d.Name(), ".sync_tmp") {
			_ = os.Remove(path)
		}
		return nil
	})
}
