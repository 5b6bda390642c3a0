// Package pathutil implements component A: relative-path computation,
// glob exclusion matching, and content hashing.
package pathutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// hashChunkSize matches spec §4.A: stream the file in fixed 8 KiB chunks.
const hashChunkSize = 8 * 1024

// ErrEscapesRoot is returned by Rel when path's relative form resolves
// outside base, which would otherwise let a sync pass write or delete
// outside the target root it was given.
var ErrEscapesRoot = errors.New("path escapes root")

// Rel computes path relative to base in POSIX form (forward slashes),
// matching spec §4.A's "rel = path - base" against glob patterns. It rejects
// a result that climbs out of base (ErrEscapesRoot) the same way a backup
// destination must never be built from a path traversal.
func Rel(path, base string) (string, error) {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return "", err
	}
	rel = filepath.Clean(rel)
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrEscapesRoot
	}
	return filepath.ToSlash(rel), nil
}

// ShouldExclude reports whether path matches any of the exclude glob
// patterns, evaluated against the path relative to base with POSIX
// separators (spec §4.A, §3 "exclusion is evaluated on the path relative to
// its source root"). path must be in the same form as base (both absolute or
// both relative) and lie under it; otherwise ShouldExclude returns false.
// Patterns use doublestar syntax, a superset of shell globs (*, ?, [...])
// that additionally supports "**".
func ShouldExclude(path, base string, patterns []string) bool {
	rel, err := Rel(path, base)
	if err != nil {
		return false
	}
	return MatchesAny(rel, patterns)
}

// MatchesAny reports whether rel (already POSIX-relative) matches any pattern.
func MatchesAny(rel string, patterns []string) bool {
	for _, pat := range patterns {
		pat = filepath.ToSlash(pat)
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
		// Also match a bare filename pattern (e.g. "*.tmp") against the
		// final path segment, matching the common exclude-by-extension case
		// even when the pattern has no directory component.
		if !strings.Contains(pat, "/") {
			if ok, _ := doublestar.Match(pat, filepath.Base(rel)); ok {
				return true
			}
		}
	}
	return false
}

// ComputeHash streams the file at path in 8 KiB chunks into a sha256 digest
// and returns the hex-encoded sum. Used to disambiguate a newer mtime from
// genuinely changed content (spec §4.C).
func ComputeHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("compute hash: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("compute hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
