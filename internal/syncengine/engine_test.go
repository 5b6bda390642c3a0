package syncengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"syncd/internal/types"
)

type testLogger struct{}

func (testLogger) Infof(string, ...any)  {}
func (testLogger) Warnf(string, ...any)  {}
func (testLogger) Errorf(string, ...any) {}
func (testLogger) Debugf(string, ...any) {}

func TestRun_MirrorsAndExcludes(t *testing.T) {
	// Scenario 1 from spec §8.
	src := t.TempDir()
	tgt := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "x.tmp"), []byte("junk"), 0o644))

	pairs := []types.Pair{{SourceRoot: src, TargetRoot: tgt}}
	counters := &Counters{}
	require.NoError(t, Run(context.Background(), pairs, []string{"*.tmp"}, 2, testLogger{}, counters))

	got, err := os.ReadFile(filepath.Join(tgt, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "hi", string(got))

	_, err = os.Stat(filepath.Join(tgt, "x.tmp"))
	require.True(t, os.IsNotExist(err))

	copies, deletions := counters.Snapshot()
	require.Equal(t, 1, copies)
	require.Equal(t, 0, deletions)
}

func TestRun_FanOut(t *testing.T) {
	// Scenario 2 from spec §8.
	src := t.TempDir()
	tgt1 := t.TempDir()
	tgt2 := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0o644))

	pairs, err := types.BuildPairs([]string{src}, []string{tgt1, tgt2})
	require.NoError(t, err)

	require.NoError(t, Run(context.Background(), pairs, nil, 2, testLogger{}, &Counters{}))

	for _, tgt := range []string{tgt1, tgt2} {
		_, err := os.Stat(filepath.Join(tgt, "f"))
		require.NoError(t, err)
	}
}

func TestRun_DeletesOrphans(t *testing.T) {
	// Scenario 3 from spec §8.
	src := t.TempDir()
	tgt := t.TempDir()

	pairs := []types.Pair{{SourceRoot: src, TargetRoot: tgt}}

	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("hi"), 0o644))
	require.NoError(t, Run(context.Background(), pairs, nil, 2, testLogger{}, &Counters{}))
	require.NoError(t, os.Remove(filepath.Join(src, "a.txt")))

	counters := &Counters{}
	require.NoError(t, Run(context.Background(), pairs, nil, 2, testLogger{}, counters))

	_, err := os.Stat(filepath.Join(tgt, "a.txt"))
	require.True(t, os.IsNotExist(err))

	_, deletions := counters.Snapshot()
	require.Equal(t, 1, deletions)
}

func TestRun_DeletesOrphanDirectoryTree(t *testing.T) {
	src := t.TempDir()
	tgt := t.TempDir()
	pairs := []types.Pair{{SourceRoot: src, TargetRoot: tgt}}

	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested", "deeper"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "deeper", "b.txt"), []byte("x"), 0o644))
	require.NoError(t, Run(context.Background(), pairs, nil, 2, testLogger{}, &Counters{}))

	require.NoError(t, os.RemoveAll(filepath.Join(src, "nested")))

	counters := &Counters{}
	require.NoError(t, Run(context.Background(), pairs, nil, 2, testLogger{}, counters))

	_, err := os.Stat(filepath.Join(tgt, "nested"))
	require.True(t, os.IsNotExist(err), "orphan directory tree must be removed, not just its files")

	_, deletions := counters.Snapshot()
	require.Equal(t, 3, deletions)
}

func TestRun_IdempotentOnUnchangedTree(t *testing.T) {
	src := t.TempDir()
	tgt := t.TempDir()
	pairs := []types.Pair{{SourceRoot: src, TargetRoot: tgt}}

	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("hi"), 0o644))
	require.NoError(t, Run(context.Background(), pairs, nil, 2, testLogger{}, &Counters{}))

	counters := &Counters{}
	require.NoError(t, Run(context.Background(), pairs, nil, 2, testLogger{}, counters))

	copies, deletions := counters.Snapshot()
	require.Equal(t, 0, copies)
	require.Equal(t, 0, deletions)
}

func TestRun_IdenticalContentNewerMtimeSkipsCopy(t *testing.T) {
	// Scenario 4 from spec §8: same bytes, newer mtime -> hash short-circuit.
	src := t.TempDir()
	tgt := t.TempDir()
	pairs := []types.Pair{{SourceRoot: src, TargetRoot: tgt}}

	srcFile := filepath.Join(src, "a.txt")
	require.NoError(t, os.WriteFile(srcFile, []byte("hi"), 0o644))
	require.NoError(t, Run(context.Background(), pairs, nil, 2, testLogger{}, &Counters{}))

	require.NoError(t, os.WriteFile(srcFile, []byte("hi"), 0o644))
	future := time.Now().Add(1 * time.Hour)
	require.NoError(t, os.Chtimes(srcFile, future, future))

	counters := &Counters{}
	require.NoError(t, Run(context.Background(), pairs, nil, 2, testLogger{}, counters))

	copies, _ := counters.Snapshot()
	require.Equal(t, 0, copies)
}

func TestRun_SymlinkPreservation(t *testing.T) {
	src := t.TempDir()
	tgt := t.TempDir()
	pairs := []types.Pair{{SourceRoot: src, TargetRoot: tgt}}

	require.NoError(t, os.WriteFile(filepath.Join(src, "real.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink("real.txt", filepath.Join(src, "link")))

	require.NoError(t, Run(context.Background(), pairs, nil, 2, testLogger{}, &Counters{}))

	info, err := os.Lstat(filepath.Join(tgt, "link"))
	require.NoError(t, err)
	require.True(t, info.Mode()&os.ModeSymlink != 0)

	linkTarget, err := os.Readlink(filepath.Join(tgt, "link"))
	require.NoError(t, err)
	require.Equal(t, "real.txt", linkTarget)
}

func TestRun_ExclusionStability(t *testing.T) {
	src := t.TempDir()
	tgt := t.TempDir()
	pairs := []types.Pair{{SourceRoot: src, TargetRoot: tgt}}

	require.NoError(t, os.MkdirAll(filepath.Join(tgt, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tgt, ".git", "HEAD"), []byte("ref"), 0o644))

	counters := &Counters{}
	require.NoError(t, Run(context.Background(), pairs, []string{".git/*"}, 2, testLogger{}, counters))

	_, err := os.Stat(filepath.Join(tgt, ".git", "HEAD"))
	require.NoError(t, err, "excluded target entries must never be deleted")

	_, deletions := counters.Snapshot()
	require.Equal(t, 0, deletions)
}
