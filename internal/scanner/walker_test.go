//go:build unix

package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/charlievieth/fastwalk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyunomas/relinker/internal/fault"
)

func makeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func collect(t *testing.T, s *FileScanner, root string) (paths []string, errs []error) {
	t.Helper()
	for c, err := range s.Files(context.Background(), root) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rel, relErr := filepath.Rel(root, c.Path)
		require.NoError(t, relErr)
		paths = append(paths, filepath.ToSlash(rel))
	}
	return paths, errs
}

func TestFiles_RegularFilesInWalkOrder(t *testing.T) {
	root := makeTree(t, map[string]string{
		"b.txt":       "b",
		"a.txt":       "a",
		"sub/c.txt":   "c",
		"sub/x/d.txt": "d",
		"sub-e.txt":   "e",
	})

	paths, errs := collect(t, New(Config{}), root)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"a.txt", "b.txt", "sub/c.txt", "sub/x/d.txt", "sub-e.txt"}, paths)
}

func TestFiles_ParallelMatchesSequentialOrder(t *testing.T) {
	files := map[string]string{}
	for _, d := range []string{"a", "a/b", "a-b", "c", "c/d/e"} {
		for _, f := range []string{"1", "2", "10"} {
			files[d+"/"+f] = d + f
		}
	}
	files["top"] = "top"
	root := makeTree(t, files)

	seq, errs := collect(t, New(Config{}), root)
	require.Empty(t, errs)
	par, errs := collect(t, New(Config{Parallel: true, Workers: 4}), root)
	require.Empty(t, errs)

	assert.Equal(t, seq, par)
	assert.Len(t, seq, len(files))
}

func TestFiles_SkipsSymlinksAndSpecialFiles(t *testing.T) {
	root := makeTree(t, map[string]string{"real.txt": "data"})
	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "broken")))
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))

	paths, errs := collect(t, New(Config{}), root)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"real.txt"}, paths)
}

func TestFiles_CandidateCarriesIdentity(t *testing.T) {
	root := makeTree(t, map[string]string{"a": "hello"})
	require.NoError(t, os.Link(filepath.Join(root, "a"), filepath.Join(root, "b")))

	var got []Candidate
	for c, err := range New(Config{}).Files(context.Background(), root) {
		require.NoError(t, err)
		got = append(got, c)
	}

	require.Len(t, got, 2)
	assert.Equal(t, got[0].Info.ID, got[1].Info.ID)
	assert.Equal(t, int64(5), got[0].Info.Size)
	assert.Equal(t, uint64(2), got[0].Info.Nlink)
}

func TestFiles_ExcludesAndMinSize(t *testing.T) {
	root := makeTree(t, map[string]string{
		"keep.bin":            "0123456789",
		"small.bin":           "01",
		".git/objects/x":      "0123456789",
		"node_modules/m/a.js": "0123456789",
		"deep/.git/y":         "0123456789",
	})

	paths, errs := collect(t, New(Config{MinSize: 5, Excludes: []string{".git", "node_modules"}}), root)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"keep.bin"}, paths)
}

func TestFiles_UnreadableSubtreeContinues(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := makeTree(t, map[string]string{
		"a.txt":         "a",
		"locked/secret": "s",
		"z/after.txt":   "z",
	})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	for _, parallel := range []bool{false, true} {
		paths, errs := collect(t, New(Config{Parallel: parallel}), root)
		assert.Equal(t, []string{"a.txt", "z/after.txt"}, paths)
		require.NotEmpty(t, errs)
		for _, err := range errs {
			assert.True(t, errors.Is(err, fault.ErrScan))
			assert.True(t, errors.Is(err, os.ErrPermission))
		}
	}
}

var errWalkAborted = errors.New("walk aborted")

// failDirRead makes the parallel walk report a read failure for every
// directory named name, the way fastwalk does when ReadDir fails: a second
// callback for the directory carrying the error. A non-nil return from that
// callback aborts the walk.
func failDirRead(t *testing.T, name string) {
	t.Helper()
	orig := fastWalk
	t.Cleanup(func() { fastWalk = orig })

	fastWalk = func(conf *fastwalk.Config, root string, fn fs.WalkDirFunc) error {
		return orig(conf, root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d == nil || !d.IsDir() || d.Name() != name {
				return fn(path, d, err)
			}
			if ctrl := fn(path, d, nil); ctrl != nil {
				return ctrl
			}
			readErr := &fs.PathError{Op: "open", Path: path, Err: fs.ErrPermission}
			if ctrl := fn(path, d, readErr); ctrl != nil {
				return errWalkAborted
			}
			return filepath.SkipDir
		})
	}
}

func TestFiles_ParallelDirReadFailureContinues(t *testing.T) {
	files := make(map[string]string)
	var want []string
	for i := 0; i < 20; i++ {
		for j := 0; j < 5; j++ {
			name := fmt.Sprintf("d%02d/f%d", i, j)
			files[name] = name
			if i != 3 {
				want = append(want, name)
			}
		}
	}
	root := makeTree(t, files)
	failDirRead(t, "d03")

	paths, errs := collect(t, New(Config{Parallel: true, Workers: 4}), root)
	assert.Equal(t, want, paths)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], fault.ErrScan))
	assert.True(t, errors.Is(errs[0], fs.ErrPermission))
	assert.False(t, errors.Is(errs[0], errWalkAborted))

	var fe *fault.Error
	require.True(t, errors.As(errs[0], &fe))
	assert.Equal(t, filepath.Join(root, "d03"), fe.Path)
}

func TestVisit_ReadErrorNeverStopsWalk(t *testing.T) {
	root := makeTree(t, map[string]string{"dir/f": "f"})
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	s := New(Config{})
	path := filepath.Join(root, "dir")
	readErr := &fs.PathError{Op: "open", Path: path, Err: fs.ErrPermission}

	for _, d := range []fs.DirEntry{entries[0], nil} {
		c, ctrl, scanErr := s.visit(path, d, readErr)
		assert.Nil(t, c)
		assert.NoError(t, ctrl)
		assert.True(t, errors.Is(scanErr, fault.ErrScan))
	}
}

func TestFiles_MissingRoot(t *testing.T) {
	paths, errs := collect(t, New(Config{}), filepath.Join(t.TempDir(), "nope"))
	assert.Empty(t, paths)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], fault.ErrScan))
}

func TestFiles_EarlyStop(t *testing.T) {
	root := makeTree(t, map[string]string{"a": "a", "b": "b", "c": "c"})

	for _, parallel := range []bool{false, true} {
		n := 0
		for range New(Config{Parallel: parallel}).Files(context.Background(), root) {
			n++
			if n == 1 {
				break
			}
		}
		assert.Equal(t, 1, n)
	}
}

func TestFiles_CancelledContext(t *testing.T) {
	root := makeTree(t, map[string]string{"a": "a", "b": "b"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, parallel := range []bool{false, true} {
		n := 0
		for range New(Config{Parallel: parallel}).Files(ctx, root) {
			n++
		}
		assert.Zero(t, n)
	}
}

func TestComparePaths(t *testing.T) {
	assert.Negative(t, comparePaths("/r/a/z", "/r/a-b"))
	assert.Negative(t, comparePaths("/r/a", "/r/a/b"))
	assert.Positive(t, comparePaths("/r/b", "/r/a/b"))
	assert.Zero(t, comparePaths("/r/a", "/r/a"))
}
