package filemap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WriteAtomic writes the tree to path by writing a temp file in the same
// directory and renaming it into place, so a crash mid-write leaves the
// previous file intact (spec.md §5: "a crash mid-sync leaves the previous
// have_map intact"). An advisory flock guards against two concurrent
// `instl sync` processes racing the same have_map file (grounded on
// terassyi-tomei's use of gofrs/flock for its own state file).
func (t *Tree) WriteAtomic(path string, comments []string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create have_map directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("acquire have_map lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("timed out acquiring have_map lock at %s", path+".lock")
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(dir, ".have_map-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp have_map: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := t.WriteText(tmp, comments); err != nil {
		tmp.Close()
		return fmt.Errorf("write have_map: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync have_map: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close have_map: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename have_map into place: %w", err)
	}
	return nil
}

// ReadAtomic reads a have_map previously written by WriteAtomic. A missing
// file is not an error: it returns an empty tree (the first sync has
// nothing in "have" yet).
func ReadAtomic(path string) (*Tree, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil, nil
		}
		return nil, nil, err
	}
	defer f.Close()
	return ReadText(f)
}
