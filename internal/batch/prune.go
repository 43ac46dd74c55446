package batch

import (
	"os"
	"path/filepath"
)

// execRemoveEmptyFolders walks Root bottom-up, removing a directory once
// every file directly inside it is named in IgnoreFiles and it has no
// remaining non-empty subdirectories. A removed directory's IgnoreFiles
// members are deleted along with it.
func execRemoveEmptyFolders(c RemoveEmptyFolders) error {
	ignore := make(map[string]bool, len(c.IgnoreFiles))
	for _, f := range c.IgnoreFiles {
		ignore[f] = true
	}

	var visit func(dir string) (empty bool, err error)
	visit = func(dir string) (bool, error) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return false, err
		}

		allRemovable := true
		for _, e := range entries {
			path := filepath.Join(dir, e.Name())
			if e.IsDir() {
				childEmpty, err := visit(path)
				if err != nil {
					return false, err
				}
				if !childEmpty {
					allRemovable = false
				}
				continue
			}
			if !ignore[e.Name()] {
				allRemovable = false
			}
		}

		if !allRemovable {
			return false, nil
		}
		if dir == c.Root {
			// the root itself is removed by the caller below, not here
			return true, nil
		}
		return true, os.RemoveAll(dir)
	}

	empty, err := visit(c.Root)
	if err != nil {
		return err
	}
	if empty {
		return os.RemoveAll(c.Root)
	}
	return nil
}
