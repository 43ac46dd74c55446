package batch

import (
	"os"
	"path/filepath"
)

// execChFlags applies Flag to Path (and, if Recursive, its descendants)
// via the OS-specific mechanism in chflags_darwin.go/chflags_other.go.
func execChFlags(c ChFlags) error {
	var apply func(path string) error
	apply = func(path string) error {
		if err := setFlag(path, c.Flag); err != nil {
			return err
		}
		if !c.Recursive {
			return nil
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil // not a directory, or unreadable: nothing more to recurse into
		}
		for _, e := range entries {
			if err := apply(filepath.Join(path, e.Name())); err != nil {
				return err
			}
		}
		return nil
	}
	return apply(c.Path)
}
