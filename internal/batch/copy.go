package batch

import (
	"io"
	"os"
	"path/filepath"
)

// copyFileToFile copies Src onto Dst, creating Dst's parent directory if
// needed and hard-linking instead of copying when HardLinkDest is set.
func copyFileToFile(src, dst string, opts CopyOptions) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o777); err != nil {
		return err
	}
	if opts.PreserveDestFiles {
		if _, err := os.Stat(dst); err == nil {
			return nil
		}
	}
	if opts.HardLinkDest {
		os.Remove(dst)
		if err := os.Link(src, dst); err == nil {
			return nil
		}
		// fall through to a real copy if the filesystem can't hard-link across the boundary
	}
	return copyFileBytes(src, dst)
}

func copyFileBytes(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// copyFileToDir copies Src into directory Dst, keeping Src's base name.
func copyFileToDir(src, dst string, opts CopyOptions) error {
	target := filepath.Join(dst, filepath.Base(src))
	return copyFileToFile(src, target, opts)
}

// copyDirToDir copies the directory Src (including its own top-level
// name) into Dst, i.e. the result is Dst/<base(Src)>/….
func copyDirToDir(src, dst string, opts CopyOptions) error {
	target := filepath.Join(dst, filepath.Base(src))
	return copyDirContentsToDir(src, target, opts)
}

// copyDirContentsToDir copies everything inside Src directly into Dst,
// without an extra path component for Src's own name.
func copyDirContentsToDir(src, dst string, opts CopyOptions) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(dst, 0o777)
		}
		if ignored(rel, opts.IgnoreGlobs) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o777)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err := os.Readlink(path)
			if err != nil {
				return err
			}
			os.Remove(target)
			return os.Symlink(linkTarget, target)
		}
		return copyFileToFile(path, target, opts)
	})
}

func ignored(rel string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := filepath.Match(g, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(g, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}
