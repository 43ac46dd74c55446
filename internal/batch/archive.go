package batch

import (
	"archive/tar"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	dbzip2 "github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"
)

// isPathWithinDirectory reports whether targetPath resolves to somewhere
// inside basePath, guarding Unwtar against archive entries that try to
// write outside the extraction root.
func isPathWithinDirectory(targetPath, basePath string) bool {
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return false
	}
	return absTarget == absBase || strings.HasPrefix(absTarget, absBase+string(os.PathSeparator))
}

func validateSymlinkTarget(linkTarget, linkLocation, destPath string) error {
	if filepath.IsAbs(linkTarget) {
		return fmt.Errorf("absolute symlink targets are not allowed: %s -> %s", linkLocation, linkTarget)
	}
	resolved := filepath.Join(filepath.Dir(linkLocation), linkTarget)
	if !isPathWithinDirectory(resolved, destPath) {
		return fmt.Errorf("symlink target escapes destination directory: %s -> %s (resolves to %s)",
			linkLocation, linkTarget, resolved)
	}
	return nil
}

// execWtar packs Src into a tar+bzip2 archive at Trg, splitting the output
// into ".wtar.aa", ".wtar.ab", … parts once it exceeds WtarSplitThreshold.
func execWtar(c Wtar) error {
	trg := c.Trg
	if trg == "" {
		trg = c.Src + ".wtar"
	}

	tmp := trg + ".tmp"
	if err := writeWtarArchive(c.Src, tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("Wtar %s: %w", c.Src, err)
	}

	info, err := os.Stat(tmp)
	if err != nil {
		return err
	}
	if info.Size() <= WtarSplitThreshold {
		return os.Rename(tmp, trg)
	}
	defer os.Remove(tmp)
	return splitWtarParts(tmp, trg)
}

func writeWtarArchive(src, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	bw, err := dbzip2.NewWriter(out, nil)
	if err != nil {
		return err
	}
	defer bw.Close()

	tw := tar.NewWriter(bw)
	defer tw.Close()

	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			if info.IsDir() {
				// The root directory itself isn't written as an entry;
				// Unwtar recreates it via os.MkdirAll(trg, ...).
				return nil
			}
			// src is a single file: the one entry is its base name.
			rel = filepath.Base(src)
		}

		link := ""
		if info.Mode()&os.ModeSymlink != 0 {
			link, err = os.Readlink(path)
			if err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			if _, err := io.Copy(tw, f); err != nil {
				return err
			}
		}
		return nil
	})
}

// splitWtarParts splits src (a bzip2-tar already written to disk) into
// WtarPartSize chunks named trg+".aa", trg+".ab", ….
func splitWtarParts(src, trg string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	buf := make([]byte, 1<<20)
	suffix := partSuffixes()
	idx := 0
	for {
		if idx >= len(suffix) {
			return fmt.Errorf("Wtar %s: exceeded maximum of %d parts", trg, len(suffix))
		}
		partPath := trg + "." + suffix[idx]
		out, err := os.Create(partPath)
		if err != nil {
			return err
		}

		written := int64(0)
		for written < WtarPartSize {
			n, rerr := in.Read(buf)
			if n > 0 {
				if _, werr := out.Write(buf[:n]); werr != nil {
					out.Close()
					return werr
				}
				written += int64(n)
			}
			if rerr == io.EOF {
				out.Close()
				return nil
			}
			if rerr != nil {
				out.Close()
				return rerr
			}
		}
		out.Close()
		idx++
	}
}

func partSuffixes() []string {
	var out []string
	for a := 'a'; a <= 'z'; a++ {
		for b := 'a'; b <= 'z'; b++ {
			out = append(out, string(a)+string(b))
		}
	}
	return out
}

// execUnwtar reverses Wtar, transparently concatenating split ".wtar.aa",
// ".wtar.ab", … parts when Src names the base path rather than one part.
func execUnwtar(c Unwtar) error {
	trg := c.Trg
	if trg == "" {
		trg = strings.TrimSuffix(c.Src, ".wtar")
	}
	if err := os.MkdirAll(trg, 0o777); err != nil {
		return err
	}

	r, closeAll, err := openWtarParts(c.Src)
	if err != nil {
		return fmt.Errorf("Unwtar %s: %w", c.Src, err)
	}
	defer closeAll()

	bzr := bzip2.NewReader(r)
	tr := tar.NewReader(bzr)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("Unwtar %s: reading tar: %w", c.Src, err)
		}

		target := filepath.Join(trg, filepath.FromSlash(hdr.Name))
		if !isPathWithinDirectory(target, trg) {
			return fmt.Errorf("Unwtar %s: entry %q escapes destination", c.Src, hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o777); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := validateSymlinkTarget(hdr.Linkname, target, trg); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o777); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		default:
			if err := os.MkdirAll(filepath.Dir(target), 0o777); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			f.Close()
		}
	}

	if !c.NoArtifacts {
		sentinel := filepath.Join(trg, ".wtar_origin")
		os.WriteFile(sentinel, []byte(filepath.Base(c.Src)), 0o644)
	}
	return nil
}

// openWtarParts opens Src directly, or if Src+".aa" exists instead,
// concatenates Src+".aa", Src+".ab", … into one reader.
func openWtarParts(src string) (io.Reader, func(), error) {
	if _, err := os.Stat(src); err == nil {
		f, err := os.Open(src)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { f.Close() }, nil
	}

	var files []*os.File
	suffix := partSuffixes()
	for _, s := range suffix {
		f, err := os.Open(src + "." + s)
		if err != nil {
			break
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no archive found at %s or %s.aa", src, src)
	}

	readers := make([]io.Reader, len(files))
	for i, f := range files {
		readers[i] = f
	}
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	return io.MultiReader(readers...), closeAll, nil
}

// execWzip compresses Src with xz into Trg (defaulting to Src+".wzip").
func execWzip(c Wzip) error {
	trg := c.Trg
	if trg == "" {
		trg = c.Src + ".wzip"
	}

	in, err := os.Open(c.Src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(trg)
	if err != nil {
		return err
	}
	defer out.Close()

	xw, err := xz.NewWriter(out)
	if err != nil {
		return err
	}
	defer xw.Close()

	_, err = io.Copy(xw, in)
	return err
}

// execUnwzip reverses Wzip.
func execUnwzip(c Unwzip) error {
	trg := c.Trg
	if trg == "" {
		trg = strings.TrimSuffix(c.Src, ".wzip")
	}

	in, err := os.Open(c.Src)
	if err != nil {
		return err
	}
	defer in.Close()

	xr, err := xz.NewReader(in)
	if err != nil {
		return err
	}

	out, err := os.Create(trg)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, xr)
	return err
}
