package batch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExecMakeDirsCreatesNested(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a", "b", "c")
	err := Execute(MakeDirs{Paths: []string{target}}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s", target)
	}
}

func TestExecMakeDirsRemovesObstacle(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "obstacle")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := Execute(MakeDirs{Paths: []string{target}, RemoveObstacles: true}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory replacing obstacle at %s", target)
	}
}

func TestExecTouchCreatesAndUpdates(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.txt")
	if err := Execute(Touch{Path: path}, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
}

func TestExecCdRestoresCwdOnSuccessAndFailure(t *testing.T) {
	start, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	err = Execute(Cd{Path: dir, Body: []Command{RmFile{Path: "nonexistent-but-harmless"}}}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	after, _ := os.Getwd()
	if after != start {
		t.Fatalf("cwd not restored: got %s want %s", after, start)
	}

	failErr := Execute(Cd{Path: dir, Body: []Command{RmFile{Path: dir}}}, nil)
	if failErr == nil {
		t.Fatal("expected RmFile on a directory to fail")
	}
	after2, _ := os.Getwd()
	if after2 != start {
		t.Fatalf("cwd not restored after failing body: got %s want %s", after2, start)
	}
}

func TestExecRmFileOrDirDispatchesByKind(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "f")
	dir := filepath.Join(root, "d")
	os.WriteFile(file, []byte("x"), 0o644)
	os.MkdirAll(dir, 0o777)

	if err := Execute(RmFileOrDir{Path: file}, nil); err != nil {
		t.Fatalf("remove file: %v", err)
	}
	if err := Execute(RmFileOrDir{Path: dir}, nil); err != nil {
		t.Fatalf("remove dir: %v", err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Fatal("expected file removed")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("expected dir removed")
	}
}

func TestExecChmodSymbolicModeMergesWithCurrent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := Execute(Chmod{Path: path, Mode: "a+x"}, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Fatalf("expected execute bits set, got %v", info.Mode().Perm())
	}
	if info.Mode().Perm()&0o600 != 0o600 {
		t.Fatalf("expected original rw bits preserved, got %v", info.Mode().Perm())
	}
}

func TestExecChmodInvalidModeReturnsInvalidModeError(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f")
	os.WriteFile(path, []byte("x"), 0o644)

	err := Execute(Chmod{Path: path, Mode: "nonsense"}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	var target *InvalidModeError
	if !errors.As(err, &target) {
		t.Fatalf("expected *InvalidModeError, got %T: %v", err, err)
	}
}

func TestExecAppendFileToFile(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")
	os.WriteFile(src, []byte("world"), 0o644)
	os.WriteFile(dst, []byte("hello "), 0o644)

	if err := Execute(AppendFileToFile{Src: src, Dst: dst}, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestExecuteAllStopsAtFirstError(t *testing.T) {
	root := t.TempDir()
	ran := filepath.Join(root, "ran")
	notReached := filepath.Join(root, "not-reached")

	cmds := []Command{
		Touch{Path: ran},
		RmFile{Path: root}, // a directory: fails
		Touch{Path: notReached},
	}
	err := ExecuteAll(cmds, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, err := os.Stat(ran); err != nil {
		t.Fatal("expected first command to have run")
	}
	if _, err := os.Stat(notReached); !os.IsNotExist(err) {
		t.Fatal("expected third command to not have run")
	}
}

func TestExecCopyFileToFileAndDir(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src.txt")
	os.WriteFile(src, []byte("data"), 0o644)

	dstFile := filepath.Join(root, "nested", "dst.txt")
	if err := Execute(CopyFileToFile{Src: src, Dst: dstFile}, nil); err != nil {
		t.Fatalf("Execute CopyFileToFile: %v", err)
	}
	got, _ := os.ReadFile(dstFile)
	if string(got) != "data" {
		t.Fatalf("got %q", got)
	}

	dstDir := filepath.Join(root, "destdir")
	if err := Execute(CopyFileToDir{Src: src, Dst: dstDir}, nil); err != nil {
		t.Fatalf("Execute CopyFileToDir: %v", err)
	}
	got2, _ := os.ReadFile(filepath.Join(dstDir, "src.txt"))
	if string(got2) != "data" {
		t.Fatalf("got %q", got2)
	}
}

func TestExecCopyDirContentsToDirHonorsIgnoreGlobs(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	os.MkdirAll(src, 0o777)
	os.WriteFile(filepath.Join(src, "keep.txt"), []byte("k"), 0o644)
	os.WriteFile(filepath.Join(src, "skip.log"), []byte("s"), 0o644)

	dst := filepath.Join(root, "dst")
	opts := CopyOptions{IgnoreGlobs: []string{"*.log"}}
	if err := Execute(CopyDirContentsToDir{Src: src, Dst: dst, CopyOptions: opts}, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "keep.txt")); err != nil {
		t.Fatal("expected keep.txt copied")
	}
	if _, err := os.Stat(filepath.Join(dst, "skip.log")); !os.IsNotExist(err) {
		t.Fatal("expected skip.log to be excluded")
	}
}

func TestExecRemoveEmptyFoldersDeletesOnlyFullyIgnoredTrees(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "base")
	emptyDir := filepath.Join(base, "empty")
	keepDir := filepath.Join(base, "keep")
	os.MkdirAll(emptyDir, 0o777)
	os.MkdirAll(keepDir, 0o777)
	os.WriteFile(filepath.Join(emptyDir, ".DS_Store"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(keepDir, "real.txt"), []byte("x"), 0o644)

	err := Execute(RemoveEmptyFolders{Root: base, IgnoreFiles: []string{".DS_Store"}}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := os.Stat(emptyDir); !os.IsNotExist(err) {
		t.Fatal("expected empty dir removed")
	}
	if _, err := os.Stat(keepDir); err != nil {
		t.Fatal("expected keep dir to survive")
	}
}

func TestExecWtarUnwtarRoundTrip(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "payload")
	os.MkdirAll(src, 0o777)
	os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644)
	os.MkdirAll(filepath.Join(src, "sub"), 0o777)
	os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("world"), 0o644)

	archive := filepath.Join(root, "payload.wtar")
	if err := Execute(Wtar{Src: src, Trg: archive}, nil); err != nil {
		t.Fatalf("Wtar: %v", err)
	}
	if _, err := os.Stat(archive); err != nil {
		t.Fatalf("expected archive file: %v", err)
	}

	dest := filepath.Join(root, "expanded")
	if err := Execute(Unwtar{Src: archive, Trg: dest}, nil); err != nil {
		t.Fatalf("Unwtar: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	if err != nil || string(got) != "hello" {
		t.Fatalf("a.txt round-trip failed: %v %q", err, got)
	}
	got2, err := os.ReadFile(filepath.Join(dest, "sub", "b.txt"))
	if err != nil || string(got2) != "world" {
		t.Fatalf("sub/b.txt round-trip failed: %v %q", err, got2)
	}
}

func TestExecWzipUnwzipRoundTrip(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.txt")
	os.WriteFile(src, []byte("some compressible content some compressible content"), 0o644)

	wzip := filepath.Join(root, "a.txt.wzip")
	if err := Execute(Wzip{Src: src, Trg: wzip}, nil); err != nil {
		t.Fatalf("Wzip: %v", err)
	}

	dest := filepath.Join(root, "out.txt")
	if err := Execute(Unwzip{Src: wzip, Trg: dest}, nil); err != nil {
		t.Fatalf("Unwzip: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil || string(got) != "some compressible content some compressible content" {
		t.Fatalf("round trip failed: %v %q", err, got)
	}
}
