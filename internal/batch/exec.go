package batch

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/instl-engine/instl/internal/log"
	"github.com/instl-engine/instl/internal/valuestore"
)

// ExecContext carries the state Execute needs beyond the command itself:
// the value store for VarAssign, and a logger matching the rest of the
// tree's internal/log.Logger interface.
type ExecContext struct {
	Store  *valuestore.Store
	Logger log.Logger
}

func (c *ExecContext) logger() log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// Execute runs cmd directly against the local filesystem/shell (spec.md
// §4.8/§9). Cd recurses into its nested command set; ParallelRun runs the
// shell lines listed in its ConfigFile.
func Execute(cmd Command, ctx *ExecContext) error {
	switch c := cmd.(type) {
	case MakeDirs:
		return execMakeDirs(c)
	case Touch:
		return execTouch(c)
	case Cd:
		return execCd(c, ctx)
	case RmFile:
		return execRmFile(c)
	case RmDir:
		return execRmDir(c)
	case RmFileOrDir:
		return execRmFileOrDir(c)
	case CopyDirToDir:
		return copyDirToDir(c.Src, c.Dst, c.CopyOptions)
	case CopyDirContentsToDir:
		return copyDirContentsToDir(c.Src, c.Dst, c.CopyOptions)
	case CopyFileToDir:
		return copyFileToDir(c.Src, c.Dst, c.CopyOptions)
	case CopyFileToFile:
		return copyFileToFile(c.Src, c.Dst, c.CopyOptions)
	case Chmod:
		return execChmod(c)
	case Chown:
		return execChown(c)
	case ChFlags:
		return execChFlags(c)
	case CreateSymlink:
		return os.Symlink(c.Target, c.Link)
	case SymlinkToSymlinkFile:
		return execSymlinkToSymlinkFile(c)
	case SymlinkFileToSymlink:
		return execSymlinkFileToSymlink(c)
	case Wtar:
		return execWtar(c)
	case Unwtar:
		return execUnwtar(c)
	case Wzip:
		return execWzip(c)
	case Unwzip:
		return execUnwzip(c)
	case AppendFileToFile:
		return execAppendFileToFile(c)
	case ShellCommands:
		return execShellCommands(c)
	case SingleShellCommand:
		return runShellLine(c.Cmd)
	case ParallelRun:
		return execParallelRun(c)
	case RemoveEmptyFolders:
		return execRemoveEmptyFolders(c)
	case Ls:
		return execLs(c)
	case CUrl:
		return execCUrl(c)
	case MakeRandomDirs:
		return execMakeRandomDirs(c)
	case VarAssign:
		if ctx == nil || ctx.Store == nil {
			return fmt.Errorf("VarAssign requires a value store")
		}
		return ctx.Store.SetVar(c.Name, c.Values...)
	default:
		return fmt.Errorf("unsupported command type %T", cmd)
	}
}

// ExecuteAll runs cmds in order, stopping at the first error.
func ExecuteAll(cmds []Command, ctx *ExecContext) error {
	for _, c := range cmds {
		if err := Execute(c, ctx); err != nil {
			return err
		}
	}
	return nil
}

func execMakeDirs(c MakeDirs) error {
	for _, p := range c.Paths {
		if c.RemoveObstacles {
			if info, err := os.Lstat(p); err == nil && !info.IsDir() {
				if err := os.Remove(p); err != nil {
					return fmt.Errorf("removing obstacle at %s: %w", p, err)
				}
			}
		}
		if err := os.MkdirAll(p, 0o777); err != nil {
			return fmt.Errorf("MakeDirs %s: %w", p, err)
		}
	}
	return nil
}

func execTouch(c Touch) error {
	f, err := os.OpenFile(c.Path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("Touch %s: %w", c.Path, err)
	}
	f.Close()
	now := time.Now()
	return os.Chtimes(c.Path, now, now)
}

func execCd(c Cd, ctx *ExecContext) error {
	prev, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("Cd: getting cwd: %w", err)
	}
	if err := os.Chdir(c.Path); err != nil {
		return fmt.Errorf("Cd %s: %w", c.Path, err)
	}
	defer os.Chdir(prev)
	return ExecuteAll(c.Body, ctx)
}

func execRmFile(c RmFile) error {
	info, err := os.Lstat(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("RmFile %s: is a directory", c.Path)
	}
	return os.Remove(c.Path)
}

func execRmDir(c RmDir) error {
	if _, err := os.Lstat(c.Path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.RemoveAll(c.Path)
}

func execRmFileOrDir(c RmFileOrDir) error {
	info, err := os.Lstat(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return execRmDir(RmDir{Path: c.Path})
	}
	return execRmFile(RmFile{Path: c.Path})
}

func execChmod(c Chmod) error {
	var apply func(path string) error
	apply = func(path string) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		newMode, err := applySymbolicMode(c.Mode, info.Mode().Perm())
		if err != nil {
			return err
		}
		if err := os.Chmod(path, newMode); err != nil {
			return err
		}
		if c.Recursive && info.IsDir() {
			entries, err := os.ReadDir(path)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if err := apply(filepath.Join(path, e.Name())); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return apply(c.Path)
}

func execChown(c Chown) error {
	if runtime.GOOS == "windows" {
		return nil // Windows has no chown equivalent; this is a documented no-op
	}
	err := chownPath(c)
	if err != nil && c.IgnoreAllErrors && os.IsNotExist(err) {
		return nil
	}
	return err
}

func execSymlinkToSymlinkFile(c SymlinkToSymlinkFile) error {
	target, err := os.Readlink(c.Link)
	if err != nil {
		return fmt.Errorf("SymlinkToSymlinkFile %s: %w", c.Link, err)
	}
	if err := os.Remove(c.Link); err != nil {
		return err
	}
	return os.WriteFile(c.Link+".symlink", []byte(target), 0o644)
}

func execSymlinkFileToSymlink(c SymlinkFileToSymlink) error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("SymlinkFileToSymlink %s: %w", c.Path, err)
	}
	linkPath := strings.TrimSuffix(c.Path, ".symlink")
	if err := os.Remove(c.Path); err != nil {
		return err
	}
	return os.Symlink(strings.TrimSpace(string(data)), linkPath)
}

func execAppendFileToFile(c AppendFileToFile) error {
	src, err := os.Open(c.Src)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(c.Dst, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

func execShellCommands(c ShellCommands) error {
	path := filepath.Join(c.Dir, c.Name)
	content := strings.Join(c.Lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		return err
	}
	return runShellFile(path)
}

func execParallelRun(c ParallelRun) error {
	data, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		return fmt.Errorf("ParallelRun reading %s: %w", c.ConfigFile, err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines = append(lines, trimmed)
	}

	run := runShellLine
	if c.Shell != "" {
		run = func(line string) error {
			cmd := exec.Command(c.Shell, shellFlag(), line)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			return cmd.Run()
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(lines))
	for _, line := range lines {
		line := line
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(line); err != nil {
				errs <- &ParallelRunFailed{Line: line, Cause: err}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		return err // surface the first failure; the rest already ran to completion
	}
	return nil
}

func execLs(c Ls) error {
	var sb strings.Builder
	for _, p := range c.Paths {
		entries, err := os.ReadDir(p)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if c.Format == LsFormatLong {
				info, err := e.Info()
				if err != nil {
					return err
				}
				fmt.Fprintf(&sb, "%s %10d %s\n", info.Mode(), info.Size(), e.Name())
			} else {
				fmt.Fprintln(&sb, e.Name())
			}
		}
	}
	return os.WriteFile(c.Out, []byte(sb.String()), 0o644)
}

func execMakeRandomDirs(c MakeRandomDirs) error {
	var build func(dir string, level int) error
	build = func(dir string, level int) error {
		if err := os.MkdirAll(dir, 0o777); err != nil {
			return err
		}
		for i := 0; i < c.FilesPerDir; i++ {
			fp := filepath.Join(dir, fmt.Sprintf("file%d.bin", i))
			if err := os.WriteFile(fp, make([]byte, c.FileSize), 0o644); err != nil {
				return err
			}
		}
		if level >= c.Levels {
			return nil
		}
		for i := 0; i < c.DirsPerLevel; i++ {
			if err := build(filepath.Join(dir, fmt.Sprintf("dir%d", i)), level+1); err != nil {
				return err
			}
		}
		return nil
	}
	return build(".", 1)
}

func runShellLine(line string) error {
	cmd := exec.Command(shellName(), shellFlag(), line)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func runShellFile(path string) error {
	cmd := exec.Command(shellName(), path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func shellName() string {
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "/bin/sh"
}

func shellFlag() string {
	if runtime.GOOS == "windows" {
		return "/C"
	}
	return "-c"
}
