package batch

import (
	"fmt"
	"strings"
)

// EmitWindows renders cmd as a cmd.exe batch snippet. RmFileOrDir emits
// both an rmdir and a del line (directory form first) since the target's
// kind isn't known until the script actually runs — a corrected version
// of the source's repr_batch_win, which appended its file-removal line
// twice instead of pairing it with a directory-removal line (spec.md §9).
func EmitWindows(cmd Command) (string, error) {
	switch c := cmd.(type) {
	case MakeDirs:
		var parts []string
		for _, p := range c.Paths {
			wp := winPath(p)
			if c.RemoveObstacles {
				parts = append(parts, fmt.Sprintf("if exist %s del /f /q %s", wq(wp), wq(wp)))
			}
			parts = append(parts, fmt.Sprintf("if not exist %s mkdir %s", wq(wp), wq(wp)))
		}
		return strings.Join(parts, "\r\n"), nil
	case Touch:
		p := winPath(c.Path)
		return fmt.Sprintf("type nul >> %s && copy /b %s+,, %s", wq(p), wq(p), wq(p)), nil
	case Cd:
		body, err := EmitWindowsAll(c.Body)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("pushd %s\r\n%s\r\npopd", wq(winPath(c.Path)), body), nil
	case RmFile:
		return fmt.Sprintf("if exist %s del /f /q %s", wq(winPath(c.Path)), wq(winPath(c.Path))), nil
	case RmDir:
		p := wq(winPath(c.Path))
		return fmt.Sprintf("if exist %s rmdir /s /q %s", p, p), nil
	case RmFileOrDir:
		p := wq(winPath(c.Path))
		return fmt.Sprintf("if exist %s rmdir /s /q %s\r\nif exist %s del /f /q %s", p, p, p, p), nil
	case CopyDirToDir:
		return robocopyDir(c.Src, joinWin(c.Dst, baseShell(c.Src)), c.CopyOptions), nil
	case CopyDirContentsToDir:
		return robocopyDir(c.Src, c.Dst, c.CopyOptions), nil
	case CopyFileToDir:
		dst := winPath(c.Dst)
		return fmt.Sprintf("if not exist %s mkdir %s\r\ncopy /y %s %s\\", wq(dst), wq(dst), wq(winPath(c.Src)), wq(dst)), nil
	case CopyFileToFile:
		dst := winPath(c.Dst)
		parent := parentDirWin(dst)
		return fmt.Sprintf("if not exist %s mkdir %s\r\ncopy /y %s %s", wq(parent), wq(parent), wq(winPath(c.Src)), wq(dst)), nil
	case Chmod:
		// Windows has no POSIX mode bits; approximate read-only toggles only.
		if strings.Contains(c.Mode, "-w") {
			return fmt.Sprintf("attrib +R %s", wq(winPath(c.Path))), nil
		}
		return fmt.Sprintf("attrib -R %s", wq(winPath(c.Path))), nil
	case Chown:
		return "", nil // no-op on Windows
	case ChFlags:
		return windowsChFlagsLine(c), nil
	case CreateSymlink:
		return fmt.Sprintf("mklink %s %s", wq(winPath(c.Link)), wq(winPath(c.Target))), nil
	case SymlinkToSymlinkFile:
		return "", fmt.Errorf("SymlinkToSymlinkFile has no Windows shell form")
	case SymlinkFileToSymlink:
		return "", fmt.Errorf("SymlinkFileToSymlink has no Windows shell form")
	case Wtar, Unwtar, Wzip, Unwzip:
		return "", fmt.Errorf("archive commands run only via direct execution, not shell emission")
	case AppendFileToFile:
		return fmt.Sprintf("copy /b %s+%s %s", wq(winPath(c.Dst)), wq(winPath(c.Src)), wq(winPath(c.Dst))), nil
	case ShellCommands:
		return strings.Join(c.Lines, "\r\n"), nil
	case SingleShellCommand:
		return c.Cmd, nil
	case ParallelRun:
		return fmt.Sprintf("for /f \"usebackq delims=\" %%%%L in (%s) do start \"\" /b cmd /c %%%%L", wq(winPath(c.ConfigFile))), nil
	case RemoveEmptyFolders:
		return "", nil
	case Ls:
		return "", nil
	case CUrl:
		return windowsCurlLine(c), nil
	case MakeRandomDirs:
		return "", nil
	case VarAssign:
		return "", nil
	default:
		return "", fmt.Errorf("EmitWindows: unsupported command type %T", cmd)
	}
}

// EmitWindowsAll joins the batch text of every command in cmds, in
// order, skipping commands that render to nothing.
func EmitWindowsAll(cmds []Command) (string, error) {
	var lines []string
	for _, c := range cmds {
		text, err := EmitWindows(c)
		if err != nil {
			return "", err
		}
		if text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\r\n"), nil
}

// robocopyDir emits a robocopy invocation. Robocopy's exit codes 0-7 are
// all success (bits signal "files copied"/"extra files" etc., not
// failure); only codes ≥8 indicate a real error, so the emitted snippet
// checks that boundary itself ("if %errorlevel% geq 8") rather than
// checking for a plain 0.
func robocopyDir(src, dst string, opts CopyOptions) string {
	args := []string{"robocopy", wq(winPath(src)), wq(winPath(dst)), "/e"}
	if opts.PreserveDestFiles {
		args = append(args, "/xc", "/xn", "/xo")
	}
	for _, g := range opts.IgnoreGlobs {
		args = append(args, "/xf", wq(g))
	}
	return strings.Join(args, " ") + "\r\nif %errorlevel% geq 8 exit /b %errorlevel%"
}

func windowsChFlagsLine(c ChFlags) string {
	p := wq(winPath(c.Path))
	r := ""
	if c.Recursive {
		r = " /s /d"
	}
	switch c.Flag {
	case FlagHidden:
		return fmt.Sprintf("attrib +H %s%s", p, r)
	case FlagNoHidden:
		return fmt.Sprintf("attrib -H %s%s", p, r)
	case FlagLocked:
		return fmt.Sprintf("attrib +R %s%s", p, r)
	case FlagUnlocked:
		return fmt.Sprintf("attrib -R %s%s", p, r)
	}
	return ""
}

func windowsCurlLine(c CUrl) string {
	curlPath := c.CurlPath
	if curlPath == "" {
		curlPath = "curl.exe"
	}
	args := []string{wq(curlPath), "-fsSL", "-o", wq(winPath(c.Trg))}
	if c.ConnectTimeout > 0 {
		args = append(args, "--connect-timeout", fmt.Sprintf("%d", c.ConnectTimeout))
	}
	if c.MaxTime > 0 {
		args = append(args, "--max-time", fmt.Sprintf("%d", c.MaxTime))
	}
	if c.Retries > 0 {
		args = append(args, "--retry", fmt.Sprintf("%d", c.Retries))
	}
	if c.RetryDelaySec > 0 {
		args = append(args, "--retry-delay", fmt.Sprintf("%d", c.RetryDelaySec))
	}
	args = append(args, wq(c.Src))
	return strings.Join(args, " ")
}

func winPath(p string) string {
	return strings.ReplaceAll(p, "/", "\\")
}

func parentDirWin(p string) string {
	idx := strings.LastIndex(p, "\\")
	if idx <= 0 {
		return "."
	}
	return p[:idx]
}

func joinWin(dir, name string) string {
	dir = strings.TrimRight(winPath(dir), "\\")
	return dir + "\\" + name
}

// wq double-quotes s for safe inclusion in a cmd.exe command line.
func wq(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
