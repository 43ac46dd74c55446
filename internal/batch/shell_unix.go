package batch

import (
	"fmt"
	"strings"
)

// EmitUnix renders cmd as a POSIX shell snippet (spec.md §9: "a tagged
// variant Command plus three functions execute/emit_unix/emit_windows").
// Cd emits as a subshell wrapping Body so the cwd change never escapes
// the block, matching the scoped Enter/Leave semantics Execute gives it
// structurally.
func EmitUnix(cmd Command) (string, error) {
	switch c := cmd.(type) {
	case MakeDirs:
		var parts []string
		for _, p := range c.Paths {
			if c.RemoveObstacles {
				parts = append(parts, fmt.Sprintf("rm -f %s", shq(p)))
			}
			parts = append(parts, fmt.Sprintf("mkdir -p %s", shq(p)))
		}
		return strings.Join(parts, "\n"), nil
	case Touch:
		return fmt.Sprintf("touch %s", shq(c.Path)), nil
	case Cd:
		body, err := EmitUnixAll(c.Body)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(\ncd %s\n%s\n)", shq(c.Path), body), nil
	case RmFile:
		return fmt.Sprintf("rm -f %s", shq(c.Path)), nil
	case RmDir:
		return fmt.Sprintf("rm -rf %s", shq(c.Path)), nil
	case RmFileOrDir:
		return fmt.Sprintf("rm -rf %s", shq(c.Path)), nil
	case CopyDirToDir:
		return rsyncDir(c.Src, c.Dst, c.CopyOptions, true), nil
	case CopyDirContentsToDir:
		return rsyncDir(c.Src, c.Dst, c.CopyOptions, false), nil
	case CopyFileToDir:
		return fmt.Sprintf("mkdir -p %s && cp %s %s/", shq(c.Dst), shq(c.Src), shq(c.Dst)), nil
	case CopyFileToFile:
		return fmt.Sprintf("mkdir -p %s && cp %s %s", shq(parentDirShell(c.Dst)), shq(c.Src), shq(c.Dst)), nil
	case Chmod:
		flag := ""
		if c.Recursive {
			flag = "-R "
		}
		return fmt.Sprintf("chmod %s%s %s", flag, shq(c.Mode), shq(c.Path)), nil
	case Chown:
		flag := ""
		if c.Recursive {
			flag = "-R "
		}
		line := fmt.Sprintf("chown %s%s:%s %s", flag, shq(c.User), shq(c.Group), shq(c.Path))
		if c.IgnoreAllErrors {
			line += " || true"
		}
		return line, nil
	case ChFlags:
		return unixChFlagsLine(c), nil
	case CreateSymlink:
		return fmt.Sprintf("ln -sf %s %s", shq(c.Target), shq(c.Link)), nil
	case SymlinkToSymlinkFile:
		return fmt.Sprintf("readlink %s > %s.symlink && rm %s", shq(c.Link), shq(c.Link), shq(c.Link)), nil
	case SymlinkFileToSymlink:
		link := strings.TrimSuffix(c.Path, ".symlink")
		return fmt.Sprintf("ln -sf \"$(cat %s)\" %s && rm %s", shq(c.Path), shq(link), shq(c.Path)), nil
	case Wtar:
		trg := c.Trg
		if trg == "" {
			trg = c.Src + ".wtar"
		}
		return fmt.Sprintf("tar -cjf %s -C %s %s", shq(trg), shq(parentDirShell(c.Src)), shq(baseShell(c.Src))), nil
	case Unwtar:
		trg := c.Trg
		if trg == "" {
			trg = strings.TrimSuffix(c.Src, ".wtar")
		}
		return fmt.Sprintf("mkdir -p %s && tar -xjf %s -C %s", shq(trg), shq(c.Src), shq(trg)), nil
	case Wzip:
		trg := c.Trg
		if trg == "" {
			trg = c.Src + ".wzip"
		}
		return fmt.Sprintf("xz -c %s > %s", shq(c.Src), shq(trg)), nil
	case Unwzip:
		trg := c.Trg
		if trg == "" {
			trg = strings.TrimSuffix(c.Src, ".wzip")
		}
		return fmt.Sprintf("xz -dc %s > %s", shq(c.Src), shq(trg)), nil
	case AppendFileToFile:
		return fmt.Sprintf("cat %s >> %s", shq(c.Src), shq(c.Dst)), nil
	case ShellCommands:
		return strings.Join(c.Lines, "\n"), nil
	case SingleShellCommand:
		return c.Cmd, nil
	case ParallelRun:
		return fmt.Sprintf("cat %s | xargs -P0 -I{} %s -c {}", shq(c.ConfigFile), shq(shellOrDefault(c.Shell))), nil
	case RemoveEmptyFolders:
		return "", nil // direct-execute only
	case Ls:
		return "", nil // direct-execute only
	case CUrl:
		return curlLine(c), nil
	case MakeRandomDirs:
		return "", nil
	case VarAssign:
		return "", nil
	default:
		return "", fmt.Errorf("EmitUnix: unsupported command type %T", cmd)
	}
}

// EmitUnixAll joins the shell text of every command in cmds, in order,
// skipping commands that render to nothing (direct-execute-only ones).
func EmitUnixAll(cmds []Command) (string, error) {
	var lines []string
	for _, c := range cmds {
		text, err := EmitUnix(c)
		if err != nil {
			return "", err
		}
		if text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func rsyncDir(src, dst string, opts CopyOptions, appendBaseName bool) string {
	srcArg := src
	if !strings.HasSuffix(srcArg, "/") && !appendBaseName {
		srcArg += "/"
	}
	args := []string{"rsync", "-a"}
	for _, g := range opts.IgnoreGlobs {
		args = append(args, "--exclude", shq(g))
	}
	if opts.PreserveDestFiles {
		args = append(args, "--ignore-existing")
	}
	if opts.HardLinkDest {
		args = append(args, fmt.Sprintf("--link-dest=%s", shq(dst)))
	}
	args = append(args, shq(srcArg), shq(dst)+"/")
	return "mkdir -p " + shq(dst) + " && " + strings.Join(args, " ")
}

func unixChFlagsLine(c ChFlags) string {
	var flag string
	switch c.Flag {
	case FlagHidden:
		flag = "hidden"
	case FlagNoHidden:
		flag = "nohidden"
	case FlagLocked:
		flag = "uchg"
	case FlagUnlocked:
		flag = "nouchg"
	}
	r := ""
	if c.Recursive {
		r = "-R "
	}
	return fmt.Sprintf("chflags %s%s %s", r, flag, shq(c.Path))
}

func curlLine(c CUrl) string {
	curlPath := c.CurlPath
	if curlPath == "" {
		curlPath = "curl"
	}
	args := []string{shq(curlPath), "-fsSL", "-o", shq(c.Trg)}
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
	args = append(args, shq(c.Src))
	return strings.Join(args, " ")
}

func shellOrDefault(shell string) string {
	if shell == "" {
		return "/bin/sh"
	}
	return shell
}

func parentDirShell(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return "."
	}
	return path[:idx]
}

func baseShell(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// shq single-quotes s for safe inclusion in a POSIX shell command line.
func shq(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
