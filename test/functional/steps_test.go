package functional

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
)

// aFileContaining writes a fixture file (file-map text, a require
// document, a props file) relative to the scenario's scratch directory,
// creating parent directories as needed.
func aFileContaining(ctx context.Context, name string, contents *godog.DocString) (context.Context, error) {
	state := getState(ctx)
	if state == nil {
		return ctx, fmt.Errorf("no test state; is the Before hook running?")
	}
	full := filepath.Join(state.workDir, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return ctx, err
	}
	if err := os.WriteFile(full, []byte(contents.Content), 0o644); err != nil {
		return ctx, err
	}
	return ctx, nil
}

func aDirectory(ctx context.Context, name string) (context.Context, error) {
	state := getState(ctx)
	if state == nil {
		return ctx, fmt.Errorf("no test state; is the Before hook running?")
	}
	return ctx, os.MkdirAll(filepath.Join(state.workDir, name), 0o755)
}

// iRun executes a command string, replacing a leading "instl" with the
// test binary path and running with workDir as the current directory so
// relative --in/--out paths resolve against scenario fixtures.
func iRun(ctx context.Context, command string) (context.Context, error) {
	state := getState(ctx)
	if state == nil {
		return ctx, fmt.Errorf("no test state; is the Before hook running?")
	}

	args := strings.Fields(command)
	if len(args) > 0 && args[0] == "instl" {
		args[0] = state.binPath
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = state.workDir
	cmd.Env = os.Environ()

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	state.stdout = stdout.String()
	state.stderr = stderr.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			state.exitCode = exitErr.ExitCode()
		} else {
			return ctx, fmt.Errorf("command execution failed: %w", err)
		}
	} else {
		state.exitCode = 0
	}

	return ctx, nil
}

func theExitCodeIs(ctx context.Context, expected int) error {
	state := getState(ctx)
	if state.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nstdout: %s\nstderr: %s",
			expected, state.exitCode, state.stdout, state.stderr)
	}
	return nil
}

func theExitCodeIsNot(ctx context.Context, notExpected int) error {
	state := getState(ctx)
	if state.exitCode == notExpected {
		return fmt.Errorf("expected exit code to not be %d\nstdout: %s\nstderr: %s",
			notExpected, state.stdout, state.stderr)
	}
	return nil
}

func theOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	if !strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theOutputDoesNotContain(ctx context.Context, text string) error {
	state := getState(ctx)
	if strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout not to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theErrorOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	if !strings.Contains(state.stderr, text) {
		return fmt.Errorf("expected stderr to contain %q, got:\n%s", text, state.stderr)
	}
	return nil
}

func theFileExists(ctx context.Context, path string) error {
	state := getState(ctx)
	full := filepath.Join(state.workDir, path)
	if _, err := os.Lstat(full); os.IsNotExist(err) {
		return fmt.Errorf("expected file %q to exist", full)
	}
	return nil
}

func theFileDoesNotExist(ctx context.Context, path string) error {
	state := getState(ctx)
	full := filepath.Join(state.workDir, path)
	if _, err := os.Lstat(full); err == nil {
		return fmt.Errorf("expected file %q not to exist", full)
	}
	return nil
}

func theDirectoryExists(ctx context.Context, path string) error {
	state := getState(ctx)
	full := filepath.Join(state.workDir, path)
	info, err := os.Stat(full)
	if err != nil {
		return fmt.Errorf("expected directory %q to exist: %w", full, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("expected %q to be a directory", full)
	}
	return nil
}

func theFileContains(ctx context.Context, path, text string) error {
	state := getState(ctx)
	full := filepath.Join(state.workDir, path)
	data, err := os.ReadFile(full)
	if err != nil {
		return fmt.Errorf("reading %q: %w", full, err)
	}
	if !strings.Contains(string(data), text) {
		return fmt.Errorf("expected %q to contain %q, got:\n%s", full, text, string(data))
	}
	return nil
}
