//go:build windows

package batch

// chownPath is unreachable on Windows: execChown short-circuits to a no-op
// before calling it. Defined only to satisfy the build.
func chownPath(c Chown) error {
	return nil
}
