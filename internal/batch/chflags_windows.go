//go:build windows

package batch

import "os/exec"

// setFlag maps hidden/locked to attrib's +H (hidden) and +R (read-only,
// our stand-in for "locked") attributes.
func setFlag(path string, flag ChFlagKind) error {
	var attr string
	switch flag {
	case FlagHidden:
		attr = "+H"
	case FlagNoHidden:
		attr = "-H"
	case FlagLocked:
		attr = "+R"
	case FlagUnlocked:
		attr = "-R"
	}
	return exec.Command("attrib", attr, path).Run()
}
