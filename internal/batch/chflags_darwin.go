//go:build darwin

package batch

import "syscall"

// setFlag maps hidden/locked to the BSD chflags UF_HIDDEN/UF_IMMUTABLE bits.
func setFlag(path string, flag ChFlagKind) error {
	var want uint32
	switch flag {
	case FlagHidden:
		want = 0x8000 // UF_HIDDEN
	case FlagLocked:
		want = 0x2 // UF_IMMUTABLE
	case FlagNoHidden, FlagUnlocked:
		want = 0 // clearing is handled per-path below
	}

	var st syscall.Stat_t
	if err := syscall.Stat(path, &st); err != nil {
		return err
	}
	current := uint32(st.Flags)

	switch flag {
	case FlagHidden:
		current |= want
	case FlagLocked:
		current |= want
	case FlagNoHidden:
		current &^= 0x8000
	case FlagUnlocked:
		current &^= 0x2
	}
	return syscall.Chflags(path, int(current))
}
