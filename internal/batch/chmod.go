package batch

import (
	"os"
	"strings"
)

// applySymbolicMode parses a comma-separated list of clauses of the form
// [augo][+-=][rwx]+ (spec.md §4.8) and applies them in order to current,
// merging with the existing bits for + and -, replacing them for =.
func applySymbolicMode(mode string, current os.FileMode) (os.FileMode, error) {
	result := current
	for _, clause := range strings.Split(mode, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		next, err := applyModeClause(clause, result)
		if err != nil {
			return 0, err
		}
		result = next
	}
	return result, nil
}

func applyModeClause(clause string, current os.FileMode) (os.FileMode, error) {
	i := 0
	who := os.FileMode(0)
	sawWho := false
	for i < len(clause) && strings.ContainsRune("augo", rune(clause[i])) {
		sawWho = true
		switch clause[i] {
		case 'u':
			who |= 0o700
		case 'g':
			who |= 0o070
		case 'o':
			who |= 0o007
		case 'a':
			who |= 0o777
		}
		i++
	}
	if !sawWho {
		who = 0o777 // no who-clause means "all", matching common chmod symbolic semantics
	}

	if i >= len(clause) {
		return 0, &InvalidModeError{Mode: clause}
	}
	op := clause[i]
	if op != '+' && op != '-' && op != '=' {
		return 0, &InvalidModeError{Mode: clause}
	}
	i++

	perms := os.FileMode(0)
	sawPerm := false
	for ; i < len(clause); i++ {
		sawPerm = true
		switch clause[i] {
		case 'r':
			perms |= 0o444
		case 'w':
			perms |= 0o222
		case 'x':
			perms |= 0o111
		default:
			return 0, &InvalidModeError{Mode: clause}
		}
	}
	if !sawPerm {
		return 0, &InvalidModeError{Mode: clause}
	}

	mask := who & perms
	switch op {
	case '+':
		return current | mask, nil
	case '-':
		return current &^ mask, nil
	default: // '='
		return (current &^ who) | mask, nil
	}
}
