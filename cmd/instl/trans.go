package main

import (
	"fmt"
	"os"
	"regexp"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/instl-engine/instl/internal/valuestore"
)

var transFlags sharedFlags
var transShell string

// transRefPattern matches the $(NAME) tokens transEmit rewrites once the
// value store has resolved everything it knows about (spec.md §6:
// "scripts emitted for execution use $(NAME) -> ${NAME} (Unix) or %NAME%
// (Windows) substitution").
var transRefPattern = regexp.MustCompile(`\$\(([A-Za-z_][A-Za-z0-9_]*)\)`)

var transCmd = &cobra.Command{
	Use:   "trans",
	Short: "Resolve $(NAME) references against --define and the native shell's variable syntax",
	RunE: func(cmd *cobra.Command, args []string) error {
		if transFlags.in == "" {
			return fmt.Errorf("trans requires --in")
		}

		raw, err := os.ReadFile(transFlags.in)
		if err != nil {
			return err
		}

		store := valuestore.New()
		if err := applyDefines(store, transFlags.define); err != nil {
			return err
		}

		// Only references to names the store binds are resolved; the
		// rest stay as $(NAME) for transEmit.
		knownRef := regexp.MustCompile(`\$\(([A-Za-z_][A-Za-z0-9_]*)(?::list_sep="[^"]*")?\)`)
		var resolveErr error
		resolved := knownRef.ReplaceAllStringFunc(string(raw), func(ref string) string {
			if _, ok := store.GetRaw(knownRef.FindStringSubmatch(ref)[1]); !ok {
				return ref
			}
			v, err := store.Resolve(ref)
			if err != nil && resolveErr == nil {
				resolveErr = err
			}
			return v
		})
		if resolveErr != nil {
			return resolveErr
		}

		shell := transShell
		if shell == "" {
			if runtime.GOOS == "windows" {
				shell = "windows"
			} else {
				shell = "unix"
			}
		}
		out := transEmit(resolved, shell)

		if transFlags.out == "" {
			_, err = cmd.OutOrStdout().Write([]byte(out))
			return err
		}
		return os.WriteFile(transFlags.out, []byte(out), 0o644)
	},
}

// transEmit rewrites any $(NAME) token the value store left unresolved
// (free of a bound value, e.g. environment references) into the target
// shell's own variable syntax.
func transEmit(s, shell string) string {
	return transRefPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := transRefPattern.FindStringSubmatch(match)[1]
		if shell == "windows" {
			return "%" + name + "%"
		}
		return "${" + name + "}"
	})
}

func init() {
	addSharedFlags(transCmd, &transFlags)
	transCmd.Flags().StringVar(&transShell, "shell", "", "target shell syntax for leftover $(NAME) refs: unix or windows")
}
