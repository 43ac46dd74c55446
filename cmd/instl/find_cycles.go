package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/instl-engine/instl/internal/resolve"
)

var findCyclesFlags sharedFlags

var findCyclesCmd = &cobra.Command{
	Use:   "find-cycles",
	Short: "Report any dependency cycle in the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openIndex(findCyclesFlags.in)
		if err != nil {
			return err
		}
		defer store.Close()

		all, err := store.GetAllIIDs()
		if err != nil {
			return err
		}

		_, err = resolve.Resolve(all, store)
		var cycleErr *resolve.DependencyCycleError
		if errors.As(err, &cycleErr) {
			fmt.Println(cycleErr.Error())
			exitWithCode(ExitResolveFailed)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println("no cycles found")
		return nil
	},
}

func init() {
	addSharedFlags(findCyclesCmd, &findCyclesFlags)
}
