package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/instl-engine/instl/internal/resolve"
)

var resolveFlags sharedFlags

var resolveCmd = &cobra.Command{
	Use:   "resolve [iid...]",
	Short: "Resolve the dependency closure of the requested IIDs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openIndex(resolveFlags.in)
		if err != nil {
			return err
		}
		defer store.Close()

		requested := args
		if len(requested) == 0 {
			requested, err = store.GetAllIIDs()
			if err != nil {
				return err
			}
		}

		plan, err := resolve.Resolve(requested, store)
		if err != nil {
			exitWithCode(ExitResolveFailed)
			return err
		}

		if len(resolveFlags.limit) > 0 {
			req, pulled := resolve.FilterToLimit(plan, resolveFlags.limit)
			for _, it := range plan.FullInstallItems {
				if req[it] || pulled[it] {
					fmt.Println(it)
				}
			}
			return nil
		}

		for _, it := range plan.FullInstallItems {
			fmt.Println(it)
		}
		for _, orphan := range plan.OrphanInstallItems {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: orphan dependency %s\n", orphan)
		}
		return nil
	},
}

func init() {
	addSharedFlags(resolveCmd, &resolveFlags)
}
