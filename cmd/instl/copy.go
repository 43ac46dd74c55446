package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/instl-engine/instl/internal/action"
	"github.com/instl-engine/instl/internal/batch"
	"github.com/instl-engine/instl/internal/resolve"
)

var copyFlags sharedFlags

var copyCmd = &cobra.Command{
	Use:   "copy [iid...]",
	Short: "Schedule and (optionally) run the copy actions for the requested IIDs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCopyAction(cmd, args, action.ModeCopy)
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall [iid...]",
	Short: "Schedule and (optionally) run the remove actions for the requested IIDs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCopyAction(cmd, args, action.ModeRemove)
	},
}

func init() {
	addSharedFlags(copyCmd, &copyFlags)
	addSharedFlags(uninstallCmd, &copyFlags)
}

func runCopyAction(cmd *cobra.Command, args []string, mode action.Mode) error {
	cfg, err := loadConfig(&copyFlags)
	if err != nil {
		return err
	}

	store, err := openIndex(copyFlags.in)
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
	targets := plan.FullInstallItems
	if len(copyFlags.limit) > 0 {
		req, pulled := resolve.FilterToLimit(plan, copyFlags.limit)
		targets = targets[:0]
		for _, it := range plan.FullInstallItems {
			if req[it] || pulled[it] {
				targets = append(targets, it)
			}
		}
	}

	items, err := loadItemInputs(store, targets)
	if err != nil {
		return err
	}

	steps := action.BuildPlan(items, mode)
	fmt.Fprintf(cmd.OutOrStdout(), "%d action step(s) scheduled\n", len(steps))

	if !copyFlags.run {
		return nil
	}

	cmds, err := action.ToBatchCommands(steps, cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("translating action steps: %w", err)
	}
	return batch.ExecuteAll(cmds, &batch.ExecContext{})
}
