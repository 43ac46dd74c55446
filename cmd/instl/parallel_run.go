package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/instl-engine/instl/internal/batch"
)

var parallelRunFlags sharedFlags
var parallelRunShell string

var parallelRunCmd = &cobra.Command{
	Use:   "parallel-run <config-file>",
	Short: "Run every non-comment line of a config file concurrently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := batch.Execute(batch.ParallelRun{ConfigFile: args[0], Shell: parallelRunShell}, nil)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			exitWithCode(ExitGeneral)
		}
		return err
	},
}

func init() {
	addSharedFlags(parallelRunCmd, &parallelRunFlags)
	parallelRunCmd.Flags().StringVar(&parallelRunShell, "shell", "", "shell to run each line with")
}
