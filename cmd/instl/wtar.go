package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/instl-engine/instl/internal/batch"
)

var wtarFlags sharedFlags

var wtarCmd = &cobra.Command{
	Use:   "wtar <src> [trg]",
	Short: "Pack a file or directory into a tar+bzip2 .wtar archive",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := batch.Wtar{Src: args[0]}
		if len(args) == 2 {
			c.Trg = args[1]
		}
		if err := batch.Execute(c, nil); err != nil {
			return fmt.Errorf("wtar: %w", err)
		}
		return nil
	},
}

var unwtarCmd = &cobra.Command{
	Use:   "unwtar <src> [trg]",
	Short: "Unpack a .wtar archive (including split .wtar.aa... parts)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := batch.Unwtar{Src: args[0]}
		if len(args) == 2 {
			c.Trg = args[1]
		}
		if err := batch.Execute(c, nil); err != nil {
			return fmt.Errorf("unwtar: %w", err)
		}
		return nil
	},
}

func init() {
	addSharedFlags(wtarCmd, &wtarFlags)
	addSharedFlags(unwtarCmd, &wtarFlags)
}
