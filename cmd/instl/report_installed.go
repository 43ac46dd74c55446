package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/instl-engine/instl/internal/require"
)

var reportInstalledFlags sharedFlags

var reportInstalledCmd = &cobra.Command{
	Use:   "report-installed",
	Short: "List the iid/version/guid of everything recorded in the state file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportInstalledFlags.stateFile == "" {
			return fmt.Errorf("report-installed requires --state-file")
		}
		doc, err := require.Read(reportInstalledFlags.stateFile)
		if err != nil {
			return err
		}

		iids := make([]string, 0, len(doc.Requirements))
		for k := range doc.Requirements {
			iids = append(iids, k)
		}
		sort.Strings(iids)

		out := cmd.OutOrStdout()
		for _, key := range iids {
			entry := doc.Requirements[key]
			fmt.Fprintf(out, "%s\t%s\t%s\n", key, entry.Version, entry.GUID)
		}
		return nil
	},
}

func init() {
	addSharedFlags(reportInstalledCmd, &reportInstalledFlags)
}
