package main

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"
)

var reportVersionsFlags sharedFlags

var reportVersionsCmd = &cobra.Command{
	Use:   "report-versions [iid...]",
	Short: "List the version recorded in the index for each iid",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openIndex(reportVersionsFlags.in)
		if err != nil {
			return err
		}
		defer store.Close()

		iids := args
		if len(iids) == 0 {
			iids, err = store.GetAllIIDs()
			if err != nil {
				return err
			}
		}

		type row struct {
			iid, version string
			parsed       *semver.Version
		}
		rows := make([]row, 0, len(iids))
		for _, key := range iids {
			version, err := store.GetItemVersion(key)
			if err != nil {
				return err
			}
			r := row{iid: key, version: version}
			if v, err := semver.NewVersion(version); err == nil {
				r.parsed = v
			}
			rows = append(rows, r)
		}

		sort.Slice(rows, func(i, j int) bool {
			if rows[i].parsed != nil && rows[j].parsed != nil {
				if c := rows[i].parsed.Compare(rows[j].parsed); c != 0 {
					return c < 0
				}
			}
			return rows[i].iid < rows[j].iid
		})

		out := cmd.OutOrStdout()
		for _, r := range rows {
			fmt.Fprintf(out, "%s\t%s\n", r.iid, r.version)
		}
		return nil
	},
}

func init() {
	addSharedFlags(reportVersionsCmd, &reportVersionsFlags)
}
