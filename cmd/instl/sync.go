package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/instl-engine/instl/internal/action"
	"github.com/instl-engine/instl/internal/batch"
	"github.com/instl-engine/instl/internal/download"
	"github.com/instl-engine/instl/internal/filemap"
	"github.com/instl-engine/instl/internal/log"
	"github.com/instl-engine/instl/internal/resolve"
	"github.com/instl-engine/instl/internal/syncplan"
)

var syncFlags sharedFlags

var syncCmd = &cobra.Command{
	Use:   "sync [iid...]",
	Short: "Resolve, plan, and download whatever the requested IIDs need",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, args, false)
	},
}

var syncCopyCmd = &cobra.Command{
	Use:   "synccopy [iid...]",
	Short: "sync, then copy: download then schedule the copy actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, args, true)
	},
}

func init() {
	addSharedFlags(syncCmd, &syncFlags)
	addSharedFlags(syncCopyCmd, &syncFlags)
}

// runSync implements the resolve -> sync-plan -> download -> (optional
// action-schedule) pipeline of spec.md §5. No copy action runs here: with
// thenCopy set (synccopy) it only builds the copy plan and reports how
// many action steps it holds; executing copy actions is the copy
// command's job (runCopyAction in copy.go).
func runSync(cmd *cobra.Command, args []string, thenCopy bool) error {
	cfg, err := loadConfig(&syncFlags)
	if err != nil {
		return err
	}

	store, err := openIndex(syncFlags.in)
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
	if len(syncFlags.limit) > 0 {
		req, pulled := resolve.FilterToLimit(plan, syncFlags.limit)
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

	remoteMapPath := syncFlags.propsFile
	if remoteMapPath == "" {
		return fmt.Errorf("sync requires --props-file pointing at the remote file map")
	}
	remote, _, err := readFileMap(remoteMapPath)
	if err != nil {
		return fmt.Errorf("reading remote map: %w", err)
	}

	have, _, err := readFileMap(cfg.HaveMapPath)
	if err != nil {
		have = filemap.New()
	}

	var planned []syncplan.PlannedItem
	for _, it := range items {
		planned = append(planned, syncplan.PlannedItem{IID: it.IID, Sources: it.Sources})
	}

	revision := 0
	syncResult, err := syncplan.Compute(remote, have, planned, revision, cfg.SyncBaseURL)
	if err != nil {
		exitWithCode(ExitSyncFailed)
		return err
	}

	if len(syncResult.Downloads) > 0 {
		tasks := make([]download.Task, len(syncResult.Downloads))
		for i, d := range syncResult.Downloads {
			tasks[i] = download.Task{Path: d.Path, URL: d.URL, ExpectedChecksum: d.Checksum}
		}
		exec := download.New(cfg.CacheDir, download.Options{
			Workers: cfg.Workers,
			Retries: cfg.Retries,
			Logger:  log.Default(),
		})
		results, err := exec.Run(globalCtx, tasks)
		if err != nil {
			exitWithCode(ExitSyncFailed)
			return err
		}
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "download failed: %s: %v\n", r.Task.Path, r.Err)
				failed++
			}
		}
		if failed > 0 {
			exitWithCode(ExitSyncFailed)
			return fmt.Errorf("%d download(s) failed", failed)
		}
	}

	for _, u := range syncResult.Unwtars {
		archivePath := cfg.CacheDir + "/" + u.Path
		if u.HighCost {
			archivePath = strings.TrimSuffix(archivePath, ".aa")
		}
		if err := batch.Execute(batch.Unwtar{Src: archivePath}, nil); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "unwtar failed: %s: %v\n", u.Path, err)
		}
	}

	if err := have.WriteAtomic(cfg.HaveMapPath, nil); err != nil {
		return fmt.Errorf("writing updated have-map: %w", err)
	}

	if thenCopy {
		steps := action.BuildPlan(items, action.ModeCopy)
		fmt.Fprintf(cmd.OutOrStdout(), "%d action step(s) scheduled\n", len(steps))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "sync complete: %d download(s), %d unwtar(s)\n",
		len(syncResult.Downloads), len(syncResult.Unwtars))
	return nil
}

func readFileMap(path string) (*filemap.Tree, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return filemap.ReadText(f)
}
