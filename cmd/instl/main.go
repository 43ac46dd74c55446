// Command instl is the CLI front-end over the sync/resolve/action engine
// (spec.md §6): one cobra root with subcommands for sync, copy,
// synccopy, uninstall, report-installed, report-versions, find-cycles,
// check-checksum, wtar, unwtar, trans, resolve, parallel-run and help,
// wired the way cmd/tsuku wires its own subcommands onto a shared
// persistent-flag root with signal-cancelled context and leveled
// slog-backed logging.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/instl-engine/instl/internal/log"
)

var (
	quietFlag   bool
	verboseFlag bool
	debugFlag   bool

	failExitCode int
)

var globalCtx context.Context
var globalCancel context.CancelFunc

var rootCmd = &cobra.Command{
	Use:   "instl",
	Short: "Cross-platform install/sync/update engine",
	Long: `instl resolves declarative install items against an indexed
repository, plans what to sync from a remote mirror, downloads what's
missing, and schedules the copy/remove actions that bring a local
install tree in line with what was requested.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "show errors only")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "show verbose (info-level) output")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "show debug output with source locations")
	rootCmd.PersistentFlags().IntVar(&failExitCode, "fail-exit-code", ExitGeneral, "exit code to use on failure")

	rootCmd.PersistentPreRun = initLogger

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(syncCopyCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(reportInstalledCmd)
	rootCmd.AddCommand(reportVersionsCmd)
	rootCmd.AddCommand(findCyclesCmd)
	rootCmd.AddCommand(checkChecksumCmd)
	rootCmd.AddCommand(wtarCmd)
	rootCmd.AddCommand(unwtarCmd)
	rootCmd.AddCommand(transCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(parallelRunCmd)
}

func main() {
	globalCtx, globalCancel = context.WithCancel(context.Background())
	defer globalCancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nreceived %s, canceling operation...\n", sig)
		globalCancel()
		<-sigChan
		fmt.Fprintln(os.Stderr, "forced exit")
		exitWithCode(ExitCancelled)
	}()

	if err := rootCmd.Execute(); err != nil {
		if globalCtx.Err() == context.Canceled {
			exitWithCode(ExitCancelled)
		}
		fmt.Fprintln(os.Stderr, err)
		exitWithCode(failExitCode)
	}
}

func initLogger(cmd *cobra.Command, args []string) {
	level := determineLogLevel()
	log.SetDefault(log.New(log.NewCLIHandler(level)))
}

func determineLogLevel() slog.Level {
	switch {
	case debugFlag:
		return slog.LevelDebug
	case verboseFlag:
		return slog.LevelInfo
	case quietFlag:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
