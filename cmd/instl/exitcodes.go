package main

import "os"

// Exit codes, distinct enough for calling scripts to branch on failure
// mode (spec.md §6: "--fail-exit-code N overrides the default non-zero
// code").
const (
	ExitSuccess       = 0
	ExitGeneral       = 1
	ExitUsage         = 2
	ExitResolveFailed = 3
	ExitSyncFailed    = 4
	ExitChecksumFail  = 5
	ExitCancelled     = 6
)

func exitWithCode(code int) {
	os.Exit(code)
}
