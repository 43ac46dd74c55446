package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/instl-engine/instl/internal/action"
	"github.com/instl-engine/instl/internal/config"
	"github.com/instl-engine/instl/internal/iid"
	"github.com/instl-engine/instl/internal/indexstore"
	"github.com/instl-engine/instl/internal/valuestore"
)

// sharedFlags mirrors the flag set spec.md §6 lists as common across
// subcommands. Not every command uses every flag; cobra only registers
// the ones a given command calls addSharedFlags with.
type sharedFlags struct {
	in                string
	out               string
	configFile        string
	propsFile         string
	sha1Checksum      bool
	rsaSignature      string
	justWithNumber    int
	limit             []string
	credentials       string
	baseURL           string
	stateFile         string
	run               bool
	parallel          int
	noNumbersProgress bool
	define            []string
}

func addSharedFlags(cmd *cobra.Command, f *sharedFlags) {
	cmd.Flags().StringVar(&f.in, "in", "", "input file (index or require file)")
	cmd.Flags().StringVar(&f.out, "out", "", "output file")
	cmd.Flags().StringVar(&f.configFile, "config-file", "", "config file overriding defaults")
	cmd.Flags().StringVar(&f.propsFile, "props-file", "", "properties file")
	cmd.Flags().BoolVar(&f.sha1Checksum, "sh1-checksum", false, "verify sha1 checksums")
	cmd.Flags().StringVar(&f.rsaSignature, "rsa-signature", "", "public key file to verify an RSA signature against")
	cmd.Flags().IntVar(&f.justWithNumber, "just-with-number", 0, "limit concurrent items processed to N")
	cmd.Flags().StringSliceVar(&f.limit, "limit", nil, "restrict the resolved set to these IIDs and their dependencies")
	cmd.Flags().StringVar(&f.credentials, "credentials", "", "user:pass for the remote mirror")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "override $(SYNC_BASE_URL)")
	cmd.Flags().StringVar(&f.stateFile, "state-file", "", "path to the cursor/state file")
	cmd.Flags().BoolVar(&f.run, "run", false, "execute the produced batch script immediately")
	cmd.Flags().IntVar(&f.parallel, "parallel", 0, "override the download pool size")
	cmd.Flags().BoolVar(&f.noNumbersProgress, "no-numbers-progress", false, "suppress numeric progress output")
	cmd.Flags().StringSliceVar(&f.define, "define", nil, "NAME=VALUE,... value-store overrides")
}

// loadConfig resolves the ambient Config, applying --base-url and
// --state-file overrides when given.
func loadConfig(f *sharedFlags) (*config.Config, error) {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("resolving config: %w", err)
	}
	if f.baseURL != "" {
		cfg.SyncBaseURL = f.baseURL
	}
	if f.stateFile != "" {
		cfg.StateFile = f.stateFile
	}
	if f.parallel > 0 {
		cfg.Workers = f.parallel
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// hostOSTags returns the per-OS activation chain for the running
// platform, most-specific first, matching the OSTag vocabulary of
// internal/iid (spec.md §3's per-OS bag selectors).
func hostOSTags() []iid.OSTag {
	switch runtime.GOOS {
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return []iid.OSTag{iid.Mac64, iid.Mac}
		}
		return []iid.OSTag{iid.Mac32, iid.Mac}
	case "windows":
		if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
			return []iid.OSTag{iid.Win64, iid.Win}
		}
		return []iid.OSTag{iid.Win32, iid.Win}
	default:
		return nil
	}
}

// openIndex opens the index store at path (or an in-memory store if
// path is empty) and activates the host's OS tags.
func openIndex(path string) (*indexstore.Store, error) {
	store, err := indexstore.Open(path)
	if err != nil {
		return nil, err
	}
	if err := store.ActivateOSes(hostOSTags()); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// loadItemInputs reconstructs action.ItemInput for each iid in iids from
// the index store's resolved-details accessors, in the order given.
func loadItemInputs(store *indexstore.Store, iids []string) ([]action.ItemInput, error) {
	inputs := make([]action.ItemInput, 0, len(iids))
	for _, key := range iids {
		folders, err := store.GetResolvedDetailsValueForIID(key, "folders", true)
		if err != nil {
			return nil, err
		}
		sourcePairs, err := store.GetResolvedDetailsValueForIID(key, "sources", false)
		if err != nil {
			return nil, err
		}
		sources := make([]iid.Source, 0, len(sourcePairs))
		for _, p := range sourcePairs {
			path, kind := splitSourcePair(p)
			sources = append(sources, iid.Source{Path: path, Kind: iid.SourceKind(kind)})
		}

		actions := make(map[iid.ActionPhase][]string)
		for _, phase := range []iid.ActionPhase{
			iid.PreCopy, iid.PreCopyToFolder, iid.PreCopyItem,
			iid.PostCopyItem, iid.PostCopyToFolder, iid.PostCopy,
			iid.PreRemove, iid.PreRemoveFromFolder, iid.PreRemoveItem,
			iid.RemoveItem, iid.PostRemoveItem, iid.PostRemoveFromFolder, iid.PostRemove,
		} {
			cmds, err := store.GetResolvedDetailsValueForIID(key, "actions:"+string(phase), false)
			if err != nil {
				return nil, err
			}
			if len(cmds) > 0 {
				actions[phase] = cmds
			}
		}

		inputs = append(inputs, action.ItemInput{
			IID:     key,
			Folders: folders,
			Sources: sources,
			Actions: actions,
		})
	}
	return inputs, nil
}

// applyDefines sets each "NAME=VALUE" entry of defines as a value-store
// variable, for commands (trans, sync) that resolve $(NAME) references
// against --define overrides.
func applyDefines(store *valuestore.Store, defines []string) error {
	for _, d := range defines {
		name, value, ok := strings.Cut(d, "=")
		if !ok {
			return fmt.Errorf("--define entry %q is not NAME=VALUE", d)
		}
		if err := store.SetVar(name, value); err != nil {
			return err
		}
	}
	return nil
}

func splitSourcePair(p string) (path, kind string) {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == ':' {
			return p[:i], p[i+1:]
		}
	}
	return p, ""
}
