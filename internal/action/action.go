// Package action builds the ordered, deduplicated command sequence the
// install/uninstall phases execute (spec.md §4.7): a global pre hook, then
// per-folder pre hooks, then per-(iid,source) item hooks bracketing the
// copy (or remove) operation itself, then per-folder post hooks, then a
// global post hook. Dedup is by string equality of the resolved command,
// scoped independently at each of those four levels.
package action

import (
	"github.com/instl-engine/instl/internal/iid"
)

// Mode selects which phase family to schedule.
type Mode int

const (
	ModeCopy Mode = iota
	ModeRemove
)

type phaseSet struct {
	globalPre, globalPost iid.ActionPhase
	folderPre, folderPost iid.ActionPhase
	itemPre, itemPost     iid.ActionPhase
}

func phasesFor(mode Mode) phaseSet {
	if mode == ModeRemove {
		return phaseSet{
			globalPre: iid.PreRemove, globalPost: iid.PostRemove,
			folderPre: iid.PreRemoveFromFolder, folderPost: iid.PostRemoveFromFolder,
			itemPre: iid.PreRemoveItem, itemPost: iid.PostRemoveItem,
		}
	}
	return phaseSet{
		globalPre: iid.PreCopy, globalPost: iid.PostCopy,
		folderPre: iid.PreCopyToFolder, folderPost: iid.PostCopyToFolder,
		itemPre: iid.PreCopyItem, itemPost: iid.PostCopyItem,
	}
}

// ItemInput is one resolved install item's folders, sources, and
// already-variable-resolved action commands, scoped to the active OS.
type ItemInput struct {
	IID     string
	Folders []string
	Sources []iid.Source
	Actions map[iid.ActionPhase][]string

	// RemoveItemOverride customizes remove_item for this item: nil means
	// "delete the files copy would have produced" (the default); a
	// non-nil pointer to an empty slice disables deletion entirely; a
	// non-nil pointer to a non-empty slice runs those commands instead
	// (spec.md §4.7).
	RemoveItemOverride *[]string
}

// StepKind distinguishes a hook command from the copy/remove operation itself.
type StepKind int

const (
	StepCommand StepKind = iota
	StepCopy
	StepRemoveDefault // "delete what copy would have produced" — no explicit command
)

// Step is one scheduled unit of work.
type Step struct {
	Kind    StepKind
	Phase   iid.ActionPhase // set only for StepCommand
	IID     string          // set for item-scoped and copy/remove steps
	Folder  string          // set for folder- and item-scoped steps
	Source  iid.Source      // set for item-scoped and copy/remove steps
	Command string          // set only for StepCommand
}

type itemSourceKey struct {
	iid string
	src iid.Source
}

// BuildPlan computes the ordered step sequence for items under mode.
func BuildPlan(items []ItemInput, mode Mode) []Step {
	phases := phasesFor(mode)
	var steps []Step

	globalPreSeen := map[string]bool{}
	for _, it := range items {
		for _, cmd := range it.Actions[phases.globalPre] {
			if !globalPreSeen[cmd] {
				globalPreSeen[cmd] = true
				steps = append(steps, Step{Kind: StepCommand, Phase: phases.globalPre, Command: cmd})
			}
		}
	}

	folders := unionFolders(items)
	folderPreSeen := map[string]map[string]bool{}
	folderPostSeen := map[string]map[string]bool{}
	itemPreSeen := map[itemSourceKey]map[string]bool{}
	itemPostSeen := map[itemSourceKey]map[string]bool{}
	removeItemSeen := map[itemSourceKey]map[string]bool{}

	for _, folder := range folders {
		for _, it := range items {
			if !containsFolder(it.Folders, folder) {
				continue
			}
			for _, cmd := range it.Actions[phases.folderPre] {
				if markSeen(folderPreSeen, folder, cmd) {
					steps = append(steps, Step{Kind: StepCommand, Phase: phases.folderPre, Folder: folder, Command: cmd})
				}
			}
		}

		for _, it := range items {
			if !containsFolder(it.Folders, folder) {
				continue
			}
			for _, src := range it.Sources {
				key := itemSourceKey{it.IID, src}

				for _, cmd := range it.Actions[phases.itemPre] {
					if markSeen(itemPreSeen, key, cmd) {
						steps = append(steps, Step{Kind: StepCommand, Phase: phases.itemPre, IID: it.IID, Folder: folder, Source: src, Command: cmd})
					}
				}

				if mode == ModeCopy {
					steps = append(steps, Step{Kind: StepCopy, IID: it.IID, Folder: folder, Source: src})
				} else {
					steps = appendRemoveStep(steps, it, folder, src, key, removeItemSeen)
				}

				for _, cmd := range it.Actions[phases.itemPost] {
					if markSeen(itemPostSeen, key, cmd) {
						steps = append(steps, Step{Kind: StepCommand, Phase: phases.itemPost, IID: it.IID, Folder: folder, Source: src, Command: cmd})
					}
				}
			}
		}

		for _, it := range items {
			if !containsFolder(it.Folders, folder) {
				continue
			}
			for _, cmd := range it.Actions[phases.folderPost] {
				if markSeen(folderPostSeen, folder, cmd) {
					steps = append(steps, Step{Kind: StepCommand, Phase: phases.folderPost, Folder: folder, Command: cmd})
				}
			}
		}
	}

	globalPostSeen := map[string]bool{}
	for _, it := range items {
		for _, cmd := range it.Actions[phases.globalPost] {
			if !globalPostSeen[cmd] {
				globalPostSeen[cmd] = true
				steps = append(steps, Step{Kind: StepCommand, Phase: phases.globalPost, Command: cmd})
			}
		}
	}

	return steps
}

func appendRemoveStep(
	steps []Step,
	it ItemInput,
	folder string,
	src iid.Source,
	key itemSourceKey,
	seen map[itemSourceKey]map[string]bool,
) []Step {
	if it.RemoveItemOverride == nil {
		return append(steps, Step{Kind: StepRemoveDefault, IID: it.IID, Folder: folder, Source: src})
	}
	for _, cmd := range *it.RemoveItemOverride {
		if markSeen(seen, key, cmd) {
			steps = append(steps, Step{Kind: StepCommand, Phase: iid.RemoveItem, IID: it.IID, Folder: folder, Source: src, Command: cmd})
		}
	}
	return steps
}

// markSeen records cmd under key in seen (creating the inner set on first
// use) and reports whether this is the first time cmd has been seen for key.
func markSeen[K comparable](seen map[K]map[string]bool, key K, cmd string) bool {
	set := seen[key]
	if set == nil {
		set = make(map[string]bool)
		seen[key] = set
	}
	if set[cmd] {
		return false
	}
	set[cmd] = true
	return true
}

// unionFolders collects every distinct folder named by items, in first-
// insertion order (spec.md §4.7 "union(install_folders of IIDs)").
func unionFolders(items []ItemInput) []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range items {
		for _, f := range it.Folders {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

func containsFolder(folders []string, target string) bool {
	for _, f := range folders {
		if f == target {
			return true
		}
	}
	return false
}
