package action

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/instl-engine/instl/internal/batch"
	"github.com/instl-engine/instl/internal/iid"
)

// ToBatchCommands lowers a scheduled Step sequence to the concrete
// batch.Command values Execute/EmitUnix/EmitWindows know how to run,
// resolving each source against cacheRoot (the synced, already-unwtarred
// file tree sync leaves behind). StepCommand steps become a single shell
// line; StepCopy and StepRemoveDefault steps become the copy/remove
// command matching the source's kind (spec.md §3's four install_sources
// selectors).
func ToBatchCommands(steps []Step, cacheRoot string) ([]batch.Command, error) {
	cmds := make([]batch.Command, 0, len(steps))
	for _, step := range steps {
		switch step.Kind {
		case StepCommand:
			cmds = append(cmds, batch.SingleShellCommand{Cmd: step.Command})
		case StepCopy:
			cmd, err := copyCommandForSource(step, cacheRoot)
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, cmd...)
		case StepRemoveDefault:
			cmd, err := removeCommandForSource(step, cacheRoot)
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, cmd...)
		default:
			return nil, fmt.Errorf("unknown step kind %d for %s", step.Kind, step.IID)
		}
	}
	return cmds, nil
}

func sourcePath(cacheRoot string, src iid.Source) string {
	path, _, _ := iid.NormalizeSourcePath(src.Path)
	return filepath.Join(cacheRoot, path)
}

func copyCommandForSource(step Step, cacheRoot string) ([]batch.Command, error) {
	src := sourcePath(cacheRoot, step.Source)
	switch step.Source.Kind {
	case iid.KindFile:
		return []batch.Command{batch.CopyFileToDir{Src: src, Dst: step.Folder}}, nil
	case iid.KindDir:
		return []batch.Command{batch.CopyDirToDir{Src: src, Dst: step.Folder}}, nil
	case iid.KindDirCont:
		return []batch.Command{batch.CopyDirContentsToDir{Src: src, Dst: step.Folder}}, nil
	case iid.KindFiles:
		return topLevelFileCopies(src, step.Folder)
	default:
		return nil, fmt.Errorf("unknown source kind %q for %s", step.Source.Kind, step.IID)
	}
}

func removeCommandForSource(step Step, cacheRoot string) ([]batch.Command, error) {
	src := sourcePath(cacheRoot, step.Source)
	switch step.Source.Kind {
	case iid.KindFile:
		return []batch.Command{batch.RmFileOrDir{Path: filepath.Join(step.Folder, filepath.Base(src))}}, nil
	case iid.KindDir:
		return []batch.Command{batch.RmFileOrDir{Path: filepath.Join(step.Folder, filepath.Base(src))}}, nil
	case iid.KindDirCont, iid.KindFiles:
		entries, err := os.ReadDir(src)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, err
		}
		cmds := make([]batch.Command, 0, len(entries))
		for _, e := range entries {
			if step.Source.Kind == iid.KindFiles && e.IsDir() {
				continue
			}
			cmds = append(cmds, batch.RmFileOrDir{Path: filepath.Join(step.Folder, e.Name())})
		}
		return cmds, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q for %s", step.Source.Kind, step.IID)
	}
}

// topLevelFileCopies implements !files: only the regular files directly
// inside src, not its subdirectories (spec.md §3's !files selector).
func topLevelFileCopies(src, dstFolder string) ([]batch.Command, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, err
	}
	cmds := make([]batch.Command, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		cmds = append(cmds, batch.CopyFileToFile{
			Src: filepath.Join(src, e.Name()),
			Dst: filepath.Join(dstFolder, e.Name()),
		})
	}
	return cmds, nil
}
