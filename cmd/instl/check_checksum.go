package main

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/instl-engine/instl/internal/filemap"
)

var checkChecksumFlags sharedFlags

var checkChecksumCmd = &cobra.Command{
	Use:   "check-checksum <have-map-file> <root-dir>",
	Short: "Verify every checksummed file in a have-map against disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		tree, _, err := filemap.ReadText(f)
		if err != nil {
			return err
		}

		root := args[1]
		mismatches := 0
		err = tree.Walk(filemap.WalkFile, func(path string, n *filemap.Node) error {
			if n.Checksum == "" {
				return nil
			}
			got, err := sha1File(filepath.Join(root, path))
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				mismatches++
				return nil
			}
			if got != n.Checksum {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: checksum mismatch: want %s got %s\n", path, n.Checksum, got)
				mismatches++
			}
			return nil
		})
		if err != nil {
			return err
		}
		if mismatches > 0 {
			exitWithCode(ExitChecksumFail)
			return fmt.Errorf("%d checksum mismatch(es)", mismatches)
		}
		fmt.Println("all checksums verified")
		return nil
	},
}

func sha1File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func init() {
	addSharedFlags(checkChecksumCmd, &checkChecksumFlags)
}
