//go:build !windows

package batch

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"
)

// chownPath resolves User/Group to numeric ids and applies them, walking
// the tree when Recursive is set.
func chownPath(c Chown) error {
	uid, gid, err := resolveUserGroup(c.User, c.Group)
	if err != nil {
		return err
	}

	var apply func(path string) error
	apply = func(path string) error {
		info, err := os.Lstat(path)
		if err != nil {
			return err
		}
		if err := os.Lchown(path, uid, gid); err != nil {
			return err
		}
		if c.Recursive && info.IsDir() {
			entries, err := os.ReadDir(path)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if err := apply(filepath.Join(path, e.Name())); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return apply(c.Path)
}

func resolveUserGroup(userName, groupName string) (uid, gid int, err error) {
	uid = -1
	gid = -1
	if userName != "" {
		u, err := user.Lookup(userName)
		if err != nil {
			return 0, 0, err
		}
		uid, err = strconv.Atoi(u.Uid)
		if err != nil {
			return 0, 0, err
		}
	}
	if groupName != "" {
		g, err := user.LookupGroup(groupName)
		if err != nil {
			return 0, 0, err
		}
		gid, err = strconv.Atoi(g.Gid)
		if err != nil {
			return 0, 0, err
		}
	}
	return uid, gid, nil
}
