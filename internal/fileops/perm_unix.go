//go:build !windows

package fileops

import "os"

func restrictPerms(path string) error {
	return os.Chmod(path, fileMode)
}
