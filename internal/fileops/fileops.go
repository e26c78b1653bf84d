// Package fileops materializes secrets as plaintext files and erases them again.
//
// Erasure is best effort: a single zero pass followed by unlink. On copy-on-write
// filesystems or flash storage the old blocks may survive.
package fileops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/localvault/internal/model"
)

const (
	fileMode = 0o600
	dirMode  = 0o700

	wipeChunk = 32 * 1024
)

var log = zap.NewNop()

// SetLogger sets the logger used to report swallowed cleanup failures.
func SetLogger(l *zap.Logger) {
	if l != nil {
		log = l.Named("fileops")
	}
}

// ExpandPath replaces a leading "~" or "~/" with the user's home directory.
// Other paths are returned unchanged, as is the input if the home directory is unknown.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// ActivateFile writes content to path with owner-only permissions, creating parent
// directories and replacing any existing file.
func ActivateFile(path string, content []byte) error {
	p := ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(p), dirMode); err != nil {
		return fmt.Errorf("create directory for %s: %w", p, err)
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", p, err)
	}

	// O_CREATE mode only applies to new files; tighten a pre-existing one too.
	if err := restrictPerms(p); err != nil {
		return fmt.Errorf("set permissions on %s: %w", p, err)
	}
	return nil
}

// SecureDelete zero-fills a regular file and removes it. A symlink is unlinked without
// touching its target; anything else is left alone. It never fails: errors are
// logged at debug level and swallowed. The result reports whether nothing is left at path.
func SecureDelete(path string) bool {
	p := ExpandPath(path)

	fi, err := os.Lstat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	if err != nil {
		log.Debug("stat failed", zap.String("path", p), zap.Error(err))
		return false
	}

	switch {
	case fi.Mode().IsRegular():
		if err := wipe(p, fi.Size()); err != nil {
			log.Debug("wipe failed", zap.String("path", p), zap.Error(err))
		}
	case fi.Mode()&fs.ModeSymlink != 0:
	default:
		// Directories, sockets and devices are never removed.
		log.Debug("not a file, left in place", zap.String("path", p), zap.Stringer("mode", fi.Mode()))
		return false
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Debug("remove failed", zap.String("path", p), zap.Error(err))
	}

	_, err = os.Lstat(p)
	return errors.Is(err, fs.ErrNotExist)
}

// DeactivateAll securely deletes every listed file and returns how many are gone.
func DeactivateAll(pairs []model.ActivePath) int {
	removed := 0
	for _, ap := range pairs {
		if SecureDelete(ap.FilePath) {
			removed++
		}
	}
	return removed
}

func wipe(path string, size int64) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	zeros := make([]byte, wipeChunk)
	for left := size; left > 0; {
		n := int64(len(zeros))
		if left < n {
			n = left
		}
		if _, err := f.Write(zeros[:n]); err != nil {
			_ = f.Close()
			return err
		}
		left -= n
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
