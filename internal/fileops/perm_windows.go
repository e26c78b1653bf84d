//go:build windows

package fileops

// restrictPerms is a no-op: there are no POSIX permission bits to set.
func restrictPerms(string) error { return nil }
