//go:build darwin

package types

import (
	"os"
	"syscall"
	"time"
)

// createTime returns the creation time of a file.
// On macOS, this uses the birth time from the stat structure.
func createTime(info os.FileInfo) time.Time {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime()
	}

	// On macOS, Birthtimespec contains the creation time.
	return time.Unix(stat.Birthtimespec.Sec, stat.Birthtimespec.Nsec)
}
