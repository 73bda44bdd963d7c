//go:build linux

package types

import (
	"os"
	"time"
)

// createTime returns the creation time of a file.
// Linux doesn't reliably expose birth time through syscall.Stat_t, so we
// fall back to modification time. statx() can report birth time on 4.11+
// with ext4/xfs/btrfs, but requires more complex handling.
func createTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
