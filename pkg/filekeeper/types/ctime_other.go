//go:build !darwin && !linux

package types

import (
	"os"
	"time"
)

// createTime returns the creation time of a file.
// On unsupported platforms, falls back to modification time.
func createTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
