//go:build !linux && !darwin

package hostid

// cpuModel is unavailable on this platform.
func cpuModel() string { return "" }

// totalMemory is unavailable on this platform.
func totalMemory() uint64 { return 0 }
