//go:build darwin

package hostid

import "golang.org/x/sys/unix"

// cpuModel returns the CPU brand string via sysctl.
func cpuModel() string {
	model, err := unix.Sysctl("machdep.cpu.brand_string")
	if err != nil {
		return ""
	}
	return model
}

// totalMemory returns total physical RAM in bytes via sysctl.
func totalMemory() uint64 {
	mem, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return 0
	}
	return mem
}
