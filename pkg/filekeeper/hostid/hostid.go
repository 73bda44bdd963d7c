// Package hostid collects stable host identity attributes. The integrity
// service derives its signing key from these so that a rollback manifest
// created on one machine fails verification on any other.
package hostid

import (
	"fmt"
	"os"
	"runtime"
)

// Identity is a snapshot of the attributes that identify this host.
// All fields are stable across process restarts on the same machine.
type Identity struct {
	Hostname    string
	Platform    string
	Arch        string
	CPUModel    string
	TotalMemory uint64
}

// Collect gathers the host identity. Attributes that cannot be determined
// are left at their zero value rather than failing; the combination remains
// stable for a given host either way.
func Collect() Identity {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return Identity{
		Hostname:    hostname,
		Platform:    runtime.GOOS,
		Arch:        runtime.GOARCH,
		CPUModel:    cpuModel(),
		TotalMemory: totalMemory(),
	}
}

// Material returns the identity serialized into key-derivation material.
// The format is fixed; changing it invalidates every previously signed
// manifest on the host.
func (id Identity) Material() []byte {
	return []byte(fmt.Sprintf("%s|%s|%s|%s|%d",
		id.Hostname, id.Platform, id.Arch, id.CPUModel, id.TotalMemory))
}
