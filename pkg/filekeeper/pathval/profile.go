package pathval

import (
	"runtime"
	"strings"
)

// PlatformProfile captures the platform-conditional pieces of path
// validation as an explicit capability instead of scattering runtime OS
// checks across the layers.
type PlatformProfile struct {
	// CaseInsensitive enables case-insensitive containment comparison.
	CaseInsensitive bool

	// ReservedNames enables the reserved device name layer.
	ReservedNames bool

	// IllegalChars lists characters rejected by the syntax layer beyond
	// control characters, which are always rejected.
	IllegalChars string
}

// windowsIllegalChars are characters invalid in Windows file names.
// Colon is omitted because it appears in drive prefixes; the normalization
// layer collapses any other use.
const windowsIllegalChars = `<>"|?*`

// WindowsProfile returns the profile for Windows filesystems.
func WindowsProfile() PlatformProfile {
	return PlatformProfile{
		CaseInsensitive: true,
		ReservedNames:   true,
		IllegalChars:    windowsIllegalChars,
	}
}

// UnixProfile returns the profile for Unix-like filesystems.
func UnixProfile() PlatformProfile {
	return PlatformProfile{}
}

// DefaultProfile returns the profile matching the running OS.
func DefaultProfile() PlatformProfile {
	if runtime.GOOS == "windows" {
		return WindowsProfile()
	}
	return UnixProfile()
}

// reservedNames are Windows device names that cannot be used as a path
// segment regardless of extension.
var reservedNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// isReservedName reports whether stem matches a reserved device name,
// case-insensitively. Substrings such as "connect" do not match.
func isReservedName(stem string) bool {
	_, ok := reservedNames[strings.ToLower(stem)]
	return ok
}
