// Package pathval validates and canonicalizes caller-supplied filesystem
// paths before any other component is allowed to touch them.
//
// Validation proceeds through ordered, independently testable layers: syntax,
// normalization, reserved names, symlink resolution, and containment. Each
// layer fails fast with a ValidationError carrying the layer number and a
// sanitized reason. The product of a successful validation is a
// ValidatedPath, an opaque canonical absolute path; downstream components
// accept only ValidatedPath, never raw strings.
package pathval

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Mode selects the containment policy applied by the final validation layer.
type Mode int

const (
	// ModeStrict authorizes only the process's working directory as root.
	ModeStrict Mode = iota

	// ModeSandboxed authorizes paths contained in a configured allow-list.
	ModeSandboxed

	// ModeUnrestricted skips the containment layer entirely.
	ModeUnrestricted
)

// String returns the mode's configuration name.
func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeSandboxed:
		return "sandboxed"
	case ModeUnrestricted:
		return "unrestricted"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode name as used in configuration and flags.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "strict", "":
		return ModeStrict, nil
	case "sandboxed":
		return ModeSandboxed, nil
	case "unrestricted":
		return ModeUnrestricted, nil
	default:
		return ModeStrict, fmt.Errorf("unknown security mode %q", s)
	}
}

// Validation layer numbers, reported in ValidationError.
const (
	LayerSyntax = iota + 1
	LayerNormalize
	LayerReserved
	LayerSymlink
	LayerContainment
)

// ValidationError reports a path rejected by a specific validation layer.
// The message never echoes the raw caller-supplied path.
type ValidationError struct {
	// Layer is the validation layer that rejected the path.
	Layer int

	// Reason is a sanitized description of the failure.
	Reason string

	// Hint suggests a remediation to the caller.
	Hint string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("path validation failed (layer %d): %s (%s)", e.Layer, e.Reason, e.Hint)
	}
	return fmt.Sprintf("path validation failed (layer %d): %s", e.Layer, e.Reason)
}

func failLayer(layer int, reason, hint string) error {
	return &ValidationError{Layer: layer, Reason: reason, Hint: hint}
}

// ValidatedPath is a canonical, absolute path that has passed every
// validation layer for the validator's mode. The zero value is invalid;
// instances are produced only by Validator.Validate.
type ValidatedPath struct {
	path string
}

// String returns the canonical path.
func (p ValidatedPath) String() string { return p.path }

// IsZero reports whether the path is the invalid zero value.
func (p ValidatedPath) IsZero() bool { return p.path == "" }

// Dir returns the canonical path's parent directory as a plain string.
func (p ValidatedPath) Dir() string { return filepath.Dir(p.path) }

// Join appends elements to the canonical path, returning a plain string.
// The result has not itself been validated.
func (p ValidatedPath) Join(elem ...string) string {
	return filepath.Join(append([]string{p.path}, elem...)...)
}

// DefaultMaxLength is the maximum accepted path length in characters.
const DefaultMaxLength = 4096

// Option configures a Validator.
type Option func(*Validator)

// WithAllowedRoots sets the sandbox allow-list used under ModeSandboxed.
// Roots are canonicalized at construction.
func WithAllowedRoots(roots ...string) Option {
	return func(v *Validator) { v.allowed = append(v.allowed, roots...) }
}

// WithProfile overrides the platform profile. Primarily for tests that
// exercise Windows semantics on other hosts.
func WithProfile(p PlatformProfile) Option {
	return func(v *Validator) { v.profile = p }
}

// WithMaxLength overrides the maximum accepted path length.
func WithMaxLength(n int) Option {
	return func(v *Validator) { v.maxLen = n }
}

// Validator validates raw paths against a security mode. It is stateless
// after construction and safe for concurrent use.
type Validator struct {
	mode    Mode
	allowed []string
	profile PlatformProfile
	maxLen  int
}

// New creates a Validator for the given mode.
func New(mode Mode, opts ...Option) (*Validator, error) {
	v := &Validator{
		mode:    mode,
		profile: DefaultProfile(),
		maxLen:  DefaultMaxLength,
	}
	for _, opt := range opts {
		opt(v)
	}

	switch mode {
	case ModeStrict:
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		real, err := filepath.EvalSymlinks(cwd)
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		v.allowed = []string{real}

	case ModeSandboxed:
		if len(v.allowed) == 0 {
			return nil, fmt.Errorf("sandboxed mode requires at least one allowed root")
		}
		roots := make([]string, 0, len(v.allowed))
		for _, r := range v.allowed {
			abs, err := filepath.Abs(r)
			if err != nil {
				return nil, fmt.Errorf("resolving allowed root: %w", err)
			}
			if real, err := filepath.EvalSymlinks(abs); err == nil {
				abs = real
			}
			roots = append(roots, filepath.Clean(abs))
		}
		v.allowed = roots

	case ModeUnrestricted:
		v.allowed = nil

	default:
		return nil, fmt.Errorf("unknown security mode %d", mode)
	}

	return v, nil
}

// Mode returns the validator's security mode.
func (v *Validator) Mode() Mode { return v.mode }

// Validate runs the raw path through every validation layer and returns the
// canonical ValidatedPath. Failures are *ValidationError values identifying
// the rejecting layer. Validate performs read-only filesystem probes for
// symlink resolution but never mutates anything.
func (v *Validator) Validate(raw string) (ValidatedPath, error) {
	if err := v.checkSyntax(raw); err != nil {
		return ValidatedPath{}, err
	}

	normalized, err := v.normalize(raw)
	if err != nil {
		return ValidatedPath{}, err
	}

	if err := v.checkReservedNames(normalized); err != nil {
		return ValidatedPath{}, err
	}

	resolved, err := v.resolveSymlinks(normalized)
	if err != nil {
		return ValidatedPath{}, err
	}

	if err := v.checkContainment(resolved); err != nil {
		return ValidatedPath{}, err
	}

	return ValidatedPath{path: resolved}, nil
}

// checkSyntax is layer 1: character and length checks.
func (v *Validator) checkSyntax(raw string) error {
	if raw == "" {
		return failLayer(LayerSyntax, "empty path", "supply a non-empty path")
	}
	if len(raw) > v.maxLen {
		return failLayer(LayerSyntax,
			fmt.Sprintf("path exceeds maximum length of %d characters", v.maxLen),
			"use a shorter path")
	}

	for _, r := range raw {
		if r == 0 {
			return failLayer(LayerSyntax, "path contains a null byte", "remove control characters")
		}
		if r < 0x20 {
			return failLayer(LayerSyntax, "path contains control characters", "remove control characters")
		}
		if strings.ContainsRune(v.profile.IllegalChars, r) {
			return failLayer(LayerSyntax,
				fmt.Sprintf("path contains character %q which is not allowed on this filesystem", r),
				"remove the offending character")
		}
	}

	return nil
}

// normalize is layer 2: decoding, Unicode normalization, expansion, and
// collapsing of relative segments into an absolute clean path.
func (v *Validator) normalize(raw string) (string, error) {
	p := raw

	// Percent-decoding defeats encoded traversal like "%2e%2e%2f".
	if strings.Contains(p, "%") {
		if decoded, err := url.PathUnescape(p); err == nil {
			p = decoded
		}
	}

	p = norm.NFC.String(p)

	// Re-check syntax on the decoded form; decoding may have revealed
	// characters the raw form hid.
	if p != raw {
		if err := v.checkSyntax(p); err != nil {
			return "", err
		}
	}

	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", failLayer(LayerNormalize, "cannot resolve home directory", "set HOME")
		}
		p = filepath.Join(home, p[1:])
	}

	p = os.ExpandEnv(p)

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", failLayer(LayerNormalize, "cannot resolve path to absolute form", "check the path syntax")
	}

	return filepath.Clean(abs), nil
}

// checkReservedNames is layer 3: platform-reserved device names.
// An exact segment match (ignoring any extension, per Windows semantics)
// is rejected; a segment merely containing a reserved name is legal.
func (v *Validator) checkReservedNames(p string) error {
	if !v.profile.ReservedNames {
		return nil
	}

	for _, segment := range strings.Split(p, string(filepath.Separator)) {
		if segment == "" {
			continue
		}
		stem := segment
		if i := strings.IndexByte(stem, '.'); i >= 0 {
			stem = stem[:i]
		}
		if isReservedName(stem) {
			return failLayer(LayerReserved,
				fmt.Sprintf("path segment matches the reserved device name %q", strings.ToUpper(stem)),
				"rename the file or directory")
		}
	}

	return nil
}

// resolveSymlinks is layer 4: resolve the real filesystem path. When the
// target does not exist yet, the deepest existing ancestor is resolved and
// the nonexistent suffix re-appended, so containment is still checked on a
// real path.
func (v *Validator) resolveSymlinks(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", failLayer(LayerSymlink, "cannot resolve path", "check permissions on the path's ancestors")
	}

	// Walk up to the deepest existing ancestor.
	ancestor := p
	var suffix []string
	for {
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			// Hit the filesystem root without finding anything.
			return p, nil
		}
		suffix = append([]string{filepath.Base(ancestor)}, suffix...)
		ancestor = parent

		resolved, err := filepath.EvalSymlinks(ancestor)
		if err == nil {
			return filepath.Join(append([]string{resolved}, suffix...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", failLayer(LayerSymlink, "cannot resolve path", "check permissions on the path's ancestors")
		}
	}
}

// checkContainment is layer 5: the resolved real path must be equal to or a
// strict descendant of an authorized root. The check runs on the resolved
// path, never the pre-symlink path, to defeat symlink escape.
func (v *Validator) checkContainment(resolved string) error {
	if v.mode == ModeUnrestricted {
		return nil
	}

	for _, root := range v.allowed {
		if v.contains(root, resolved) {
			return nil
		}
	}

	return failLayer(LayerContainment,
		"path is outside the authorized directory",
		fmt.Sprintf("operate within an authorized root (mode: %s)", v.mode))
}

// contains reports whether child equals root or descends from it, honoring
// the profile's case sensitivity.
func (v *Validator) contains(root, child string) bool {
	r, c := root, child
	if v.profile.CaseInsensitive {
		r = strings.ToLower(r)
		c = strings.ToLower(c)
	}
	if r == c {
		return true
	}
	if !strings.HasSuffix(r, string(filepath.Separator)) {
		r += string(filepath.Separator)
	}
	return strings.HasPrefix(c, r)
}
