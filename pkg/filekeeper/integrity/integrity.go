// Package integrity computes and verifies the tamper-evidence fields of
// rollback manifests: a content hash over the recorded actions and a
// machine-bound HMAC signature over the whole document.
//
// The signing key is derived from stable host identity attributes combined
// with a fixed seed, so a manifest copied to another machine fails
// verification. The package never persists anything; it only computes and
// checks digests over manifest content handed to it.
package integrity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/hostid"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/manifest"
)

// keySeed is mixed into the key derivation material. It is not a secret;
// the binding property comes from the host identity attributes.
const keySeed = "filekeeper-manifest-integrity-v1"

// TamperError reports a manifest that failed integrity verification.
type TamperError struct {
	// ManifestID identifies the rejected manifest.
	ManifestID string

	// Reason is the specific verification failure.
	Reason string
}

// Error implements the error interface.
func (e *TamperError) Error() string {
	return fmt.Sprintf("manifest %s failed verification: %s", e.ManifestID, e.Reason)
}

// Distinct verification failure reasons.
const (
	ReasonBadVersion       = "unsupported manifest version"
	ReasonMissingHash      = "hash missing"
	ReasonHashMismatch     = "hash mismatch - possible tampering"
	ReasonMissingSignature = "signature missing"
	ReasonSigMismatch      = "signature mismatch - possible tampering"
)

// KeyProvider supplies the HMAC key used for manifest signatures.
type KeyProvider interface {
	// Key returns the signing key. Implementations must return the same
	// key for the life of the process.
	Key() []byte
}

// MachineKeyProvider derives a signing key once, at construction, from the
// host's identity attributes. It is explicitly constructed and injected
// rather than held as process-global state.
type MachineKeyProvider struct {
	key []byte
}

// NewMachineKeyProvider derives the key from the given host identity.
func NewMachineKeyProvider(id hostid.Identity) *MachineKeyProvider {
	h := sha256.New()
	h.Write([]byte(keySeed))
	h.Write(id.Material())
	return &MachineKeyProvider{key: h.Sum(nil)}
}

// Key returns the derived signing key.
func (p *MachineKeyProvider) Key() []byte { return p.key }

// StaticKeyProvider returns a fixed key. Intended for tests.
type StaticKeyProvider []byte

// Key returns the static key.
func (p StaticKeyProvider) Key() []byte { return []byte(p) }

// Service stamps and verifies manifests. It is stateless apart from the
// injected key provider and safe for concurrent use.
type Service struct {
	keys KeyProvider
}

// NewService creates a Service using the given key provider.
func NewService(keys KeyProvider) *Service {
	return &Service{keys: keys}
}

// hashPayload is the canonical serialization the content hash covers.
type hashPayload struct {
	Actions   []manifest.Action `json:"actions"`
	Timestamp time.Time         `json:"timestamp"`
}

// signPayload is the canonical serialization the signature covers.
// It includes the hash, so the signature also vouches for it.
type signPayload struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Description string            `json:"description"`
	Actions     []manifest.Action `json:"actions"`
	Version     string            `json:"version"`
	Hash        string            `json:"hash"`
}

// Stamp sets the Version, Hash, and Signature fields of m. It must be
// called after the operation's actions are final and before persistence.
func (s *Service) Stamp(m *manifest.Manifest) error {
	m.Version = Version

	hash, err := s.computeHash(m)
	if err != nil {
		return fmt.Errorf("computing manifest hash: %w", err)
	}
	m.Hash = hash

	sig, err := s.computeSignature(m)
	if err != nil {
		return fmt.Errorf("computing manifest signature: %w", err)
	}
	m.Signature = sig

	return nil
}

// Verify checks m's version, hash, and signature, returning a *TamperError
// with a distinct reason on the first check that fails. Undo must only
// proceed when Verify returns nil.
func (s *Service) Verify(m *manifest.Manifest) error {
	if m.Version != Version {
		return &TamperError{ManifestID: m.ID, Reason: ReasonBadVersion}
	}

	if m.Hash == "" {
		return &TamperError{ManifestID: m.ID, Reason: ReasonMissingHash}
	}
	hash, err := s.computeHash(m)
	if err != nil {
		return fmt.Errorf("recomputing manifest hash: %w", err)
	}
	if !hmac.Equal([]byte(hash), []byte(m.Hash)) {
		return &TamperError{ManifestID: m.ID, Reason: ReasonHashMismatch}
	}

	if m.Signature == "" {
		return &TamperError{ManifestID: m.ID, Reason: ReasonMissingSignature}
	}
	sig, err := s.computeSignature(m)
	if err != nil {
		return fmt.Errorf("recomputing manifest signature: %w", err)
	}
	if !hmac.Equal([]byte(sig), []byte(m.Signature)) {
		return &TamperError{ManifestID: m.ID, Reason: ReasonSigMismatch}
	}

	return nil
}

// Version is the manifest schema version this service stamps and accepts.
const Version = manifest.Version

func (s *Service) computeHash(m *manifest.Manifest) (string, error) {
	data, err := json.Marshal(hashPayload{
		Actions:   m.Actions,
		Timestamp: m.Timestamp,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (s *Service) computeSignature(m *manifest.Manifest) (string, error) {
	data, err := json.Marshal(signPayload{
		ID:          m.ID,
		Timestamp:   m.Timestamp,
		Description: m.Description,
		Actions:     m.Actions,
		Version:     m.Version,
		Hash:        m.Hash,
	})
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, s.keys.Key())
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil)), nil
}
