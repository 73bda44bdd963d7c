// Package manifest persists rollback manifests: signed, hashed records of
// the filesystem mutations performed by one operation, required for undo.
package manifest

import "time"

// Version is the manifest schema version. Verification rejects any other value.
const Version = "1.0"

// ActionType identifies the kind of filesystem mutation an action records.
type ActionType string

const (
	// ActionMove records a file moved from OriginalPath to CurrentPath.
	ActionMove ActionType = "move"
	// ActionCopy records a file copied from OriginalPath to CurrentPath.
	ActionCopy ActionType = "copy"
	// ActionDelete records a file removed from OriginalPath, with an
	// optional backup at BackupPath.
	ActionDelete ActionType = "delete"
)

// Action is a single recorded filesystem mutation. Actions are appended in
// the order they were applied and replayed in reverse during undo.
type Action struct {
	// Type is the kind of mutation performed.
	Type ActionType `json:"type"`

	// OriginalPath is where the file lived before the mutation.
	OriginalPath string `json:"original_path"`

	// CurrentPath is where the file lives now (moves and copies).
	CurrentPath string `json:"current_path,omitempty"`

	// BackupPath points at a backup taken before a delete, if any.
	BackupPath string `json:"backup_path,omitempty"`

	// Timestamp is when the mutation was applied.
	Timestamp time.Time `json:"timestamp"`
}

// Manifest is the persisted record of one operation's mutations. Once
// persisted it is never mutated; a new operation creates a new manifest.
type Manifest struct {
	// ID uniquely identifies the manifest.
	ID string `json:"id"`

	// Timestamp is when the manifest was created.
	Timestamp time.Time `json:"timestamp"`

	// Description is a short human-oriented summary of the operation.
	Description string `json:"description"`

	// Actions are the applied mutations in apply order.
	Actions []Action `json:"actions"`

	// Version is the manifest schema version.
	Version string `json:"version"`

	// Hash is the content digest over the actions and timestamp,
	// set by the integrity service before persistence.
	Hash string `json:"hash,omitempty"`

	// Signature is the machine-bound HMAC over the manifest content,
	// set by the integrity service before persistence.
	Signature string `json:"signature,omitempty"`
}
