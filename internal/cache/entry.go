package cache

import "time"

// Entry represents the last successful compilation of one source unit.
type Entry struct {
	// SourcePath is the absolute path to the source file (the store key).
	SourcePath string `json:"source_path"`

	// Hash is the sha256 fingerprint of the source bytes.
	Hash string `json:"hash"`

	// Headers maps every header in the unit's transitive closure at compile
	// time to its content fingerprint.
	Headers map[string]string `json:"headers"`

	// Object is the absolute path of the produced object artifact.
	Object string `json:"object"`

	// Flags are the compiler flags the object was built with.
	Flags []string `json:"flags"`

	// Timestamp when this entry was committed.
	Timestamp time.Time `json:"timestamp"`
}
