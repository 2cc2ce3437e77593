// Package diag defines the diagnostic taxonomy for a build session.
//
// Diagnostics local to one file or one dependency are collected and attached
// to that entity; only resolution conflicts and link failures abort the build.
package diag

import "fmt"

// Kind classifies a diagnostic.
type Kind int

const (
	// ScanDiagnostic marks a malformed inline directive. Non-fatal, the file
	// is still scanned for valid includes.
	ScanDiagnostic Kind = iota

	// UnresolvedDependency marks a library header that was never mapped to a
	// package or path. Deferred: only fatal if a compile later fails.
	UnresolvedDependency

	// ResolutionConflict marks two sources disagreeing on the same package's
	// paths or flags. Fatal before compilation starts.
	ResolutionConflict

	// CompileFailure marks a failed translation unit. Collected and reported
	// together; sibling compilations are not aborted.
	CompileFailure

	// LinkFailure marks a failed link. Fatal; prior output is preserved.
	LinkFailure

	// CacheIOFailure marks an unreadable or unwritable cache entry. Treated
	// as "entry absent", degrading to a rebuild of the affected unit.
	CacheIOFailure
)

func (k Kind) String() string {
	switch k {
	case ScanDiagnostic:
		return "scan"
	case UnresolvedDependency:
		return "unresolved-dependency"
	case ResolutionConflict:
		return "resolution-conflict"
	case CompileFailure:
		return "compile-failure"
	case LinkFailure:
		return "link-failure"
	case CacheIOFailure:
		return "cache-io"
	default:
		return "unknown"
	}
}

// Diagnostic is one collected problem, attached to a file, header or package.
type Diagnostic struct {
	Kind    Kind
	Subject string // file path, header spelling or package identifier
	Line    int    // 1-based source line for scan diagnostics, 0 otherwise
	Message string
	Detail  string // compiler/linker output, when available
}

func (d Diagnostic) Error() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s: %s:%d: %s", d.Kind, d.Subject, d.Line, d.Message)
	}

	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Subject, d.Message)
}

// Fatal reports whether this diagnostic must abort the build on its own.
func (d Diagnostic) Fatal() bool {
	return d.Kind == ResolutionConflict || d.Kind == LinkFailure
}
