// Package scanner extracts #include targets and inline build directives from
// C/C++ source files. Scanning is line-oriented and does not preprocess: it
// recognises the standard #include forms and the // @fetch and // @local
// comment directives, nothing else.
package scanner

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/cmpile/cmpile/internal/diag"
)

// IncludeKind distinguishes quoted (local) from angle-bracket (library)
// includes. The kind is fixed at scan time and never reclassified.
type IncludeKind int

const (
	// LocalInclude is the quoted form, resolvable against search paths.
	LocalInclude IncludeKind = iota

	// LibraryInclude is the angle-bracket form, resolved only through the
	// package resolver.
	LibraryInclude
)

// Include is one #include directive's target.
type Include struct {
	Target string
	Kind   IncludeKind
	Line   int
}

// Fetch is a // @fetch directive naming a remote repository to build and link.
// Ref defaults to "main" when the directive names no version.
type Fetch struct {
	Repo string
	Ref  string
	Line int
}

// Key identifies a fetch for deduplication across files.
func (f Fetch) Key() string {
	return f.Repo + "@" + f.Ref
}

// Local is a // @local directive naming a pre-existing include/library path
// with optional manual linker flags. Path, Name and Flags are the stable
// contract consumers rely on.
type Local struct {
	Path  string
	Name  string
	Flags []string
	Line  int
}

// Result is everything extracted from one source file.
type Result struct {
	Includes []Include
	Fetches  []Fetch
	Locals   []Local
	Diags    []diag.Diagnostic
}

// reInclude matches #include <foo/bar.h> and #include "foo/bar.h".
var reInclude = regexp.MustCompile(`^\s*#\s*include\s*([<"])([^>"]+)[>"]`)

// reFetch matches // @fetch https://github.com/user/repo [ref], with an
// optional @ before the ref.
var reFetch = regexp.MustCompile(`^\s*//\s*@fetch\s+(https://github\.com/[^\s@]+)(?:\s*@?\s*(\S+))?\s*$`)

// reDirective matches any line that looks like a directive, so malformed ones
// can be reported instead of silently ignored.
var reDirective = regexp.MustCompile(`^\s*//\s*@(fetch|local)\b(.*)$`)

// Scan extracts includes and directives from file bytes. It is a pure
// function of its input: malformed directives become diagnostics on the
// result, never errors.
func Scan(path string, data []byte) *Result {
	res := &Result{}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()

		if m := reInclude.FindStringSubmatch(text); m != nil {
			kind := LocalInclude
			if m[1] == "<" {
				kind = LibraryInclude
			}

			res.Includes = append(res.Includes, Include{
				Target: m[2],
				Kind:   kind,
				Line:   line,
			})
			continue
		}

		m := reDirective.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		switch m[1] {
		case "fetch":
			scanFetch(res, path, text, line)
		case "local":
			scanLocal(res, path, strings.Fields(m[2]), line)
		}
	}

	return res
}

func scanFetch(res *Result, path, text string, line int) {
	m := reFetch.FindStringSubmatch(text)
	if m == nil {
		res.Diags = append(res.Diags, diag.Diagnostic{
			Kind:    diag.ScanDiagnostic,
			Subject: path,
			Line:    line,
			Message: "malformed @fetch directive: expected // @fetch https://github.com/<owner>/<repo> [ref]",
		})
		return
	}

	ref := m[2]
	if ref == "" {
		ref = "main"
	}

	res.Fetches = append(res.Fetches, Fetch{
		Repo: strings.TrimSuffix(m[1], "/"),
		Ref:  ref,
		Line: line,
	})
}

func scanLocal(res *Result, path string, fields []string, line int) {
	if len(fields) < 2 {
		res.Diags = append(res.Diags, diag.Diagnostic{
			Kind:    diag.ScanDiagnostic,
			Subject: path,
			Line:    line,
			Message: "malformed @local directive: expected // @local <path> <name> [flags...]",
		})
		return
	}

	res.Locals = append(res.Locals, Local{
		Path:  fields[0],
		Name:  fields[1],
		Flags: fields[2:],
		Line:  line,
	})
}
