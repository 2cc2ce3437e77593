// Package compiler constructs and runs compile and link invocations against
// the host C/C++ toolchain.
package compiler

import (
	"os/exec"

	"github.com/cmpile/cmpile/internal/utils"
)

// ShellCommand is one external toolchain invocation.
type ShellCommand struct {
	Path string
	Args []string
}

// Toolchain resolves which compiler drives each translation unit. clang is
// preferred over gcc when both are on PATH.
type Toolchain struct {
	// CC and CXX override detection when set (from configuration).
	CC  string
	CXX string

	lookPath func(string) (string, error)
}

// NewToolchain creates a toolchain with optional configured overrides.
func NewToolchain(cc, cxx string) *Toolchain {
	return &Toolchain{
		CC:       cc,
		CXX:      cxx,
		lookPath: exec.LookPath,
	}
}

// CompilerFor returns the compiler executable for a source file: a C compiler
// for .c files, a C++ compiler for everything else.
func (t *Toolchain) CompilerFor(path string) string {
	if utils.IsCFile(path) {
		if t.CC != "" {
			return t.CC
		}

		return t.first("clang", "gcc", "cc")
	}

	if t.CXX != "" {
		return t.CXX
	}

	return t.first("clang++", "g++", "c++")
}

// Linker returns the link driver: the C++ compiler when any unit is C++,
// otherwise the C compiler.
func (t *Toolchain) Linker(files []string) string {
	for _, f := range files {
		if !utils.IsCFile(f) {
			return t.CompilerFor(f)
		}
	}

	if len(files) > 0 {
		return t.CompilerFor(files[0])
	}

	return t.first("clang++", "g++", "c++")
}

func (t *Toolchain) first(names ...string) string {
	for _, name := range names {
		if _, err := t.lookPath(name); err == nil {
			return name
		}
	}

	// Last candidate as-is; the invocation will surface the real error.
	return names[len(names)-1]
}

// CompileCommand builds the invocation for one translation unit. User flags
// come last so they can override defaults.
func (t *Toolchain) CompileCommand(src, obj string, includes, baseFlags, userFlags []string) ShellCommand {
	args := []string{"-c", src, "-o", obj}

	for _, inc := range includes {
		args = append(args, "-I", inc)
	}

	args = append(args, baseFlags...)
	args = append(args, userFlags...)

	return ShellCommand{
		Path: t.CompilerFor(src),
		Args: args,
	}
}
