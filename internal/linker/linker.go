// Package linker plans and runs the final link step.
//
// An executable target links every current object plus dependency flags into
// the output binary. A shared-library target links with -shared and always
// emits an import library alongside the binary, so downstream consumers can
// link statically against the produced library. The previous output is left
// untouched when the link fails.
package linker

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cmpile/cmpile/internal/compiler"
	"github.com/cmpile/cmpile/internal/ctxlog"
	"github.com/cmpile/cmpile/internal/diag"
)

// Target describes the artifact to produce.
type Target struct {
	// Name is the output base name, without extension.
	Name string

	// Dir is the directory the binary lands in.
	Dir string

	// Shared selects a shared library instead of an executable.
	Shared bool
}

// Plan is one fully assembled link invocation and its promised artifacts.
type Plan struct {
	Cmd       compiler.ShellCommand
	Binary    string
	ImportLib string // set for shared targets
}

// Planner assembles link invocations.
type Planner struct {
	// GOOS controls platform naming conventions; defaults to the host.
	GOOS string
}

// NewPlanner creates a planner for the host platform.
func NewPlanner() *Planner {
	return &Planner{GOOS: runtime.GOOS}
}

// Plan produces the link invocation for the given objects and dependency
// paths/flags.
func (p *Planner) Plan(linkerPath string, objects, libPaths, linkFlags []string, target Target) *Plan {
	binary := filepath.Join(target.Dir, target.Name+p.binaryExt(target.Shared))

	args := append([]string{}, objects...)
	args = append(args, "-o", binary)

	plan := &Plan{Binary: binary}

	if target.Shared {
		plan.ImportLib = filepath.Join(target.Dir, "lib"+target.Name+".a")
		args = append(args, "-shared", "-Wl,--out-implib,"+plan.ImportLib)
	}

	for _, lib := range libPaths {
		args = append(args, "-L", lib)
	}

	args = append(args, linkFlags...)
	args = append(args, "-static-libgcc", "-static-libstdc++")

	plan.Cmd = compiler.ShellCommand{
		Path: linkerPath,
		Args: args,
	}

	return plan
}

func (p *Planner) binaryExt(shared bool) string {
	if shared {
		if p.GOOS == "windows" {
			return ".dll"
		}

		return ".so"
	}

	if p.GOOS == "windows" {
		return ".exe"
	}

	return ""
}

// Runner executes the link invocation.
type Runner interface {
	Run(ctx context.Context, cmd compiler.ShellCommand) (string, error)
}

// Link runs the plan. Failures come back as a link-failure diagnostic
// carrying the linker's own output; the prior binary is not removed first, so
// the output directory keeps its last valid state.
func (p *Planner) Link(ctx context.Context, runner Runner, plan *Plan) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("linking", "binary", plan.Binary)

	out, err := runner.Run(ctx, plan.Cmd)
	if err != nil {
		return diag.Diagnostic{
			Kind:    diag.LinkFailure,
			Subject: plan.Binary,
			Message: err.Error(),
			Detail:  strings.TrimSpace(out),
		}
	}

	return nil
}
