// Package build orchestrates one build invocation: scan, resolve, filter to
// the stale subset, compile in parallel, link, commit the cache.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cmpile/cmpile/internal/cache"
	"github.com/cmpile/cmpile/internal/compiler"
	"github.com/cmpile/cmpile/internal/config"
	"github.com/cmpile/cmpile/internal/ctxlog"
	"github.com/cmpile/cmpile/internal/depgraph"
	"github.com/cmpile/cmpile/internal/diag"
	"github.com/cmpile/cmpile/internal/linker"
	"github.com/cmpile/cmpile/internal/resolver"
	"github.com/cmpile/cmpile/internal/scheduler"
	"github.com/cmpile/cmpile/internal/utils"
)

// ErrBuildFailed marks a build that produced per-unit diagnostics; the
// details live in the report, not the error.
var ErrBuildFailed = errors.New("build failed")

// Builder wires the pipeline for one session.
type Builder struct {
	Config    *config.Config
	Cache     *cache.Cache // nil disables caching
	Resolver  *resolver.Resolver
	Toolchain *compiler.Toolchain
	Runner    scheduler.Runner
	Planner   *linker.Planner
}

// Report is the aggregate outcome of one invocation. Every failing unit's
// diagnostic appears together; compilation never stops at the first failure.
type Report struct {
	// Diags collects scan and resolution diagnostics.
	Diags []diag.Diagnostic

	// Results holds one entry per stale unit that was compiled.
	Results []scheduler.Result

	Binary    string
	ImportLib string

	Compiled int
	Skipped  int
	Linked   bool
}

// FailedResults returns the compile results that failed.
func (r *Report) FailedResults() []scheduler.Result {
	var failed []scheduler.Result
	for _, res := range r.Results {
		if res.Failed() {
			failed = append(failed, res)
		}
	}

	return failed
}

// Attribution returns the unresolved-dependency diagnostics a failing unit's
// compiler output traces back to.
func (r *Report) Attribution(res scheduler.Result) []diag.Diagnostic {
	var related []diag.Diagnostic
	for _, d := range r.Diags {
		if d.Kind == diag.UnresolvedDependency && strings.Contains(res.Output, d.Subject) {
			related = append(related, d)
		}
	}

	return related
}

// Run executes the full pipeline over the given file or directory arguments.
// It returns the report in every case; the error is non-nil when any compile
// or the link failed, or when resolution hit a fatal conflict.
func (b *Builder) Run(ctx context.Context, paths []string) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	report := &Report{}

	files, err := utils.ExpandSources(paths)
	if err != nil {
		return report, err
	}

	if len(files) == 0 {
		return report, errors.New("no valid source files found")
	}

	projectRoot := filepath.Dir(files[0])
	outDir := filepath.Join(projectRoot, "out")

	if b.Config.Clean {
		logger.Info("cleaning output directory", "dir", outDir)

		if err := os.RemoveAll(outDir); err != nil {
			return report, fmt.Errorf("failed to clean output directory: %w", err)
		}

		if b.Cache != nil {
			if err := b.Cache.Clear(); err != nil {
				report.Diags = append(report.Diags, diag.Diagnostic{
					Kind:    diag.CacheIOFailure,
					Subject: "cache",
					Message: err.Error(),
				})
			}
		}
	}

	// Scan and walk every unit
	walker := &depgraph.Walker{SearchPaths: b.searchPaths()}

	units := make([]*depgraph.Unit, 0, len(files))
	for _, file := range files {
		logger.Info("analyzing", "file", filepath.Base(file))

		unit, err := walker.Load(file)
		if err != nil {
			return report, fmt.Errorf("failed to read %s: %w", file, err)
		}

		report.Diags = append(report.Diags, unit.Diags...)
		units = append(units, unit)
	}

	// Resolve directives and external headers. Conflicts abort here, before
	// any compilation is dispatched.
	resolution, err := b.Resolver.Resolve(ctx, units)
	if err != nil {
		return report, err
	}

	report.Diags = append(report.Diags, resolution.Diags...)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return report, fmt.Errorf("failed to create output directory: %w", err)
	}

	includes := append(b.searchPaths(), resolution.IncludePaths()...)
	userFlags := strings.Fields(b.Config.Flags)

	// Staleness filter
	var tasks []scheduler.Task
	objects := make([]string, 0, len(units))

	for _, unit := range units {
		obj := objectPath(outDir, projectRoot, unit.Path)
		objects = append(objects, obj)

		if !b.Config.Clean && b.Cache != nil && !b.Cache.IsStale(unit, obj, userFlags) {
			logger.Info("skipping (up to date)", "file", filepath.Base(unit.Path))
			report.Skipped++
			continue
		}

		tasks = append(tasks, scheduler.Task{
			Unit:   unit,
			Object: obj,
			Cmd:    b.Toolchain.CompileCommand(unit.Path, obj, includes, nil, userFlags),
		})
	}

	// Parallel compile
	if len(tasks) > 0 {
		logger.Info("compiling", "files", len(tasks), "jobs", b.Config.Jobs)

		pool := &scheduler.Pool{Workers: b.Config.Jobs, Runner: b.Runner}
		report.Results = pool.Compile(ctx, tasks)

		// Cache commits happen here, on the collector side, keeping the
		// store single-writer. Failed units never commit.
		for _, res := range report.Results {
			if res.Failed() {
				continue
			}

			report.Compiled++

			if b.Cache != nil {
				if err := b.Cache.Commit(res.Unit, res.Object, userFlags); err != nil {
					report.Diags = append(report.Diags, diag.Diagnostic{
						Kind:    diag.CacheIOFailure,
						Subject: res.Unit.Path,
						Message: err.Error(),
					})
				}
			}
		}
	}

	if failed := report.FailedResults(); len(failed) > 0 {
		return report, ErrBuildFailed
	}

	// Link
	target := linker.Target{
		Name:   b.outputName(files[0]),
		Dir:    projectRoot,
		Shared: b.Config.DLL,
	}

	libPaths := append(append([]string{}, b.Config.LibDirs...), resolution.LibPaths()...)
	plan := b.Planner.Plan(b.Toolchain.Linker(files), objects, libPaths, resolution.LinkFlags(), target)

	report.Binary = plan.Binary
	report.ImportLib = plan.ImportLib

	if report.Compiled == 0 && artifactsPresent(plan) {
		logger.Info("output up to date", "binary", plan.Binary)
		return report, nil
	}

	if err := b.Planner.Link(ctx, b.Runner, plan); err != nil {
		var d diag.Diagnostic
		if errors.As(err, &d) {
			report.Diags = append(report.Diags, d)
		}

		return report, err
	}

	report.Linked = true

	// Copy runtime artifacts so the binary is self-contained
	var runtimeDirs []string
	for _, dep := range resolution.Deps {
		runtimeDirs = append(runtimeDirs, dep.RuntimeDirs...)
	}

	if err := linker.CopyRuntime(runtimeDirs, filepath.Dir(plan.Binary)); err != nil {
		logger.Warn("failed to copy runtime artifacts", "error", err)
	}

	return report, nil
}

// searchPaths returns the configured include directories plus the extension
// registry's, which are resolved before scanning starts.
func (b *Builder) searchPaths() []string {
	paths := append([]string{}, b.Config.IncludeDirs...)

	for _, dep := range b.Resolver.Registry {
		paths = append(paths, dep.IncludePaths...)
	}

	return paths
}

func (b *Builder) outputName(firstFile string) string {
	if b.Config.OutputName != "" {
		return b.Config.OutputName
	}

	base := filepath.Base(firstFile)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// objectPath derives the object name from the source path relative to the
// project root, so same-named sources in different subdirectories never share
// an object file.
func objectPath(outDir, root, src string) string {
	rel, err := filepath.Rel(root, src)
	if err != nil {
		rel = filepath.Base(src)
	}

	stem := strings.TrimSuffix(rel, filepath.Ext(rel))
	stem = strings.ReplaceAll(stem, string(filepath.Separator), "_")

	return filepath.Join(outDir, stem+".o")
}

// artifactsPresent reports whether the planned outputs already exist, letting
// an unchanged build skip the relink.
func artifactsPresent(plan *linker.Plan) bool {
	if _, err := os.Stat(plan.Binary); err != nil {
		return false
	}

	if plan.ImportLib != "" {
		if _, err := os.Stat(plan.ImportLib); err != nil {
			return false
		}
	}

	return true
}
