// Package resolver maps unresolved library headers and inline directives to
// concrete include paths, library paths and link flags.
//
// Resolution per header, first match wins: a directive or extension-registry
// entry whose include root actually contains the header, then the exact
// header-to-package table, then heuristic discovery against the package
// manager with post-install verification. Headers that survive all three are
// reported as unresolved diagnostics and the build continues.
package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/cmpile/cmpile/internal/ctxlog"
	"github.com/cmpile/cmpile/internal/depgraph"
	"github.com/cmpile/cmpile/internal/diag"
	"github.com/cmpile/cmpile/internal/scanner"
)

// Dependency is the resolved include/library/flag bundle for one package or
// directive-named library. At most one exists per identifier per build.
type Dependency struct {
	Name         string
	IncludePaths []string
	LibPaths     []string
	LinkFlags    []string

	// RuntimeDirs are directories whose shared libraries must be copied next
	// to the output binary after a successful link.
	RuntimeDirs []string

	// Source records which resolution stage produced this dependency.
	Source string
}

// PackageManager is the external package manager collaborator. The core never
// parses its internal metadata beyond these paths.
type PackageManager interface {
	IsInstalled(name string) bool
	Install(ctx context.Context, name string) error
	IncludePath() string
	LibPath() string
	BinPath() string
}

// Fetcher turns a fetch directive into an installed dependency. Cloning and
// building the remote source is external glue behind this boundary.
type Fetcher interface {
	Fetch(ctx context.Context, repo, ref string) (*Dependency, error)
}

// Resolver holds the session-scoped resolution state for one build
// invocation. It is not safe for concurrent use; installs are serialized by
// running resolution before compilation is scheduled.
type Resolver struct {
	Manager PackageManager
	Fetcher Fetcher

	// Registry entries are pre-resolved dependencies from the extension
	// registry, equivalent in priority to explicit directives.
	Registry []Dependency
}

// Resolution is the outcome of resolving every unit's externals and
// directives.
type Resolution struct {
	// Deps is the deduplicated dependency set, directive/registry entries
	// first, then installed packages in identifier order.
	Deps []Dependency

	// Packages lists the package identifiers resolved through the manager.
	Packages []string

	// Diags collects unresolved-dependency diagnostics.
	Diags []diag.Diagnostic
}

// IncludePaths returns every include path across the dependency set.
func (r *Resolution) IncludePaths() []string {
	var paths []string
	for _, d := range r.Deps {
		paths = append(paths, d.IncludePaths...)
	}

	return paths
}

// LibPaths returns every library path across the dependency set.
func (r *Resolution) LibPaths() []string {
	var paths []string
	for _, d := range r.Deps {
		paths = append(paths, d.LibPaths...)
	}

	return paths
}

// LinkFlags returns every link flag across the dependency set.
func (r *Resolution) LinkFlags() []string {
	var flags []string
	for _, d := range r.Deps {
		flags = append(flags, d.LinkFlags...)
	}

	return flags
}

// Resolve consumes the units' directives and unresolved library headers and
// produces the dependency set. A resolution conflict is returned as an error
// before any compilation can start.
func (r *Resolver) Resolve(ctx context.Context, units []*depgraph.Unit) (*Resolution, error) {
	logger := ctxlog.FromContext(ctx)

	pinned := map[string]*Dependency{} // directive/registry deps by name
	var pinnedOrder []string

	pin := func(dep Dependency) error {
		existing, ok := pinned[dep.Name]
		if !ok {
			d := dep
			pinned[dep.Name] = &d
			pinnedOrder = append(pinnedOrder, dep.Name)
			return nil
		}

		if !slices.Equal(existing.IncludePaths, dep.IncludePaths) ||
			!slices.Equal(existing.LibPaths, dep.LibPaths) {
			return diag.Diagnostic{
				Kind:    diag.ResolutionConflict,
				Subject: dep.Name,
				Message: fmt.Sprintf("conflicting paths for %q: %v vs %v", dep.Name, existing.IncludePaths, dep.IncludePaths),
			}
		}

		for _, f := range dep.LinkFlags {
			if !slices.Contains(existing.LinkFlags, f) {
				existing.LinkFlags = append(existing.LinkFlags, f)
			}
		}

		return nil
	}

	for _, reg := range r.Registry {
		reg.Source = "registry"
		if err := pin(reg); err != nil {
			return nil, err
		}
	}

	// Fetch directives, deduplicated on repo@ref across all files.
	fetched := map[string]bool{}
	for _, unit := range units {
		for _, f := range unit.Fetches {
			if fetched[f.Key()] {
				continue
			}
			fetched[f.Key()] = true

			logger.Info("fetch directive", "repo", f.Repo, "ref", f.Ref)

			dep, err := r.Fetcher.Fetch(ctx, f.Repo, f.Ref)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch %s: %w", f.Repo, err)
			}

			dep.Source = "fetch"
			if err := pin(*dep); err != nil {
				return nil, err
			}
		}

		for _, l := range unit.Locals {
			if err := pin(localDependency(l)); err != nil {
				return nil, err
			}
		}
	}

	res := &Resolution{}

	// Distinct library headers across all units, in stable order.
	headers := map[string]bool{}
	for _, unit := range units {
		for _, h := range unit.External {
			headers[h] = true
		}
	}

	sorted := make([]string, 0, len(headers))
	for h := range headers {
		sorted = append(sorted, h)
	}
	sort.Strings(sorted)

	packages := map[string]bool{}

	for _, header := range sorted {
		if name := providedBy(pinned, pinnedOrder, header); name != "" {
			logger.Debug("header provided by directive", "header", header, "dependency", name)
			continue
		}

		if pkg, ok := HeaderPackages[header]; ok {
			// A directive pinning the same identifier must actually provide
			// the header; it did not survive providedBy above, so its paths
			// disagree with the table mapping.
			if dep, ok := pinned[pkg]; ok {
				return nil, diag.Diagnostic{
					Kind:    diag.ResolutionConflict,
					Subject: pkg,
					Message: fmt.Sprintf("directive paths %v for %q do not provide table-mapped header %q", dep.IncludePaths, pkg, header),
				}
			}

			if flagSuppressed(pinned, pkg) {
				logger.Debug("package provided by directive flags", "package", pkg)
				continue
			}

			if err := r.installPackage(ctx, pkg, packages); err != nil {
				return nil, err
			}
			continue
		}

		if pkg := r.heuristic(ctx, header, pinned, packages); pkg != "" {
			continue
		}

		res.Diags = append(res.Diags, diag.Diagnostic{
			Kind:    diag.UnresolvedDependency,
			Subject: header,
			Message: "no package mapping found; compilation errors referencing this header trace back here",
		})
	}

	for _, name := range pinnedOrder {
		res.Deps = append(res.Deps, *pinned[name])
	}

	if len(packages) > 0 {
		ids := make([]string, 0, len(packages))
		for pkg := range packages {
			ids = append(ids, pkg)
		}
		sort.Strings(ids)

		res.Packages = ids
		res.Deps = append(res.Deps, r.managerDependency(ids))
	}

	return res, nil
}

// heuristic tries candidate identifiers derived from the header path. A
// candidate is accepted only if, after install, the manager's include root
// actually contains the requested header; name similarity alone is never
// trusted.
func (r *Resolver) heuristic(ctx context.Context, header string, pinned map[string]*Dependency, packages map[string]bool) string {
	logger := ctxlog.FromContext(ctx)

	for _, pkg := range HeuristicCandidates(header) {
		// A candidate accepted for an earlier header still has to provide
		// this one; sharing a root with a resolved header proves nothing.
		if packages[pkg] || suppressed(pinned, pkg) {
			if r.headerInstalled(header) {
				return pkg
			}

			continue
		}

		if err := r.install(ctx, pkg); err != nil {
			logger.Debug("heuristic candidate rejected", "package", pkg, "error", err)
			continue
		}

		if !r.headerInstalled(header) {
			logger.Debug("heuristic candidate did not provide header", "package", pkg, "header", header)
			continue
		}

		logger.Info("heuristic match", "header", header, "package", pkg)
		packages[pkg] = true
		return pkg
	}

	return ""
}

// installPackage installs a table-mapped package and records it.
func (r *Resolver) installPackage(ctx context.Context, pkg string, packages map[string]bool) error {
	if packages[pkg] {
		return nil
	}

	if err := r.install(ctx, pkg); err != nil {
		return fmt.Errorf("failed to install dependency %s: %w", pkg, err)
	}

	packages[pkg] = true
	return nil
}

// headerInstalled reports whether the manager's include root contains the
// header.
func (r *Resolver) headerInstalled(header string) bool {
	_, err := os.Stat(filepath.Join(r.Manager.IncludePath(), header))
	return err == nil
}

func (r *Resolver) install(ctx context.Context, pkg string) error {
	if r.Manager.IsInstalled(pkg) {
		return nil
	}

	return r.Manager.Install(ctx, pkg)
}

// managerDependency folds all installed packages into one dependency carrying
// the manager's shared include/lib roots and the per-package link flags.
func (r *Resolver) managerDependency(pkgs []string) Dependency {
	dep := Dependency{
		Name:   "vcpkg",
		Source: "manager",
	}

	if inc := r.Manager.IncludePath(); inc != "" {
		if _, err := os.Stat(inc); err == nil {
			dep.IncludePaths = append(dep.IncludePaths, inc)
		}
	}

	libDir := r.Manager.LibPath()
	if libDir != "" {
		if _, err := os.Stat(libDir); err == nil {
			dep.LibPaths = append(dep.LibPaths, libDir)
		}
	}

	if bin := r.Manager.BinPath(); bin != "" {
		dep.RuntimeDirs = append(dep.RuntimeDirs, bin)
	}

	for _, pkg := range pkgs {
		for _, lib := range LinkLibsFor(pkg, libDir) {
			dep.LinkFlags = append(dep.LinkFlags, "-l"+lib)
		}
	}

	return dep
}

// providedBy returns the name of the pinned dependency whose include root
// contains the header, if any.
func providedBy(pinned map[string]*Dependency, order []string, header string) string {
	for _, name := range order {
		for _, inc := range pinned[name].IncludePaths {
			if _, err := os.Stat(filepath.Join(inc, header)); err == nil {
				return name
			}
		}
	}

	return ""
}

// suppressed reports whether a directive already covers this package, either
// by pinning its name or by an explicit -l flag.
func suppressed(pinned map[string]*Dependency, pkg string) bool {
	if _, ok := pinned[pkg]; ok {
		return true
	}

	return flagSuppressed(pinned, pkg)
}

// flagSuppressed reports whether any directive carries -l<pkg>, which
// suppresses installing the package through the manager.
func flagSuppressed(pinned map[string]*Dependency, pkg string) bool {
	for _, dep := range pinned {
		if slices.Contains(dep.LinkFlags, "-l"+pkg) {
			return true
		}
	}

	return false
}

// localDependency turns a @local directive into a pre-resolved dependency.
// The directive path is treated as a root: include/ and lib/ subdirectories
// are used when present, the root itself otherwise.
func localDependency(l scanner.Local) Dependency {
	dep := Dependency{
		Name:      l.Name,
		LinkFlags: append([]string{}, l.Flags...),
		Source:    "directive",
	}

	inc := filepath.Join(l.Path, "include")
	if info, err := os.Stat(inc); err != nil || !info.IsDir() {
		inc = l.Path
	}
	dep.IncludePaths = []string{inc}

	lib := filepath.Join(l.Path, "lib")
	if info, err := os.Stat(lib); err != nil || !info.IsDir() {
		lib = l.Path
	}
	dep.LibPaths = []string{lib}

	if len(dep.LinkFlags) == 0 && !strings.HasPrefix(l.Name, "-") {
		dep.LinkFlags = []string{"-l" + l.Name}
	}

	return dep
}
