package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cmpile/cmpile/internal/build"
	"github.com/cmpile/cmpile/internal/cache"
	"github.com/cmpile/cmpile/internal/compiler"
	"github.com/cmpile/cmpile/internal/config"
	"github.com/cmpile/cmpile/internal/ctxlog"
	"github.com/cmpile/cmpile/internal/extensions"
	"github.com/cmpile/cmpile/internal/fetch"
	"github.com/cmpile/cmpile/internal/linker"
	"github.com/cmpile/cmpile/internal/resolver"
	"github.com/cmpile/cmpile/internal/vcpkg"
)

var buildCmd = &cobra.Command{
	Use:          "build [files...]",
	Short:        "Build a C/C++ program or shared library",
	Long:         `Scan the given sources, resolve their external dependencies, compile the stale subset in parallel and link the output artifact.`,
	RunE:         runBuild,
	SilenceUsage: true,
}

func runBuild(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("requires at least one file or directory argument")
	}

	cfg, err := config.NewLoader().LoadForBuild(cmd, args)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	ctx := ctxlog.WithLogger(cmd.Context(), logger)

	builder, store, err := newBuilder(cfg)
	if err != nil {
		return err
	}

	if store != nil {
		defer store.Close()
	}

	report, err := builder.Run(ctx, args)
	printReport(report)

	if err != nil {
		if errors.Is(err, build.ErrBuildFailed) {
			return fmt.Errorf("%d of %d compilations failed", len(report.FailedResults()), len(report.Results))
		}

		return err
	}

	if report.Linked {
		fmt.Printf("Build successful: %s\n", report.Binary)
		if report.ImportLib != "" {
			fmt.Printf("Import library: %s\n", report.ImportLib)
		}
	} else {
		fmt.Printf("Up to date: %s\n", report.Binary)
	}

	return nil
}

// newBuilder wires the session: cache store, vcpkg manager, fetcher and
// extension registry.
func newBuilder(cfg *config.Config) (*build.Builder, *cache.Cache, error) {
	var store *cache.Cache
	if !cfg.NoCache {
		var err error

		store, err = cache.New("")
		if err != nil {
			// A broken cache degrades to a full rebuild, never a failed build.
			fmt.Fprintf(os.Stderr, "Warning: build cache unavailable: %v\n", err)
			store = nil
		}
	}

	vcpkgRoot := cfg.VcpkgRoot
	if vcpkgRoot == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to locate cache directory: %w", err)
		}

		vcpkgRoot = filepath.Join(base, "cmpile", "vcpkg")
	}

	registry, err := extensions.Load(cfg.ExtensionsDir)
	if err != nil {
		return nil, nil, err
	}

	res := &resolver.Resolver{
		Manager:  vcpkg.New(vcpkgRoot, ""),
		Fetcher:  fetch.New(cfg.ExtensionsDir),
		Registry: registry.Dependencies(),
	}

	builder := &build.Builder{
		Config:    cfg,
		Cache:     store,
		Resolver:  res,
		Toolchain: compiler.NewToolchain(cfg.CompilerPath, cfg.CXXPath),
		Runner:    compiler.NewRunner(),
		Planner:   linker.NewPlanner(),
	}

	return builder, store, nil
}

// printReport writes the aggregate diagnostic report: every failing unit's
// output appears together, with unresolved-dependency attributions attached.
func printReport(report *build.Report) {
	for _, d := range report.Diags {
		label := "Warning"
		if d.Fatal() {
			label = "Error"
		}

		fmt.Fprintf(os.Stderr, "%s: %s\n", label, d.Error())
	}

	for _, res := range report.FailedResults() {
		fmt.Fprintf(os.Stderr, "Compilation failed: %s\n", res.Unit.Path)
		if res.Output != "" {
			fmt.Fprintln(os.Stderr, res.Output)
		}

		for _, d := range report.Attribution(res) {
			fmt.Fprintf(os.Stderr, "  likely cause: %s\n", d.Error())
		}
	}
}
