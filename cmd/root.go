package cmd

import (
	"fmt"
	"os"

	"github.com/cmpile/cmpile/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "cmpile [files...]",
	Short:        "Zero-configuration C/C++ build orchestrator",
	Long:         `Compile and link C/C++ files with automatic dependency resolution, content-based incremental rebuilds and parallel compilation.`,
	RunE:         runBuild,
	SilenceUsage: true,
	Args:         cobra.ArbitraryArgs,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	rootCmd.PersistentFlags().StringP("compiler-flags", "f", "", "Additional compiler flags, appended last (quoted string)")
	rootCmd.PersistentFlags().Bool("clean", false, "Discard the output directory and rebuild everything")
	rootCmd.PersistentFlags().Bool("dll", false, "Build a shared library instead of an executable")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable the build cache")
	rootCmd.PersistentFlags().IntP("jobs", "j", 0, "Parallel compile jobs (0 = host parallelism)")
	rootCmd.PersistentFlags().StringP("out", "o", "", "Output base name")
	rootCmd.PersistentFlags().StringSliceP("include", "I", []string{}, "Additional include directories")
	rootCmd.PersistentFlags().StringSliceP("libpath", "L", []string{}, "Additional library directories")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.AddCommand(buildCmd)
}
