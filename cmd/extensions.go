package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cmpile/cmpile/internal/extensions"
)

var extensionsDir string

var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "Manage manually registered dependencies",
	Long:  `List, register or remove extension registry entries. Registered entries enter every build as pre-resolved dependencies with directive priority.`,
}

var extensionsAddCmd = &cobra.Command{
	Use:          "add <name> <include-path> <lib-path> [linker flags...]",
	Short:        "Register or replace a dependency",
	Args:         cobra.MinimumNArgs(3),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := extensions.Load(extensionsDir)
		if err != nil {
			return err
		}

		reg.Add(extensions.Record{
			Name:        args[0],
			IncludePath: args[1],
			LibPath:     args[2],
			Flags:       args[3:],
		})

		if err := reg.Save(); err != nil {
			return err
		}

		fmt.Printf("Registered extension %q\n", args[0])
		return nil
	},
}

var extensionsRemoveCmd = &cobra.Command{
	Use:          "remove <name>",
	Short:        "Remove a registered dependency",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := extensions.Load(extensionsDir)
		if err != nil {
			return err
		}

		reg.Remove(args[0])
		return reg.Save()
	},
}

var extensionsListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List registered dependencies",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := extensions.Load(extensionsDir)
		if err != nil {
			return err
		}

		for _, rec := range reg.Records() {
			fmt.Printf("%s\n  include: %s\n  lib:     %s\n", rec.Name, rec.IncludePath, rec.LibPath)
			if len(rec.Flags) > 0 {
				fmt.Printf("  flags:   %s\n", strings.Join(rec.Flags, " "))
			}
		}

		return nil
	},
}

func init() {
	extensionsCmd.PersistentFlags().StringVar(&extensionsDir, "dir", "extensions", "Extension registry directory")

	// Linker flags like -lfoo are positional arguments to add, not flags.
	extensionsAddCmd.Flags().SetInterspersed(false)

	extensionsCmd.AddCommand(extensionsAddCmd, extensionsRemoveCmd, extensionsListCmd)
	rootCmd.AddCommand(extensionsCmd)
}
