// Package app provides the commands of the CSW harvester.
package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/csw-harvester/internal/versions"
)

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "csw-harvester",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Short:             "Harvest CSW catalogue connections from a public API spreadsheet",
		Long: `csw-harvester reads an OpenDocument spreadsheet of public APIs, selects the
catalogue service entries matching a category, validates their URLs and,
optionally, their liveness, then prints them or merges the new ones into a
schema-validated CSW connection registry.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	rootCmd.AddCommand(newHarvestCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to read format flag: %w", err)
			}

			switch format {
			case "json":
				output, err := info.JSON()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), output)
				return err
			case "":
				_, err = fmt.Fprint(cmd.OutOrStdout(), info.String())
				return err
			default:
				return fmt.Errorf("unsupported format %q", format)
			}
		},
	}
	versionCmd.Flags().String("format", "", "Output format (json)")
	return versionCmd
}
