package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/73ai/parsec/internal/index"
	"github.com/73ai/parsec/internal/output"
)

var rootsCmd = &cobra.Command{
	Use:   "roots [DIR]",
	Short: "List the directories that would be indexed for a workspace",
	Long: `List the workspace followed by every installed or developed copy of the
packages named in its Project.toml, in indexing order. Depots come from
JULIA_DEPOT_PATH and default to ~/.julia.

EXAMPLES:
    parsec roots
    JULIA_DEPOT_PATH=/opt/julia parsec roots ~/dev/MyPkg --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRoots,
}

func init() {
	rootCmd.AddCommand(rootsCmd)
	addOutputFlags(rootsCmd)
}

func runRoots(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	workspace, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	e, err := newEngine(viper.GetViper())
	if err != nil {
		return err
	}
	defer e.Close()

	config, err := formatterConfig(cmd, e.settings, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	roots := index.DiscoverRoots(workspace, e.settings.Server.Environment, e.logger)

	manager := output.NewOutputManager(cmd.Context(), output.NewFormatterFactory(cmd.OutOrStdout(), config).CreateFormatter())
	defer manager.Close()
	return manager.ProcessRoots(roots)
}
