package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/73ai/parsec/internal/document"
	"github.com/73ai/parsec/internal/output"
)

var outlineCmd = &cobra.Command{
	Use:   "outline FILE...",
	Short: "Print the nested symbol outline of Julia files",
	Long: `Parse each file and print its modules, functions, macros, types and
constants as a tree, the way an editor's outline view shows them.

EXAMPLES:
    parsec outline src/Plots.jl
    parsec outline --json src/*.jl`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOutline,
}

func init() {
	rootCmd.AddCommand(outlineCmd)
	addOutputFlags(outlineCmd)
}

// addOutputFlags registers the formatting flags shared by the offline
// commands.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "Output results in JSON format")
	cmd.Flags().String("color", "auto", "When to use colors (never, auto, always)")
}

func formatterConfig(cmd *cobra.Command, s settings, w io.Writer) (output.FormatterConfig, error) {
	config := output.FormatterConfig{Format: s.Format, ShowColors: s.Color}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		config.Format = output.FormatJSON
	}

	color, _ := cmd.Flags().GetString("color")
	if !cmd.Flags().Changed("color") && s.Color {
		color = "always"
	}
	switch color {
	case "always":
		config.ShowColors = true
	case "never":
		config.ShowColors = false
	case "auto":
		config.ShowColors = isTerminal(w)
	default:
		return config, fmt.Errorf("invalid --color value %q", color)
	}
	if config.Format == output.FormatJSON {
		config.ShowColors = false
	}
	return config, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func runOutline(cmd *cobra.Command, args []string) error {
	e, err := newEngine(viper.GetViper())
	if err != nil {
		return err
	}
	defer e.Close()

	config, err := formatterConfig(cmd, e.settings, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	formatter := output.NewFormatterFactory(cmd.OutOrStdout(), config).CreateFormatter()
	manager := output.NewOutputManager(cmd.Context(), formatter)
	defer manager.Close()

	for _, arg := range args {
		outline, err := outlineFile(cmd.Context(), e, arg)
		if err != nil {
			return err
		}
		if err := manager.ProcessOutline(outline); err != nil {
			return err
		}
	}
	return nil
}

func outlineFile(ctx context.Context, e *engine, path string) (output.Outline, error) {
	if !e.language.Supports(path) {
		return output.Outline{}, fmt.Errorf("%s is not a %s source file", path, e.language.Name)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return output.Outline{}, err
	}
	text, err := os.ReadFile(abs)
	if err != nil {
		return output.Outline{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !utf8.Valid(text) {
		return output.Outline{}, fmt.Errorf("%s is not valid UTF-8", path)
	}

	doc, _ := e.store.Put(document.PathToURI(abs), abs, text)
	snap, err := doc.Parse(ctx)
	if err != nil {
		return output.Outline{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return output.Outline{
		Path:  path,
		Nodes: e.extractor.Outline(snap.Tree, snap.Text),
	}, nil
}
