package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "parsec",
	Short: "A language server for Julia with fast workspace symbol search",
	Long: `parsec parses Julia sources with tree-sitter, outlines them and indexes the
workspace together with the packages named in its Project.toml.

Run without a subcommand, it speaks the language server protocol on stdin
and stdout. The other subcommands give offline access to the same engine.

EXAMPLES:
    # Language server (what editors launch)
    parsec
    parsec serve --log-level debug

    # Offline use
    parsec outline src/Plots.jl
    parsec symbols plot --root ~/dev/Plots.jl --limit 20
    parsec roots --json`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runServe,
}

// persistentKeys maps persistent flags to their configuration keys.
var persistentKeys = map[string]string{
	"debounce":      "parse.debounce",
	"max-staleness": "parse.max_staleness",
	"workers":       "index.workers",
	"max-file-size": "index.max_file_size",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"log-file":      "log.file",
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default is .parsec.yaml in . or $HOME)")
	flags.Duration("debounce", defaultDebounce, "Quiet period after an edit before a stale tree is replaced")
	flags.Duration("max-staleness", defaultMaxStaleness, "Reparse a stale tree at least this often while edits continue (0 = never)")
	flags.IntP("workers", "j", 0, "Number of parallel indexing workers (0 = auto)")
	flags.Int64("max-file-size", defaultMaxFileSize, "Skip files larger than SIZE bytes")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")
	flags.String("log-file", "", "Log file, or - for stderr (default is parsec.log in the temp directory)")

	for flag, key := range persistentKeys {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
	setDefaults(viper.GetViper())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".parsec")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	// PARSEC_SEARCH_LIMIT overrides search.limit
	viper.SetEnvPrefix("PARSEC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Reading config file:", err)
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
