package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "claimcheck",
	Short: "claimcheck - verify claims against trusted sources",
	Long: `claimcheck verifies a free-text claim, or the text of a web page, against
a fixed list of trusted sources.

It gathers candidate items from every source, ranks them by relevance to the
claim, asks a language model for a verdict (Supported, Refuted or Unclear)
and records the result.

A verdict is only as good as the sources it was checked against.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of claimcheck.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "claimcheck %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.claimcheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "emit JSON logs")
	rootCmd.PersistentFlags().String("model", "", "model identifier (e.g. mistral.mistral-large-2402-v1:0, gpt-4o-mini)")
	rootCmd.PersistentFlags().String("provider", "", "LLM provider kind (derived from --model when empty)")
	rootCmd.PersistentFlags().StringSlice("source", nil, "trusted source URL (repeatable, replaces the configured list)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.json", rootCmd.PersistentFlags().Lookup("log-json"))
	_ = viper.BindPFlag("llm.model", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("llm.provider", rootCmd.PersistentFlags().Lookup("provider"))
	_ = viper.BindPFlag("sources", rootCmd.PersistentFlags().Lookup("source"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := configureViper(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// configureViper sets the config file location, defaults and the environment mapping
func configureViper(v *viper.Viper, file string) error {
	if file != "" {
		// Use config file from the flag
		v.SetConfigFile(file)
	} else {
		dir, err := configDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}

		// Search for config in home directory
		v.AddConfigPath(dir)
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	// Read in environment variables that match CLAIMCHECK_* (llm.model -> CLAIMCHECK_LLM_MODEL)
	v.SetEnvPrefix("CLAIMCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := setDefaults(v); err != nil {
		return err
	}
	v.AutomaticEnv()
	return nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".claimcheck"), nil
}
