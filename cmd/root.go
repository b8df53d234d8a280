package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pders01/shotvault/internal/catalog"
	"github.com/pders01/shotvault/internal/config"
	"github.com/pders01/shotvault/internal/history"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "shotvault",
	Short: "Local history of annotated screenshots",
	Long: `shotvault keeps a local history of annotated screenshots:
  - original, annotated and thumbnail images per capture
  - the annotation document and an optional ticket id
  - a storage budget that evicts the oldest captures first

The history lives in the platform data directory unless storage.root
is set in ~/.config/shotvault/config.toml.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/shotvault/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "shotvault")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("SHOTVAULT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config.SetDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setupLogging() {
	level, err := zerolog.ParseLevel(config.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if config.GetLogFormat() == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// openService opens the history store configured by viper. Callers must
// Close the returned service.
func openService() (*history.Service, error) {
	root, err := config.GetStorageRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}

	fs := afero.NewOsFs()
	cat, err := catalog.Open(config.GetCatalogBackend(), fs, root)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	svc, err := history.New(history.Options{
		Root:        root,
		Fs:          fs,
		Catalog:     cat,
		BudgetBytes: config.GetBudgetBytes(),
	})
	if err != nil {
		cat.Close()
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return svc, nil
}
