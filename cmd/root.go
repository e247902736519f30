// Package cmd implements the storyfeed command-line interface: feed
// browsing, story mutations, and the bundled stories endpoint.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ghostmonk/storyfeed/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug switches logging to debug level with console output.
	debug bool

	// verbose includes technical detail (code, status, raw payload) when
	// rendering errors.
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "storyfeed",
		Short: "A client for a paginated stories API",
		Long: `storyfeed keeps a local story feed consistent with a remote stories
endpoint. It loads pages incrementally, refetches from scratch whenever
the signed-in identity changes, and applies create/update/delete
operations with a full refresh on success. A compatible in-process
stories endpoint is bundled for local development.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command. Errors are rendered before returning so
// main only has to set the exit code.
func Execute() error {
	// Load .env early so environment variables are visible to every layer.
	_ = godotenv.Load()

	// Parse flags early so --config and --debug are known before any
	// command runs.
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initViper(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		renderError(os.Stderr, err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default ./storyfeed.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"include technical detail when showing errors")
	rootCmd.PersistentFlags().String("api-url", "", "stories API base URL")
	rootCmd.PersistentFlags().String("token", "", "bearer token for authenticated requests")

	rootCmd.AddCommand(
		newListCommand(),
		newGetCommand(),
		newCreateCommand(),
		newUpdateCommand(),
		newDeleteCommand(),
		newServeCommand(),
		newHealthCommand(),
		newVersionCommand(),
	)
}

// initViper binds the connection flags into viper so flag values override
// the environment and file layers resolved by internal/config.
func initViper() error {
	viper.SetEnvPrefix("storyfeed")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, flag := range map[string]string{
		"api.url":   "api-url",
		"api.token": "token",
	} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind %s flag: %w", flag, err)
		}
	}
	return nil
}

// loadConfig resolves configuration in priority order: flags, then
// environment, then the YAML file, then defaults.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.GetConfigPath("")
	}
	if path == "" {
		for _, candidate := range []string{"storyfeed.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadWithDefaults[config.Config](path, (*config.Config).SetDefaults)
	} else {
		cfg, err = config.FromEnv[config.Config]((*config.Config).SetDefaults)
	}
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if v := viper.GetString("api.url"); v != "" {
		cfg.API.URL = v
	}
	if v := viper.GetString("api.token"); v != "" {
		cfg.API.Token = v
	}
	if debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Development = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// signalContext derives a context cancelled by SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
