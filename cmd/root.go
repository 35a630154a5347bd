// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synapse/internal/config"
	"github.com/xkilldash9x/synapse/internal/observability"
	"github.com/xkilldash9x/synapse/internal/service"
)

// rootOptions carries state shared by the root command and its children.
// Each NewRootCommand call gets its own, so commands never leak flags into
// each other.
type rootOptions struct {
	cfgFile  string
	logLevel string
	envFile  string

	v       *viper.Viper
	cfg     *config.Config
	factory service.ComponentFactory
}

// NewRootCommand builds a fresh command tree wired to the production component factory.
func NewRootCommand() *cobra.Command {
	return newRootCommand(service.NewComponentFactory())
}

func newRootCommand(factory service.ComponentFactory) *cobra.Command {
	opts := &rootOptions{v: viper.New(), factory: factory}

	rootCmd := &cobra.Command{
		Use:   "synapse",
		Short: "Synapse refactors source code with an LLM and verifies the result.",
		Long: `Synapse sends code through a smell analysis and prompt pipeline, asks a
language model for a refactor, validates the answer and repairs malformed
responses. Without an API key it serves deterministic simulation results.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initialize(cmd)
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "synapse version %s\n" .Version}}`)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newRefactorCmd(opts),
		newAdaptersCmd(),
		newTokenCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree with ctx, logging any failure.
func Execute(ctx context.Context) error {
	defer observability.Sync()

	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// initialize loads .env, the config file and the environment, then sets up logging.
func (o *rootOptions) initialize(cmd *cobra.Command) error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error loading env file %s: %w", o.envFile, err)
		}
	}

	config.SetDefaults(o.v)
	config.BindEnvironment(o.v)

	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
	} else {
		o.v.AddConfigPath(".")
		o.v.SetConfigName("config")
		o.v.SetConfigType("yaml")
	}
	if err := o.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars
	}

	if o.logLevel != "" {
		o.v.Set("logger.level", o.logLevel)
	}

	cfg, err := config.NewConfigFromViper(o.v)
	if err != nil {
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "synapse"})
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	o.cfg = cfg

	observability.InitializeLogger(cfg.Logger())
	observability.GetLogger().Debug("Configuration loaded",
		zap.String("command", cmd.Name()),
		zap.String("version", Version),
		zap.String("config_file", o.v.ConfigFileUsed()),
	)
	return nil
}
