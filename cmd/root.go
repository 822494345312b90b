package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cube2222/connplan/config"
	"github.com/cube2222/connplan/logs"
)

var configPath string
var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "connplan",
	Short: "Plan how connectors read from and write to external stores.",
	Long: `connplan turns the connector definitions in a connectors file into backend specific access plans:
native queries, partition ranges and client settings, without connecting to any backend.`,
	Example: `connplan plan
connplan --config connectors.yaml plan users orders
connplan describe users`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logs.New(verbose)
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func Execute(ctx context.Context) {
	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Connectors file, ~/.connplan/connectors.yaml by default.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level.")
}

func readConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	cfg, err := config.ReadConfig(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't read connectors file %s", path)
	}
	return cfg, nil
}
