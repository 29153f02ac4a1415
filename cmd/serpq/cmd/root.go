// Package cmd provides the serpq commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/serp/internal/config"
	logpkg "github.com/kailas-cloud/serp/internal/logger"
	"github.com/kailas-cloud/serp/internal/version"
)

// globalOptions are the persistent flags shared by all commands.
type globalOptions struct {
	env        string
	configPath string
	logLevel   string
}

// NewRootCmd creates the root command for the serpq CLI.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "serpq",
		Short: "Build, run and inspect search queries",
		Long: `serpq drives the search pipeline from the command line.

It uses the same configuration and rule table as the API server, so a query
built here is exactly the query the server sends to the backend.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("serpq version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(), "Configuration environment (config/<env>.yaml)")
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Configuration file (overrides --env)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")

	cmd.AddCommand(newBuildCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newExplainCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load(o.env)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (o *globalOptions) newLogger() (*zap.Logger, error) {
	logger, err := logpkg.NewLogger(o.env, o.logLevel)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}
