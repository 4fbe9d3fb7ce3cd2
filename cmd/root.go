// Package cmd provides the command-line interface for snazzy.
//
// Configuration is read, from highest to lowest priority, from command-line
// flags, SNAZZY_<SECTION>_<KEY> environment variables, the file named by
// --config or SNAZZY_CONFIG_FILE, and .snazzy.yml in the current directory.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/snazzy/internal/config"
	"github.com/conneroisu/snazzy/internal/errors"
	"github.com/conneroisu/snazzy/internal/logging"
)

const configFileEnv = "SNAZZY_CONFIG_FILE"

var (
	cfgFile string

	// set by PersistentPreRunE for the running command
	appConfig  *config.Config
	appLogger  logging.Logger
	fileLogger *logging.FileLogger
)

// flagKeys maps command-line flags onto configuration keys. A flag only
// overrides the configuration when it is set explicitly.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"source":     "build.source_dir",
	"site":       "build.site_dir",
	"debug":      "build.debug",
	"prefix":     "build.prefix",
	"jobs":       "build.parallelism",
	"host":       "server.host",
	"port":       "server.port",
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "snazzy",
	Short: "Bundle XML components into one script and one stylesheet per application",
	Long: `snazzy builds single-page applications from component definitions.

Every directory holding an index.html page and a +app.js entry point is an
application. Its components live below +app/ as XML files with optional
<template>, <script> and <style> sections and declared dependencies. snazzy
orders the components by dependency, runs every section through the
configured tools in parallel and writes app.js and app.css next to the page.

Quick Start:
  snazzy prepare               Write package.json, .babelrc and .gitignore
  snazzy new todo-list         Print a component skeleton
  snazzy build                 Build every application into _site/
  snazzy serve                 Build, watch and serve with live reload`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute adds all child commands to the root command and runs it. Errors
// are printed once to stderr.
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), color.RedString("Error:"), err)
		if errors.IsConfigError(err) {
			fmt.Fprintln(rootCmd.ErrOrStderr(), "Check .snazzy.yml, the --config file and SNAZZY_* environment variables.")
		}
	}
	return err
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .snazzy.yml, can also use "+configFileEnv+")")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.StringP("source", "s", ".", "source directory scanned for applications")
	flags.StringP("site", "o", "_site", "output site directory")
}

// setup loads the configuration and creates the logger for the command.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	appConfig = cfg
	appLogger = logger
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if fileLogger == nil {
		return nil
	}
	err := fileLogger.Close()
	fileLogger = nil
	return err
}

// loadConfig builds the effective configuration from the config file, the
// environment and explicitly set flags.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	v := viper.New()
	config.BindEnv(v)

	explicit := cfgFile
	if explicit == "" {
		explicit = os.Getenv(configFileEnv)
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".snazzy")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || explicit != "" {
			return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "failed to read config file").
				WithLocation(v.ConfigFileUsed())
		}
	}

	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	cfg, err := config.LoadFrom(v)
	if err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "failed to load configuration")
	}
	return cfg, nil
}

// newLogger creates the console logger and, when log.file is set, tees it
// into a daily JSON log file.
func newLogger(cfg config.LogConfig, out io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	loggerConfig := logging.DefaultConfig()
	loggerConfig.Level = level
	loggerConfig.Format = cfg.Format
	loggerConfig.Output = out

	console := logging.NewLogger(loggerConfig)
	if cfg.File == "" {
		return console, nil
	}

	fl, err := logging.NewFileLogger(loggerConfig, cfg.File)
	if err != nil {
		return nil, err
	}
	fileLogger = fl
	return logging.NewMultiLogger(console, fl), nil
}
