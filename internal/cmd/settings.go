package cmd

import (
	"fmt"
	"os"

	"github.com/harrison/qadocs/internal/config"
	"github.com/harrison/qadocs/internal/logger"
	"github.com/spf13/cobra"
)

// loadSettings resolves configuration in order: defaults, config file,
// .env and environment, CLI flags.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	envFile, _ := flags.GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	configPath, _ := flags.GetString("config")
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var f config.Flags
	f.OutputDir = changedString(cmd, "output-dir")
	f.LogDir = changedString(cmd, "log-dir")
	f.LogLevel = changedString(cmd, "log-level")
	f.Provider = changedString(cmd, "provider")
	f.Model = changedString(cmd, "model")
	if verbose, _ := flags.GetBool("verbose"); verbose && f.LogLevel == nil {
		debug := "debug"
		f.LogLevel = &debug
	}
	if flags.Lookup("addr") != nil {
		f.Addr = changedString(cmd, "addr")
	}

	cfg.MergeWithFlags(f)
	cfg.MergeEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// changedString returns the flag value only when it was set explicitly.
func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

// openLogger logs to the console and, when the log directory is usable, to
// a run log file. The returned func closes the file.
func openLogger(cmd *cobra.Command, cfg *config.Config) (logger.Logger, func()) {
	console := logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)
	if cfg.LogDir == "" {
		return console, func() {}
	}

	file, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		console.LogWarn(fmt.Sprintf("run log disabled: %v", err))
		return console, func() {}
	}
	console.LogDebug("run log: " + file.Path())
	return logger.NewMultiLogger(console, file), func() { file.Close() }
}
