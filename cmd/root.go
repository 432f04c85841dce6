// Package cmd implements the agzip command line.
package cmd

import (
	"fmt"
	"io"
	"os"

	"agzip/lib"
	"agzip/pkg/config"
	"agzip/pkg/logging"
	"agzip/pkg/progress"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	log    *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

// NewRootCmd builds the command tree writing to stdout and stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: config.New(), stdout: stdout, stderr: stderr}
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "agzip",
		Short:         "Compress a directory tree into a ZIP archive and extract it again",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cfgFile)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.agzip.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.Bool("no-progress", false, "do not show a progress bar")
	cobra.CheckErr(config.BindFlag(a.v, config.KeyLogLevel, flags.Lookup("log-level")))

	rootCmd.AddCommand(newCompressCmd(a), newDecompressCmd(a), newListCmd(a))
	return rootCmd
}

func (a *app) setup(cfgFile string) error {
	cfg, err := config.Load(a.v, cfgFile)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	if used := config.Used(a.v); used != "" {
		log.Debug("using config file", zap.String("path", used))
	}
	a.cfg, a.log = cfg, log
	return nil
}

// options translates the loaded configuration into core options.
func (a *app) options(cmd *cobra.Command, description string) lib.Options {
	opts := lib.Options{
		Logger:        a.log,
		Method:        a.cfg.Method,
		Level:         a.cfg.Level,
		KeepEmptyDirs: a.cfg.KeepEmptyDirs,
	}
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	if a.cfg.Progress && !noProgress {
		opts.Progress = progress.New(a.stderr, description)
	}
	return opts
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("✗ %s error:", lib.KindOf(err)), err)
		os.Exit(1)
	}
}
