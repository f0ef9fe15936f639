// Command u2dumpsync keeps a local copy of the RKN registry dump in sync and serves lookups over it.
package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"

	"github.com/usher2/u2dumpsync/internal/config"
	"github.com/usher2/u2dumpsync/internal/logger"
)

const (
	flagConfig   = "config"
	flagLogLevel = "log-level"
)

func main() {
	debug.SetGCPercent(20)

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "u2dumpsync",
		Short:         "RKN registry dump synchronizer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP(flagConfig, "c", "", "config file (default: ./config.yaml or XDG config dir)")
	cmd.PersistentFlags().StringP(flagLogLevel, "l", "", "logging level: debug, info, warn, error")

	cmd.AddCommand(newRunCmd(), newSyncCmd(), newVersionsCmd(), newInitCmd())

	return cmd
}

// loadConfig - config from the --config file with the --log-level override, logger set up.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(flagConfig)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString(flagLogLevel); level != "" {
		cfg.LogLevel = level
	}

	if err := logger.Setup(cfg.LogLevel, os.Stdout, os.Stderr); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Sync periodically and serve the check and metrics listeners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			return runService(cmd.Context(), cfg)
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.syncer.RunLocked(cmd.Context(), a.locker)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: added %d, updated %d, removed %d\n",
				res.State, res.Stats.AddCount, res.Stats.UpdateCount, res.Stats.RemoveCount)

			return nil
		},
	}
}

func newVersionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "Check registry service versions and the last dump date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			msg, err := a.syncer.CheckServiceVersions(cmd.Context())
			if err != nil {
				return err
			}

			if msg == "" {
				msg = "Versions not changed\n"
			}

			last, err := a.remote.GetLastDumpDate(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), msg)
			fmt.Fprintf(cmd.OutOrStdout(), "Last dump date: %s\n", time.UnixMilli(last).UTC().Format(time.DateTime))

			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString(flagConfig)
			if path == "" {
				var err error

				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}

			if err := config.WriteDefault(path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Config written: %s\n", path)

			return nil
		},
	}
}
