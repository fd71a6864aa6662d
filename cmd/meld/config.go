package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/meld/internal/config"
	"github.com/vango-dev/meld/internal/errors"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check meld configuration",
	}
	cmd.AddCommand(configInitCmd(), configCheckCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	var yaml bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a configuration file with the defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			name := config.ConfigFileName
			if yaml {
				name = config.YAMLConfigFileName
			}
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return errors.New("M060").WithDetail(path + " already exists")
			}
			if err := config.New().SaveTo(path); err != nil {
				return err
			}
			success("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yaml, "yaml", false, "Write meld.yaml instead of meld.json")

	return cmd
}

func configCheckCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(runFlags{configPath: path})
			if err != nil {
				return err
			}
			success("Configuration is valid")
			info("transport  %s (%s)", cfg.Transport.URL, cfg.Transport.Codec)
			info("debounce   %s", cfg.DebounceDuration())
			info("poll       %s", cfg.PollDuration())
			info("snapshots  %s", cfg.Snapshot.Backend)
			if cfg.Control.Addr != "" {
				info("control    %s", cfg.Control.Addr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "config", "c", "", "Path to meld.json or meld.yaml")

	return cmd
}
