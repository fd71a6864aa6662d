package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/meld/internal/config"
	"github.com/vango-dev/meld/internal/errors"
	"github.com/vango-dev/meld/pkg/control"
	"github.com/vango-dev/meld/pkg/dom"
	"github.com/vango-dev/meld/pkg/engine"
	"github.com/vango-dev/meld/pkg/transport"
)

type runFlags struct {
	configPath string
	url        string
	codec      string
	control    string
	logLevel   string
	restore    bool
}

func runCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run <page.html>",
		Short: "Bind a page and sync it with the server",
		Long: `Load a page, mount every component in it and keep them in sync with
the server until interrupted.

Configuration is read from meld.json or meld.yaml in the current directory
or its parents; flags override it.

Examples:
  meld run index.html
  meld run index.html --url ws://localhost:5000/meld --codec msgpack
  meld run index.html --control 127.0.0.1:7070 --restore`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPage(cmd.Context(), args[0], f)
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to meld.json or meld.yaml")
	cmd.Flags().StringVar(&f.url, "url", "", "WebSocket URL of the server")
	cmd.Flags().StringVar(&f.codec, "codec", "", "Wire codec (json or msgpack)")
	cmd.Flags().StringVar(&f.control, "control", "", "Address of the control API (empty disables it)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&f.restore, "restore", false, "Restore component snapshots after mounting")

	return cmd
}

func loadConfig(f runFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case f.configPath != "":
		cfg, err = config.LoadFile(f.configPath)
	default:
		cfg, err = config.LoadFromWorkingDir()
		if errors.CodeOf(err) == "M050" {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if f.url != "" {
		cfg.Transport.URL = f.url
	}
	if f.codec != "" {
		cfg.Transport.Codec = f.codec
	}
	if f.control != "" {
		cfg.Control.Addr = f.control
	}
	return cfg, cfg.Validate()
}

func runPage(ctx context.Context, page string, f runFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	logger := newLogger(f.logLevel)

	file, err := os.Open(page)
	if err != nil {
		return errors.New("M060").WithDetail(page).Wrap(err)
	}
	doc, err := dom.Parse(file)
	file.Close()
	if err != nil {
		return errors.New("M060").WithDetail(page).Wrap(err)
	}

	deps, err := newRuntimeDeps(cfg)
	if err != nil {
		return err
	}
	defer deps.store.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	topts, err := transportOptions(cfg, deps, logger)
	if err != nil {
		return err
	}
	client, err := transport.Dial(ctx, cfg.Transport.URL, topts...)
	if err != nil {
		return err
	}
	logger.Info("connected", "url", cfg.Transport.URL, "client_id", client.ID())

	eng := engine.New(doc, client, engineOptions(cfg, deps, logger)...)
	defer eng.Close()

	mounted, err := eng.MountAll()
	if err != nil {
		return err
	}
	success("Mounted %d components from %s", len(mounted), page)

	if f.restore {
		for _, c := range mounted {
			ok, err := eng.Restore(ctx, deps.store, c.ID)
			if err != nil {
				return err
			}
			if ok {
				info("restored %s", c.ID)
			}
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- eng.Run(ctx)
	}()
	running := 1
	if cfg.Control.Addr != "" {
		srv := control.New(eng,
			control.WithGatherer(deps.registry),
			control.WithStore(deps.store),
			control.WithLogger(logger))
		info("control API on http://%s", cfg.Control.Addr)
		running++
		go func() {
			errCh <- srv.Run(ctx, cfg.Control.Addr)
		}()
	}

	// The first exit stops everything else.
	err = <-errCh
	cancel()
	for i := 1; i < running; i++ {
		<-errCh
	}
	if err == context.Canceled {
		logger.Info("shutting down")
		return nil
	}
	return err
}
