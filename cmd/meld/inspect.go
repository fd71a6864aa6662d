package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/meld/internal/config"
	"github.com/vango-dev/meld/internal/errors"
	"github.com/vango-dev/meld/pkg/engine"
)

func inspectCmd() *cobra.Command {
	var (
		addr   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [component-id]",
		Short: "Show the components of a running meld",
		Long: `Query the control API of a running 'meld run' and print its components.

Examples:
  meld inspect
  meld inspect c1 --json
  meld inspect --addr 127.0.0.1:7070`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = config.DefaultControlAddr
				if cfg, err := config.LoadFromWorkingDir(); err == nil && cfg.Control.Addr != "" {
					addr = cfg.Control.Addr
				}
			}
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runInspect(cmd.Context(), os.Stdout, addr, id, asJSON)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Control API address (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")

	return cmd
}

func runInspect(ctx context.Context, w io.Writer, addr, id string, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := "http://" + strings.TrimPrefix(addr, "http://") + "/components"
	if id != "" {
		url += "/" + id + "?markup=1"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.New("M060").WithDetail("control API unreachable at " + addr).Wrap(err).
			WithSuggestion("Start meld with 'meld run <page> --control " + addr + "'")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return errors.New("M060").WithDetailf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if asJSON {
		_, err := w.Write(body)
		return err
	}

	var infos []engine.Info
	if id != "" {
		var one engine.Info
		if err := json.Unmarshal(body, &one); err != nil {
			return err
		}
		infos = append(infos, one)
	} else if err := json.Unmarshal(body, &infos); err != nil {
		return err
	}
	printInfos(w, infos)
	if id != "" && len(infos) == 1 && infos[0].Markup != "" {
		fmt.Fprintf(w, "\n%s\n", infos[0].Markup)
	}
	return nil
}

func printInfos(w io.Writer, infos []engine.Info) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tELEMENTS\tQUEUED\tIN FLIGHT\tEVENTS")
	for _, in := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%v\t%s\n",
			in.ID, in.Name, in.Elements, len(in.Queue), in.InFlight, strings.Join(in.Events, ","))
	}
	tw.Flush()
}
