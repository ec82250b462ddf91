package main

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"
)

// demoToken lets favorites work against the stand-in API.
const demoToken = "demo"

func newDemoCmd(opts *rootOptions) *cobra.Command {
	si := &standIn{}

	cmd := &cobra.Command{
		Use:   "demo [notice-id]",
		Short: "Open the TUI against the built-in stand-in API",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			srv, f, err := si.server()
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			served := make(chan error, 1)
			go func() { served <- serveUntilDone(ctx, ln, srv.Handler()) }()

			cfg.API.BaseURL = "http://" + ln.Addr().String() + "/api"
			if cfg.API.Token == "" {
				cfg.API.Token = demoToken
			}
			cfg.Watchlists = nil

			initial := ""
			switch {
			case len(args) == 1:
				initial = args[0]
			case len(f.Notices) > 0:
				initial = f.Notices[0].ID
			}

			runErr := runTUI(ctx, cfg, opts, initial)
			cancel()
			if err := <-served; err != nil {
				cmd.PrintErrln("stand-in API:", err)
			}
			return runErr
		},
	}
	si.register(cmd)
	return cmd
}
