package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/tenderwatch/internal/mockapi"
)

// standIn holds the flags shared by demo and serve.
type standIn struct {
	fixture string
	latency time.Duration
}

func (s *standIn) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.fixture, "fixture", "", "YAML fixture (default: built-in demo data)")
	cmd.Flags().DurationVar(&s.latency, "latency", 0, "artificial delay added to every API response")
}

func (s *standIn) server() (*mockapi.Server, *mockapi.Fixture, error) {
	var (
		f   *mockapi.Fixture
		err error
	)
	if s.fixture != "" {
		f, err = mockapi.LoadFixture(s.fixture)
	} else {
		f, err = mockapi.DefaultFixture()
	}
	if err != nil {
		return nil, nil, err
	}
	srv, err := mockapi.New(f, mockapi.WithLatency(s.latency))
	if err != nil {
		return nil, nil, err
	}
	return srv, f, nil
}

// serveUntilDone serves h on ln until ctx is cancelled.
func serveUntilDone(ctx context.Context, ln net.Listener, h http.Handler) error {
	httpSrv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newServeCmd() *cobra.Command {
	si := &standIn{}
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the stand-in procurement API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, f, err := si.server()
			if err != nil {
				return err
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stand-in API with %d notices on http://%s/api\n", len(f.Notices), ln.Addr())
			return serveUntilDone(cmd.Context(), ln, srv.Handler())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	si.register(cmd)
	return cmd
}
