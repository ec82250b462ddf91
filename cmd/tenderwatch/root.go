package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/tenderwatch/internal/api"
	"github.com/abelbrown/tenderwatch/internal/config"
	"github.com/abelbrown/tenderwatch/internal/coord"
	"github.com/abelbrown/tenderwatch/internal/feed"
	"github.com/abelbrown/tenderwatch/internal/logging"
	"github.com/abelbrown/tenderwatch/internal/model"
	"github.com/abelbrown/tenderwatch/internal/otel"
	"github.com/abelbrown/tenderwatch/internal/panel"
	"github.com/abelbrown/tenderwatch/internal/store"
	"github.com/abelbrown/tenderwatch/internal/ui"
)

// feedTimeout bounds a single watchlist request.
const feedTimeout = 30 * time.Second

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	apiURL     string
	lang       string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "tenderwatch [notice-id]",
		Short:        "Browse procurement notices with AI summaries and document analysis",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			initial := ""
			if len(args) == 1 {
				initial = args[0]
			}
			return runTUI(cmd.Context(), cfg, opts, initial)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default ~/.tenderwatch/config.json)")
	pf.StringVar(&opts.apiURL, "api", "", "API base URL, e.g. https://host/api")
	pf.StringVar(&opts.lang, "lang", "", "language for summaries, analyses and answers")
	pf.BoolVar(&opts.debug, "debug", false, "debug logging")

	root.AddCommand(
		newDemoCmd(opts),
		newServeCmd(),
		newRecentCmd(opts),
		newEventsCmd(),
	)
	return root
}

// loadConfig reads the config file, then applies environment and flags in
// that order.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if opts.apiURL != "" {
		cfg.API.BaseURL = opts.apiURL
	}
	if opts.lang != "" {
		cfg.SetLanguage(opts.lang)
	}
	return cfg, nil
}

// openDataDir creates the data directory and returns its path.
func openDataDir() (string, error) {
	dir := config.DataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// runTUI wires the client, store, coordinator and UI and blocks until the
// user quits or ctx is cancelled.
func runTUI(ctx context.Context, cfg *config.Config, opts *rootOptions, initial string) error {
	dataDir, err := openDataDir()
	if err != nil {
		return err
	}
	if err := logging.Init(dataDir, opts.debug); err != nil {
		return err
	}
	defer logging.Close()

	eventsFile, err := os.OpenFile(eventLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer eventsFile.Close()
	events := otel.NewLogger(eventsFile)
	defer events.Close()
	events.Info(otel.KindStartup, "main", "tenderwatch "+api.Version)

	client, err := api.NewClient(cfg.API.BaseURL, api.Session{Token: cfg.API.Token},
		api.WithRateLimit(cfg.API.RequestsPerSecond),
		api.WithRetryMax(cfg.API.RetryMax),
		api.WithEvents(events),
	)
	if err != nil {
		return err
	}

	st, err := store.Open(filepath.Join(dataDir, "tenderwatch.db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app := ui.NewApp(ui.AppConfig{
		Panel: panel.Config{
			Backend:   client,
			Languages: cfg.Language.Available,
			Language:  cfg.Language.Default,
			Context:   ctx,
			Timeout:   cfg.Timeout(),
			Events:    events,
			Markdown:  cfg.UI.Markdown,
			ShowLots:  cfg.UI.ShowLots,
			OnLoaded:  recordVisit(st),
		},
		LoadInbox:     loadInbox(st),
		InitialNotice: initial,
	})

	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	sources := make([]feed.Source, 0, len(cfg.Watchlists))
	for _, w := range cfg.Watchlists {
		sources = append(sources, feed.Source{Name: w.Name, URL: w.URL})
	}
	coordinator := coord.NewCoordinator(st, feed.NewFetcher(feedTimeout), sources, events)
	coordinator.Start(ctx, program)

	_, runErr := program.Run()

	// Graceful shutdown
	cancel()
	coordinator.Wait()
	events.Info(otel.KindShutdown, "main", "")
	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("run program: %w", runErr)
	}
	return nil
}

// recordVisit stores the notice in the visit history once it is ready.
func recordVisit(st *store.Store) func(model.Notice) tea.Cmd {
	return func(n model.Notice) tea.Cmd {
		return func() tea.Msg {
			if err := st.RecordVisit(n, time.Now()); err != nil {
				logging.Warn("record visit failed", "notice", n.ID, "error", err)
			}
			return nil
		}
	}
}

// recentLimit and inboxLimit bound what the inbox screen shows.
const (
	recentLimit = 15
	inboxLimit  = 200
)

// loadInbox reads recent visits and watchlist entries for the inbox screen.
func loadInbox(st *store.Store) func() tea.Cmd {
	return func() tea.Cmd {
		return func() tea.Msg {
			visits, err := st.RecentVisits(recentLimit)
			if err != nil {
				return ui.InboxLoaded{Err: err}
			}
			recent := make([]model.InboxEntry, 0, len(visits))
			for _, v := range visits {
				recent = append(recent, model.InboxEntry{
					NoticeID:  v.NoticeID,
					Title:     v.Title,
					Published: v.VisitedAt,
				})
			}
			entries, err := st.InboxEntries(inboxLimit)
			if err != nil {
				return ui.InboxLoaded{Err: err}
			}
			return ui.InboxLoaded{Recent: recent, Entries: entries}
		}
	}
}
