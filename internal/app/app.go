package app

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"merchant-verdict/internal/alerting"
	"merchant-verdict/internal/analysis"
	"merchant-verdict/internal/config"
	"merchant-verdict/internal/logging"
	"merchant-verdict/internal/metrics"
	"merchant-verdict/internal/scheduler"
	"merchant-verdict/internal/server"
	"merchant-verdict/internal/service"
	"merchant-verdict/internal/source"
	"merchant-verdict/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logging.Component(logger, "app"), Out: os.Stdout}
}

func (a *App) newEngine() (*analysis.Engine, *analysis.ArbitrageFinder, error) {
	engine, err := analysis.NewEngine(a.Config.Policy, a.Logger)
	if err != nil {
		return nil, nil, err
	}
	return engine, analysis.NewArbitrageFinder(a.Config.Policy, a.Logger), nil
}

func (a *App) fileSource() *source.FileSource {
	return source.NewFileSource(a.Config.Source.Dir, a.Config.Source.DefaultMarketplace, a.Logger)
}

// newSource prefers the upstream service when a base URL is configured.
func (a *App) newSource() (source.Source, error) {
	if a.Config.Source.BaseURL == "" {
		return a.fileSource(), nil
	}
	return source.NewHTTPSource(source.HTTPOptions{
		BaseURL:   a.Config.Source.BaseURL,
		APIKey:    a.Config.Source.APIKey,
		Timeout:   a.Config.Source.RequestTimeout,
		UserAgent: a.Config.Source.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return alerting.NewLogNotifier(a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// requireStore opens the store or fails with a message naming the command.
func (a *App) requireStore(ctx context.Context, what string) (*storage.Store, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errors.New("database not configured; cannot " + what)
	}
	return store, closeStore, nil
}

// newService wires the sweep service. store and sched may be nil.
func (a *App) newService(store *storage.Store, sched *scheduler.Scheduler, m *metrics.Metrics) (*service.Service, error) {
	engine, finder, err := a.newEngine()
	if err != nil {
		return nil, err
	}
	deps := service.Deps{
		Engine:    engine,
		Finder:    finder,
		Scheduler: sched,
		Notifier:  a.newNotifier(),
		Metrics:   m,
	}
	if store != nil {
		deps.Snapshots = store
		deps.Reports = store
		deps.Alerts = store
		deps.Locker = store
	}
	return service.New(a.Config, deps, a.Logger)
}

// Run executes the scheduled sweep service, with the HTTP API alongside when
// serveAPI is set.
func (a *App) Run(ctx context.Context, serveAPI bool) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.requireStore(ctx, "run sweeps")
	if err != nil {
		return err
	}
	defer closeStore()

	sched, err := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		RunOnStart:   true,
	}, a.Logger)
	if err != nil {
		return err
	}

	m := metrics.New()
	svc, err := a.newService(store, sched, m)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("starting sweep service")
		return svc.Run(gctx)
	})
	if serveAPI {
		srv, err := a.newServer(store, m)
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.ListenAndServe(gctx) })
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("sweep service stopped")
	return nil
}

// Serve runs only the HTTP API. Storage is optional.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; report history endpoints disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	srv, err := a.newServer(store, metrics.New())
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}

func (a *App) newServer(store *storage.Store, m *metrics.Metrics) (*server.Server, error) {
	engine, finder, err := a.newEngine()
	if err != nil {
		return nil, err
	}
	deps := server.Deps{Engine: engine, Finder: finder, Metrics: m}
	if store != nil {
		deps.Reports = store
	}
	return server.New(a.Config.Server, deps, a.Logger), nil
}

// AnalyzeOptions select the snapshots to analyse.
type AnalyzeOptions struct {
	Files       []string
	ASINs       []string
	Marketplace string
	FromStore   bool
	JSON        bool
	Save        bool
}

// ArbitrageOptions select one item across marketplaces.
type ArbitrageOptions struct {
	Files     []string
	ASIN      string
	FromStore bool
	JSON      bool
	PNGPath   string
}

// ImportOptions configure a directory import.
type ImportOptions struct {
	Dir     string
	Analyze bool
}

// ListOptions configure the list command.
type ListOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting report history.
type ExportOptions struct {
	ASIN      string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit  int
	ASIN   string
	Alerts bool
}

// ReanalyzeOptions bound a history replay.
type ReanalyzeOptions struct {
	From time.Time
	To   time.Time
}
