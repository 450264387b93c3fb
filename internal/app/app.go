package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"scan-alert-relay/internal/auth"
	"scan-alert-relay/internal/config"
	"scan-alert-relay/internal/dispatch"
	"scan-alert-relay/internal/market"
	"scan-alert-relay/internal/processor"
	"scan-alert-relay/internal/ratelimit"
	"scan-alert-relay/internal/server"
	"scan-alert-relay/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newTokenSource() auth.Source {
	var source auth.Source = auth.Static{Value: a.Config.Market.AccessToken}
	if a.Config.Market.TokenFile != "" {
		source = auth.NewFileCache(a.Config.Market.TokenFile, source, a.Logger)
	}
	return source
}

func (a *App) newAggregator() *market.Aggregator {
	cfg := a.Config.Market
	fetcher := market.NewFyers(market.FyersOptions{
		BaseURL:   cfg.BaseURL,
		AppID:     cfg.AppID,
		Timeout:   cfg.RequestTimeout,
		UserAgent: a.Config.App.Name,
	}, a.newTokenSource(), a.Logger)

	cache := market.NewCache(cfg.CacheTTL)
	return market.NewAggregator(cache, fetcher, cfg.LookbackDays, a.Logger)
}

func (a *App) newDispatcher(budget *ratelimit.Budget) *dispatch.Dispatcher {
	tg := a.Config.Telegram
	transport := dispatch.NewTelegramTransport(tg.BotToken, tg.APIBase, tg.RequestTimeout, a.Logger)

	policy := dispatch.Policy{
		AcquireTimeout: a.Config.Dispatch.AcquireTimeout,
		AttemptTimeout: tg.RequestTimeout,
		MaxRetries:     a.Config.Dispatch.MaxRetries,
		InitialBackoff: a.Config.Dispatch.InitialBackoff,
		MaxBackoff:     a.Config.Dispatch.MaxBackoff,
	}
	return dispatch.NewDispatcher(transport, budget, policy, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newProcessor(store *storage.Store, budget *ratelimit.Budget) *processor.Processor {
	var logStore storage.AlertLogStore
	if store != nil {
		logStore = store
	}

	return processor.New(
		a.newAggregator(),
		a.newDispatcher(budget),
		logStore,
		a.Config.Telegram.ChatID,
		a.Config.Telegram.ParseMode,
		a.Logger,
	)
}

// Run executes the long-running webhook relay: the HTTP listener plus the
// permit replenisher, both until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; alert history disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	budget := ratelimit.NewBudget(a.Config.Dispatch.MaxPerSecond, a.Logger)
	proc := a.newProcessor(store, budget)

	srv := server.New(a.Config.Server, &alertHandler{processor: proc, logger: a.Logger}, a.Logger)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return budget.RunReplenisher(groupCtx, time.Second)
	})

	group.Go(func() error {
		return srv.Start()
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	a.Logger.Info().Msg("starting alert relay")
	err = group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("relay terminated with error")
		return err
	}

	a.Logger.Info().Msg("alert relay stopped")
	return nil
}

// ExportOptions hold parameters for exporting stored return history.
type ExportOptions struct {
	Symbol    string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// SimulateOptions describe a synthetic alert.
type SimulateOptions struct {
	AlertName     string
	ScanName      string
	Stocks        string
	TriggerPrices string
}
