package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rustyeddy/propbot/broker"
	"github.com/rustyeddy/propbot/config"
	"github.com/rustyeddy/propbot/earnings"
	"github.com/rustyeddy/propbot/engine"
	"github.com/rustyeddy/propbot/history"
	"github.com/rustyeddy/propbot/journal"
	"github.com/rustyeddy/propbot/logging"
	"github.com/rustyeddy/propbot/market"
	"github.com/rustyeddy/propbot/metrics"
	"github.com/rustyeddy/propbot/news"
	"github.com/rustyeddy/propbot/notify"
	"github.com/rustyeddy/propbot/risk"
	"github.com/rustyeddy/propbot/sim"
)

// newsTTL bounds how often the calendar is downloaded.
const newsTTL = 30 * time.Minute

// app is the wired process: every collaborator the engine needs plus the
// resources to release on exit.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	catalog  *market.Catalog
	paper    *sim.Venue
	venue    broker.Venue
	bars     market.BarSource
	journal  journal.Journal
	earnings earnings.Store
	fetcher  earnings.Fetcher
	engine   *engine.Engine

	closers []io.Closer
}

func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	log, lc := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	a = &app{cfg: cfg, log: log, closers: []io.Closer{lc}}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.catalog = market.DefaultCatalog()
	if cfg.Paths.Catalog != "" {
		if a.catalog, err = market.LoadCatalog(cfg.Paths.Catalog); err != nil {
			return a, fmt.Errorf("catalog: %w", err)
		}
	}

	policy, err := cfg.Policy()
	if err != nil {
		return a, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	exchange, err := cfg.ExchangeLocation()
	if err != nil {
		return a, fmt.Errorf("%w: exchange zone: %v", config.ErrInvalid, err)
	}
	shieldAt, err := risk.ParseClock(cfg.Schedule.EarningsShield)
	if err != nil {
		return a, fmt.Errorf("%w: earnings shield: %v", config.ErrInvalid, err)
	}

	a.bars = market.BarsWithTimeout(history.FileSource{Dir: cfg.Paths.DataDir}, cfg.Timeouts.Feed.D())

	a.paper = sim.New(broker.Account{ID: "paper", Currency: cfg.Account.Currency, Balance: cfg.Paper.Balance}, a.catalog)
	if err := a.paper.MarkFromBars(ctx, a.bars, a.catalog.Symbols()); err != nil {
		log.Warn("some symbols have no quote", "err", err)
	}
	a.venue = broker.WithTimeout(a.paper, cfg.Timeouts.Venue.D())
	if _, err := a.venue.Account(ctx); err != nil {
		return a, fmt.Errorf("venue: %w", err)
	}

	if a.journal, err = openJournal(cfg); err != nil {
		return a, err
	}
	a.closers = append(a.closers, a.journal)

	if a.earnings, err = openEarnings(ctx, cfg); err != nil {
		return a, err
	}
	if c, ok := a.earnings.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	if cfg.Earnings.APIKey != "" {
		a.fetcher = &earnings.AlphaVantage{
			URL:     cfg.Earnings.URL,
			APIKey:  cfg.Earnings.APIKey,
			Horizon: cfg.Earnings.Horizon,
			HTTP:    &http.Client{Timeout: cfg.Timeouts.Feed.D()},
		}
	}

	var senders []notify.Sender
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Telegram.Token, cfg.Telegram.ChatID))
	}

	a.engine, err = engine.New(engine.Options{
		Venue:   a.venue,
		Bars:    a.bars,
		Catalog: a.catalog,
		Policy:  policy,
		Signals: cfg.SignalParams(),
		News: &news.Cached{
			Feed: &news.FFClient{
				URL:  cfg.News.URL,
				HTTP: &http.Client{Timeout: cfg.Timeouts.Feed.D()},
				Log:  logging.Component(log, "news"),
			},
			TTL: newsTTL,
		},
		Earnings:        a.earnings,
		Fetcher:         a.fetcher,
		Journal:         a.journal,
		Notifier:        notify.NewNotifier(senders, nil, log),
		Metrics:         metrics.New(),
		Log:             log,
		AccountCurrency: cfg.Account.Currency,
		Magic:           cfg.Account.Magic,
		TradeAllowed:    cfg.Account.TradeAllowed,
		Deviation:       20,
		FastInterval:    cfg.Schedule.FastInterval.D(),
		SlowInterval:    cfg.Schedule.SlowInterval.D(),
		FeedTimeout:     cfg.Timeouts.Feed.D(),
		ShieldAt:        shieldAt,
		ExchangeZone:    exchange,
		MetricsAddr:     cfg.Metrics.Addr,
	})
	if err != nil {
		return a, err
	}
	return a, nil
}

// openJournal writes CSV always and SQLite when a database path is set.
func openJournal(cfg *config.Config) (journal.Journal, error) {
	csv, err := journal.NewCSV(cfg.Paths.JournalCSV)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	if cfg.Paths.JournalDB == "" {
		return csv, nil
	}
	db, err := journal.NewSQLite(cfg.Paths.JournalDB)
	if err != nil {
		_ = csv.Close()
		return nil, fmt.Errorf("journal db: %w", err)
	}
	return journal.Multi{csv, db}, nil
}

func openEarnings(ctx context.Context, cfg *config.Config) (earnings.Store, error) {
	switch cfg.Earnings.Source {
	case "redis":
		rc, err := earnings.NewRedisCache(ctx, earnings.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		})
		if err != nil {
			return nil, fmt.Errorf("earnings cache: %w", err)
		}
		return rc, nil
	default:
		return &earnings.FileCache{Path: cfg.Paths.EarningsCache}, nil
	}
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
