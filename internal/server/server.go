package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/subsmanager/subs_ledger/internal/account"
	"github.com/subsmanager/subs_ledger/internal/catalog"
	"github.com/subsmanager/subs_ledger/internal/config"
	"github.com/subsmanager/subs_ledger/internal/expiry"
	"github.com/subsmanager/subs_ledger/internal/ledger"
	"github.com/subsmanager/subs_ledger/internal/notification"
	"github.com/subsmanager/subs_ledger/internal/routes"
	"github.com/subsmanager/subs_ledger/internal/wallet"
)

// Server wraps the Fiber application, shared dependencies, and the expiry
// scheduler lifecycle.
type Server struct {
	app       *fiber.App
	cfg       config.Config
	scheduler *expiry.Scheduler
}

// New assembles the ledger engine: stores, services, the HTTP surface, and
// the expiry scheduler. Without a database it falls back to the in-memory
// backends, which is only meant for local development.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	var (
		store       ledger.Store
		accountRepo account.Repository
		source      catalog.Source
		notices     expiry.NoticeStore
	)
	if db != nil {
		store = ledger.NewPostgresStore(db)
		accountRepo = account.NewPostgresRepository(db)
		source = catalog.NewPostgresSource(db)
		notices = expiry.NewPostgresNoticeStore(db)
	} else {
		store = ledger.NewInMemory()
		accountRepo = account.NewMemoryRepository()
		source = catalog.NewMemorySource()
		notices = expiry.NewMemoryNoticeStore()
	}

	accounts := account.NewService(accountRepo, store)
	wallets := wallet.NewService(store, accounts)
	notifier := notification.NewLoggerNotifier(logger)
	expirySvc := expiry.NewService(source, notices, notifier, logger, cfg.ExpiryWindowDays)
	scheduler := expiry.NewScheduler(expirySvc, logger, cfg.ScanHour, cfg.ScanMinute, cfg.ScanLocation())

	err := routes.Setup(app, routes.Deps{
		Cfg:      cfg,
		DB:       db,
		Cache:    cache,
		Logger:   logger,
		Wallets:  wallets,
		Accounts: accounts,
		Expiry:   expirySvc,
	})
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, scheduler: scheduler}, nil
}

// Listen starts the expiry scheduler and the HTTP server.
func (s *Server) Listen() error {
	s.scheduler.Start()
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server and the scheduler.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return err
	}
	return s.scheduler.Stop(ctx)
}
