// Package server wires configuration, storage, messaging and the gRPC
// transport together and runs them until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/vaultkeeper/internal/cryptox"
	"github.com/dmitrijs2005/vaultkeeper/internal/logging"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/config"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/events"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/services"
	"github.com/nats-io/nats.go"

	gs "github.com/dmitrijs2005/vaultkeeper/internal/server/grpc"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	nc         *nats.Conn
	subscriber *events.Subscriber
	grpc       *gs.GRPCServer
}

// NewApp validates the configuration, opens the database, applies
// migrations and builds every service. It fails fast on a missing master key.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogBackend, os.Stdout)

	if err := c.Validate(); err != nil {
		return nil, err
	}

	box, err := cryptox.NewBoxFromBase64(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := newBlobStore(ctx, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{config: c, logger: logger, db: db}

	var notifier services.Notifier = events.NopNotifier{}
	if c.NATSURL != "" {
		nc, err := events.Connect(c.NATSURL, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		app.nc = nc
		notifier = events.NewPublisher(nc, c.WelcomeSubject)
	} else {
		logger.Warn(ctx, "NATS_URL not set: payment events and welcome notifications are disabled")
	}

	quota := services.NewQuotaService(db, rm, logger.With("service", "quota"))
	svc := gs.Services{
		Users:   services.NewUserService(db, rm, c, blobs, notifier, logger.With("service", "users")),
		Secrets: services.NewSecretService(db, rm, box, quota, logger.With("service", "secrets")),
		Files:   services.NewFileService(db, rm, box, blobs, quota, logger.With("service", "files")),
		Quota:   quota,
	}

	if app.nc != nil {
		payments := services.NewPaymentService(quota, logger.With("service", "payments"))
		app.subscriber = events.NewSubscriber(app.nc, c.PaymentSubject, payments, logger)
	}

	app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, svc, c.SecretKey, c.LoginRateLimit)
	return app, nil
}

func newBlobStore(ctx context.Context, c *config.Config, logger logging.Logger) (blobstore.Store, error) {
	if c.S3BaseEndpoint == "" {
		logger.Warn(ctx, "no object storage endpoint configured, keeping files in memory")
		return blobstore.NewMemoryStore(), nil
	}
	store, err := blobstore.NewS3Store(ctx, blobstore.S3Options{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("object storage init error: %w", err)
	}
	return store, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpc.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a signal arrives or the server fails, then releases
// the broker and database connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if app.subscriber != nil {
		if err := app.subscriber.Start(); err != nil {
			app.logger.Error(ctx, "payment subscriber failed to start", "error", err)
			cancelFunc()
		}
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.shutdown(ctx)
}

func (app *App) shutdown(ctx context.Context) {
	if app.subscriber != nil {
		if err := app.subscriber.Stop(); err != nil {
			app.logger.Warn(ctx, "failed to drain NATS", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "failed to close database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
