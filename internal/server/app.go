// Package server wires the Tresorly components together and runs the gRPC
// endpoint until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/tresorly/internal/cryptox"
	"github.com/dmitrijs2005/tresorly/internal/logging"
	"github.com/dmitrijs2005/tresorly/internal/server/auth"
	"github.com/dmitrijs2005/tresorly/internal/server/blob"
	"github.com/dmitrijs2005/tresorly/internal/server/breach"
	"github.com/dmitrijs2005/tresorly/internal/server/config"
	gs "github.com/dmitrijs2005/tresorly/internal/server/grpc"
	"github.com/dmitrijs2005/tresorly/internal/server/notify"
	"github.com/dmitrijs2005/tresorly/internal/server/otp"
	"github.com/dmitrijs2005/tresorly/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tresorly/internal/server/services"
	"github.com/redis/go-redis/v9"
)

const cacheSweepInterval = time.Minute

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	cache  otp.Cache
	server *gs.GRPCServer
}

// NewApp opens the database, applies migrations, selects the OTP cache
// backend and builds the services and transport.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	cache, err := newCache(ctx, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	blobs, err := blob.NewS3Store(ctx, blob.S3Config{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
	})
	if err != nil {
		_ = cache.Close()
		_ = db.Close()
		return nil, fmt.Errorf("s3 init error: %w", err)
	}

	hasher := cryptox.NewHasher(c.BcryptCost, c.HashWorkers)
	analyzer := breach.NewAnalyzer(breach.NewRangeClient(c.BreachAPIURL, c.BreachTimeout), logger)
	tokens := auth.NewTokenService(c.AccessTokenSecret, c.RefreshTokenSecret,
		c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	signups := otp.NewRegistry(cache, c.SignupOTPTTL, c.OTPGrace)
	notifier := notify.NewLogNotifier(logger)

	authService := services.NewAuthService(db, rm, hasher, tokens, signups, notifier, c.ResetOTPTTL, logger)
	vaultService := services.NewVaultService(db, rm, hasher, analyzer, blobs, c.MaxIconBytes, logger)
	accountService := services.NewAccountService(db, rm, hasher, logger)

	srv := gs.NewGRPCServer(gs.Options{
		Address:            c.EndpointAddrGRPC,
		CookieSecure:       c.CookieSecure,
		OAuthGatewaySecret: c.OAuthGatewaySecret,
		AuthRateLimit:      c.AuthRateLimit,
		AuthRateBurst:      c.AuthRateBurst,
	}, logger, authService, vaultService, accountService, tokens)

	return &App{config: c, logger: logger, db: db, cache: cache, server: srv}, nil
}

// newCache returns a Redis-backed cache when RedisAddr is set and a
// process-local one otherwise.
func newCache(ctx context.Context, c *config.Config, logger logging.Logger) (otp.Cache, error) {
	if c.RedisAddr == "" {
		logger.Info(ctx, "using in-memory OTP cache")
		return otp.NewMemoryCache(cacheSweepInterval), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	logger.Info(ctx, "using redis OTP cache", "addr", c.RedisAddr)
	return otp.NewRedisCache(client), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server failed", "error", err)
		cancelFunc()
	}
}

// Run serves until a signal arrives or the server fails, then releases the
// cache and the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.close(context.Background())
}

func (app *App) close(ctx context.Context) {
	if err := app.cache.Close(); err != nil {
		app.logger.Error(ctx, "cache close failed", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}
