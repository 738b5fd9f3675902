// Package server wires the auth service together: configuration, the
// PostgreSQL credential store, the Redis blacklist, the session services and
// the HTTP and gRPC endpoints.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/blacklist"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/password"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/rest"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

type App struct {
	config    *config.Config
	proxies   []netip.Prefix
	logger    logging.Logger
	db        *sql.DB
	rdb       *redis.Client
	blacklist *blacklist.RedisBlacklist
	users     *services.UserService
	sessions  *services.SessionService
}

// NewApp connects to the stores, applies migrations and builds the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	proxies, err := c.TrustedProxyPrefixes()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	bl := blacklist.NewRedisBlacklist(rdb, common.BlacklistNamespace, c.EffectiveBlacklistTTL())
	if err := bl.Ping(ctx); err != nil {
		logger.Warn(ctx, "redis unreachable at startup", "addr", c.RedisAddr, "err", err)
	}

	issuer, err := auth.NewIssuer([]byte(c.SecretKey), c.SigningAlgorithm,
		c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	if err != nil {
		_ = db.Close()
		_ = rdb.Close()
		return nil, err
	}

	sameSite, err := auth.ParseSameSite(c.AccessTokenCookieSameSite)
	if err != nil {
		_ = db.Close()
		_ = rdb.Close()
		return nil, err
	}

	hasher, err := password.NewArgon2(password.Params{
		Memory:      c.Argon2Memory,
		Time:        c.Argon2Time,
		Parallelism: c.Argon2Parallelism,
	})
	if err != nil {
		_ = db.Close()
		_ = rdb.Close()
		return nil, err
	}

	tx := dbx.NewTransactor(db, nil)
	sigs := services.NewSignatureRegistry(repos)
	us := services.NewUserService(db, tx, repos, sigs, hasher, logger)
	ss := services.NewSessionService(services.SessionDeps{
		DB:         db,
		Tx:         tx,
		Repos:      repos,
		Users:      us,
		Signatures: sigs,
		Issuer:     issuer,
		Hasher:     hasher,
		Blacklist:  bl,
		Cookies: auth.CookiePolicy{
			Name:     c.AccessTokenCookieName,
			Secure:   c.AccessTokenCookieSecure,
			HTTPOnly: c.AccessTokenCookieHTTPOnly,
			SameSite: sameSite,
			MaxAge:   c.AccessTokenValidityDuration,
		},
		Logger: logger,
	})

	return &App{
		config:    c,
		proxies:   proxies,
		logger:    logger,
		db:        db,
		rdb:       rdb,
		blacklist: bl,
		users:     us,
		sessions:  ss,
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
		signal.Stop(sigs)
	}()
}

type dbPinger struct{ db *sql.DB }

func (p dbPinger) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Run serves HTTP and gRPC until a signal arrives or one of them fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	httpSrv := rest.NewServer(app.config.EndpointAddrHTTP, app.sessions, app.config.AccessTokenCookieName, app.proxies, app.logger)
	grpcSrv := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, map[string]gs.Pinger{
		"postgres": dbPinger{app.db},
		"redis":    app.blacklist,
	})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	run := func(name string, fn func(context.Context) error) {
		defer wg.Done()
		if err := fn(ctx); err != nil {
			app.logger.Error(ctx, "server failed", "server", name, "err", err)
			mu.Lock()
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			mu.Unlock()
			cancelFunc()
		}
	}

	wg.Add(2)
	go run("http", httpSrv.Run)
	go run("grpc", grpcSrv.Run)
	wg.Wait()

	app.logger.Info(ctx, "App stopped")
	return errors.Join(errs...)
}

// Close releases the database pool and the Redis client.
func (app *App) Close() error {
	return errors.Join(app.db.Close(), app.rdb.Close())
}
