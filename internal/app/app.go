package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/godilite/driver-compliance/internal/config"
	"github.com/godilite/driver-compliance/internal/embedtoken"
	handler "github.com/godilite/driver-compliance/internal/grpc"
	"github.com/godilite/driver-compliance/internal/httpapi"
	"github.com/godilite/driver-compliance/internal/repository"
	"github.com/godilite/driver-compliance/internal/service"
	"github.com/godilite/driver-compliance/pkg/cache"
	dbbuilder "github.com/godilite/driver-compliance/pkg/database"
	grpcsrv "github.com/godilite/driver-compliance/pkg/grpc/server"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const (
	shutdownTimeout   = 10 * time.Second
	cacheKeyPrefix    = "driver-compliance:"
	readHeaderTimeout = 5 * time.Second
)

type App struct {
	logger       *zap.Logger
	dbPool       *sql.DB
	cache        *cache.Cache
	grpcServer   *grpcsrv.Server
	httpServer   *http.Server
	httpListener net.Listener
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	profiles, err := a.newProfileRepository(ctx, cfg)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	issuer, err := embedtoken.NewIssuer(cfg.MetabaseSiteURL, cfg.MetabaseSecretKey,
		embedtoken.WithTTL(cfg.EmbedTokenTTL),
	)
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("embed issuer init failed: %w", err)
	}
	logger.Info("Embed issuer initialized", zap.Stringer("issuer", issuer))

	profileService := service.NewProfileService(profiles, issuer, service.EmbedSettings{
		DashboardID: cfg.EmbedDashboardID,
		TokenTTL:    cfg.EmbedTokenTTL,
		DriverParam: cfg.EmbedDriverParam,
	}, cfg.ProfileFetchTimeout, logger)

	grpcHandlers := handler.NewGRPCHandlers(profileService, logger)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HTTPPort))
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("failed to listen on http port %d: %w", cfg.HTTPPort, err)
	}
	a.httpListener = lis

	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
	)
	if err != nil {
		_ = lis.Close()
		a.closeResources()
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}
	grpcServer.RegisterServiceWithHealth(handler.ServiceName, func(s *grpc.Server) {
		handler.RegisterDriverProfileServer(s, grpcHandlers)
	})
	a.grpcServer = grpcServer

	a.httpServer = &http.Server{
		Handler:           httpapi.NewServer(profileService, logger).Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return a, nil
}

func (a *App) newProfileRepository(ctx context.Context, cfg *config.Config) (service.ProfileRepository, error) {
	var source repository.ProfileSource

	switch cfg.ProfileSource {
	case config.ProfileSourceSQLite:
		opts := []dbbuilder.Option{
			dbbuilder.WithDriver(cfg.DBDriver),
			dbbuilder.WithDataSource(cfg.DBPath),
			dbbuilder.WithInit(repository.Migrate),
		}
		if cfg.DBPath == ":memory:" {
			// each connection would otherwise see its own empty database
			opts = append(opts, dbbuilder.WithMaxOpenConns(1))
		}
		dbPool, err := dbbuilder.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		a.dbPool = dbPool
		a.logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))
		source = repository.NewSQLiteProfileRepository(dbPool)

	case config.ProfileSourceHTTP:
		httpRepo, err := repository.NewHTTPProfileRepository(cfg.ProfileAPIBaseURL, &http.Client{Timeout: cfg.ProfileFetchTimeout})
		if err != nil {
			return nil, fmt.Errorf("profile api init failed: %w", err)
		}
		a.logger.Info("Profile API client initialized", zap.String("base_url", cfg.ProfileAPIBaseURL))
		source = httpRepo

	default:
		return nil, fmt.Errorf("%w: unknown profile source %q", config.ErrConfiguration, cfg.ProfileSource)
	}

	if !cfg.ProfileCacheEnabled {
		return source, nil
	}

	cacheClient, err := cache.New(ctx,
		cache.WithAddress(cfg.RedisAddr),
		cache.WithKeyPrefix(cacheKeyPrefix),
	)
	if err != nil {
		return nil, fmt.Errorf("cache init failed: %w", err)
	}
	a.cache = cacheClient
	a.logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.ProfileCacheTTL))

	return repository.NewCachedProfileRepository(source, cacheClient, cfg.ProfileCacheTTL, a.logger), nil
}

// Run serves gRPC and HTTP until ctx is done, a shutdown signal arrives or
// either server fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("application starting", zap.String("http_addr", a.httpListener.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(a.grpcServer.Serve)

	g.Go(func() error {
		if err := a.httpServer.Serve(a.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("application shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http shutdown error", zap.Error(err))
		}
		if err := a.grpcServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("grpc shutdown error", zap.Error(err))
		}
		return nil
	})

	err := g.Wait()
	a.closeResources()

	if err == nil {
		a.logger.Info("graceful shutdown completed successfully")
	}
	_ = a.logger.Sync()
	return err
}

func (a *App) closeResources() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("cache shutdown error", zap.Error(err))
		}
	}
	if a.dbPool != nil {
		if err := a.dbPool.Close(); err != nil {
			a.logger.Error("database shutdown error", zap.Error(err))
		}
	}
}
