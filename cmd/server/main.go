// Command universal-api starts the Universal API HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/and161185/universal-api/internal/config"
	"github.com/and161185/universal-api/internal/identity"
	"github.com/and161185/universal-api/internal/limiter"
	"github.com/and161185/universal-api/internal/logging"
	"github.com/and161185/universal-api/internal/metrics"
	"github.com/and161185/universal-api/internal/migrate"
	"github.com/and161185/universal-api/internal/repository"
	"github.com/and161185/universal-api/internal/repository/memory"
	"github.com/and161185/universal-api/internal/repository/postgres"
	grpcserver "github.com/and161185/universal-api/internal/server/grpc"
	httpserver "github.com/and161185/universal-api/internal/server/http"
	"github.com/and161185/universal-api/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, prepares storage, and serves HTTP (plus optional gRPC health).
func main() {
	// Flags
	envFile := flag.String("env-file", "", "dotenv file (default $ENV_FILE_OVERRIDE or .env)")
	certFile := flag.String("tls-cert", "", "TLS certificate (PEM); enables TLS with -tls-key")
	keyFile := flag.String("tls-key", "", "TLS private key (PEM)")
	dev := flag.Bool("dev", false, "debug logging and gRPC reflection (dev only)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.New(logging.Options{
		Level:   cfg.Level,
		JSON:    cfg.JSON,
		File:    cfg.File,
		Debug:   cfg.Debug || *dev,
		Service: cfg.ProjectName,
		Version: cfg.Version,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("buildVersion", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("storage", cfg.Driver),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *certFile, *keyFile, *dev); err != nil {
		logger.Error("server error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

type storage struct {
	messages  repository.MessageRepository
	mapStates repository.MapStateRepository
	health    repository.HealthRepository
	lockout   limiter.Limiter
	close     func()
}

func openStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (*storage, error) {
	lockSet := limiter.Settings{Window: cfg.LockoutWindow, MaxFails: cfg.LockoutMaxFails, BlockFor: cfg.LockoutBlock}

	if cfg.Driver == config.DriverMemory {
		st := memory.New()
		s := &storage{messages: st.Messages(), mapStates: st.MapStates(), health: st, lockout: limiter.Nop{}, close: func() {}}
		if lockSet.Enabled() {
			s.lockout = limiter.NewMemory(lockSet)
		}
		return s, nil
	}

	dsn := cfg.DSN()
	if err := migrate.Up(ctx, dsn, logger); err != nil {
		return nil, fmt.Errorf("migrate up: %w", err)
	}
	db, err := postgres.New(ctx, dsn, postgres.Options{MaxConns: cfg.MaxConns, AppName: cfg.ProjectName})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &storage{
		messages:  postgres.NewMessageRepo(db),
		mapStates: postgres.NewMapStateRepo(db),
		health:    postgres.NewHealthRepo(db),
		lockout:   limiter.Nop{},
		close:     db.Close,
	}
	if lockSet.Enabled() {
		s.lockout = limiter.NewPG(db.Pool, lockSet)
	}
	return s, nil
}

func newVerifier(cfg config.Config) (*identity.Verifier, error) {
	vc := identity.VerifierConfig{
		HMACSecret: []byte(cfg.HMACSecret),
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		Leeway:     cfg.Leeway,
	}
	if cfg.PublicKeyFile != "" {
		pem, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		vc.RSAPublicKeyPEM = pem
	}
	return identity.NewVerifier(vc)
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, certFile, keyFile string, dev bool) error {
	verifier, err := newVerifier(cfg)
	if err != nil {
		return err
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	// Services
	m := metrics.New()
	healthSvc := service.NewHealthService(store.health, 2*time.Second)

	handler := httpserver.NewRouter(httpserver.Deps{
		Log:            logger,
		ServiceTag:     cfg.ServiceTag(),
		Messages:       service.NewMessageService(store.messages),
		MapStates:      service.NewMapStateService(store.mapStates),
		Health:         healthSvc,
		Auth:           verifier,
		Lockout:        store.lockout,
		Metrics:        m,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(logger),
	}
	useTLS := certFile != "" && keyFile != ""

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening (http)", zap.String("addr", cfg.HTTPAddr), zap.Bool("tls", useTLS))
		var err error
		if useTLS {
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var hs *grpcserver.HealthServer
	if cfg.GRPCHealthAddr != "" {
		var opts []grpc.ServerOption
		if useTLS {
			creds, err := credentials.NewServerTLSFromFile(certFile, keyFile)
			if err != nil {
				return fmt.Errorf("load TLS cert/key: %w", err)
			}
			opts = append(opts, grpc.Creds(creds))
		}
		hs = grpcserver.NewHealthServer(healthSvc, cfg.HealthProbeInterval, logger, m, opts...)
		if dev {
			hs.EnableReflection()
		}
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		go hs.Run(ctx)
		go func() {
			logger.Info("listening (grpc health)", zap.String("addr", cfg.GRPCHealthAddr))
			if err := hs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- err
			}
		}()
	}

	// Wait for stop
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if hs != nil {
		done := make(chan struct{})
		go func() {
			hs.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
