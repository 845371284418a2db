package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cacheadapter "github.com/studentmarketplace/identity-service/internal/adapters/cache"
	httpadapter "github.com/studentmarketplace/identity-service/internal/adapters/http"
	mailadapter "github.com/studentmarketplace/identity-service/internal/adapters/mail"
	"github.com/studentmarketplace/identity-service/internal/adapters/postgres"
	"github.com/studentmarketplace/identity-service/internal/adapters/queue"
	"github.com/studentmarketplace/identity-service/internal/adapters/security"
	"github.com/studentmarketplace/identity-service/internal/application"
	"github.com/studentmarketplace/identity-service/internal/domain"
)

// emailQueueName is the logical consumer queue bound to the email routing key.
const emailQueueName = "identity_email"

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	bus        *queue.Bus
	service    *application.Service
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping identity service", "http_port", cfg.HTTPPort, "environment", cfg.Environment)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	bus, err := queue.NewBus(ctx, queue.Config{
		Brokers:             cfg.KafkaBrokers,
		ConnectAttempts:     cfg.QueueConnectAttempts,
		ConnectRetryDelay:   cfg.QueueConnectRetryDelay,
		MaxDeliveryAttempts: cfg.QueueMaxDeliveryAttempts,
		RetryDelay:          cfg.QueueRetryDelay,
	})
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init delivery bus: %w", err)
	}

	repos := postgres.NewRepositories(pool)
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	signer, err := security.NewJWTSigner(cfg.JWTSecret)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init jwt signer: %w", err)
	}

	engine := application.NewChallengeEngine(repos.Challenges, hasher, bus, cfg.ChallengeTTL, cfg.FrontendHost)
	mailer := mailadapter.NewSMTPMailer(mailadapter.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			AccessTokenTTL:       cfg.AccessTokenTTL,
			RefreshTokenTTLDays:  cfg.RefreshTokenTTLDays,
			ChallengeTTL:         cfg.ChallengeTTL,
			FailedLoginThreshold: cfg.FailedThreshold,
			LockoutDuration:      cfg.LockoutDuration,
			FrontendHost:         cfg.FrontendHost,
		},
		Users:      repos.Users,
		Tokens:     repos.Tokens,
		Challenges: engine,
		Lockouts:   cacheadapter.NewRedisLockoutStore(redisClient),
		Hasher:     hasher,
		Signer:     signer,
		Mailer:     mailer,
	})

	handler := httpadapter.NewHandler(svc, signer, domain.DefaultAuthorizer(), cfg.Environment)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		bus:        bus,
		service:    svc,
		cleanupFn: func(ctx context.Context) {
			_ = bus.Close()
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

// Run serves HTTP and the queue consumers until a shutdown signal arrives.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := r.bus.RegisterHandler(ctx, emailQueueName, application.EmailRoutingKey, r.service.HandleEmailJob); err != nil {
		return fmt.Errorf("register email handler: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.cleanupFn(shutdownCtx)
	return nil
}
