package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/yusf-1/zagrosexpress-main/internal/auth"
	"github.com/yusf-1/zagrosexpress-main/internal/config"
	"github.com/yusf-1/zagrosexpress-main/internal/db"
	httphandler "github.com/yusf-1/zagrosexpress-main/internal/http"
	"github.com/yusf-1/zagrosexpress-main/internal/http/handlers"
	"github.com/yusf-1/zagrosexpress-main/internal/logger"
	"github.com/yusf-1/zagrosexpress-main/internal/messaging"
	"github.com/yusf-1/zagrosexpress-main/internal/middleware"
	"github.com/yusf-1/zagrosexpress-main/internal/repo"
)

const limitWindow = 10 * time.Minute

// limit is one named rate limit
type limit struct {
	name    string
	maxReqs int
}

var (
	createSessionIPLimit = limit{"session_ip", 20}
	sendCodeIPLimit      = limit{"otc_send_ip", 10}
	sendCodePhoneLimit   = limit{"otc_send_phone", 3}
	verifyCodeIPLimit    = limit{"otc_verify_ip", 20}
	verifyCodePhoneLimit = limit{"otc_verify_phone", 10}
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	os.Exit(finish(zlog, run(cfg, zlog)))
}

// finish logs the outcome of run, flushes the logger and returns the process exit code
func finish(zlog *zap.Logger, err error) int {
	code := 0
	if err != nil {
		zlog.Error("server stopped", zap.Error(err))
		code = 1
	}
	_ = zlog.Sync()
	return code
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL, db.DefaultPool, zlog)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	credentialRepo := repo.NewCredentialRepo(database)
	sessionRepo := repo.NewSessionRepo(database)
	codeRepo := repo.NewOneTimeCodeRepo(database)
	roleRepo := repo.NewRoleRepo(database)

	var sender auth.Sender
	if cfg.OTCDevMode {
		zlog.Warn("OTC developer mode is on: codes are fixed and not delivered")
		sender = messaging.NopSender{Log: zlog}
	} else {
		sender = messaging.NewTwilioWhatsApp(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, zlog)
	}

	binder := auth.NewDeviceBinder(credentialRepo, zlog)
	sessionService := auth.NewSessionService(credentialRepo, sessionRepo, binder, cfg.SessionTTL, zlog)
	credentialService := auth.NewCredentialService(credentialRepo, zlog)
	codeService := auth.NewCodeService(codeRepo, sender, cfg.OTCSalt, cfg.OTCDevMode, zlog)
	directoryTokens := auth.NewDirectoryTokens(cfg.AdminJWTSecret)

	newLimiter, closeLimiters := limiterFactory(ctx, cfg.RedisURL, zlog)
	defer closeLimiters()

	router := httphandler.NewRouter(httphandler.RouterDeps{
		Wholesale: handlers.NewWholesaleHandler(sessionService, zlog),
		OTC: handlers.NewOTCHandler(codeService,
			newLimiter(sendCodePhoneLimit),
			newLimiter(verifyCodePhoneLimit),
			zlog),
		Admin:    handlers.NewAdminHandler(credentialService, sessionService, zlog),
		Sessions: sessionService,
		Tokens:   directoryTokens,
		Roles:    roleRepo,
		Limiters: httphandler.Limiters{
			CreateSession: newLimiter(createSessionIPLimit),
			SendCode:      newLimiter(sendCodeIPLimit),
			VerifyCode:    newLimiter(verifyCodeIPLimit),
		},
		Log: zlog,
	})

	sweeper := auth.NewSweeper(sessionRepo, codeRepo, cfg.SweepInterval, zlog)
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	zlog.Info("server exited")
	return nil
}

// limiterFactory returns Redis-backed limiters when REDIS_URL is set and reachable,
// in-memory ones otherwise.
func limiterFactory(ctx context.Context, redisURL string, zlog *zap.Logger) (func(limit) middleware.Limiter, func()) {
	memory := func(l limit) middleware.Limiter {
		return middleware.NewRateLimiter(ctx, limitWindow, l.maxReqs)
	}
	if redisURL == "" {
		return memory, func() {}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		zlog.Warn("invalid REDIS_URL, using in-memory rate limits", zap.Error(err))
		return memory, func() {}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		zlog.Warn("redis unreachable, using in-memory rate limits", zap.Error(err))
		_ = client.Close()
		return memory, func() {}
	}

	zlog.Info("rate limits shared through redis", zap.String("addr", opts.Addr))
	return func(l limit) middleware.Limiter {
		return middleware.NewRedisLimiter(client, l.name, limitWindow, l.maxReqs, zlog)
	}, func() { _ = client.Close() }
}
