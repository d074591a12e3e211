package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-access-api/internal/config"
	"github.com/yukikurage/org-access-api/internal/database"
	"github.com/yukikurage/org-access-api/internal/logger"
	"github.com/yukikurage/org-access-api/internal/password"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.InitLogger(logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Connect(cfg.DB, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		zlog.Fatal("Failed to run migrations", zap.Error(err))
	}

	handler := setupRouter(db, routerOptions{
		ServiceName:  cfg.ServiceName,
		SessionStore: newSessionStore(cfg, zlog),
		Logger:       zlog,
		Hasher: password.NewHasher(password.Params{
			MemoryKiB:   cfg.Password.MemoryKiB,
			Iterations:  cfg.Password.Iterations,
			Parallelism: cfg.Password.Parallelism,
		}),
		RequestTimeout:      cfg.DB.QueryTimeout,
		InvitationTTL:       cfg.InvitationTTL,
		SetDealerMaxRetries: cfg.SetDealerMaxRetries,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}
}

// newSessionStore keeps console sessions in Redis. When Redis cannot be
// reached at startup, sessions fall back to signed cookies.
func newSessionStore(cfg *config.Config, zlog *zap.Logger) sessions.Store {
	options := sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}

	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		zlog.Warn("Redis session store unavailable, using cookie sessions",
			zap.String("addr", redisAddr),
			zap.Error(err),
		)
		cookieStore := cookie.NewStore([]byte(cfg.SessionSecret))
		cookieStore.Options(options)
		return cookieStore
	}

	store.Options(options)
	return store
}
