// Package app はアプリケーションの初期化、依存関係のワイヤリング、サブコマンドの実行を行う。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/hitoshi/todoman/internal/auth"
	"github.com/hitoshi/todoman/internal/config"
	"github.com/hitoshi/todoman/internal/database"
	"github.com/hitoshi/todoman/internal/handler"
	"github.com/hitoshi/todoman/internal/logger"
	"github.com/hitoshi/todoman/internal/metrics"
	"github.com/hitoshi/todoman/internal/middleware"
	"github.com/hitoshi/todoman/internal/repository"
	"github.com/hitoshi/todoman/internal/security"
	"github.com/hitoshi/todoman/internal/todo"
)

const (
	dbConnectTimeout = 10 * time.Second
	shutdownTimeout  = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数（.envを含む）でConfigを読み込み、
// 読み込んだLOG_LEVELでロガーを再設定する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み中の警告もJSONで出力する
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	opts, err := ParseOptions(args, w)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if opts.Command == CommandHealthcheck {
		return runHealthcheck(opts.HealthcheckURL, opts.HealthcheckTimeout)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if opts.Port != "" {
		cfg.ServerPort = opts.Port
	}

	slog.Info("starting application",
		slog.String("command", string(opts.Command)),
		slog.String("env", cfg.Env),
		slog.String("port", cfg.ServerPort),
	)

	switch opts.Command {
	case CommandMigrate:
		return runMigrate(cfg, opts)
	default:
		return runServe(cfg)
	}
}

// stores はリポジトリと疎通確認対象をまとめたもの。
type stores struct {
	users  repository.UserRepository
	todos  repository.TodoRepository
	health handler.HealthChecker
	close  func() error
}

// openStores は設定に応じてPostgreSQLまたはインメモリのストアを開く。
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.UsesMemoryStore() {
		slog.Warn("using in-memory store; data is lost on restart")
		return &stores{
			users: repository.NewMemoryUserRepo(),
			todos: repository.NewMemoryTodoRepo(),
			close: func() error { return nil },
		}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	slog.Info("database connection established")

	return &stores{
		users:  repository.NewPostgresUserRepo(db),
		todos:  repository.NewPostgresTodoRepo(db),
		health: db,
		close:  db.Close,
	}, nil
}

// newHandler は全依存関係をワイヤリングしてHTTPハンドラーを構築する。
// 戻り値のstop関数でバックグラウンド処理を停止する。
func newHandler(cfg *config.Config, st *stores, log *slog.Logger) (http.Handler, func(), error) {
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.JWTExpiry,
		Issuer: cfg.JWTIssuer,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create token service: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	authService := auth.NewService(st.users, auth.NewPasswordHasher(cfg.BcryptCost), tokens, collector)
	todoService := todo.NewService(st.todos, security.NewTextSanitizer(), collector)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralLimit: cfg.RateLimitGeneral,
		AuthLimit:    cfg.RateLimitAuth,
		Window:       cfg.RateLimitWindow,
	})

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:                 log,
		CORSAllowedOrigin:      cfg.CORSAllowedOrigin,
		RateLimiter:            rateLimiter,
		TokenVerifier:          tokens,
		TokenRejectionRecorder: collector,
		HTTPRecorder:           collector,
		MetricsHandler:         metrics.Handler(registry),
		HealthChecker:          st.health,
		AuthService:            authService,
		TodoService:            todoService,
	})

	return router, rateLimiter.Stop, nil
}

// runServe はAPIサーバーモードで起動する。
// ストアを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	router, stopBackground, err := newHandler(cfg, st, slog.Default())
	if err != nil {
		return err
	}
	defer stopBackground()

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// 既定ではすべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config, opts *Options) error {
	if cfg.UsesMemoryStore() {
		return errors.New("migrate requires a PostgreSQL DATABASE_URL")
	}

	log := slog.With(slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)))

	var err error
	switch {
	case opts.ShowVersion:
		version, dirty, verr := database.MigrationVersion(cfg.DatabaseURL)
		if verr != nil {
			return verr
		}
		log.Info("current schema version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
		return nil
	case opts.Down:
		log.Info("rolling back all database migrations")
		err = database.RollbackMigrations(cfg.DatabaseURL)
	case opts.Steps != 0:
		log.Info("stepping database migrations", slog.Int("steps", opts.Steps))
		err = database.StepMigrations(cfg.DatabaseURL, opts.Steps)
	default:
		log.Info("running database migrations")
		err = database.RunMigrations(cfg.DatabaseURL)
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(target string, timeout time.Duration) error {
	client := &http.Client{Timeout: timeout}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
