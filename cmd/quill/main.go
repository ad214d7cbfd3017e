package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/quill-api/quill/cmd/quill/cli"
	"github.com/quill-api/quill/internal/app"
	"github.com/quill-api/quill/internal/audit"
	"github.com/quill-api/quill/internal/observability"
	"github.com/quill-api/quill/internal/platform/cache"
	"github.com/quill-api/quill/internal/platform/db"
	"github.com/quill-api/quill/internal/posts"
	"github.com/quill-api/quill/internal/shared"
	"github.com/quill-api/quill/internal/users"
	"github.com/quill-api/quill/jobs"
)

const usage = `usage: quill [command]

commands:
  serve                 run the HTTP API (default)
  migrate               create or update the database schema
  reset-db [-yes]       drop and recreate every table
  seed                  create the admin account and sample posts
  create-users -count N create N sample accounts
  routes                list HTTP routes
  jobs stats            print queue counters
  jobs send-test -to A  enqueue a test email
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.LogConfig)
	slog.SetDefault(logger)

	command, args := "serve", os.Args[1:]
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	os.Exit(run(ctx, command, args, cfg, logger))
}

func run(ctx context.Context, command string, args []string, cfg *app.Config, logger *slog.Logger) int {
	switch command {
	case "serve":
		return serve(ctx, cfg, logger)
	case "routes":
		api := app.NewAPI(cfg, logger, app.Dependencies{})
		return cli.RoutesCommand(api.Handler, os.Stdout)
	case "jobs":
		return jobsCommand(ctx, args, cfg)
	case "migrate", "reset-db", "seed", "create-users":
	case "help", "-h", "--help":
		fmt.Print(usage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		return 2
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		return 1
	}
	defer pool.Close()

	switch command {
	case "migrate":
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			return 1
		}
		logger.Info("schema up to date")
		return 0
	case "reset-db":
		fs := flag.NewFlagSet("reset-db", flag.ContinueOnError)
		yes := fs.Bool("yes", false, "skip the confirmation prompt")
		if err := fs.Parse(args); err != nil {
			return 2
		}
		return cli.ResetCommand(ctx, func(ctx context.Context) error {
			return db.Reset(ctx, pool)
		}, cli.ResetOptions{Yes: *yes})
	case "seed":
		api := app.NewAPI(cfg, logger, storeDeps(pool))
		return cli.SeedCommand(ctx, pool, api.Hasher, cli.SeedOptions{})
	default:
		fs := flag.NewFlagSet("create-users", flag.ContinueOnError)
		count := fs.Int("count", 10, "number of users to create")
		password := fs.String("password", "", "password for every account")
		if err := fs.Parse(args); err != nil {
			return 2
		}
		api := app.NewAPI(cfg, logger, storeDeps(pool))
		return cli.CreateUsersCommand(ctx, api.Accounts, cli.CreateUsersOptions{Count: *count, Password: *password})
	}
}

func storeDeps(pool *pgxpool.Pool) app.Dependencies {
	return app.Dependencies{
		Accounts: users.NewRepository(pool),
		Posts:    posts.NewRepository(pool),
		Audit:    shared.NewAuditLogger(pool),
		Timeline: audit.NewRepository(pool),
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) int {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		return 1
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Error("auto migrate", slog.Any("error", err))
			return 1
		}
	}

	deps := storeDeps(pool)
	deps.Metrics = observability.NewMetrics()

	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.CacheOptions()); err != nil {
		logger.Warn("redis unavailable, post cache and jobs disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		redisOpts := cfg.QueueOptions()
		jobClient := jobs.NewClient(redisOpts)
		defer func() { _ = jobClient.Close() }()
		inspector := asynq.NewInspector(redisOpts)
		defer func() { _ = inspector.Close() }()
		deps.Redis = redisClient
		deps.Mailer = jobClient
		deps.Inspector = inspector
	}

	api := app.NewAPI(cfg, logger, deps)
	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           api.Handler,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("http server", slog.Any("error", err))
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return 1
	}
	logger.Info("http server stopped")
	return 0
}

func jobsCommand(ctx context.Context, args []string, cfg *app.Config) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	jc := cli.NewJobsCLI(cfg.QueueOptions())
	defer func() { _ = jc.Close() }()
	switch args[0] {
	case "stats":
		return jc.StatsCommand(os.Stdout)
	case "send-test":
		fs := flag.NewFlagSet("jobs send-test", flag.ContinueOnError)
		to := fs.String("to", "", "recipient address")
		if err := fs.Parse(args[1:]); err != nil || *to == "" {
			fmt.Fprintln(os.Stderr, "jobs send-test: -to is required")
			return 2
		}
		return jc.SendTestCommand(ctx, *to, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown jobs command %q\n", args[0])
		return 2
	}
}
