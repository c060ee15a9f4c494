package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookstore-storefront/helper"
	"bookstore-storefront/localstore"
	"bookstore-storefront/repository"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// clientStateTTL bounds how long an idle client's cart and step are kept.
const clientStateTTL = 30 * 24 * time.Hour

type deps struct {
	cfg    helper.Config
	db     *sql.DB
	rdb    *redis.Client
	logger *zap.Logger
}

func main() {
	root := &cobra.Command{
		Use:          "storefront",
		Short:        "Bookstore storefront: cart, promotions and checkout",
		SilenceUsage: true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "app",
			Short: "Run the HTTP server only",
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(ctx context.Context, cancel context.CancelFunc, d *deps) {
					runHTTPServerWithShutdown(ctx, cancel, d)
				})
			},
		},
		&cobra.Command{
			Use:   "worker",
			Short: "Run the payment intent expiry worker only",
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(ctx context.Context, cancel context.CancelFunc, d *deps) {
					go waitForSignal(d.logger, cancel)
					runWorker(ctx, d.rdb, repository.NewStore(d.db, d.logger, d.cfg.IntentTTL), d.logger)
				})
			},
		},
		&cobra.Command{
			Use:   "all",
			Short: "Run the HTTP server and the worker",
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(ctx context.Context, cancel context.CancelFunc, d *deps) {
					go runWorker(ctx, d.rdb, repository.NewStore(d.db, d.logger, d.cfg.IntentTTL), d.logger)
					runHTTPServerWithShutdown(ctx, cancel, d)
				})
			},
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(body func(ctx context.Context, cancel context.CancelFunc, d *deps)) error {
	cfg, loaded := helper.LoadConfig()

	logger, err := helper.NewLogger(cfg.AppEnv)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !loaded {
		logger.Info("no .env file found, using process environment")
	}
	if cfg.PaymentSecret == "" {
		logger.Warn("PAYMENT_GATEWAY_SECRET is empty, hosted payments are disabled")
	}

	db, err := sql.Open("postgres", cfg.DatabaseDSN)
	if err != nil {
		logger.Error("failed to connect to database", zap.Error(err))
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Minute * 5)

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   0,
	})
	defer rdb.Close()
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	body(ctx, cancel, &deps{cfg: cfg, db: db, rdb: rdb, logger: logger})
	return nil
}

func runHTTPServerWithShutdown(ctx context.Context, cancel context.CancelFunc, d *deps) {
	app := newApp(d.db, localstore.NewRedisStore(d.rdb, clientStateTTL), d.cfg, d.logger)
	srv := &http.Server{
		Addr:    d.cfg.HTTPAddr,
		Handler: app.setupRouter(),
	}

	go func() {
		d.logger.Info("http server running", zap.String("addr", d.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Fatal("http server error", zap.Error(err))
		}
	}()

	waitForSignal(d.logger, cancel)

	ctxTimeout, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()
	if err := srv.Shutdown(ctxTimeout); err != nil {
		d.logger.Warn("http server shutdown", zap.Error(err))
	}
	d.logger.Info("server and worker stopped")
}

func waitForSignal(logger *zap.Logger, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs
	logger.Info("shutting down gracefully")
	cancel()
}
