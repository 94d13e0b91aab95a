package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CandleScan/pkg/config"
	xhttp "CandleScan/pkg/http"
	pkgkafka "CandleScan/pkg/kafka"
	applogger "CandleScan/pkg/logger"
)

// limiterIdle is how long a client bucket may sit unused before it is dropped.
const limiterIdle = 10 * time.Minute

type pruner interface {
	Prune(idle time.Duration) int
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	requests   pkgkafka.MessageHandler
	limiter    pruner
}

// Option attaches an optional component to App.
type Option func(*App)

// WithConsumer runs c with h when both are set.
func WithConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = c
		a.requests = h
	}
}

// WithLimiter prunes idle rate-limit buckets while the app runs.
func WithLimiter(p pruner) Option { return func(a *App) { a.limiter = p } }

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{cfg: cfg, l: l, httpServer: httpServer}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

// Serve starts every component and blocks until ctx is done, then shuts
// down in reverse order.
func (a *App) Serve(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.consumer != nil && a.requests != nil {
		a.consumer.RegisterHandler(a.requests)
		if err := a.consumer.Start(runCtx); err != nil {
			a.l.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.requests.Topic()))
	}

	if a.limiter != nil {
		go a.pruneLoop(runCtx)
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("candlescan started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("source", a.cfg.Source.Type),
		applogger.String("backend", a.cfg.Backend.Type),
		applogger.Bool("metrics", a.cfg.Metrics.Enabled),
		applogger.Float64("rate_limit_refill_per_sec", a.cfg.Server.RateLimit.RefillPerSec),
	)

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

func (a *App) pruneLoop(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Prune(limiterIdle); n > 0 {
				a.l.Debug("rate limiter pruned", applogger.Int("buckets", n))
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}


	a.l.Info("shutdown complete")
	return nil
}
