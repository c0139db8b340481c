// Package app wires every pipeline component into a single
// lifecycle, in the teacher's New/Start/Stop/Run shape.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"snmptrapd-core/internal/config"
	"snmptrapd-core/internal/dispatcher"
	"snmptrapd-core/internal/filter"
	"snmptrapd-core/internal/forward"
	"snmptrapd-core/internal/lock"
	"snmptrapd-core/internal/metrics"
	"snmptrapd-core/internal/persist"
	"snmptrapd-core/internal/storm"
	"snmptrapd-core/internal/tailer"
	"snmptrapd-core/internal/trapparser"
	"snmptrapd-core/pkg/types"
)

// App owns the configured pipeline and its background goroutines.
type App struct {
	cfg *types.Config
	log *logrus.Logger

	dispatcher    *dispatcher.Dispatcher
	metricsServer *metrics.Server
	persister     *persist.Persister
	redisBackend  *lock.RedisBackend

	cancel context.CancelFunc
}

// New loads configFile, configures logging, and constructs every
// component the pipeline needs.
func New(configFile string) (*App, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	level, parseErr := logrus.ParseLevel(cfg.App.LogLevel)
	if parseErr != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.App.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	entry := logrus.NewEntry(logger)

	primary, err := tailer.New(cfg.SNMPLogfile, entry)
	if err != nil {
		return nil, err
	}

	var secondary *tailer.LogTailer
	if cfg.SNMPExtlog != "" {
		secondary, err = tailer.New(cfg.SNMPExtlog, entry)
		if err != nil {
			return nil, err
		}
	}

	guard := storm.New(cfg.SNMPStormTimeout, cfg.SNMPStormProtection, cfg.SNMPStormSilencePeriod, entry)
	m := metrics.New()
	guard.OnSilenced = func(source string, seconds int64) {
		m.TrapsSilenced.WithLabelValues(source).Inc()
	}

	var redisBackend *lock.RedisBackend
	var lockBackend lock.Backend
	if cfg.Redis.Enabled {
		redisBackend, err = lock.NewRedisBackend(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LockTTLSeconds)
		if err != nil {
			return nil, err
		}
		lockBackend = redisBackend
	}
	locker := lock.New(cfg.SNMPConsoleLock, lockBackend)

	parser := trapparser.New(cfg.SNMPPDUAddress)

	// The filter-compilation store is an external collaborator (spec.md
	// §1); this core only consumes the groups it returns. No concrete
	// store is wired here, so the engine starts with zero groups
	// (matches nothing) until one is plugged in via filter.Compile.
	filterEngine := filter.Compile(nil, entry)

	var fwd *forward.Forwarder
	if cfg.SNMPForwardTrap {
		fwd = forward.New(*cfg, entry, m)
	}

	var persister *persist.Persister
	if cfg.DB.DSN != "" {
		persister, err = persist.Open(cfg.DB.DSN, cfg.DB.MaxOpenConns, cfg.DB.MaxIdleConns, cfg.DB.ConnMaxLifetime, nil, entry)
		if err != nil {
			return nil, err
		}
	}

	dispCfg := dispatcher.Config{
		TickPeriod:        time.Duration(cfg.SNMPConsoleThreshold) * time.Second,
		Workers:           cfg.SNMPConsoleThreads,
		DelayAfterPersist: time.Duration(cfg.SNMPDelay) * time.Second,
	}

	disp := dispatcher.New(dispCfg, primary, secondary, guard, locker, parser, filterEngine, fwd, persister, cfg.SNMPConsoleLock, m, entry)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr)
	}

	return &App{
		cfg:           cfg,
		log:           logger,
		dispatcher:    disp,
		metricsServer: metricsServer,
		persister:     persister,
		redisBackend:  redisBackend,
	}, nil
}

// Start launches the dispatcher and, if enabled, the metrics server.
func (a *App) Start(ctx context.Context) context.Context {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.metricsServer != nil {
		errc := make(chan error, 1)
		a.metricsServer.Start(errc)
		go func() {
			if err := <-errc; err != nil {
				a.log.WithError(err).Error("metrics server failed")
			}
		}()
	}

	go a.dispatcher.Run(runCtx)

	return runCtx
}

// Stop cancels the dispatcher's context, waits for it to drain, and
// closes owned resources.
func (a *App) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	<-a.dispatcher.Stopped()

	if a.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metricsServer.Stop(shutdownCtx); err != nil {
			a.log.WithError(err).Warn("metrics server shutdown error")
		}
	}
	if a.persister != nil {
		if err := a.persister.Close(); err != nil {
			a.log.WithError(err).Warn("persister close error")
		}
	}
	if a.redisBackend != nil {
		if err := a.redisBackend.Close(); err != nil {
			a.log.WithError(err).Warn("redis backend close error")
		}
	}
}

// Run starts the app and blocks until SIGINT/SIGTERM, then stops it.
func (a *App) Run() {
	ctx := a.Start(context.Background())
	_ = ctx

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	a.log.Info("shutdown signal received")
	a.Stop()
}
