package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/yndnr/pcompress-go/internal/core/service"
	"github.com/yndnr/pcompress-go/internal/infra/buildinfo"
	"github.com/yndnr/pcompress-go/internal/infra/confloader"
	"github.com/yndnr/pcompress-go/internal/infra/shutdown"
	"github.com/yndnr/pcompress-go/internal/server/config"
	"github.com/yndnr/pcompress-go/internal/server/httpserver"
	"github.com/yndnr/pcompress-go/internal/storage/catalog"
	"github.com/yndnr/pcompress-go/internal/telemetry/logger"
	"github.com/yndnr/pcompress-go/internal/telemetry/metric"
)

// shutdownTimeout bounds the graceful shutdown hooks.
const shutdownTimeout = 30 * time.Second

func main() {
	app := &cli.App{
		Name:    "pcompress-server",
		Usage:   "Chain history server",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				EnvVars: []string{"PCOMPRESS_SERVER_CONFIG"},
			},
		},
		Action: func(c *cli.Context) error {
			return run(c.Context, c.String("config"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(parent context.Context, configFile string) error {
	loader := config.NewLoader(configFile)
	cfg, err := config.Load(loader)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	slogLogger := logger.Slog(log)

	info := buildinfo.Get()
	log.Info("starting pcompress-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", configFile)
	log.Debug("configuration loaded", "config", config.Sanitize(cfg))

	catCfg := catalog.DefaultConfig(cfg.Storage.DataDir)
	catCfg.Badger.GCInterval = cfg.Storage.GCInterval
	cat, err := catalog.Open(catCfg, slogLogger)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}

	reg := metric.NewRegistry()
	if err := reg.Register(metric.NewCollector(cat)); err != nil {
		cat.Close()
		return fmt.Errorf("register catalog metrics: %w", err)
	}

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Catalog:        cat,
		Service:        service.NewChainService(log, reg),
		Metrics:        reg,
		Logger:         slogLogger,
		UploadAPIKey:   cfg.Server.UploadAPIKey,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		EnableAudit:    true,
	})
	srv := httpserver.New(cfg.Server.HTTP.Addr, router)

	// Hooks run in reverse order: stop accepting requests, then close the
	// catalog.
	hooks := shutdown.NewHandler(shutdownTimeout)
	hooks.SetLogger(slogLogger)
	hooks.OnShutdown("catalog", func(context.Context) error { return cat.Close() })
	hooks.OnShutdown("http", srv.Shutdown)

	var watcher *confloader.Watcher
	if configFile != "" {
		watcher, err = confloader.NewWatcher(confloader.WithWatcherLogger(slogLogger))
		if err != nil {
			cat.Close()
			return fmt.Errorf("config watcher: %w", err)
		}
		if err := watcher.Watch(configFile); err != nil {
			watcher.Stop()
			cat.Close()
			return fmt.Errorf("watch %s: %w", configFile, err)
		}
		// The callback owns its copy; callbacks run one at a time.
		live := *cfg
		watcher.OnChange(func(string) {
			live = *reloadConfig(loader, &live, log)
		})
	}

	ctx, stop := shutdown.WithSignals(parent)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	httpCfg := cfg.Server.HTTP
	g.Go(func() error {
		log.Info("HTTP server listening", "addr", httpCfg.Addr)
		if httpCfg.TLSCertFile != "" {
			return srv.ListenAndServeTLS(httpCfg.TLSCertFile, httpCfg.TLSKeyFile)
		}
		return srv.ListenAndServe()
	})

	if watcher != nil {
		watcher.StartAsync()
		g.Go(func() error {
			<-gctx.Done()
			return watcher.Stop()
		})
	}

	g.Go(func() error {
		return hooks.WaitContext(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// reloadConfig re-reads the configuration after the file changed. Only the
// log level is applied live; other changes are reported and need a restart.
// A configuration that fails to load or verify is ignored.
func reloadConfig(loader *confloader.Loader, current *config.ServerConfig, log logger.Logger) *config.ServerConfig {
	next, err := config.Load(loader)
	if err != nil {
		log.Warn("config reload rejected, keeping current configuration", "error", err)
		return current
	}

	if next.Log.Level != current.Log.Level {
		from := logger.GetLevel()
		logger.SetLevel(next.Log.Level)
		log.Info("log level changed", "from", from, "to", logger.GetLevel())
		current.Log.Level = next.Log.Level
	}

	next.Log.Level = current.Log.Level
	if *config.Sanitize(next) != *config.Sanitize(current) {
		log.Warn("configuration changed; restart to apply settings other than log.level")
	}
	return current
}
