// Command logbroker runs the real-time log ingestion and fan-out server:
// HTTP POST ingestion in, Server-Sent Events out, nothing persisted in
// between.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "go.uber.org/automaxprocs"

	"github.com/mood-agency/logbroker/internal/bufpool"
	"github.com/mood-agency/logbroker/internal/bus"
	"github.com/mood-agency/logbroker/internal/channelregistry"
	"github.com/mood-agency/logbroker/internal/config"
	"github.com/mood-agency/logbroker/internal/connmanager"
	"github.com/mood-agency/logbroker/internal/health"
	"github.com/mood-agency/logbroker/internal/httpapi"
	"github.com/mood-agency/logbroker/internal/idpool"
	"github.com/mood-agency/logbroker/internal/logging"
	"github.com/mood-agency/logbroker/internal/metrics"
	"github.com/mood-agency/logbroker/internal/natssink"
	"github.com/mood-agency/logbroker/internal/normalize"
	"github.com/mood-agency/logbroker/internal/ratelimit"
	"github.com/mood-agency/logbroker/internal/shutdown"
	"github.com/mood-agency/logbroker/internal/workerpool"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging (overrides LOG_LEVEL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	log := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Info().Int("gomaxprocs", runtime.GOMAXPROCS(0)).Msg("starting logbroker")

	reg := prometheus.NewRegistry()
	met := metrics.New(reg)

	ids := idpool.New(log, cfg.IDPoolTarget, cfg.IDPoolThreshold, cfg.IDPoolBatch)

	registryNotify := func(name string) {} // replaced below once bus exists
	registry, err := channelregistry.New(log, cfg.MaxChannels, cfg.ChannelTTL, func(name string) { registryNotify(name) })
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize channel registry")
	}

	conns := connmanager.New(connmanager.Config{
		MaxConnections:      cfg.MaxConnections,
		MaxConnectionsPerIP: cfg.MaxConnectionsPerIP,
		AdmissionBurst:      cfg.AdmissionBurst,
		AdmissionWindow:     cfg.AdmissionBurstWindow,
		StaleTimeout:        cfg.StaleTimeout,
	})

	var secondary bus.SecondarySink
	var natsConn *natssink.Sink
	async := workerpool.New(2, 200)
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()
	async.Start(rootCtx)

	if cfg.NATSURL != "" {
		natsConn, err = natssink.Connect(cfg.NATSURL)
		if err != nil {
			log.Error().Err(err).Msg("failed to connect to nats, continuing without secondary sink")
		} else {
			secondary = natsConn
		}
	}

	logBus := bus.New(log, conns, secondary, async)
	registryNotify = logBus.NotifyChannelAdded

	normalizer := normalize.New(ids)
	limiter := ratelimit.New(ratelimit.Config{
		MaxRequests: cfg.RateLimitMax,
		Window:      cfg.RateLimitWindow,
		TrustProxy:  cfg.TrustProxy,
	})

	sampler := health.New()
	stopSamplers := make(chan struct{})
	go sampler.Run(5*time.Second, stopSamplers)
	go met.StartSampler(5*time.Second, stopSamplers)

	stopSweep := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.StaleTimeout / 2)
		defer ticker.Stop()
		cleanupTicker := time.NewTicker(time.Hour)
		defer cleanupTicker.Stop()
		for {
			select {
			case <-ticker.C:
				conns.SweepStale()
			case <-cleanupTicker.C:
				registry.CleanupExpired()
			case <-stopSweep:
				return
			}
		}
	}()

	handler := httpapi.New(httpapi.Deps{
		Log:        log,
		Config:     cfg,
		Normalizer: normalizer,
		Registry:   registry,
		Bus:        logBus,
		Conns:      conns,
		Limiter:    limiter,
		Metrics:    met,
		Health:     sampler,
		IDs:        ids,
		Bufs:       bufpool.New(),
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // streaming responses must not be cut off
		IdleTimeout:  120 * time.Second,
	}

	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	go func() {
		log.Info().Str("addr", metricsServer.Addr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")

	coordinator := shutdown.New(log, cfg.ShutdownTimeout, conns.Count, conns.DisconnectAll)
	coordinator.OnRelease(func() { close(stopSweep) })
	coordinator.OnRelease(func() { close(stopSamplers) })
	coordinator.OnRelease(func() { _ = httpServer.Shutdown(context.Background()) })
	coordinator.OnRelease(func() { _ = metricsServer.Shutdown(context.Background()) })
	coordinator.OnRelease(func() { limiter.Stop() })
	coordinator.OnRelease(async.Stop)
	coordinator.OnRelease(func() {
		if natsConn != nil {
			natsConn.Close()
		}
	})
	coordinator.OnRelease(cancelRoot)

	coordinator.Run(context.Background())
	log.Info().Msg("shutdown complete")
}
