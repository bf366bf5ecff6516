package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dbehnke/p25framer/pkg/config"
	"github.com/dbehnke/p25framer/pkg/framer"
	"github.com/dbehnke/p25framer/pkg/input"
	"github.com/dbehnke/p25framer/pkg/logger"
	"github.com/dbehnke/p25framer/pkg/message"
	"github.com/dbehnke/p25framer/pkg/metrics"
	"github.com/dbehnke/p25framer/pkg/monitor"
	"github.com/dbehnke/p25framer/pkg/mqttsink"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	validateOnly := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("p25framer %s\n", version)
		fmt.Printf("Git Commit: %s\n", gitCommit)
		fmt.Printf("Built: %s\n", buildTime)
		os.Exit(0)
	}

	log := logger.New(logger.Config{Level: "info", Format: "text"})

	log.Info("starting p25framer",
		logger.String("version", version),
		logger.String("commit", gitCommit),
		logger.String("build_time", buildTime))

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Error("failed to load configuration", logger.Error(err))
		os.Exit(1)
	}

	if *validateOnly {
		log.Info("configuration is valid")
		os.Exit(0)
	}

	log = logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log.Debug("debug logging enabled")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	metricsCollector := metrics.NewCollector()

	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv := metrics.NewPrometheusServer(
				metrics.PrometheusConfig{
					Enabled: cfg.Metrics.Prometheus.Enabled,
					Port:    cfg.Metrics.Prometheus.Port,
					Path:    cfg.Metrics.Prometheus.Path,
				},
				metricsCollector,
				log.WithComponent("metrics"),
			)
			if err := srv.Start(ctx); err != nil && err != context.Canceled {
				log.Error("prometheus metrics server error", logger.Error(err))
			}
		}()
		log.Info("prometheus metrics server started",
			logger.Int("port", cfg.Metrics.Prometheus.Port),
			logger.String("path", cfg.Metrics.Prometheus.Path))
	}

	var mqttPublisher *mqttsink.Sink
	if cfg.MQTT.Enabled {
		mqttPublisher, err = mqttsink.New(mqttsink.Config{
			Enabled:     cfg.MQTT.Enabled,
			Broker:      cfg.MQTT.Broker,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			QoS:         cfg.MQTT.QoS,
			Retained:    cfg.MQTT.Retained,
		}, log.WithComponent("mqttsink"))
		if err != nil {
			log.Error("failed to start mqtt sink", logger.Error(err))
			os.Exit(1)
		}
		defer mqttPublisher.Close()
		log.Info("mqtt sink started",
			logger.String("broker", cfg.MQTT.Broker),
			logger.String("topic_prefix", cfg.MQTT.TopicPrefix))
	}

	var monitorHub *monitor.Hub
	if cfg.Monitor.Enabled {
		monitorHub = monitor.New(log.WithComponent("monitor"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			monitorHub.Run(ctx)
		}()

		mux := http.NewServeMux()
		mux.Handle("/ws", monitorHub.Handler())
		addr := fmt.Sprintf("%s:%d", cfg.Monitor.Host, cfg.Monitor.Port)
		server := &http.Server{Addr: addr, Handler: mux}

		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("monitor websocket server started", logger.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("monitor server error", logger.Error(err))
			}
		}()
		go func() {
			<-ctx.Done()
			_ = server.Close()
		}()
	}

	frameCfg := framer.DefaultConfig()
	frameCfg.PoolSize = cfg.Pool.Size
	frameCfg.SyncPattern = cfg.Decoder.SyncPattern
	frameCfg.Inverted = cfg.Decoder.Inverted
	if len(cfg.Decoder.StatusSchedule) > 0 {
		frameCfg.StatusSchedule = cfg.Decoder.StatusSchedule
	}
	f := framer.New(frameCfg, log.WithComponent("framer"))
	f.SetMetrics(metricsCollector)

	f.SetListener(message.SinkFunc(func(msg message.Message) {
		if monitorHub != nil {
			monitorHub.Dispatch(msg)
		}
		if mqttPublisher != nil {
			mqttPublisher.Dispatch(msg)
		}
	}))
	defer f.Dispose()

	var source input.Source
	switch cfg.Input.Source {
	case "udp":
		source = input.NewUDPSource(cfg.Input.Addr, log.WithComponent("input"))
	case "file":
		source = input.NewFileSource(cfg.Input.Path, log.WithComponent("input"))
	case "stdin":
		source = input.NewStdinSource(log.WithComponent("input"))
	default:
		log.Error("unknown input source", logger.String("source", cfg.Input.Source))
		os.Exit(1)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := source.Run(ctx, f); err != nil && err != context.Canceled {
			log.Error("input source error", logger.Error(err))
		}
		cancel()
	}()

	log.Info("p25framer initialized", logger.String("server_name", cfg.Server.Name))

	sig := <-sigChan
	log.Info("received shutdown signal", logger.String("signal", sig.String()))

	cancel()
	wg.Wait()

	log.Info("p25framer stopped")
}
