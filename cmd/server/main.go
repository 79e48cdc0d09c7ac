package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pawnshop-service/config"
	"pawnshop-service/internal/api"
	"pawnshop-service/internal/broker"
	"pawnshop-service/internal/provider/anthropic"
	"pawnshop-service/internal/provider/ebay"
	"pawnshop-service/internal/redisclient"
	"pawnshop-service/internal/service"
	"pawnshop-service/internal/store"
	"pawnshop-service/internal/util"
	"pawnshop-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting pawnshop service", zap.String("env", cfg.Server.Env))

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer(cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	blobs, err := openStore(cfg.Store)
	if err != nil {
		logger.Fatal("Failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer blobs.Close()
	logger.Info("Store opened", zap.String("driver", cfg.Store.Driver))

	// optional collaborators stay nil interfaces when disabled
	var (
		cache    service.PricingCache
		ledger   service.NotificationLedger
		locker   worker.Locker
		requests api.EnrichmentRequester

		inventoryEvents  service.InventoryEvents
		enrichmentEvents service.EnrichmentEvents
		alertEvents      service.AlertEvents
		publisher        *broker.EventPublisher
	)

	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		cache, ledger, locker = redisClient, redisClient, redisClient
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		inventoryEvents, enrichmentEvents, alertEvents = publisher, publisher, publisher

		requestProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicRequests)
		defer requestProducer.Close()
		requests = broker.NewEventPublisher(requestProducer)
		logger.Info("Kafka producers initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	notifier, closeNotifier, err := newNotifier(cfg.Notify, publisher)
	if err != nil {
		logger.Fatal("Failed to initialize notifier", zap.String("notifier", cfg.Notify.Notifier), zap.Error(err))
	}
	defer closeNotifier()

	analyzer := anthropic.NewClient(anthropic.Config{
		APIKey:  cfg.Anthropic.APIKey,
		Model:   cfg.Anthropic.Model,
		BaseURL: cfg.Anthropic.BaseURL,
	})
	marketplace := ebay.NewClient(ebay.Config{
		AppID:   cfg.Ebay.AppID,
		BaseURL: cfg.Ebay.BaseURL,
	}, ebay.NewSimulator(time.Now().UnixNano()))
	if cfg.Ebay.AppID == "" {
		logger.Warn("EBAY_APP_ID not set, serving simulated comparable sales")
	}

	ctx := context.Background()

	inventoryService := service.NewInventoryService(blobs, inventoryEvents)
	if err := inventoryService.Load(ctx); err != nil {
		logger.Fatal("Failed to load inventory", zap.Error(err))
	}
	pricingService := service.NewPricingService(marketplace, cache, cfg.Redis.CacheTTL)
	orchestrator := service.NewEnrichmentOrchestrator(analyzer, pricingService, enrichmentEvents, cfg.Enrichment.ItemDelay)
	enrichmentService := service.NewEnrichmentService(inventoryService, orchestrator)
	alertService := service.NewAlertService(
		blobs, inventoryService, pricingService.Live(), notifier, ledger, alertEvents, cfg.Monitoring.DefaultThreshold,
	)
	if err := alertService.Load(ctx); err != nil {
		logger.Fatal("Failed to load price alerts", zap.Error(err))
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var enrichmentWorker *worker.EnrichmentWorker
	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicRequests, cfg.Kafka.ConsumerGroup)
		enrichmentWorker = worker.NewEnrichmentWorker(consumer, enrichmentService)
		go func() {
			if err := enrichmentWorker.Start(workerCtx); err != nil {
				logger.Error("Enrichment worker error", zap.Error(err))
			}
		}()
	}

	monitor := worker.NewMonitoringLoop(alertService, locker)
	if cfg.Monitoring.AutoStart {
		monitor.Start(workerCtx, cfg.Monitoring.Interval)
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(workerCtx, api.Services{
		Inventory:       inventoryService,
		Enrichment:      enrichmentService,
		Pricing:         pricingService,
		Alerts:          alertService,
		Monitor:         monitor,
		Requests:        requests,
		MonitorInterval: cfg.Monitoring.Interval,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	monitor.Stop()
	workerCancel()
	monitor.Wait()
	if enrichmentWorker != nil {
		if err := enrichmentWorker.Stop(); err != nil {
			logger.Error("Failed to stop enrichment worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

func openStore(cfg config.StoreConfig) (store.BlobStore, error) {
	switch cfg.Driver {
	case "file", "":
		return store.NewFileStore(cfg.DataDir)
	case "sqlite":
		return store.NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return store.NewStore(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// newNotifier picks the alert delivery channel. The returned func releases
// any connection it opened.
func newNotifier(cfg config.NotifyConfig, publisher *broker.EventPublisher) (service.Notifier, func(), error) {
	noop := func() {}
	switch cfg.Notifier {
	case "log", "":
		return broker.NewLogNotifier(), noop, nil
	case "kafka":
		if publisher == nil {
			return nil, noop, fmt.Errorf("kafka notifier requires KAFKA_ENABLED")
		}
		return broker.NewKafkaNotifier(publisher), noop, nil
	case "nats":
		n, err := broker.NewNATSNotifier(cfg.NATSURL)
		if err != nil {
			return nil, noop, err
		}
		return n, func() { _ = n.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}
}
