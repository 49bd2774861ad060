package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/wms-platform/batching-service/pkg/cloudevents"
	"github.com/wms-platform/batching-service/pkg/kafka"
	"github.com/wms-platform/batching-service/pkg/logging"
	"github.com/wms-platform/batching-service/pkg/metrics"
	"github.com/wms-platform/batching-service/pkg/middleware"
	"github.com/wms-platform/batching-service/pkg/mongodb"
	"github.com/wms-platform/batching-service/pkg/outbox"
	outboxMongo "github.com/wms-platform/batching-service/pkg/outbox/mongodb"
	"github.com/wms-platform/batching-service/pkg/temporal"
	"github.com/wms-platform/batching-service/pkg/tracing"

	"github.com/wms-platform/batching-service/internal/activities"
	"github.com/wms-platform/batching-service/internal/application"
	"github.com/wms-platform/batching-service/internal/domain"
	kafkaAdapter "github.com/wms-platform/batching-service/internal/infrastructure/kafka"
	"github.com/wms-platform/batching-service/internal/infrastructure/memory"
	mongoRepo "github.com/wms-platform/batching-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/batching-service/internal/workflows"
)

const serviceName = "batching-service"

func main() {
	// A missing .env file is fine
	_ = godotenv.Load()

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting batching-service API")

	config, err := loadConfig()
	if err != nil {
		logger.WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing
	tracerProvider, err := tracing.Initialize(ctx, config.Tracing)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		if config.Tracing.Enabled {
			logger.Info("Tracing initialized", "endpoint", config.Tracing.OTLPEndpoint)
		}
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceBatching)

	// Kafka
	var producer kafka.EventProducer
	if config.KafkaEnabled {
		breaker, base := kafka.NewProductionProducer(config.Kafka, m, logger)
		defer base.Close()
		producer = breaker
		logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)
	} else {
		logger.Info("Kafka disabled, domain events are not published")
	}

	// Floor store
	var (
		repo           domain.FloorRepository
		readinessCheck func() error
	)
	switch config.StoreBackend {
	case StoreMongoDB:
		mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to MongoDB")
			os.Exit(1)
		}
		instrumentedMongo := mongodb.NewInstrumentedClient(mongoClient, m, logger)
		defer instrumentedMongo.Close(context.Background())
		logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

		floorRepo := mongoRepo.NewFloorRepository(instrumentedMongo, eventFactory)
		if err := floorRepo.EnsureIndexes(ctx); err != nil {
			logger.WithError(err).Warn("Failed to create indexes")
		}
		repo = floorRepo

		if producer != nil {
			outboxPublisher := outbox.NewPublisher(
				outboxMongo.NewOutboxRepository(instrumentedMongo),
				producer,
				logger,
				m,
				outbox.DefaultPublisherConfig(),
			)
			if err := outboxPublisher.Start(ctx); err != nil {
				logger.WithError(err).Error("Failed to start outbox publisher")
				os.Exit(1)
			}
			defer outboxPublisher.Stop()
			logger.Info("Outbox publisher started")
		}
		readinessCheck = func() error { return instrumentedMongo.HealthCheck(ctx) }
	default:
		var publisher domain.EventPublisher
		if producer != nil {
			publisher = kafkaAdapter.NewEventPublisher(producer, eventFactory, kafka.Topics.BatchesEvents)
		}
		repo = memory.NewFloorRepository(publisher, logger)
		readinessCheck = func() error { return repo.HealthCheck(ctx) }
		logger.Info("Using in-memory floor store")
	}

	// Application services
	batchingService := application.NewBatchingApplicationService(repo, domain.NewClassifier(), application.SystemClock{}, m, logger)
	staffingService := application.NewStaffingApplicationService(repo, config.Policy.Allocation, application.SystemClock{}, m, logger)
	slaMonitor := application.NewSLAMonitor(repo, application.SystemClock{}, config.Policy.SLA, m, logger)

	if config.SLAMonitor {
		if err := slaMonitor.Start(ctx); err != nil {
			logger.WithError(err).Error("Failed to start SLA monitor")
		}
	} else {
		logger.Info("SLA monitor disabled at startup")
	}

	// Temporal
	var workflowEngine workflowClient
	if config.TemporalEnabled {
		temporalClient, err := temporal.NewClient(ctx, config.Temporal)
		if err != nil {
			logger.WithError(err).Warn("Failed to connect to Temporal - batch dispatch will be disabled")
		} else {
			defer temporalClient.Close()
			workflowEngine = temporalClient
			logger.Info("Connected to Temporal", "host", config.Temporal.HostPort)

			// The picking activities run in this process so they share the floor store.
			w := temporalClient.NewWorker(temporal.DefaultWorkerOptions(temporal.TaskQueues.Batching))
			registerWorker(w, activities.NewBatchActivities(batchingService, logger))
			if err := w.Start(); err != nil {
				logger.WithError(err).Error("Failed to start Temporal worker")
			} else {
				defer w.Stop()
				logger.Info("Temporal worker started", "taskQueue", temporal.TaskQueues.Batching)
			}
		}
	}

	// Router
	router := gin.New()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-Correlation-ID", actorHeader},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-Correlation-ID"},
		AllowCredentials: true,
	}))
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.TracingMiddleware(serviceName, "/health", "/ready", "/metrics"))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, readinessCheck))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	registerRoutes(router, &services{
		batching:    batchingService,
		staffing:    staffingService,
		sla:         slaMonitor,
		workflows:   workflowEngine,
		pickTimeout: config.PickTimeout,
		logger:      logger,
	})

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr, "store", config.StoreBackend)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	if slaMonitor.IsRunning() {
		slaMonitor.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

func registerWorker(w worker.Worker, acts *activities.BatchActivities) {
	w.RegisterWorkflowWithOptions(workflows.BatchPickingWorkflow, workflow.RegisterOptions{Name: temporal.WorkflowNames.BatchPicking})
	w.RegisterActivity(acts.StartBatch)
	w.RegisterActivity(acts.CompleteBatch)
}
