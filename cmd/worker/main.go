package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/workflow"

	"github.com/wms-platform/batching-service/pkg/cloudevents"
	"github.com/wms-platform/batching-service/pkg/logging"
	"github.com/wms-platform/batching-service/pkg/metrics"
	"github.com/wms-platform/batching-service/pkg/mongodb"
	"github.com/wms-platform/batching-service/pkg/temporal"

	"github.com/wms-platform/batching-service/internal/activities"
	"github.com/wms-platform/batching-service/internal/application"
	"github.com/wms-platform/batching-service/internal/domain"
	mongoRepo "github.com/wms-platform/batching-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/batching-service/internal/workflows"
)

const serviceName = "batching-worker"

// The standalone worker shares floor state with the API through MongoDB.
// Events it records land in the outbox and are relayed by the API process.
func main() {
	_ = godotenv.Load()

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting batching worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New(metrics.DefaultConfig(serviceName))

	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = getEnv("MONGODB_DATABASE", mongoConfig.Database)

	mongoClient, err := mongodb.NewClient(ctx, mongoConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	instrumentedMongo := mongodb.NewInstrumentedClient(mongoClient, m, logger)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		instrumentedMongo.Close(closeCtx)
	}()
	logger.Info("Connected to MongoDB", "database", mongoConfig.Database)

	repo := mongoRepo.NewFloorRepository(instrumentedMongo, cloudevents.NewEventFactory(cloudevents.SourceBatching))
	batchingService := application.NewBatchingApplicationService(repo, domain.NewClassifier(), application.SystemClock{}, m, logger)

	temporalConfig := temporal.DefaultConfig()
	temporalConfig.HostPort = getEnv("TEMPORAL_HOST", temporalConfig.HostPort)
	temporalConfig.Namespace = getEnv("TEMPORAL_NAMESPACE", temporalConfig.Namespace)

	temporalClient, err := temporal.NewClient(ctx, temporalConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to create Temporal client")
		os.Exit(1)
	}
	defer temporalClient.Close()
	logger.Info("Connected to Temporal", "host", temporalConfig.HostPort, "namespace", temporalConfig.Namespace)

	w := temporalClient.NewWorker(temporal.DefaultWorkerOptions(temporal.TaskQueues.Batching))

	w.RegisterWorkflowWithOptions(workflows.BatchPickingWorkflow, workflow.RegisterOptions{Name: temporal.WorkflowNames.BatchPicking})
	logger.Info("Registered workflows", "workflows", []string{temporal.WorkflowNames.BatchPicking})

	batchActivities := activities.NewBatchActivities(batchingService, logger)
	w.RegisterActivity(batchActivities.StartBatch)
	w.RegisterActivity(batchActivities.CompleteBatch)
	logger.Info("Registered activities", "activities", []string{"StartBatch", "CompleteBatch"})

	go func() {
		logger.Info("Starting Temporal worker", "taskQueue", temporal.TaskQueues.Batching)
		if err := w.Run(nil); err != nil {
			logger.WithError(err).Error("Worker error")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	w.Stop()
	logger.Info("Worker stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
