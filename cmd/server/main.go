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

	"cylinder-service/config"
	"cylinder-service/internal/api"
	"cylinder-service/internal/broker"
	"cylinder-service/internal/redisclient"
	"cylinder-service/internal/service"
	"cylinder-service/internal/store"
	"cylinder-service/internal/util"
	"cylinder-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting cylinder service")

	tp, err := util.InitTracer("cylinder-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	orderProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer orderProducer.Close()
	transferProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicTransfer)
	defer transferProducer.Close()
	log.Println("Kafka producers initialized")

	orderEvents := broker.NewEventPublisher(orderProducer)
	transferEvents := broker.NewEventPublisher(transferProducer)

	stockClient := service.NewStockClient(db, redisClient)
	orderService := service.NewOrderService(db, redisClient, orderEvents, stockClient, cfg.Business)
	transferService := service.NewTransferService(db, stockClient, transferEvents)
	movementApplier := service.NewMovementApplier(db, stockClient)

	ctx := context.Background()
	if err := stockClient.SyncStockToRedis(ctx); err != nil {
		log.Printf("Failed to sync warehouse stock to Redis: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	orderConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	movementWorker := worker.NewMovementWorker(orderConsumer, movementApplier)
	go func() {
		if err := movementWorker.Start(workerCtx); err != nil {
			log.Printf("Movement worker error: %v", err)
		}
	}()

	transferConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicTransfer, cfg.Kafka.ConsumerGroup)
	transferWorker := worker.NewTransferWorker(transferConsumer, transferService)
	go func() {
		if err := transferWorker.Start(workerCtx); err != nil {
			log.Printf("Transfer worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(orderService, transferService)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	movementWorker.Stop()
	transferWorker.Stop()

	log.Println("Server exited")
}
