package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"grocery-service/common/logger"
	"grocery-service/controllers"
	"grocery-service/database"
	"grocery-service/kafka"
	"grocery-service/middleware"
	awspkg "grocery-service/pkg/aws"
	"grocery-service/repository"
	"grocery-service/routes"
	"grocery-service/services"
)

func main() {
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.Initialize(cfg.Env)
	defer log.Sync()

	// --- MongoDB with startup retry and background reconnection ---
	manager := database.NewManager(database.Options{
		URI:               cfg.MongoURI,
		Database:          cfg.MongoDB,
		MaxStartupRetries: cfg.MongoMaxRetries,
		RetryDelay:        cfg.MongoRetryDelay,
	}, log)
	if err := manager.Start(context.Background()); err != nil {
		log.Fatal("MongoDB connection failed", zap.Error(err))
	}

	inventoryRepo := repository.NewMongoInventoryRepository(manager.Database())
	orderRepo := repository.NewMongoOrderRepository(manager.Database())

	idxCtx, idxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := inventoryRepo.EnsureIndexes(idxCtx); err != nil {
		idxCancel()
		log.Fatal("Failed to create inventory indexes", zap.Error(err))
	}
	idxCancel()

	// --- Redis (non-fatal: caching and job tracking degrade gracefully) ---
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Warn("Invalid REDIS_URL, caching disabled", zap.Error(err))
		} else {
			redisClient = redis.NewClient(opts)
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := redisClient.Ping(pingCtx).Err(); err != nil {
				log.Warn("Redis unreachable, caching disabled", zap.Error(err))
				redisClient = nil
			}
			pingCancel()
		}
	}

	// --- CloudWatch metrics and SNS (non-fatal) ---
	metricsClient, err := awspkg.NewMetricsClient(context.Background())
	if err != nil {
		log.Warn("CloudWatch metrics client init failed (non-fatal)", zap.Error(err))
	}

	var snsClient awspkg.SNSPublisher
	if cfg.OrderSNSTopicARN != "" {
		if awsCfg, err := awspkg.LoadAWSConfig(context.Background()); err == nil {
			snsClient = awspkg.NewSNSClient(awsCfg)
		} else {
			log.Warn("SNS client init failed (non-fatal)", zap.Error(err))
		}
	}

	// --- Kafka producer (non-fatal: order events are best-effort) ---
	var producer kafka.ProducerAPI
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	// --- Service wiring ---
	cache := controllers.NewCacheManager(redisClient, metricsClient)
	inventoryService := services.NewInventoryService(inventoryRepo, metricsClient, log)
	bulkService := services.NewBulkImportService(inventoryRepo, metricsClient, log)
	orderService := services.NewOrderService(orderRepo, inventoryRepo, producer, snsClient, cfg.OrderSNSTopicARN, metricsClient, log)

	inventoryController := controllers.NewInventoryController(inventoryService, cache)
	bulkHandler := controllers.NewBulkImportHandler(bulkService, redisClient, cache)
	orderController := controllers.NewOrderController(orderService)

	// --- HTTP router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())
	r.Use(middleware.MetricsMiddleware(metricsClient, "grocery-service"))

	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	routes.RegisterRoutes(r, inventoryController, bulkHandler, orderController)

	r.GET("/health", func(c *gin.Context) {
		if !manager.Healthy() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "mongo": "disconnected"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Info("Grocery Service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Grocery Service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Warn("Kafka producer close failed", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn("Redis close failed", zap.Error(err))
		}
	}
	if err := manager.Close(shutdownCtx); err != nil {
		log.Warn("MongoDB disconnect failed", zap.Error(err))
	}

	log.Info("Grocery Service stopped gracefully")
}
