package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gitlab.com/grader-api/internal/adapter/cachedstore"
	"gitlab.com/grader-api/internal/adapter/logging"
	"gitlab.com/grader-api/internal/adapter/postgres/submissionrepo"
	"gitlab.com/grader-api/internal/adapter/redis/publisher"
	"gitlab.com/grader-api/internal/adapter/redis/resultcache"
	"gitlab.com/grader-api/internal/adapter/redis/streamqueue"
	"gitlab.com/grader-api/internal/config"
	"gitlab.com/grader-api/internal/core/services/intake"
	logger2 "gitlab.com/grader-api/internal/global/logger"
	http2 "gitlab.com/grader-api/internal/http"
)

func main() {
	InitReader()
	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	logger2.Info("Starting submission API")

	sysCfg := config.NewSystemConfig()

	logger := logger2.Logger
	if sysCfg.DebugMode {
		logger = logging.NewDebugLogger()
	}
	defer logger.Sync()

	db, err := setupDatabase(sysCfg)
	if err != nil {
		logger.Error("Failed to set up database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	submissionrepo.Migrate(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     sysCfg.RedisConfig.Url,
		Password: sysCfg.RedisConfig.Password,
		DB:       sysCfg.RedisConfig.DB,
	})
	defer redisClient.Close()

	// SECONDARY PORTS
	repo := submissionrepo.NewSubmissionRepository(db, logger)
	cache := resultcache.NewResultCache(redisClient, sysCfg.GraderConfig, logger)
	store := cachedstore.New(repo, cache, logger)
	queue := streamqueue.NewStreamQueue(redisClient, sysCfg.GraderConfig, logger)
	events := publisher.NewEventPublisher(redisClient, sysCfg.GraderConfig, logger)

	// services
	intakeSvc := intake.NewService(store, queue, events, logger)
	serviceProvider := http2.NewServiceProvider(intakeSvc)

	// server
	httpServer := http2.NewServer(serverPort(), "graderApi", *serviceProvider, logger)
	if err := httpServer.Init(); err != nil {
		logger.Error("Failed to init http server", "error", err)
		os.Exit(1)
	}
	ctxBg := context.Background()
	httpServer.Start(ctxBg)

	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(ctxBg, 5*time.Second)
	defer cancel()
	httpServer.Stop(ctx)

	logger.Info("successfully shutdown server")
}

// setupDatabase sets up the PostgreSQL connection
func setupDatabase(cfg *config.AppConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.PostgresConfig.Url)
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

func serverPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8082
	}
	return port
}

func InitReader() {
	environment := ""
	if len(os.Args) < 2 {
		log.Fatalf("Env not supplied in argument")
	} else {
		environment = os.Args[1]
	}

	err := godotenv.Load(environment + ".env")
	if err != nil {
		log.Fatalf("Error loading %s.env file", environment)
	}
}
