package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gitlab.com/grader-api/internal/adapter/logging"
	"gitlab.com/grader-api/internal/adapter/postgres/submissionrepo"
	"gitlab.com/grader-api/internal/adapter/redis/publisher"
	"gitlab.com/grader-api/internal/adapter/redis/resultcache"
	"gitlab.com/grader-api/internal/adapter/redis/streamqueue"
	"gitlab.com/grader-api/internal/adapter/sandbox"
	"gitlab.com/grader-api/internal/config"
	"gitlab.com/grader-api/internal/core/services/grader"
	"gitlab.com/grader-api/internal/core/services/sweeper"
	logger2 "gitlab.com/grader-api/internal/global/logger"
)

func main() {
	InitReader()
	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	logger2.Info("Starting grading worker")

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
	store := submissionrepo.NewSubmissionRepository(db, logger)
	queue := streamqueue.NewStreamQueue(redisClient, sysCfg.GraderConfig, logger)
	cache := resultcache.NewResultCache(redisClient, sysCfg.GraderConfig, logger)
	events := publisher.NewEventPublisher(redisClient, sysCfg.GraderConfig, logger)
	runner := sandbox.NewDockerRunner(sysCfg.GraderConfig, logger, os.TempDir())

	// services
	graderSvc := grader.NewService(queue, store, runner, cache, events, logger)
	sweepEngine := sweeper.NewEngine(sysCfg.SweeperConfig, store, graderSvc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go graderSvc.Run(ctx)
	sweepEngine.Start(ctx)

	<-quit
	logger.Info("Shutting down grading worker...")
	cancel()

	logger.Info("successfully shutdown grading worker")
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
