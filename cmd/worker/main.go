package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"eclreports/internal/config"
	"eclreports/internal/db"
	xlog "eclreports/internal/log"
	"eclreports/internal/tasks"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Service: "eclreports-worker"})
	logger := xlog.WithComponent("worker")

	conn, err := db.InitDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := db.Migrate(conn); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	logger.Info().Msg("worker connected to database")

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse redis url")
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	compileTask, err := tasks.NewCompileReportsTask(tasks.CompileReportsPayload{})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create compile task")
	}

	entryID, err := scheduler.Register(cfg.CompileCron, compileTask, asynq.Queue("default"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to register periodic task")
	}
	logger.Info().Str("task", compileTask.Type()).Str("cron", cfg.CompileCron).Str("entry_id", entryID).Msg("registered periodic task")

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Queues: map[string]int{
				"default": 3,
			},
			Concurrency: cfg.Workers,
		},
	)

	taskProcessor := tasks.NewTaskProcessor(conn, cfg)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeTaskExtractPage, taskProcessor.HandleExtractPageTask)
	mux.HandleFunc(tasks.TypeTaskCompileReports, taskProcessor.HandleCompileReportsTask)
	mux.HandleFunc(tasks.TypeTaskReviewFindings, taskProcessor.HandleReviewFindingsTask)

	go func() {
		logger.Info().Msg("starting asynq scheduler")
		if err := scheduler.Run(); err != nil {
			logger.Fatal().Err(err).Msg("could not run asynq scheduler")
		}
	}()

	go func() {
		logger.Info().Msg("starting asynq worker server")
		if err := srv.Run(mux); err != nil {
			logger.Fatal().Err(err).Msg("could not run asynq worker server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	logger.Info().Msg("shutdown signal received, shutting down gracefully")

	scheduler.Shutdown()
	logger.Info().Msg("asynq scheduler shut down")

	srv.Shutdown()
	logger.Info().Msg("worker process shut down complete")
}
