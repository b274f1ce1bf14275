package main

import (
	"github.com/hibiken/asynq"
	_ "github.com/joho/godotenv/autoload"

	"eclreports/internal/config"
	"eclreports/internal/db"
	xlog "eclreports/internal/log"
	"eclreports/internal/routes"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Service: "eclreports-api"})
	logger := xlog.WithComponent("main")

	db, err := db.InitDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse redis url")
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	router := routes.SetupRouter(db, cfg, asynqClient)

	logger.Info().Str("addr", cfg.APIAddr).Msg("starting server")
	if err := router.Run(cfg.APIAddr); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
