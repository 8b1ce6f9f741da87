package main

import (
	"InspectVault/internal/config"
	"InspectVault/internal/handlers"
	"InspectVault/internal/middleware"
	"InspectVault/internal/repo"
	"InspectVault/internal/service"
	"net/http"

	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}

	userRepo := repo.NewUserRepository(gormDB)
	recordRepo := repo.NewRecordRepository(gormDB)
	blobRepo := repo.NewBlobRepository(gormDB)

	userService := service.NewUserService(userRepo)
	recordService := service.NewRecordService(recordRepo, blobRepo, sugar)

	h := handlers.NewHandler(userService, recordService, sugar, cfg)

	addr := cfg.BaseURL
	sugar.Infow("Starting server",
		"addr", addr,
		"https", cfg.EnableHTTPS,
	)

	if err := http.ListenAndServe(addr, h.Router); err != nil {
		sugar.Fatalw("Server failed", "error", err)
	}
}
