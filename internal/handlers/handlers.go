package handlers

import (
	"InspectVault/internal/config"
	"InspectVault/internal/middleware"
	"InspectVault/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	userService *service.UserService,
	recordService *service.RecordService,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	// веб-дашборд ходит с другого origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithAuth(config.AuthSecret))

	// Handlers
	userHandler := NewUserHandler(userService, logger, config)
	recordHandler := NewRecordHandler(recordService, logger, config)
	blobHandler := NewBlobHandler(recordService, logger, config)

	// User routes
	r.Post("/api/user/register", userHandler.Register)
	r.Post("/api/user/login", userHandler.Login)
	r.Post("/api/user/test", userHandler.Status)

	// Records routes
	r.Get("/api/records/changed", recordHandler.Changed)
	r.Post("/api/records/sync", recordHandler.Sync)
	r.Delete("/api/records/{kind}/{id}", recordHandler.Delete)

	// Blobs routes
	r.Post("/api/blobs/upload", blobHandler.Upload)
	r.Get("/api/blobs/download", blobHandler.Download)

	return &Handler{Router: r}
}
