package routes

import (
	"net/http"

	"jobsync/commons/routes"
	"jobsync/internal/dto"
	"jobsync/internal/handler"
	"jobsync/internal/logger"

	"github.com/gin-gonic/gin"
)

func InitSyncRoutes(
	router *gin.Engine,
	syncHandler *handler.SyncHandler,
	log logger.Logger,
) {
	apiV1 := routes.CreateAPIGroup(router, "v1")
	syncGroup := apiV1.Group("/sync")

	deps := routes.RouteDependencies{
		Logger: log,
	}

	// GET /api/v1/sync/status
	routes.RegisterRoute(
		syncGroup,
		deps,
		routes.RouteOptions[dto.SyncStatusRequest, dto.SyncStatusResponse]{
			Path:        "/status",
			Method:      http.MethodGet,
			ServiceFunc: syncHandler.StatusService,
		},
	)

	// POST /api/v1/sync/:source/force
	routes.RegisterRoute(
		syncGroup,
		deps,
		routes.RouteOptions[dto.ForceSyncRequest, dto.ForceSyncResponse]{
			Path:        "/:source/force",
			Method:      http.MethodPost,
			ServiceFunc: syncHandler.ForceSyncService,
		},
	)
}
