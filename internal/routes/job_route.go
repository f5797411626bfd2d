package routes

import (
	"net/http"

	"jobsync/commons/routes"
	"jobsync/internal/dto"
	"jobsync/internal/handler"
	"jobsync/internal/logger"

	"github.com/gin-gonic/gin"
)

func InitJobRoutes(
	router *gin.Engine,
	jobHandler *handler.JobHandler,
	log logger.Logger,
) {
	apiV1 := routes.CreateAPIGroup(router, "v1")

	deps := routes.RouteDependencies{
		Logger: log,
	}

	// GET /api/v1/jobs?source=&limit=
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.ListJobsRequest, dto.ListJobsResponse]{
			Path:        "/jobs",
			Method:      http.MethodGet,
			ServiceFunc: jobHandler.ListService,
		},
	)
}
