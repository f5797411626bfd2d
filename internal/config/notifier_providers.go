package config

import (
	"jobsync/commons/routes"
	"jobsync/commons/server"
	"jobsync/internal/handler"
	"jobsync/internal/logger"
	internalRoutes "jobsync/internal/routes"

	"github.com/gin-gonic/gin"
)

// The notifier reuses ProvideStores, ProvideAlertMatcher and ProvideNotificationFanOut.

func ProvideNotifierHealthHandler(s *Settings, log logger.Logger) *handler.HealthHandler {
	return handler.NewHealthHandler(log, nil, "notifier", s.Server.NodeID)
}

func ProvideNotifierRouterConfig() routes.RouterConfig {
	return routes.RouterConfig{
		ServiceName: "notifier",
		Version:     "v1",
	}
}

func ProvideNotifierServerConfig(s *Settings) server.ServerConfig {
	return server.ServerConfig{
		Port: s.Server.NotifierPort,
	}
}

func ProvideNotifierRouteInitializer(
	healthHandler *handler.HealthHandler,
) func(*gin.Engine, routes.RouteDependencies) {
	return func(router *gin.Engine, deps routes.RouteDependencies) {
		internalRoutes.InitHealthRoutes(router, healthHandler, deps.Logger)
	}
}
