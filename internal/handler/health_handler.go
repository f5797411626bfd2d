package handler

import (
	"context"

	"jobsync/commons/error_handler"
	"jobsync/commons/handler"
	"jobsync/internal/dto"
	"jobsync/internal/logger"
	"jobsync/internal/service"
)

type HealthHandler struct {
	logger      logger.Logger
	query       service.JobQuery
	serviceName string
	nodeID      string
}

// NewHealthHandler creates the health handler. query may be nil for
// binaries that do not own the read path.
func NewHealthHandler(log logger.Logger, query service.JobQuery, serviceName, nodeID string) *HealthHandler {
	return &HealthHandler{
		logger:      log.With(logger.String("component", "health_handler")),
		query:       query,
		serviceName: serviceName,
		nodeID:      nodeID,
	}
}

// HealthService reports the service as healthy when the store answers a count
func (h *HealthHandler) HealthService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.HealthCheckRequest],
) (dto.HealthCheckResponse, *error_handler.ErrorCollection) {
	resp := dto.HealthCheckResponse{
		Status:  "healthy",
		Service: h.serviceName,
		NodeID:  h.nodeID,
	}

	if h.query == nil {
		return resp, nil
	}

	n, err := h.query.Count(ctx)
	if err != nil {
		h.logger.Error("store health check failed", logger.Error(err))
		resp.Status = "unhealthy"
		return resp, error_handler.NewErrorCollection().
			AddError(error_handler.CodeServiceUnavailable, "job store unavailable", nil)
	}
	resp.Jobs = n
	return resp, nil
}
