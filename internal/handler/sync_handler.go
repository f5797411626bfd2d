package handler

import (
	"context"

	"jobsync/commons/error_handler"
	"jobsync/commons/handler"
	"jobsync/internal/domain"
	"jobsync/internal/dto"
	"jobsync/internal/logger"
	"jobsync/internal/service"
)

type SyncHandler struct {
	orchestrator service.Orchestrator
	logger       logger.Logger
}

// NewSyncHandler creates the sync operations handler
func NewSyncHandler(orchestrator service.Orchestrator, log logger.Logger) *SyncHandler {
	return &SyncHandler{
		orchestrator: orchestrator,
		logger:       log.With(logger.String("component", "sync_handler")),
	}
}

// StatusService lists every source with its count and last run
func (h *SyncHandler) StatusService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.SyncStatusRequest],
) (dto.SyncStatusResponse, *error_handler.ErrorCollection) {
	statuses, err := h.orchestrator.Status(ctx)
	if err != nil {
		h.logger.Error("failed to build sync status", logger.Error(err))
		return dto.SyncStatusResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeInternalServerError, "Failed to build sync status", nil)
	}

	resp := dto.SyncStatusResponse{Sources: make([]dto.SourceStatus, 0, len(statuses))}
	for _, s := range statuses {
		resp.Sources = append(resp.Sources, dto.SourceStatus{
			Source:    s.Source,
			Count:     s.Count,
			Running:   s.Running,
			Interval:  s.Interval,
			LastRunAt: s.LastRunAt,
			NextRunAt: s.NextRunAt,
			LastRun:   toRunSummary(s.LastRun),
		})
		if s.Count != service.UnknownCount {
			resp.Total += s.Count
		}
	}
	return resp, nil
}

// ForceSyncService makes a source run on the next tick across the cluster
func (h *SyncHandler) ForceSyncService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.ForceSyncRequest],
) (dto.ForceSyncResponse, *error_handler.ErrorCollection) {
	name := ioutil.PathParams["source"]

	err := h.orchestrator.ForceSync(ctx, name)
	switch {
	case err == nil:
		h.logger.Info("force sync accepted", logger.String("source", name))
		return dto.ForceSyncResponse{
			Source:  name,
			Message: "Sync scheduled for the next tick",
		}, nil
	case service.IsUnknownSourceError(err):
		return dto.ForceSyncResponse{Source: name}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeNotFound, "Unknown source: "+name, nil)
	default:
		// local reset succeeded; only the broadcast failed
		h.logger.Warn("force sync broadcast failed",
			logger.String("source", name),
			logger.Error(err))
		return dto.ForceSyncResponse{
			Source:  name,
			Message: "Sync scheduled on this node only",
		}, nil
	}
}

func toRunSummary(run *domain.SyncRun) *dto.SyncRunSummary {
	if run == nil {
		return nil
	}
	return &dto.SyncRunSummary{
		RunID:        run.RunID,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		DurationMs:   run.Duration().Milliseconds(),
		Fetched:      run.Fetched,
		Created:      run.Created,
		Updated:      run.Updated,
		Errors:       run.Errors,
		Success:      run.Success,
		ErrorKind:    string(run.ErrorKind),
		ErrorMessage: run.ErrorMessage,
	}
}
