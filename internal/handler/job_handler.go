package handler

import (
	"context"
	"fmt"

	"jobsync/commons/error_handler"
	"jobsync/commons/handler"
	"jobsync/internal/domain"
	"jobsync/internal/dto"
	"jobsync/internal/logger"
	"jobsync/internal/service"
)

type JobHandler struct {
	query  service.JobQuery
	logger logger.Logger
}

// NewJobHandler creates the listing read handler
func NewJobHandler(query service.JobQuery, log logger.Logger) *JobHandler {
	return &JobHandler{
		query:  query,
		logger: log.With(logger.String("component", "job_handler")),
	}
}

// ListService returns the most recently created listings, optionally for one source
func (h *JobHandler) ListService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.ListJobsRequest],
) (dto.ListJobsResponse, *error_handler.ErrorCollection) {
	limit, err := ioutil.QueryInt("limit", service.DefaultListLimit)
	if err != nil || limit <= 0 || limit > service.MaxListLimit {
		return dto.ListJobsResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeValidationError,
				fmt.Sprintf("limit must be an integer between 1 and %d", service.MaxListLimit), nil)
	}
	src := ioutil.QueryParams["source"]

	jobs, err := h.query.ListRecent(ctx, src, limit)
	if err != nil {
		h.logger.Error("failed to list jobs",
			logger.String("source", src),
			logger.Error(err))
		return dto.ListJobsResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeInternalServerError, "Failed to list jobs", nil)
	}

	resp := dto.ListJobsResponse{
		Jobs:       make([]dto.Job, 0, len(jobs)),
		Pagination: dto.PaginationResponse{Count: len(jobs), Limit: limit},
	}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, toJobDTO(j))
	}
	return resp, nil
}

func toJobDTO(j *domain.Job) dto.Job {
	out := dto.Job{
		Key:             j.Key(),
		Source:          j.Source,
		SourceID:        j.SourceID,
		Title:           j.Title,
		Organization:    j.Organization,
		Location:        j.Location,
		Country:         j.Country,
		Category:        j.Category,
		ExperienceLevel: string(j.ExperienceLevel),
		Skills:          j.Skills,
		ApplyURL:        j.ApplyURL,
		PostedAt:        j.PostedAt,
		ClosingAt:       j.ClosingAt,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
	}
	if j.Salary != nil {
		out.Salary = *j.Salary
	}
	if out.Skills == nil {
		out.Skills = []string{}
	}
	return out
}
