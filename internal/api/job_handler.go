package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/voxworks/studio-api/internal/api/shared"
	"github.com/voxworks/studio-api/internal/dispatch"
	"github.com/voxworks/studio-api/internal/domain"
	"github.com/voxworks/studio-api/internal/store"
)

// JobController is the slice of the executor the handlers need: externally
// driven progress nudges and cancellation.
type JobController interface {
	UpdateProgress(ctx context.Context, jobID uuid.UUID, progress int, status domain.JobStatus) error
	Cancel(ctx context.Context, jobID uuid.UUID) (bool, error)
}

// JobHandler handles job-related API requests.
type JobHandler struct {
	jobStore   store.JobStore
	dispatcher dispatch.Dispatcher
	controller JobController
}

// NewJobHandler creates a new JobHandler with the given dependencies.
func NewJobHandler(
	jobStore store.JobStore,
	dispatcher dispatch.Dispatcher,
	controller JobController,
) *JobHandler {
	return &JobHandler{
		jobStore:   jobStore,
		dispatcher: dispatcher,
		controller: controller,
	}
}

// Create handles POST /api/jobs. It persists a pending job and enqueues an
// execute request for the worker pool.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		respondWithError(w, r, http.StatusUnauthorized, "User ID not found in request context")
		return
	}

	var req CreateJobRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid job data")
		return
	}

	job, err := domain.NewJob(req.ProjectID, userID, domain.JobType(req.Type))
	if err != nil {
		respondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid job data", err)
		return
	}
	job.InputURL = req.InputURL
	job.InputFile = req.InputFile
	if req.Meta != nil {
		job.Meta = req.Meta
	}

	if err := h.jobStore.CreateJob(r.Context(), job); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.dispatcher.Enqueue(r.Context(), job.ID); err != nil {
		// The job row exists but no worker will pick it up; surface the
		// failure so the client can retry the dispatch.
		slog.Error("failed to enqueue job", "job_id", job.ID, "error", err)
		respondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to schedule job", err)
		return
	}

	respondWithJSON(w, r, http.StatusCreated, NewJobResponse(job))
}

// Get handles GET /api/jobs/{jobID}.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID, ok := getPathUUID(r, "jobID")
	if !ok {
		respondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	respondWithJSON(w, r, http.StatusOK, NewJobResponse(job))
}

// GetResult handles GET /api/jobs/{jobID}/result.
func (h *JobHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	jobID, ok := getPathUUID(r, "jobID")
	if !ok {
		respondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return
	}

	result, err := h.jobStore.GetResult(r.Context(), jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	respondWithJSON(w, r, http.StatusOK, NewJobResultResponse(result))
}

// Cancel handles POST /api/jobs/{jobID}/cancel. Cancelling a job that is not
// running is a reported no-op, not an error.
func (h *JobHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID, ok := getPathUUID(r, "jobID")
	if !ok {
		respondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return
	}

	cancelled, err := h.controller.Cancel(r.Context(), jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	job, err := h.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	respondWithJSON(w, r, http.StatusOK, CancelJobResponse{
		Cancelled: cancelled,
		Status:    job.Status,
	})
}

// UpdateProgress handles POST /api/jobs/{jobID}/progress. Values are clamped
// into [0, 100]; stale (lower) values are absorbed while the job is running.
func (h *JobHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	jobID, ok := getPathUUID(r, "jobID")
	if !ok {
		respondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return
	}

	var req UpdateProgressRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid progress data")
		return
	}

	if err := h.controller.UpdateProgress(r.Context(), jobID, req.Progress, req.Status); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	job, err := h.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	respondWithJSON(w, r, http.StatusOK, NewJobResponse(job))
}
