package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/flight-jobs/internal/api/dto"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/storage"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Populate handles POST /api/v1/worlds/:world_id/populate
func (h *GenerationHandler) Populate(c *gin.Context) {
	h.enqueueWorldCommand(c, domain.RunModePopulate)
}

// Refresh handles POST /api/v1/worlds/:world_id/refresh
func (h *GenerationHandler) Refresh(c *gin.Context) {
	h.enqueueWorldCommand(c, domain.RunModeRefresh)
}

// Cleanup handles POST /api/v1/cleanup. Without world_id every world is
// cleaned.
func (h *GenerationHandler) Cleanup(c *gin.Context) {
	var req dto.CleanupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.WorldID != "" && !h.worldExists(c, req.WorldID) {
		return
	}

	h.enqueue(c, domain.NewCommand(domain.RunModeCleanup, req.WorldID, h.now()))
}

func (h *GenerationHandler) enqueueWorldCommand(c *gin.Context, op domain.RunMode) {
	worldID := c.Param("world_id")
	if !h.worldExists(c, worldID) {
		return
	}

	h.enqueue(c, domain.NewCommand(op, worldID, h.now()))
}

// worldExists writes the error response and returns false when the world
// cannot be used
func (h *GenerationHandler) worldExists(c *gin.Context, worldID string) bool {
	world, err := h.worlds.GetWorld(c.Request.Context(), worldID)
	if errors.Is(err, domain.ErrWorldNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "World not found",
		})
		return false
	}
	if err != nil {
		h.logger.Error("Failed to get world",
			slog.String("world_id", worldID),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get world",
		})
		return false
	}
	if !world.Active {
		c.JSON(http.StatusConflict, gin.H{
			"error": "World is not active",
		})
		return false
	}
	return true
}

func (h *GenerationHandler) enqueue(c *gin.Context, cmd domain.Command) {
	if err := h.publisher.PublishJSON(c.Request.Context(), domain.CommandRoutingKey, cmd); err != nil {
		h.logger.Error("Failed to publish generation command",
			slog.String("command_id", cmd.CommandID),
			slog.String("operation", string(cmd.Operation)),
			slog.Any("error", err),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Failed to queue command",
		})
		return
	}

	h.logger.Info("Generation command queued",
		slog.String("command_id", cmd.CommandID),
		slog.String("operation", string(cmd.Operation)),
		slog.String("world_id", cmd.WorldID),
	)

	c.JSON(http.StatusAccepted, dto.CommandResponse{
		CommandID:   cmd.CommandID,
		Operation:   string(cmd.Operation),
		WorldID:     cmd.WorldID,
		Status:      "queued",
		RequestedAt: cmd.RequestedAt.Format(time.RFC3339),
	})
}

// ListRuns handles GET /api/v1/worlds/:world_id/runs
func (h *GenerationHandler) ListRuns(c *gin.Context) {
	worldID := c.Param("world_id")

	var req dto.ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeRunCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	runs, err := h.runs.ListRuns(c.Request.Context(), storage.RunFilter{
		WorldID:  worldID,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list runs",
			slog.String("world_id", worldID),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list runs",
		})
		return
	}

	hasMore := len(runs) > req.PageSize
	if hasMore {
		runs = runs[:req.PageSize]
	}

	resp := dto.ListRunsResponse{Runs: make([]dto.RunDTO, len(runs))}
	for i, run := range runs {
		resp.Runs[i] = toRunDTO(run)
	}

	if hasMore {
		last := runs[len(runs)-1]
		resp.NextCursor = EncodeRunCursor(&storage.RunCursor{
			StartedAt: last.StartedAt,
			RunID:     last.ID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// GetStats handles GET /api/v1/worlds/:world_id/stats
func (h *GenerationHandler) GetStats(c *gin.Context) {
	if h.stats == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Run statistics are disabled",
		})
		return
	}

	worldID := c.Param("world_id")
	stats, err := h.stats.Stats(c.Request.Context(), worldID)
	if err != nil {
		h.logger.Error("Failed to read run stats",
			slog.String("world_id", worldID),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to read run stats",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func toRunDTO(run domain.Run) dto.RunDTO {
	return dto.RunDTO{
		RunID:            run.ID,
		WorldID:          run.WorldID,
		Mode:             string(run.Mode),
		AirportsScanned:  run.AirportsScanned,
		AirportsToppedUp: run.AirportsToppedUp,
		JobsCreated:      run.JobsCreated,
		JobsExpired:      run.JobsExpired,
		Batches:          run.Batches,
		Skipped:          run.Skipped,
		Error:            run.Error,
		StartedAt:        run.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:       run.FinishedAt.UTC().Format(time.RFC3339),
		DurationMs:       run.Duration().Milliseconds(),
	}
}
