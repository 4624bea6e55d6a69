package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/stashly/stashly_backend/internal/apperrors"
	"github.com/stashly/stashly_backend/internal/core/domain"
	portssvc "github.com/stashly/stashly_backend/internal/core/ports/services"
	"github.com/stashly/stashly_backend/internal/dto"
	"github.com/stashly/stashly_backend/internal/middleware"
	"github.com/stashly/stashly_backend/internal/utils"
	"github.com/gin-gonic/gin"
)

// executionHandler handles HTTP requests related to monthly execution records.
type executionHandler struct {
	executionService portssvc.ExecutionSvcFacade
	goalService      portssvc.GoalSvcFacade
}

// newExecutionHandler creates a new executionHandler.
func newExecutionHandler(es portssvc.ExecutionSvcFacade, gs portssvc.GoalSvcFacade) *executionHandler {
	return &executionHandler{
		executionService: es,
		goalService:      gs,
	}
}

// RegisterExecutionRoutes registers routes related to execution tracking.
func RegisterExecutionRoutes(rg *gin.RouterGroup, executionService portssvc.ExecutionSvcFacade, goalService portssvc.GoalSvcFacade) {
	h := newExecutionHandler(executionService, goalService)

	executions := rg.Group("/executions")
	{
		executions.POST("", h.startTracking)
		executions.GET("", h.getRecordByMonth) // ?monthLabel=YYYY-MM
		executions.GET("/:recordID/totals", h.getContributionTotals)
		executions.GET("/:recordID/progress", h.getProgress)
		executions.POST("/:recordID/complete", h.markComplete)
		executions.POST("/:recordID/undo-completion", h.undoCompletion)
		executions.POST("/:recordID/undo-start", h.undoStartTracking)
	}
}

// respondExecutionError maps service errors to HTTP responses.
func respondExecutionError(c *gin.Context, logger *slog.Logger, err error, action string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Execution record not found", slog.String("action", action))
		c.JSON(http.StatusNotFound, gin.H{"error": "Execution record not found"})
	case errors.Is(err, apperrors.ErrRecordAlreadyExists):
		logger.Warn("Execution record already closed", slog.String("action", action))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInvalidState):
		logger.Warn("Invalid execution state for operation", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrUndoPeriodExpired):
		logger.Warn("Undo window expired", slog.String("action", action))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		logger.Error("Execution service error", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

// startTracking godoc
// @Summary Start tracking a month's execution
// @Description Creates (or refreshes) the execution record for a month label, seeds the allocation baseline and moves the record to EXECUTING
// @Tags executions
// @Accept  json
// @Produce  json
// @Param   execution body dto.StartTrackingRequest true "Month label, tracked goals and planned amounts"
// @Success 201 {object} dto.ExecutionRecordResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Record for the month is already closed"
// @Failure 500 {object} map[string]string "Failed to start tracking"
// @Security BearerAuth
// @Router /executions [post]
func (h *executionHandler) startTracking(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.StartTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for StartTracking", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("month_label", req.MonthLabel), slog.String("creator_user_id", creatorUserID))
	logger.Info("Received request to start execution tracking", slog.Int("goal_count", len(req.GoalIDs)))

	record, err := h.executionService.StartTracking(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondExecutionError(c, logger, err, "start tracking")
		return
	}

	logger.Info("Execution tracking started", slog.String("record_id", record.RecordID))
	c.JSON(http.StatusCreated, dto.ToExecutionRecordResponse(record))
}

// getRecordByMonth godoc
// @Summary Get the execution record for a month
// @Description Retrieves the execution record identified by its month label
// @Tags executions
// @Produce  json
// @Param   monthLabel query string true "Month label (YYYY-MM)"
// @Success 200 {object} dto.ExecutionRecordResponse
// @Failure 400 {object} map[string]string "Missing or invalid month label"
// @Failure 404 {object} map[string]string "Execution record not found"
// @Failure 500 {object} map[string]string "Failed to retrieve execution record"
// @Security BearerAuth
// @Router /executions [get]
func (h *executionHandler) getRecordByMonth(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	monthLabel := c.Query("monthLabel")
	if monthLabel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "monthLabel query parameter is required"})
		return
	}

	logger = logger.With(slog.String("month_label", monthLabel))

	record, err := h.executionService.GetRecordByMonth(c.Request.Context(), monthLabel)
	if err != nil {
		respondExecutionError(c, logger, err, "retrieve execution record")
		return
	}

	c.JSON(http.StatusOK, dto.ToExecutionRecordResponse(record))
}

// getContributionTotals godoc
// @Summary Get derived contribution totals
// @Description Returns per-goal funded totals in each goal's currency: frozen from the completion artifact when the record is closed, computed live while it is executing
// @Tags executions
// @Produce  json
// @Param   recordID path string true "Execution Record ID"
// @Success 200 {object} dto.ContributionTotalsResponse
// @Failure 404 {object} map[string]string "Execution record not found"
// @Failure 500 {object} map[string]string "Failed to compute contribution totals"
// @Security BearerAuth
// @Router /executions/{recordID}/totals [get]
func (h *executionHandler) getContributionTotals(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	recordID := c.Param("recordID")
	logger = logger.With(slog.String("record_id", recordID))

	record, err := h.executionService.GetRecordByID(c.Request.Context(), recordID)
	if err != nil {
		respondExecutionError(c, logger, err, "retrieve execution record")
		return
	}

	totals, err := h.executionService.GetDerivedContributionTotals(c.Request.Context(), recordID)
	if err != nil {
		respondExecutionError(c, logger, err, "compute contribution totals")
		return
	}

	goals, err := h.goalService.GetGoalsByIDs(c.Request.Context(), record.GoalIDs)
	if err != nil {
		respondExecutionError(c, logger, err, "resolve goal currencies")
		return
	}

	resp := dto.ContributionTotalsResponse{
		RecordID: record.RecordID,
		Frozen:   record.Status == domain.StatusClosed,
		Totals:   make([]dto.GoalTotalResponse, 0, len(totals)),
	}
	for goalID, total := range totals {
		formatted := total.String()
		if goal, ok := goals[goalID]; ok {
			formatted = utils.FormatWithCurrencyPrecision(total, goal.CurrencyCode)
		}
		resp.Totals = append(resp.Totals, dto.GoalTotalResponse{GoalID: goalID, Total: formatted})
	}
	sort.Slice(resp.Totals, func(i, j int) bool { return resp.Totals[i].GoalID < resp.Totals[j].GoalID })

	c.JSON(http.StatusOK, resp)
}

// getProgress godoc
// @Summary Get execution progress
// @Description Returns total funded over total planned as a percentage for the record
// @Tags executions
// @Produce  json
// @Param   recordID path string true "Execution Record ID"
// @Success 200 {object} dto.ProgressResponse
// @Failure 404 {object} map[string]string "Execution record not found"
// @Failure 500 {object} map[string]string "Failed to compute progress"
// @Security BearerAuth
// @Router /executions/{recordID}/progress [get]
func (h *executionHandler) getProgress(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	recordID := c.Param("recordID")
	logger = logger.With(slog.String("record_id", recordID))

	progress, err := h.executionService.CalculateProgress(c.Request.Context(), recordID)
	if err != nil {
		respondExecutionError(c, logger, err, "compute progress")
		return
	}

	c.JSON(http.StatusOK, dto.ProgressResponse{RecordID: recordID, Progress: progress})
}

// markComplete godoc
// @Summary Mark a month's execution complete
// @Description Derives the final contribution events, freezes the completion artifact and transitions the record EXECUTING -> CLOSED
// @Tags executions
// @Produce  json
// @Param   recordID path string true "Execution Record ID"
// @Success 200 {object} dto.ExecutionRecordResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Execution record not found"
// @Failure 409 {object} map[string]string "Record is not executing"
// @Failure 500 {object} map[string]string "Failed to mark complete"
// @Security BearerAuth
// @Router /executions/{recordID}/complete [post]
func (h *executionHandler) markComplete(c *gin.Context) {
	h.transition(c, "mark complete", h.executionService.MarkComplete)
}

// undoCompletion godoc
// @Summary Undo a completion
// @Description Deletes the completion artifact and transitions the record CLOSED -> EXECUTING, allowed within the undo window only
// @Tags executions
// @Produce  json
// @Param   recordID path string true "Execution Record ID"
// @Success 200 {object} dto.ExecutionRecordResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Execution record not found"
// @Failure 409 {object} map[string]string "Record is not closed"
// @Failure 422 {object} map[string]string "Undo window expired"
// @Failure 500 {object} map[string]string "Failed to undo completion"
// @Security BearerAuth
// @Router /executions/{recordID}/undo-completion [post]
func (h *executionHandler) undoCompletion(c *gin.Context) {
	h.transition(c, "undo completion", h.executionService.UndoCompletion)
}

// undoStartTracking godoc
// @Summary Undo start of tracking
// @Description Transitions the record EXECUTING -> DRAFT, allowed within the undo window only
// @Tags executions
// @Produce  json
// @Param   recordID path string true "Execution Record ID"
// @Success 200 {object} dto.ExecutionRecordResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Execution record not found"
// @Failure 409 {object} map[string]string "Record is not executing"
// @Failure 422 {object} map[string]string "Undo window expired"
// @Failure 500 {object} map[string]string "Failed to undo start of tracking"
// @Security BearerAuth
// @Router /executions/{recordID}/undo-start [post]
func (h *executionHandler) undoStartTracking(c *gin.Context) {
	h.transition(c, "undo start of tracking", h.executionService.UndoStartTracking)
}

type transitionFunc func(ctx context.Context, recordID string, userID string) (*domain.MonthlyExecutionRecord, error)

// transition runs a lifecycle transition shared by the three POST endpoints.
func (h *executionHandler) transition(c *gin.Context, action string, fn transitionFunc) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	recordID := c.Param("recordID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("record_id", recordID), slog.String("user_id", userID))
	logger.Info("Received lifecycle transition request", slog.String("action", action))

	record, err := fn(c.Request.Context(), recordID, userID)
	if err != nil {
		respondExecutionError(c, logger, err, action)
		return
	}

	logger.Info("Lifecycle transition applied", slog.String("action", action), slog.String("status", string(record.Status)))
	c.JSON(http.StatusOK, dto.ToExecutionRecordResponse(record))
}
