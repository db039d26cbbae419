package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/Shishlyannikovvv/sprint-service/internal/domain"
	"github.com/gin-gonic/gin"
)

// Handler содержит ссылку на сервис, через который мы вызываем бизнес-логику
type Handler struct {
	service domain.Service
}

func NewHandler(s domain.Service) *Handler {
	return &Handler{service: s}
}

// --- Cycle Lifecycle ---

type createCycleRequest struct {
	ProjectID      int       `json:"project_id" binding:"required"`
	Name           string    `json:"name" binding:"required"`
	Goal           string    `json:"goal"`
	StartDate      time.Time `json:"start_date" binding:"required"`
	EndDate        time.Time `json:"end_date" binding:"required"`
	TargetCapacity *int      `json:"target_capacity"`
}

func (h *Handler) CreateCycle(c *gin.Context) {
	var req createCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	cycle, err := h.service.CreateCycle(c.Request.Context(), domain.CreateCycleInput{
		ProjectID:      req.ProjectID,
		Name:           req.Name,
		Goal:           req.Goal,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		TargetCapacity: req.TargetCapacity,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, cycle)
}

func (h *Handler) GetCycle(c *gin.Context) {
	cycleID, ok := cycleIDParam(c)
	if !ok {
		return
	}

	cycle, err := h.service.GetCycle(c.Request.Context(), cycleID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, cycle)
}

func (h *Handler) ListCycles(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Param("projectId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	cycles, err := h.service.ListCycles(c.Request.Context(), projectID, c.Query("status"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, cycles)
}

func (h *Handler) StartCycle(c *gin.Context) {
	cycleID, ok := cycleIDParam(c)
	if !ok {
		return
	}

	cycle, err := h.service.StartCycle(c.Request.Context(), cycleID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, cycle)
}

func (h *Handler) CompleteCycle(c *gin.Context) {
	cycleID, ok := cycleIDParam(c)
	if !ok {
		return
	}

	cycle, err := h.service.CompleteCycle(c.Request.Context(), cycleID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, cycle)
}

func (h *Handler) UpdateCycle(c *gin.Context) {
	cycleID, ok := cycleIDParam(c)
	if !ok {
		return
	}

	var update domain.CycleUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	cycle, err := h.service.UpdateCycle(c.Request.Context(), cycleID, update)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, cycle)
}

// --- Archive ---

func (h *Handler) ArchiveCycle(c *gin.Context) {
	cycleID, ok := cycleIDParam(c)
	if !ok {
		return
	}

	if err := h.service.ArchiveCycle(c.Request.Context(), cycleID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ListArchived(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Param("projectId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	cycles, err := h.service.ListArchived(c.Request.Context(), projectID, limit, offset)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, cycles)
}

func (h *Handler) RestoreCycle(c *gin.Context) {
	cycleID, ok := cycleIDParam(c)
	if !ok {
		return
	}

	cycle, err := h.service.RestoreCycle(c.Request.Context(), cycleID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, cycle)
}

// --- Planning ---

type planSprintRequest struct {
	IssueIDs []int `json:"issue_ids" binding:"required"`
}

func (h *Handler) PlanSprint(c *gin.Context) {
	cycleID, ok := cycleIDParam(c)
	if !ok {
		return
	}

	var req planSprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	cycle, err := h.service.PlanSprint(c.Request.Context(), cycleID, req.IssueIDs)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, cycle)
}

type moveIncompleteRequest struct {
	FromCycleID int `json:"from_cycle_id" binding:"required"`
}

// MoveIncompleteIssues: id в пути - целевой цикл, исходный приходит в теле
func (h *Handler) MoveIncompleteIssues(c *gin.Context) {
	toCycleID, ok := cycleIDParam(c)
	if !ok {
		return
	}

	var req moveIncompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	result, err := h.service.MoveIncompleteIssues(c.Request.Context(), req.FromCycleID, toCycleID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// --- Burndown ---

func (h *Handler) GetBurndown(c *gin.Context) {
	cycleID, ok := cycleIDParam(c)
	if !ok {
		return
	}

	report, err := h.service.ComputeBurndown(c.Request.Context(), cycleID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// --- Helpers ---

func cycleIDParam(c *gin.Context) (int, bool) {
	cycleID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cycle ID"})
		return 0, false
	}
	return cycleID, true
}

func handleServiceError(c *gin.Context, err error) {
	log.Printf("Service error: %v", err)
	switch err {
	case domain.ErrCycleNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case domain.ErrInvalidTransition:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case domain.ErrInvalidDateRange, domain.ErrValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
