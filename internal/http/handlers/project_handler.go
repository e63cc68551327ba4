package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/propelhq/propel-backend/internal/http/handlers/common"
	"github.com/propelhq/propel-backend/internal/service"
)

// ProjectHandler предоставляет HTTP слой для проектов.
type ProjectHandler struct {
	projects *service.ProjectService
}

// NewProjectHandler создаёт хэндлер.
func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// Create обрабатывает POST /projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		Title          string    `json:"title" binding:"required"`
		Description    string    `json:"description" binding:"required"`
		Budget         float64   `json:"budget" binding:"required,gt=0"`
		Deadline       time.Time `json:"deadline" binding:"required"`
		RequiredSkills []string  `json:"required_skills"`
		Checklist      []string  `json:"checklist"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	project, err := h.projects.CreateProject(c.Request.Context(), service.CreateProjectInput{
		ClientID:       userID,
		Title:          req.Title,
		Description:    req.Description,
		Budget:         req.Budget,
		Deadline:       req.Deadline,
		RequiredSkills: req.RequiredSkills,
		Checklist:      req.Checklist,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

// List обрабатывает GET /projects.
func (h *ProjectHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	status := c.Query("status")

	projects, err := h.projects.ListProjects(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// ListMy обрабатывает GET /projects/my.
func (h *ProjectHandler) ListMy(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	projects, err := h.projects.ListMyProjects(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// Get обрабатывает GET /projects/:id.
func (h *ProjectHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	project, err := h.projects.GetProject(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// AddChecklistItem обрабатывает POST /projects/:id/checklist.
func (h *ProjectHandler) AddChecklistItem(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	project, err := h.projects.AddChecklistItem(c.Request.Context(), id, userID, req.Text)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// SetChecklistItem обрабатывает PATCH /projects/:id/checklist.
func (h *ProjectHandler) SetChecklistItem(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Index       *int `json:"index" binding:"required"`
		IsCompleted bool `json:"is_completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	project, err := h.projects.SetChecklistItemCompleted(c.Request.Context(), id, userID, *req.Index, req.IsCompleted)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// Cancel обрабатывает POST /projects/:id/cancel.
func (h *ProjectHandler) Cancel(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	project, err := h.projects.CancelProject(c.Request.Context(), id, userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, project)
}
