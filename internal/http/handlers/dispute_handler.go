package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/propelhq/propel-backend/internal/http/handlers/common"
	"github.com/propelhq/propel-backend/internal/service"
	"github.com/propelhq/propel-backend/internal/storage"
)

// DisputeHandler предоставляет HTTP слой для споров.
type DisputeHandler struct {
	disputes *service.DisputeService
	evidence *storage.EvidenceStorage
}

// NewDisputeHandler создаёт хэндлер.
func NewDisputeHandler(disputes *service.DisputeService, evidence *storage.EvidenceStorage) *DisputeHandler {
	return &DisputeHandler{disputes: disputes, evidence: evidence}
}

// Open обрабатывает POST /disputes.
func (h *DisputeHandler) Open(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		ContractID  string `json:"contract_id" binding:"required"`
		Reason      string `json:"reason" binding:"required"`
		Description string `json:"description" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contractID, err := uuid.Parse(req.ContractID)
	if err != nil {
		common.RespondBadRequest(c, "неверный contract_id")
		return
	}

	dispute, err := h.disputes.OpenDispute(c.Request.Context(), service.OpenDisputeInput{
		ContractID:  contractID,
		RaisedBy:    userID,
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dispute)
}

// Get обрабатывает GET /disputes/:id.
func (h *DisputeHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.GetDispute(c.Request.Context(), userID, role, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// ListMy обрабатывает GET /disputes/my.
func (h *DisputeHandler) ListMy(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	disputes, err := h.disputes.ListMyDisputes(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"disputes": disputes})
}

// UploadEvidence обрабатывает POST /disputes/:id/evidence.
// Принимает multipart файл, проверяет его тип и прикладывает к спору.
func (h *DisputeHandler) UploadEvidence(c *gin.Context) {
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

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "файл обязателен")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}
	defer f.Close()

	path, _, err := h.evidence.Save(c.Request.Context(), id, fileHeader.Filename, f)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.AddEvidence(c.Request.Context(), userID, id, path)
	if err != nil {
		// Файл уже сохранён, но к спору не привязан: подчищаем.
		_ = h.evidence.Delete(c.Request.Context(), path)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// ListOpen обрабатывает GET /admin/disputes.
func (h *DisputeHandler) ListOpen(c *gin.Context) {
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	disputes, err := h.disputes.ListOpenDisputes(c.Request.Context(), role, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"disputes": disputes})
}

// MarkUnderReview обрабатывает POST /admin/disputes/:id/review.
func (h *DisputeHandler) MarkUnderReview(c *gin.Context) {
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, err := h.disputes.MarkUnderReview(c.Request.Context(), role, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dispute)
}

// Resolve обрабатывает POST /admin/disputes/:id/resolve.
func (h *DisputeHandler) Resolve(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	role, err := common.CurrentUserRole(c)
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
		Action  string `json:"action" binding:"required"`
		Summary string `json:"summary" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	dispute, contract, err := h.disputes.ResolveDispute(c.Request.Context(), service.ResolveDisputeInput{
		DisputeID:  id,
		ResolverID: userID,
		Role:       role,
		Action:     req.Action,
		Summary:    req.Summary,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dispute":  dispute,
		"contract": contract,
	})
}
