package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/propelhq/propel-backend/internal/http/handlers/common"
	"github.com/propelhq/propel-backend/internal/service"
)

// ContractHandler предоставляет HTTP слой жизненного цикла контракта.
type ContractHandler struct {
	contracts *service.ContractService
}

// NewContractHandler создаёт хэндлер.
func NewContractHandler(contracts *service.ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

// AcceptBid обрабатывает POST /bids/:id/accept.
func (h *ContractHandler) AcceptBid(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bidID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.contracts.AcceptBid(c.Request.Context(), userID, bidID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, contract)
}

// SubmitWork обрабатывает POST /contracts/:id/submit.
// Идентификатор может быть контрактом или проектом.
func (h *ContractHandler) SubmitWork(c *gin.Context) {
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
		Link  string `json:"link" binding:"required"`
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	contract, err := h.contracts.SubmitWork(c.Request.Context(), userID, id, req.Link, req.Notes)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, contract)
}

// ReleasePayment обрабатывает POST /contracts/:id/release.
func (h *ContractHandler) ReleasePayment(c *gin.Context) {
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

	result, err := h.contracts.ReleasePayment(c.Request.Context(), userID, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get обрабатывает GET /contracts/:id.
func (h *ContractHandler) Get(c *gin.Context) {
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

	contract, err := h.contracts.GetContract(c.Request.Context(), userID, role, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, contract)
}

// ListMy обрабатывает GET /contracts/my.
func (h *ContractHandler) ListMy(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	contracts, err := h.contracts.GetMyContracts(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contracts": contracts})
}

// Invoice обрабатывает GET /contracts/:id/invoice.
// Возвращает PDF-квитанцию по рассчитанному контракту.
func (h *ContractHandler) Invoice(c *gin.Context) {
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

	pdf, filename, err := h.contracts.InvoiceForContract(c.Request.Context(), userID, role, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
