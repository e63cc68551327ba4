package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/propelhq/propel-backend/internal/http/handlers/common"
	"github.com/propelhq/propel-backend/internal/service"
)

// BidHandler предоставляет HTTP слой для откликов.
type BidHandler struct {
	bids *service.BidService
}

// NewBidHandler создаёт хэндлер.
func NewBidHandler(bids *service.BidService) *BidHandler {
	return &BidHandler{bids: bids}
}

// Place обрабатывает POST /projects/:id/bids.
func (h *BidHandler) Place(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Amount   float64 `json:"amount" binding:"required,gt=0"`
		Days     int     `json:"days" binding:"required,gt=0"`
		Proposal string  `json:"proposal" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	bid, err := h.bids.PlaceBid(c.Request.Context(), service.PlaceBidInput{
		ProjectID:    projectID,
		ContractorID: userID,
		Amount:       req.Amount,
		Days:         req.Days,
		Proposal:     req.Proposal,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, bid)
}

// ListForProject обрабатывает GET /projects/:id/bids.
func (h *BidHandler) ListForProject(c *gin.Context) {
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

	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	bids, err := h.bids.ListProjectBids(c.Request.Context(), projectID, userID, role)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

// ListMy обрабатывает GET /bids/my.
func (h *BidHandler) ListMy(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	bids, err := h.bids.ListMyBids(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bids": bids})
}
