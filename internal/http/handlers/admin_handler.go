package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/propelhq/propel-backend/internal/http/handlers/common"
	"github.com/propelhq/propel-backend/internal/service"
)

// AdminHandler предоставляет HTTP слой административной сводки.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler создаёт хэндлер.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// Stats обрабатывает GET /admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	stats, err := h.admin.Stats(c.Request.Context(), role)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// BanUser обрабатывает PUT /admin/users/:id/ban. Повторный вызов
// снимает блокировку.
func (h *AdminHandler) BanUser(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
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

	user, err := h.admin.ToggleUserBan(c.Request.Context(), adminID, role, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
