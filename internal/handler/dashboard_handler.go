package handler

import (
	"go-pos-backoffice/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

func (h *DashboardHandler) Get(c *fiber.Ctx) error {
	data, err := h.service.GetDashboard()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(data)
}
