package handler

import (
	"go-pos-backoffice/internal/location"
	"go-pos-backoffice/internal/model"
	"go-pos-backoffice/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CustomerHandler struct {
	service        service.CustomerService
	locationClient *location.Client
}

func NewCustomerHandler(s service.CustomerService, lc *location.Client) *CustomerHandler {
	return &CustomerHandler{service: s, locationClient: lc}
}

func (h *CustomerHandler) List(c *fiber.Ctx) error {
	customers, err := h.service.List(c.Query("search"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(customers)
}

func (h *CustomerHandler) Search(c *fiber.Ctx) error {
	customers, err := h.service.Search(c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(customers)
}

func (h *CustomerHandler) Get(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid customer ID"})
	}
	customer, err := h.service.GetByID(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(customer)
}

func (h *CustomerHandler) Create(c *fiber.Ctx) error {
	var customer model.Customer
	if err := c.BodyParser(&customer); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if err := h.service.Create(&customer); err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Customer created", "data": customer})
}

func (h *CustomerHandler) Update(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid customer ID"})
	}
	var customer model.Customer
	if err := c.BodyParser(&customer); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	updated, err := h.service.Update(id, &customer)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Customer updated", "data": updated})
}

func (h *CustomerHandler) Delete(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid customer ID"})
	}
	if err := h.service.Delete(id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Customer deleted"})
}

func (h *CustomerHandler) BulkDelete(c *fiber.Ctx) error {
	var req bulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if err := h.service.BulkDelete(req.IDs); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Customers deleted"})
}

// Location lookups proxy the external geographic service; responses are
// cached by the client's staleness window.

func (h *CustomerHandler) GetProvinces(c *fiber.Ctx) error {
	items, err := h.locationClient.Provinces(c.Context())
	if err != nil {
		return c.Status(502).JSON(fiber.Map{"error": "Location service unavailable"})
	}
	return c.JSON(items)
}

func (h *CustomerHandler) GetRegencies(c *fiber.Ctx) error {
	items, err := h.locationClient.Regencies(c.Context(), c.Query("province_id"))
	if err != nil {
		return c.Status(502).JSON(fiber.Map{"error": "Location service unavailable"})
	}
	return c.JSON(items)
}

func (h *CustomerHandler) GetDistricts(c *fiber.Ctx) error {
	items, err := h.locationClient.Districts(c.Context(), c.Query("regency_id"))
	if err != nil {
		return c.Status(502).JSON(fiber.Map{"error": "Location service unavailable"})
	}
	return c.JSON(items)
}

func (h *CustomerHandler) GetVillages(c *fiber.Ctx) error {
	items, err := h.locationClient.Villages(c.Context(), c.Query("district_id"))
	if err != nil {
		return c.Status(502).JSON(fiber.Map{"error": "Location service unavailable"})
	}
	return c.JSON(items)
}

func (h *CustomerHandler) GetPostalCodes(c *fiber.Ctx) error {
	items, err := h.locationClient.PostalCodes(c.Context(), c.Query("regency_id"), c.Query("district_id"))
	if err != nil {
		return c.Status(502).JSON(fiber.Map{"error": "Location service unavailable"})
	}
	return c.JSON(items)
}
