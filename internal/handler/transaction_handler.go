package handler

import (
	"go-pos-backoffice/internal/service"

	"github.com/gofiber/fiber/v2"
)

type TransactionHandler struct {
	service service.TransactionService
}

func NewTransactionHandler(s service.TransactionService) *TransactionHandler {
	return &TransactionHandler{service: s}
}

func (h *TransactionHandler) ListHeaders(c *fiber.Ctx) error {
	headers, err := h.service.ListHeaders(c.Query("search"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(headers)
}

func (h *TransactionHandler) GetHeader(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}
	header, err := h.service.GetHeader(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(header)
}

func (h *TransactionHandler) CreateHeader(c *fiber.Ctx) error {
	var input service.HeaderInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	header, err := h.service.CreateHeader(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Transaction created", "data": header})
}

func (h *TransactionHandler) UpdateHeader(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}
	var input service.HeaderInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	header, err := h.service.UpdateHeader(c.Context(), id, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Transaction updated", "data": header})
}

func (h *TransactionHandler) DeleteHeader(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}
	if err := h.service.DeleteHeader(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Transaction deleted"})
}

func (h *TransactionHandler) BulkDeleteHeaders(c *fiber.Ctx) error {
	var req bulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if err := h.service.BulkDeleteHeaders(c.Context(), req.IDs); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Transactions deleted"})
}

func (h *TransactionHandler) ListDetails(c *fiber.Ctx) error {
	headerID, err := parseUUIDParam(c, "header_id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}
	details, err := h.service.ListDetails(headerID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(details)
}

func (h *TransactionHandler) GetDetail(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid detail ID"})
	}
	detail, err := h.service.GetDetail(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

func (h *TransactionHandler) CreateDetail(c *fiber.Ctx) error {
	headerID, err := parseUUIDParam(c, "header_id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}
	var input service.DetailInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	detail, err := h.service.CreateDetail(c.Context(), headerID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Transaction detail created", "data": detail})
}

func (h *TransactionHandler) UpdateDetail(c *fiber.Ctx) error {
	headerID, err := parseUUIDParam(c, "header_id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}
	detailID, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid detail ID"})
	}
	var input service.DetailInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	detail, err := h.service.UpdateDetail(c.Context(), headerID, detailID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Transaction detail updated", "data": detail})
}

func (h *TransactionHandler) DeleteDetail(c *fiber.Ctx) error {
	headerID, err := parseUUIDParam(c, "header_id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}
	detailID, err := parseUUIDParam(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid detail ID"})
	}
	if err := h.service.DeleteDetail(c.Context(), headerID, detailID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Transaction detail deleted"})
}

func (h *TransactionHandler) BulkDeleteDetails(c *fiber.Ctx) error {
	headerID, err := parseUUIDParam(c, "header_id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}
	var req bulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if err := h.service.BulkDeleteDetails(c.Context(), headerID, req.IDs); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Transaction details deleted"})
}
