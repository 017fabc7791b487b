package handler

import (
	"go-pos-backoffice/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// respondError maps a service failure onto its HTTP status. Anything outside
// the taxonomy has already been logged by the service and surfaces generic.
func respondError(c *fiber.Ctx, err error) error {
	appErr := apperror.Get(err)
	return c.Status(appErr.Code).JSON(appErr)
}

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}

type bulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids"`
}
