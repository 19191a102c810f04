package handlers

import (
	"walletsaga/internal/services/transfer"
	"walletsaga/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// DepositAcceptor queues inbound deposits.
type DepositAcceptor interface {
	Accept(req transfer.DepositRequest) error
}

// ExternalHandler receives deposits pushed by the clearing house.
type ExternalHandler struct {
	deposits DepositAcceptor
}

func NewExternalHandler(deposits DepositAcceptor) *ExternalHandler {
	return &ExternalHandler{deposits: deposits}
}

// Receive acknowledges the deposit once it is queued; crediting happens
// afterwards.
func (h *ExternalHandler) Receive(c *fiber.Ctx) error {
	var req transfer.DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if err := h.deposits.Accept(req); err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{
		"message":     "deposit received, processing",
		"status":      "received",
		"external_id": req.ExternalTransactionID,
	})
}
