package handlers

import (
	"walletsaga/internal/services/saga"
	"walletsaga/internal/utils"

	"github.com/gofiber/fiber/v2"
)

const defaultTransactionLimit = 20

// TransactionHandler serves the transfer orchestrator API.
type TransactionHandler struct {
	sagaService saga.Service
}

func NewTransactionHandler(sagaService saga.Service) *TransactionHandler {
	return &TransactionHandler{
		sagaService: sagaService,
	}
}

// CreateTransaction runs a transfer. A replayed idempotency key answers 200
// with the original result instead of 201.
func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	var req saga.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	out, err := h.sagaService.Transfer(c.UserContext(), req)
	if err != nil {
		return utils.Error(c, err)
	}
	if out.Replayed {
		return utils.Success(c, out.Result)
	}
	return utils.Created(c, out.Result)
}

// CreateInterbank sends funds to another app. The caller's Authorization
// header is forwarded to the clearing house.
func (h *TransactionHandler) CreateInterbank(c *fiber.Ctx) error {
	token := c.Get(fiber.HeaderAuthorization)
	if token == "" {
		return utils.Unauthorized(c, "missing authorization token")
	}
	var req saga.InterbankRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	req.AuthToken = token

	out, err := h.sagaService.Interbank(c.UserContext(), req)
	if err != nil {
		return utils.Error(c, err)
	}
	if out.Replayed {
		return utils.Success(c, out.Result)
	}
	return utils.Created(c, out.Result)
}

func (h *TransactionHandler) ListTransactions(c *fiber.Ctx) error {
	pagination := utils.GetPagination(c, 1, defaultTransactionLimit)

	txs, total, err := h.sagaService.ListTransfers(c.UserContext(), pagination.Limit, pagination.Offset)
	if err != nil {
		return utils.Error(c, err)
	}
	pagination.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(txs, pagination))
}

func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid transaction id")
	}

	tx, err := h.sagaService.GetTransfer(c.UserContext(), id)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, tx)
}

func (h *TransactionHandler) ReverseTransaction(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "invalid transaction id")
	}

	res, err := h.sagaService.Reverse(c.UserContext(), id)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Created(c, res)
}
