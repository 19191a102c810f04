package handlers

import (
	"strconv"

	"walletsaga/internal/services/ledger"
	"walletsaga/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// WalletHandler serves the ledger engine API.
type WalletHandler struct {
	ledgerService ledger.Service
}

func NewWalletHandler(ledgerService ledger.Service) *WalletHandler {
	return &WalletHandler{
		ledgerService: ledgerService,
	}
}

func (h *WalletHandler) CreateWallet(c *fiber.Ctx) error {
	var req ledger.CreateWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	wallet, err := h.ledgerService.Create(c.UserContext(), req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Created(c, wallet)
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return utils.BadRequest(c, "invalid user id")
	}

	wallet, err := h.ledgerService.GetBalance(c.UserContext(), userID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, wallet)
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	walletID, err := paramID(c, "walletId")
	if err != nil {
		return utils.BadRequest(c, "invalid wallet id")
	}

	wallet, err := h.ledgerService.GetWallet(c.UserContext(), walletID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, wallet)
}

func (h *WalletHandler) UpdateStatus(c *fiber.Ctx) error {
	walletID, err := paramID(c, "walletId")
	if err != nil {
		return utils.BadRequest(c, "invalid wallet id")
	}
	var req ledger.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	wallet, err := h.ledgerService.UpdateStatus(c.UserContext(), walletID, req.Status)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, wallet)
}

func (h *WalletHandler) Credit(c *fiber.Ctx) error {
	var req ledger.OperationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	wallet, err := h.ledgerService.Credit(c.UserContext(), req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, wallet)
}

func (h *WalletHandler) Debit(c *fiber.Ctx) error {
	var req ledger.OperationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	wallet, err := h.ledgerService.Debit(c.UserContext(), req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, wallet)
}

func (h *WalletHandler) Compensate(c *fiber.Ctx) error {
	var req ledger.CompensationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	entry, err := h.ledgerService.Compensate(c.UserContext(), req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, entry)
}

// GetLedger lists the wallet's entries, newest first. With ?details=true each
// entry carries the counterparty's name and phone.
func (h *WalletHandler) GetLedger(c *fiber.Ctx) error {
	walletID, err := paramID(c, "walletId")
	if err != nil {
		return utils.BadRequest(c, "invalid wallet id")
	}

	if c.QueryBool("details") {
		entries, err := h.ledgerService.GetLedgerWithDetails(c.UserContext(), walletID)
		if err != nil {
			return utils.Error(c, err)
		}
		return utils.Success(c, entries)
	}

	entries, err := h.ledgerService.GetLedger(c.UserContext(), walletID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, entries)
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}
