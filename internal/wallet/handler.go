package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/subsmanager/subs_ledger/internal/account"
	"github.com/subsmanager/subs_ledger/internal/ledger"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type transferRequest struct {
	SourceAccountID      string          `json:"source_account_id"`
	DestinationAccountID string          `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
}

// Recharge credits the account.
func (h *Handler) Recharge(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	balance, err := h.service.Recharge(c.UserContext(), c.Params("accountId"), req.Amount)
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id":  c.Params("accountId"),
		"new_balance": balance,
	})
}

// Deduct debits the account.
func (h *Handler) Deduct(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	balance, err := h.service.Deduct(c.UserContext(), c.Params("accountId"), req.Amount)
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id":  c.Params("accountId"),
		"new_balance": balance,
	})
}

// Transfer moves funds between two accounts of one user.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Transfer(c.UserContext(), req.SourceAccountID, req.DestinationAccountID, req.Amount)
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"group_id":            res.GroupID,
		"source_balance":      res.SourceBalance,
		"destination_balance": res.DestinationBalance,
		"completed_at":        res.CompletedAt,
	})
}

// Balance returns the current account balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.BalanceOf(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id": c.Params("accountId"),
		"balance":    balance,
	})
}

// Transactions returns the account movement history.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	entries, err := h.service.Transactions(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return httpError(err)
	}
	out := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		item := fiber.Map{
			"entry_id":   e.ID,
			"kind":       e.Kind,
			"amount":     e.Amount,
			"group_id":   e.GroupID,
			"created_at": e.CreatedAt,
		}
		if e.CounterpartAccountID != "" {
			item["counterpart_account_id"] = e.CounterpartAccountID
		}
		out = append(out, item)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id":   c.Params("accountId"),
		"transactions": out,
	})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ErrInvalidDestination):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, account.ErrNotFound), errors.Is(err, ledger.ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAccountInactive):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
