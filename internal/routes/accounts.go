package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/subsmanager/subs_ledger/internal/account"
)

// AccountHandler exposes payment-method endpoints.
type AccountHandler struct {
	accounts *account.Service
}

// NewAccountHandler builds a payment-method HTTP handler.
func NewAccountHandler(accounts *account.Service) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// RegisterAccountRoutes wires payment-method CRUD endpoints.
func RegisterAccountRoutes(r fiber.Router, h *AccountHandler) {
	r.Get("/payment-methods/:userId", h.List)
	r.Post("/payment-methods", h.Create)
	r.Delete("/payment-methods/:userId/:accountId", h.Remove)
}

type createAccountRequest struct {
	UserID     string `json:"user_id"`
	Kind       string `json:"kind"`
	CardNumber string `json:"card_number"`
	CardHolder string `json:"card_holder"`
	CardExpiry string `json:"card_expiry"`
}

type accountResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Kind       string `json:"kind"`
	CardNumber string `json:"card_number,omitempty"`
	CardHolder string `json:"card_holder,omitempty"`
	CardExpiry string `json:"card_expiry,omitempty"`
	Status     string `json:"status"`
}

func toAccountResponse(a account.Account) accountResponse {
	return accountResponse{
		ID:         a.ID,
		UserID:     a.UserID,
		Kind:       a.Kind,
		CardNumber: a.CardNumber,
		CardHolder: a.CardHolder,
		CardExpiry: a.CardExpiry,
		Status:     a.Status,
	}
}

// Create registers a new payment method for a user.
func (h *AccountHandler) Create(c *fiber.Ctx) error {
	var req createAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	created, err := h.accounts.Create(c.UserContext(), account.CreateInput{
		UserID:     req.UserID,
		Kind:       req.Kind,
		CardNumber: req.CardNumber,
		CardHolder: req.CardHolder,
		CardExpiry: req.CardExpiry,
	})
	if err != nil {
		switch {
		case errors.Is(err, account.ErrKindInUse):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, account.ErrInvalidKind):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(toAccountResponse(created))
}

// List returns the user's registered payment methods.
func (h *AccountHandler) List(c *fiber.Ctx) error {
	accounts, err := h.accounts.ListByUser(c.UserContext(), c.Params("userId"))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": out})
}

// Remove soft-removes a payment method.
func (h *AccountHandler) Remove(c *fiber.Ctx) error {
	err := h.accounts.Remove(c.UserContext(), c.Params("userId"), c.Params("accountId"))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}
