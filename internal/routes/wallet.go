package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/subsmanager/subs_ledger/internal/wallet"
)

// RegisterWalletRoutes wires the money-movement endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallet/:accountId/recharge", h.Recharge)
	r.Post("/wallet/:accountId/deduct", h.Deduct)
	r.Post("/wallet/transfer", h.Transfer)
	r.Get("/wallet/:accountId/balance", h.Balance)
	r.Get("/wallet/:accountId/transactions", h.Transactions)
}
