package routes

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/subsmanager/subs_ledger/internal/expiry"
)

// RegisterAdminRoutes wires operator endpoints. The scan trigger shares the
// scheduler's non-reentrant guard, so a manual run cannot overlap a
// scheduled one.
func RegisterAdminRoutes(r fiber.Router, svc *expiry.Service, logger *slog.Logger) {
	r.Post("/admin/expiry-scan", func(c *fiber.Ctx) error {
		report, err := svc.Scan(c.UserContext(), time.Now().UTC())
		if errors.Is(err, expiry.ErrScanInProgress) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		if err != nil {
			logger.Error("manual expiry scan failed", "error", err)
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		failures := make([]fiber.Map, 0, len(report.Failures))
		for _, f := range report.Failures {
			failures = append(failures, fiber.Map{
				"subscription_id": f.SubscriptionID,
				"error":           f.Err.Error(),
			})
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"matched":  report.Matched,
			"sent":     report.Sent,
			"skipped":  report.Skipped,
			"failures": failures,
		})
	})
}
