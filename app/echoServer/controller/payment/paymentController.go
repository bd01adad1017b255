package payment

import (
	"io"
	"log/slog"
	"net/http"

	paymentsvc "cafeorder/service/payment"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc paymentsvc.Service
	Log *slog.Logger
}

// POST /api/payments/webhook
// @Summary Gateway payment webhook
// The gateway is always acknowledged, including on processing failures;
// an error response would only trigger vendor-side retry storms. Failed
// events are recovered through the verify path.
func (h *Controller) HandleWebhook(c echo.Context) error {
	sig := c.Request().Header.Get("Paygate-Signature")
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.Log.Error("webhook body read", "err", err)
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	if err := h.Svc.HandleWebhook(c.Request().Context(), raw, sig); err != nil {
		h.Log.Error("webhook processing", "err", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
