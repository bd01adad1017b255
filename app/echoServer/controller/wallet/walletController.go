package wallet

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"cafeorder/app/echoServer/jwtx"
	"cafeorder/model"
	"cafeorder/repository/paygate"
	ws "cafeorder/service/wallet"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc ws.Service
	V   *validator.Validate
	Log *slog.Logger
}

// GET /api/wallet?userId=
// @Summary Wallet snapshot (balance and coins); creates the wallet on first access
func (h *Controller) Get(c echo.Context) error {
	uid, err := jwtx.CallerID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}
	w, err := h.Svc.GetWallet(c.Request().Context(), uid)
	if err != nil {
		return h.fail(c, "wallet get", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": w})
}

// GET /api/wallet/transactions?userId=&limit=
// @Summary Wallet transaction history, most recent first
func (h *Controller) Transactions(c echo.Context) error {
	uid, err := jwtx.CallerID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	rows, err := h.Svc.Transactions(c.Request().Context(), uid, limit)
	if err != nil {
		return h.fail(c, "wallet transactions", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": rows})
}

// POST /api/topup
// @Summary Create a wallet top-up with a gateway checkout link
func (h *Controller) CreateTopup(c echo.Context) error {
	var req model.CreateTopupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "validation error", "errors": err.Error()})
	}
	uid := req.UserID
	if uid == 0 {
		var err error
		if uid, err = jwtx.CallerID(c); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
		}
	}

	t, err := h.Svc.CreateTopUp(c.Request().Context(), uid, req.Amount, req.PaymentMethod)
	if err != nil {
		return h.fail(c, "topup create", err)
	}
	resp := echo.Map{"success": true, "data": t}
	if t.CheckoutURL != nil {
		resp["checkoutUrl"] = *t.CheckoutURL
	}
	return c.JSON(http.StatusOK, resp)
}

// POST /api/payments/create-link
// @Summary Create a standalone payment link funding a wallet top-up
func (h *Controller) CreateLink(c echo.Context) error {
	var req model.CreateLinkReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "validation error", "errors": err.Error()})
	}

	t, err := h.Svc.CreateTopUp(c.Request().Context(), req.UserID, req.Amount, model.PaymentGateway)
	if err != nil {
		return h.fail(c, "payment link create", err)
	}
	resp := echo.Map{"success": true, "topUpId": t.ID}
	if t.CheckoutURL != nil {
		resp["checkoutUrl"] = *t.CheckoutURL
	}
	if t.SessionID != nil {
		resp["linkId"] = *t.SessionID
	}
	return c.JSON(http.StatusOK, resp)
}

// GET /api/topup/:id
func (h *Controller) GetTopup(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid id"})
	}
	t, err := h.Svc.GetTopUp(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "topup get", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": t})
}

func (h *Controller) fail(c echo.Context, op string, err error) error {
	h.Log.Error(op, "err", err)

	var ge *paygate.GatewayError
	if errors.As(err, &ge) {
		return c.JSON(http.StatusBadGateway, echo.Map{"success": false, "message": "payment gateway unavailable"})
	}
	switch ws.Code(err) {
	case ws.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "not found"})
	case ws.ErrInvalidAmount, ws.ErrInsufficientFunds, ws.ErrInsufficientCoins:
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "internal error"})
	}
}
