package order

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"cafeorder/app/echoServer/jwtx"
	"cafeorder/repository/paygate"
	osvc "cafeorder/service/order"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc osvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /api/orders?userId=
// @Summary Create an order, applying voucher and coin discounts
// @Success 200 {object} map[string]any
// @Failure 400,403,404,502
func (h *Controller) Create(c echo.Context) error {
	var req CreateOrderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "validation error", "errors": err.Error()})
	}
	uid, err := jwtx.CallerID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}

	items := make([]osvc.ItemIn, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, osvc.ItemIn{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	o, err := h.Svc.Create(c.Request().Context(), osvc.CreateIn{
		UserID:        uid,
		Branch:        req.Branch,
		Items:         items,
		VoucherCode:   req.VoucherCode,
		PaymentMethod: req.PaymentMethod,
		CoinsToUse:    req.CoinsToUse,
	})
	if err != nil {
		return h.fail(c, "order create", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": o})
}

// POST /api/orders/:id/pay
// @Summary Resume checkout on a pending order
func (h *Controller) Pay(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid id"})
	}
	var req PayOrderReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "validation error", "errors": err.Error()})
	}
	uid, err := jwtx.CallerID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}

	o, err := h.Svc.Pay(c.Request().Context(), uid, id, osvc.PayIn{
		PaymentMethod: req.PaymentMethod,
		VoucherCode:   req.VoucherCode,
		CoinsToUse:    req.CoinsToUse,
	})
	if err != nil {
		return h.fail(c, "order pay", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": o})
}

// POST /api/orders/:id/complete
// @Summary Idempotently mark a pending order completed
func (h *Controller) Complete(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid id"})
	}
	o, err := h.Svc.Complete(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "order complete", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": o})
}

// POST /api/orders/:id/verify
// @Summary Poll the gateway and complete the order if it was paid
func (h *Controller) Verify(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid id"})
	}
	o, msg, err := h.Svc.Verify(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "order verify", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": o, "message": msg})
}

// GET /api/orders/:id
func (h *Controller) Get(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid id"})
	}
	o, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "order get", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": o})
}

// GET /api/orders?userId=
func (h *Controller) List(c echo.Context) error {
	uid, err := jwtx.CallerID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}
	rows, err := h.Svc.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return h.fail(c, "order list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": rows})
}

func orderID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func (h *Controller) fail(c echo.Context, op string, err error) error {
	h.Log.Error(op, "err", err)

	var ge *paygate.GatewayError
	if errors.As(err, &ge) {
		return c.JSON(http.StatusBadGateway, echo.Map{"success": false, "message": "payment gateway unavailable"})
	}
	switch osvc.Code(err) {
	case osvc.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "order not found"})
	case osvc.ErrNotOwner:
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "forbidden"})
	case osvc.ErrBadInput, osvc.ErrInvalidState, osvc.ErrVoucherRejected,
		osvc.ErrInsufficientFunds, osvc.ErrInsufficientCoins:
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "internal error"})
	}
}
