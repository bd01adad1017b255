package voucher

import (
	"log/slog"
	"net/http"

	"cafeorder/model"
	vs "cafeorder/service/voucher"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc vs.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /api/vouchers/apply
// @Summary Check a voucher against an order total
// A rejected code is a 200 with success=false, not an HTTP error.
func (h *Controller) Apply(c echo.Context) error {
	var req ApplyVoucherReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "validation error", "errors": err.Error()})
	}

	res, err := h.Svc.Apply(c.Request().Context(), req.Code, req.OrderTotal)
	if err != nil {
		h.Log.Error("voucher apply", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "internal error"})
	}
	out := echo.Map{"success": res.Success, "discount": res.Discount}
	if res.Message != "" {
		out["message"] = res.Message
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/vouchers  (admin)
func (h *Controller) Create(c echo.Context) error {
	var req CreateVoucherReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "validation error", "errors": err.Error()})
	}

	v, err := h.Svc.Create(c.Request().Context(), &model.Voucher{
		Code:          req.Code,
		DiscountType:  model.DiscountType(req.DiscountType),
		DiscountValue: req.DiscountValue,
		MinPurchase:   req.MinPurchase,
		MaxDiscount:   req.MaxDiscount,
		ValidFrom:     req.ValidFrom,
		ValidUntil:    req.ValidUntil,
		Active:        req.Active,
		UsageLimit:    req.UsageLimit,
	})
	if err != nil {
		h.Log.Error("voucher create", "err", err)
		switch vs.Code(err) {
		case vs.ErrBadInput:
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid voucher definition"})
		case vs.ErrCodeTaken:
			return c.JSON(http.StatusConflict, echo.Map{"success": false, "message": "code already exists"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": v})
}

// GET /api/vouchers
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.ListActive(c.Request().Context())
	if err != nil {
		h.Log.Error("voucher list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": rows})
}
