package refund

import (
	"log/slog"
	"net/http"
	"strconv"

	"cafeorder/app/echoServer/jwtx"
	rs "cafeorder/service/refund"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc rs.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /api/refunds
// @Summary File a refund request against a completed order
func (h *Controller) Create(c echo.Context) error {
	var req CreateRefundReq
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

	rr, err := h.Svc.Create(c.Request().Context(), uid, req.OrderID, req.Amount, req.Reason, req.Category)
	if err != nil {
		return h.fail(c, "refund create", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": rr})
}

// PUT /api/refunds/:id/review  (admin)
// @Summary Approve or reject a refund request
func (h *Controller) Review(c echo.Context) error {
	id, err := refundID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid id"})
	}
	var req ReviewRefundReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "validation error", "errors": err.Error()})
	}

	reviewer := "admin"
	if id, err := jwtx.UserIDFromToken(c); err == nil {
		reviewer = "admin:" + strconv.FormatInt(id, 10)
	}

	rr, err := h.Svc.Review(c.Request().Context(), id, reviewer, req.Action, req.Notes)
	if err != nil {
		return h.fail(c, "refund review", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": rr})
}

// POST /api/refunds/:id/process  (admin)
// @Summary Credit an approved refund to the wallet, exactly once
func (h *Controller) Process(c echo.Context) error {
	id, err := refundID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid id"})
	}
	rr, err := h.Svc.ProcessToWallet(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "refund process", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": rr})
}

// GET /api/refunds?userId=
func (h *Controller) List(c echo.Context) error {
	uid, err := jwtx.CallerID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}
	rows, err := h.Svc.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return h.fail(c, "refund list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": rows})
}

// GET /api/refunds/pending  (admin)
func (h *Controller) ListPending(c echo.Context) error {
	rows, err := h.Svc.ListPending(c.Request().Context())
	if err != nil {
		return h.fail(c, "refund pending list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": rows})
}

func refundID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func (h *Controller) fail(c echo.Context, op string, err error) error {
	h.Log.Error(op, "err", err)

	switch rs.Code(err) {
	case rs.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "not found"})
	case rs.ErrNotOwner:
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "forbidden"})
	case rs.ErrBadInput, rs.ErrInvalidState, rs.ErrAlreadyCredited:
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "internal error"})
	}
}
