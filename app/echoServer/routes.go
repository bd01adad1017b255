package echoServer

import (
	"net/http"

	"cafeorder/app/echoServer/controller/order"
	"cafeorder/app/echoServer/controller/payment"
	"cafeorder/app/echoServer/controller/refund"
	"cafeorder/app/echoServer/controller/voucher"
	"cafeorder/app/echoServer/controller/wallet"
	"cafeorder/app/echoServer/jwtx"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

type C struct {
	Order   *order.Controller
	Wallet  *wallet.Controller
	Payment *payment.Controller
	Voucher *voucher.Controller
	Refund  *refund.Controller

	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Gateway push; authenticated by its own signature header, never by JWT.
	e.POST("/api/payments/webhook", c.Payment.HandleWebhook)

	api := e.Group("/api")
	api.Use(OptionalAuth(c.JWTSecret))

	// Orders
	api.POST("/orders", c.Order.Create)
	api.GET("/orders", c.Order.List)
	api.GET("/orders/:id", c.Order.Get)
	api.POST("/orders/:id/pay", c.Order.Pay)
	api.POST("/orders/:id/complete", c.Order.Complete)
	api.POST("/orders/:id/verify", c.Order.Verify)

	// Wallet & top-ups
	api.GET("/wallet", c.Wallet.Get)
	api.GET("/wallet/transactions", c.Wallet.Transactions)
	api.POST("/topup", c.Wallet.CreateTopup)
	api.GET("/topup/:id", c.Wallet.GetTopup)
	api.POST("/payments/create-link", c.Wallet.CreateLink)

	// Vouchers
	api.POST("/vouchers/apply", c.Voucher.Apply)
	api.GET("/vouchers", c.Voucher.List)

	// Refunds
	api.POST("/refunds", c.Refund.Create)
	api.GET("/refunds", c.Refund.List)

	// Admin surface
	admin := e.Group("/api")
	admin.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	admin.Use(requireAdmin)

	admin.POST("/vouchers", c.Voucher.Create)
	admin.GET("/refunds/pending", c.Refund.ListPending)
	admin.PUT("/refunds/:id/review", c.Refund.Review)
	admin.POST("/refunds/:id/process", c.Refund.Process)
}

func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		role, err := jwtx.RoleFromToken(ctx)
		if err != nil {
			return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
		}
		if role != "admin" {
			return ctx.JSON(http.StatusForbidden, echo.Map{"message": "admin only"})
		}
		if id, err := jwtx.UserIDFromToken(ctx); err == nil {
			ctx.Set("user_id", id)
		}
		return next(ctx)
	}
}
