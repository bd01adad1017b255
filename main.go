// Package main cafeorder API.
//
// @title           cafeorder API
// @version         1.0
// @description     order and payment service (orders, wallet ledger, vouchers, top-ups, refunds).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"cafeorder/app/echoServer"
	orderctrl "cafeorder/app/echoServer/controller/order"
	paymentctrl "cafeorder/app/echoServer/controller/payment"
	refundctrl "cafeorder/app/echoServer/controller/refund"
	voucherctrl "cafeorder/app/echoServer/controller/voucher"
	walletctrl "cafeorder/app/echoServer/controller/wallet"
	"cafeorder/app/echoServer/validation"
	"cafeorder/config"
	orderrepo "cafeorder/repository/order"
	"cafeorder/repository/paygate"
	refundrepo "cafeorder/repository/refund"
	voucherrepo "cafeorder/repository/voucher"
	walletrepo "cafeorder/repository/wallet"
	ordersvc "cafeorder/service/order"
	paymentsvc "cafeorder/service/payment"
	refundsvc "cafeorder/service/refund"
	vouchersvc "cafeorder/service/voucher"
	walletsvc "cafeorder/service/wallet"
	"cafeorder/util/database"
	"context"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	// DB: *sql.DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	or := orderrepo.New(db)
	wr := walletrepo.New(db)
	vr := voucherrepo.New(db)
	rr := refundrepo.New(db)

	var gw paygate.Repo
	if cfg.GatewaySecret != "" {
		gw = paygate.NewHTTP(cfg.GatewayBaseURL, cfg.GatewaySecret, cfg.WebhookSecret)
	} else {
		// No gateway credentials: run the in-process fake so checkout
		// flows still work locally.
		log.Warn("no gateway secret configured, using fake gateway")
		gw = paygate.NewFake(paygate.NewFakeStore(), cfg.WebhookSecret)
	}

	// services
	ws := walletsvc.New(db, wr, gw, cfg.SuccessURL, cfg.CancelURL)
	vs := vouchersvc.New(vr)
	osv := ordersvc.New(db, or, wr, vr, gw, cfg.SuccessURL, cfg.CancelURL)
	ps := paymentsvc.New(gw, ws, osv, log)
	rs := refundsvc.New(db, rr, or, wr)

	// controllers
	v := validator.New()
	orderC := &orderctrl.Controller{Svc: osv, V: v, Log: log}
	walletC := &walletctrl.Controller{Svc: ws, V: v, Log: log}
	paymentC := &paymentctrl.Controller{Svc: ps, Log: log}
	voucherC := &voucherctrl.Controller{Svc: vs, V: v, Log: log}
	refundC := &refundctrl.Controller{Svc: rs, V: v, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Order:   orderC,
		Wallet:  walletC,
		Payment: paymentC,
		Voucher: voucherC,
		Refund:  refundC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}
	if port == "" {
		port = "8080"
	}

	slog.Info("starting server", "PORT_env", os.Getenv("PORT"), "chosen_port", port)

	e.Logger.Fatal(e.Start(":" + port))
}
