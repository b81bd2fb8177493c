package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tourism-ticket-marketplace/internal/config"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/database"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/gateway"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/handler"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/money"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/queue"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/repository"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/router"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/service"
	"github.com/iliyamo/tourism-ticket-marketplace/internal/worker"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	cfg := config.Load()
	if cfg.Env == "dev" {
		logrus.SetLevel(logrus.DebugLevel)
	}
	money.SetFeeRateBasisPoints(cfg.Ledger.PlatformFeeBasisPoints)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the availability cache, the rate limiter and the payment
	// session cache.  All three degrade to no-ops when it is down.
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	gw := gateway.NewClient(gateway.Config{
		ServerKey:   cfg.Gateway.ServerKey,
		SnapURL:     cfg.Gateway.SnapURL,
		APIURL:      cfg.Gateway.APIURL,
		Timeout:     cfg.Gateway.Timeout,
		FinishURL:   cfg.Gateway.FinishURL,
		UnfinishURL: cfg.Gateway.UnfinishURL,
		ErrorURL:    cfg.Gateway.ErrorURL,
	}, gateway.NewRedisSessionCache(rdb, "paysession", cfg.Gateway.SessionCacheTTL))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var pub service.EventPublisher = queue.NopPublisher{}
	if cfg.AMQP.Enabled {
		pub = queue.NewPublisher(cfg.AMQP.URL)
		go func() {
			if err := queue.NewAuditConsumer(cfg.AMQP.URL, cfg.AMQP.AuditDir).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logrus.WithError(err).Error("audit consumer exited")
			}
		}()
	}

	stores := service.Stores{
		Tx:           database.NewTxRunner(db),
		Tickets:      repository.NewTicketRepo(db),
		Reservations: repository.NewInventoryReservationRepo(db),
		Carts:        repository.NewCartRepo(db),
		Orders:       repository.NewOrderRepo(db),
		Events:       repository.NewPaymentEventRepo(db),
		Earnings:     repository.NewEarningRepo(db),
		Withdrawals:  repository.NewWithdrawalRepo(db),
	}
	guard := service.NewInventoryGuard(stores.Tickets, stores.Reservations)
	carts := service.NewCartService(stores, guard)
	checkout := service.NewCheckoutService(stores, guard, gw, service.CheckoutConfig{
		ReservationTTL: cfg.Ledger.ReservationTTL,
		GatewayTimeout: cfg.Gateway.Timeout,
	})
	ledger := service.NewLedger(stores, cfg.Ledger.HoldingPeriod)
	recon := service.NewReconciliationService(stores, ledger, gw, pub, cfg.Ledger.ReservationTTL)
	withdrawals := service.NewWithdrawalService(stores, pub)
	orders := service.NewOrderService(stores)

	var verifier handler.SignatureVerifier
	if cfg.Gateway.VerifySignature {
		verifier = gw
	} else {
		logrus.Warn("payment webhook signature verification is disabled")
	}

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, router.Handlers{
		Cart:     handler.NewCartHandler(carts),
		Tickets:  handler.NewTicketHandler(guard),
		Orders:   handler.NewOrderHandler(checkout, orders),
		Payments: handler.NewPaymentHandler(recon, verifier),
		Seller:   handler.NewSellerHandler(ledger, withdrawals),
		Admin:    handler.NewAdminHandler(withdrawals),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		DB:        db,
		Redis:     rdb,
		RateLimit: cfg.RateLimit,
		Cache:     cfg.Cache,
	})

	go worker.NewEarningsPromoter(ledger, cfg.Ledger.PromoteInterval).Start(ctx)
	go worker.NewReservationSweeper(recon, cfg.Ledger.SweepInterval, cfg.Ledger.SweepBatch).Start(ctx)

	addr := ":" + cfg.Port
	go func() {
		logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down")

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("http server shutdown")
	}
}
