package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusDeliveryBot/internal/config"
	"campusDeliveryBot/internal/db"
	"campusDeliveryBot/internal/dispatch"
	"campusDeliveryBot/internal/logger"
	"campusDeliveryBot/internal/notify"
	"campusDeliveryBot/internal/server"
	"campusDeliveryBot/repository"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zl.Infow("configuration loaded", "config", cfg.String())

	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		zl.Fatalw("open db", "error", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			zl.Errorw("close db", "error", err)
		}
	}()

	users := repository.NewUserRepository(d)
	orders := repository.NewOrderRepository(d)
	couriers := repository.NewCourierRepository(d)

	gateway := notify.NewBotClient(cfg.Bot.APIBase, cfg.Bot.Token, zl.Named("notify"))

	svc := dispatch.NewService(orders, couriers, users, dispatch.NewRegistry(), gateway,
		zl.Named("dispatch"), dispatch.Config{
			OfferTTL:           cfg.Dispatch.OfferTTL,
			MaxActiveOrders:    cfg.Dispatch.MaxActiveOrders,
			SkipAlertThreshold: cfg.Dispatch.SkipAlertThreshold,
			AdminChatID:        cfg.Bot.AdminChatID,
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rebuild the offer registry from assigned rows before serving traffic.
	if err := svc.RecoverOffers(ctx); err != nil {
		zl.Errorw("offer recovery failed", "error", err)
	}

	sweeper := dispatch.NewSweeper(svc, cfg.Dispatch.SweepInterval, zl.Named("sweeper"))
	go sweeper.Run(ctx)

	maintenance := dispatch.NewMaintenance(svc, cfg.Dispatch.MaintenanceInterval,
		cfg.Dispatch.StaleAssignedCutoff, zl.Named("maintenance"))
	go maintenance.Run(ctx)

	srv := server.New(orders, couriers, users, svc, zl.Named("http"))
	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: srv.Router(cfg.Auth.JWTSecret),
	}

	go func() {
		zl.Infow("http server listening", "address", cfg.HTTP.Address)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatalw("http server failed", "error", err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	zl.Infow("shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zl.Errorw("http shutdown", "error", err)
	}
}
