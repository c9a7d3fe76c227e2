package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Muahhidun/zakupwedrink/internal/adapters/web"
	"github.com/Muahhidun/zakupwedrink/internal/app"
	"github.com/Muahhidun/zakupwedrink/internal/config"
	"github.com/Muahhidun/zakupwedrink/internal/core"
	"github.com/Muahhidun/zakupwedrink/internal/db"
	"github.com/Muahhidun/zakupwedrink/internal/draftcache"
	"github.com/Muahhidun/zakupwedrink/internal/notify"
)

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	secrets, err := config.LoadSecrets()
	if err != nil {
		log.Fatal().Err(err).Msg("loading secrets")
	}
	business, err := config.LoadBusiness(os.Getenv("BUSINESS_CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("loading business config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, secrets.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to database")
	}
	defer pool.Close()

	clock := core.NewSystemClock(nil)
	tenants := core.NewTenantStore(pool)
	access := core.NewAccessPolicy(tenants)
	catalog := core.NewCatalog(pool)
	ledger := core.NewLedger(pool)
	orders := core.NewOrderBook(pool)
	forecaster := core.NewForecaster(ledger, catalog, orders, clock, core.ForecasterConfig{
		MaxConcurrentForecasts: business.MaxConcurrentForecasts,
	})
	submissions := core.NewSubmissionQueue(pool)
	notifier := notify.NewLogNotifier(log)
	drafts := draftcache.New(business.DraftCacheTTL())
	defer drafts.Close()

	svc := &app.Service{
		Tenants:     tenants,
		Access:      access,
		Catalog:     catalog,
		Ledger:      ledger,
		Forecaster:  forecaster,
		Orders:      orders,
		Submissions: submissions,
		Notifier:    notifier,
		Clock:       clock,
		Drafts:      drafts,
		Business:    business,
	}

	router := web.NewRouter(svc, log, secrets.AllowedOrigins)
	server := &http.Server{
		Addr:         ":" + secrets.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", secrets.ServerPort).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
