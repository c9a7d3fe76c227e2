// Command reminder runs the scheduled side of spec.md §9: once a day it
// builds each company's order digest and, if the priced total of its
// candidates reaches the notify threshold, pushes it through core.Notifier. The actual delivery
// channel (chat bot, email) is out of scope; this binary only proves the
// digest->notify wiring, the same way the teacher keeps its scheduled jobs
// as small standalone cmd/ binaries around a shared app.Service.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Muahhidun/zakupwedrink/internal/app"
	"github.com/Muahhidun/zakupwedrink/internal/config"
	"github.com/Muahhidun/zakupwedrink/internal/core"
	"github.com/Muahhidun/zakupwedrink/internal/db"
	"github.com/Muahhidun/zakupwedrink/internal/draftcache"
	"github.com/Muahhidun/zakupwedrink/internal/notify"
)

// tickInterval controls how often the loop checks whether it's time to run
// today's digest; the digest itself only actually fires once per calendar
// working day, tracked via lastRunDate.
const tickInterval = time.Hour

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Str("component", "reminder").Logger()

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
	catalog := core.NewCatalog(pool)
	ledger := core.NewLedger(pool)
	orders := core.NewOrderBook(pool)
	forecaster := core.NewForecaster(ledger, catalog, orders, clock, core.ForecasterConfig{
		MaxConcurrentForecasts: business.MaxConcurrentForecasts,
	})

	svc := &app.Service{
		Tenants:    tenants,
		Catalog:    catalog,
		Ledger:     ledger,
		Forecaster: forecaster,
		Orders:     orders,
		Clock:      clock,
		Drafts:     draftcache.New(business.DraftCacheTTL()),
		Business:   business,
	}
	notifier := notify.NewLogNotifier(log)

	var lastRunDate core.DateKey
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	runOnce(ctx, svc, notifier, tenants, log, business)
	lastRunDate = clock.WorkingDate()

	for range ticker.C {
		today := clock.WorkingDate()
		if today.Equal(lastRunDate) {
			continue
		}
		runOnce(ctx, svc, notifier, tenants, log, business)
		lastRunDate = today
	}
}

func runOnce(ctx context.Context, svc *app.Service, notifier core.Notifier, tenants core.TenantStore, log zerolog.Logger, business config.Business) {
	companies, err := tenants.ListCompanies(ctx)
	if err != nil {
		log.Error().Err(err).Msg("listing companies")
		return
	}
	threshold, _ := decimal.NewFromString(business.NotifyThresholdAmount)

	for _, company := range companies {
		if company.ID == core.SystemCompanyID {
			continue
		}
		digest, err := svc.BuildDashboardDigest(ctx, company.ID)
		if err != nil {
			log.Error().Err(err).Int("company_id", company.ID).Msg("building digest")
			continue
		}
		if len(digest.OrderCandidates) == 0 {
			continue
		}
		summary, err := svc.Forecaster.SummarizeOrder(ctx, company.ID, digest.OrderCandidates, threshold)
		if err != nil {
			log.Error().Err(err).Int("company_id", company.ID).Msg("summarizing order")
			continue
		}
		if !summary.ShouldNotify {
			continue
		}
		if err := notifier.NotifyOrderReady(ctx, company.ID, summary); err != nil {
			log.Error().Err(err).Int("company_id", company.ID).Msg("notifying order ready")
		}
	}
}
