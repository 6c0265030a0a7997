package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"harborlight/api"
	"harborlight/config"
	"harborlight/handlers"
	"harborlight/internal/logger"
	"harborlight/services/cms"
	"harborlight/services/content"
	"harborlight/services/donations"
	"harborlight/services/events"
	"harborlight/services/payments"
	"harborlight/utils"
)

const contentRefreshInterval = 15 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "").WithError(err).Fatal("configuration error")
	}

	log := logger.New(cfg.LogLevel, cfg.LogFile)
	log.WithField("port", cfg.Port).Info("starting harborlight")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.WithError(err).Fatal("failed to create data directory")
	}

	// Donation ledger (sqlite)
	ledger, err := donations.Open(filepath.Join(cfg.DataDir, "donations.db"), log)
	if err != nil {
		log.WithError(err).Fatal("failed to open donation ledger")
	}
	defer ledger.Close()

	// CMS-backed services. A missing project id is not fatal: content and
	// event endpoints serve empty data, and donations keep working.
	if cfg.CMSProjectID == "" && cfg.CMSBaseURL == "" {
		log.Warn("cms project id not set, content and events will be empty")
	}
	cmsClient := cms.NewClient(cfg.CMSProjectID, cfg.CMSDataset, cfg.CMSBaseURL, log)
	eventsSvc := events.New(cmsClient, log)
	contentSvc := content.New(cmsClient, log)
	contentSvc.StartBackgroundRefresh(contentRefreshInterval)
	defer contentSvc.Stop()

	// Payment providers
	stripeClient := payments.NewStripeClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret, ledger, log)
	paypalClient := payments.NewPayPalClient(cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.PayPalEnv, ledger, log)

	// Handlers
	eventsHandler := handlers.NewEventsHandler(eventsSvc)
	calendarHandler := handlers.NewCalendarHandler(eventsSvc)
	contentHandler := handlers.NewContentHandler(contentSvc)
	donationsHandler := handlers.NewDonationsHandler(stripeClient, paypalClient, ledger, log)
	webhooksHandler := handlers.NewWebhooksHandler(stripeClient, log)

	// Checkout endpoints get a per-IP limiter; 10 attempts a minute is
	// plenty for a human donor.
	checkoutLimiter := api.NewIPRateLimiter(rate.Every(6*time.Second), 10)

	r := utils.NewRouter(cfg.AllowedOrigins)
	r.Use(api.RequestLoggingMiddleware(log))

	r.HandleFunc("/api/events", eventsHandler.GetUpcoming).Methods(http.MethodGet)
	r.HandleFunc("/api/events/all", eventsHandler.GetAll).Methods(http.MethodGet)
	r.HandleFunc("/api/calendar/{year:[0-9]+}/{month:[0-9]+}", calendarHandler.GetMonth).Methods(http.MethodGet)

	r.HandleFunc("/api/content/pages", contentHandler.GetPages).Methods(http.MethodGet)
	r.HandleFunc("/api/content/pages/{slug}", contentHandler.GetPage).Methods(http.MethodGet)
	r.HandleFunc("/api/content/programs", contentHandler.GetPrograms).Methods(http.MethodGet)
	r.HandleFunc("/api/content/resources", contentHandler.GetResources).Methods(http.MethodGet)
	r.HandleFunc("/api/content/announcements", contentHandler.GetAnnouncements).Methods(http.MethodGet)
	r.HandleFunc("/api/content/status", contentHandler.GetStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/content/refresh", contentHandler.Refresh).Methods(http.MethodPost)

	r.HandleFunc("/api/donations/stripe/intent",
		api.RateLimitHandlerFunc(checkoutLimiter, donationsHandler.CreateStripeIntent)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/donations/paypal/order",
		api.RateLimitHandlerFunc(checkoutLimiter, donationsHandler.CreatePayPalOrder)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/donations/paypal/capture",
		api.RateLimitHandlerFunc(checkoutLimiter, donationsHandler.CapturePayPalOrder)).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/donations/summary", donationsHandler.GetSummary).Methods(http.MethodGet)

	r.HandleFunc("/api/webhooks/stripe", webhooksHandler.HandleStripe).Methods(http.MethodPost)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
}
