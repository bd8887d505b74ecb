package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tickets-poeple101/parisriverseine/internal/catalog"
	"github.com/tickets-poeple101/parisriverseine/internal/config"
	"github.com/tickets-poeple101/parisriverseine/internal/forward"
	httpapi "github.com/tickets-poeple101/parisriverseine/internal/http"
	"github.com/tickets-poeple101/parisriverseine/internal/payments"
	"github.com/tickets-poeple101/parisriverseine/internal/reconcile"
)

func main() {
	logger := log.New(os.Stdout, "[checkout-service] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			logger.Fatalf("catalog: %v", err)
		}
	}
	logger.Printf("catalog loaded with %d SKUs", cat.Len())

	stripeClient := payments.NewClient(
		&http.Client{Timeout: cfg.StripeTimeout},
		cfg.StripeAPIBase,
		cfg.StripeSecretKey,
		logger,
	)
	verifier := payments.NewVerifier(cfg.StripeWebhookSecret, cfg.WebhookTolerance)
	builder := reconcile.NewBuilder(stripeClient, logger)
	forwarder := forward.New(
		&http.Client{Timeout: cfg.ForwardTimeout},
		cfg.AutomationURL,
		cfg.AutomationSecret,
		logger,
	)

	checkout := httpapi.NewCheckoutHandler(cat, stripeClient, cfg.BaseURL, cfg.StripeTimeout, logger)
	// The webhook budget covers the session re-fetch plus the forward call.
	webhook := httpapi.NewWebhookHandler(verifier, builder, forwarder, cfg.StripeTimeout+cfg.ForwardTimeout, logger)
	badge := httpapi.NewBadgeHandler(&http.Client{Timeout: 10 * time.Second}, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(checkout, webhook, badge),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Printf("shutdown signal: %s", sig)
	case err := <-errCh:
		logger.Fatalf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Println("shutdown complete")
}
