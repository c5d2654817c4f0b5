package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/e-learning/api"
	"github.com/irsalhamdi/e-learning/cache"
	"github.com/irsalhamdi/e-learning/config"
	"github.com/irsalhamdi/e-learning/core/auth"
	"github.com/irsalhamdi/e-learning/core/payment"
	"github.com/irsalhamdi/e-learning/database"
	"github.com/irsalhamdi/e-learning/rate"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
)

var build = "develop"

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	const prefix = "ELEARN"
	cfg := config.Config{
		Version: conf.Version{
			Build: build,
			Desc:  "e-learning api",
		},
	}

	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	logger.WithField("version", build).Info("starting server")
	defer logger.Info("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("rendering config for output: %w", err)
	}
	logger.Infof("config:\n%s", out)

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	if err := database.Migrate(cfg.DB); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Oauth.DiscoveryTimeout)
	defer cancel()

	rdb, err := cache.Open(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer rdb.Close()

	pp, err := paypal.NewClient(
		cfg.Paypal.ClientID,
		cfg.Paypal.Secret,
		cfg.Paypal.URL,
	)
	if err != nil {
		return fmt.Errorf("failed to build the paypal client: %w", err)
	}

	if cfg.Paypal.ClientID != "" {
		if _, err = pp.GetAccessToken(ctx); err != nil {
			return fmt.Errorf("failed to get the first paypal access token: %w", err)
		}
	}

	strp := payment.NewStripe(cfg.Stripe.APISecret, cfg.Stripe.URL)

	google := cfg.Oauth.Google
	oauthProvs, err := auth.MakeProviders(ctx, []auth.ProviderConfig{
		{Name: "google", Client: google.Client, Secret: google.Secret, URL: google.URL, RedirectURL: google.RedirectURL},
	})
	if err != nil {
		return fmt.Errorf("failed to discover oauth providers: %w", err)
	}

	limiter := rate.NewLimiter(cfg.Rate.Burst, cfg.Rate.Interval, cfg.Rate.Expiry)
	defer limiter.Stop()

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:           cfg.Cors.Origin,
		Log:                  logger,
		DB:                   db,
		Redis:                rdb,
		Issuer:               auth.NewIssuer(cfg.Auth, rdb),
		Limiter:              limiter,
		Paypal:               pp,
		Stripe:               strp,
		StripePublishableKey: cfg.Stripe.PublishableKey,
		Providers:            oauthProvs,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}
