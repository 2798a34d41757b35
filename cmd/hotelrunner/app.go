package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/flohan/hotelrunner/internal/availability"
	"github.com/flohan/hotelrunner/internal/config"
	"github.com/flohan/hotelrunner/internal/fx"
	"github.com/flohan/hotelrunner/internal/hotelrunner"
	"github.com/flohan/hotelrunner/internal/logging"
	"github.com/flohan/hotelrunner/internal/offer"
)

// app holds the wired components shared by the commands.
type app struct {
	availability *availability.Service
	rates        *fx.Resolver
	composer     *offer.Composer
}

func newLogger(cfg *config.Config) *slog.Logger {
	l := logging.New(cfg.Logging, os.Stderr)
	slog.SetDefault(l)
	return l
}

// newApp wires the HotelRunner client, the FX chain and the services.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	overrides, err := cfg.FX.OverrideRates()
	if err != nil {
		return nil, fmt.Errorf("fx overrides: %w", err)
	}

	client := hotelrunner.New(cfg.HotelRunner, logger)
	live := fx.NewCache(fx.NewLiveSource(cfg.FX.APIURL, nil).Fetch, cfg.FX.CacheTTL(), nil)
	rates := fx.NewResolver(overrides, live, logger.With("component", "fx"))

	return &app{
		availability: availability.NewService(client, cfg.Property.BaseCurrency, logger),
		rates:        rates,
		composer:     offer.NewComposer(rates, cfg.Property.BaseCurrency, nil, logger),
	}, nil
}
