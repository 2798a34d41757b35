// HotelRunner bridge: availability and offer service for the voice assistant.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/flohan/hotelrunner/api"
	"github.com/flohan/hotelrunner/internal/availability"
	"github.com/flohan/hotelrunner/internal/config"
	"github.com/flohan/hotelrunner/internal/offer"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger
var (
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hotelrunner",
	Short: "HotelRunner availability and offer bridge",
	Long: `hotelrunner bridges a voice booking assistant to the HotelRunner PMS.
It answers availability queries from rooms and reservations and prices
offers in the guest's currency.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger = newLogger(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(offerCmd)
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hotelrunner %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Tool.Secret == "" {
			return errors.New("TOOL_SECRET must be set to serve the tool endpoints")
		}
		app, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		srv := api.NewServer(cfg, app.availability, app.composer, logger)
		return srv.ListenAndServe(cmd.Context(), cfg.Server.Addr())
	},
}

// --- Check Command ---

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one availability query against HotelRunner",
	Example: `  hotelrunner check --check-in 2025-10-01 --check-out 2025-10-04 --adults 2
  hotelrunner check --check-in 2025-10-01 --check-out 2025-10-02 --adults 1 --offer EUR`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := availability.RequestInput{}
		in.CheckIn, _ = cmd.Flags().GetString("check-in")
		in.CheckOut, _ = cmd.Flags().GetString("check-out")
		in.Currency, _ = cmd.Flags().GetString("currency")
		adults, _ := cmd.Flags().GetInt("adults")
		children, _ := cmd.Flags().GetInt("children")
		in.Adults = &adults
		in.Children = &children

		req, err := availability.NewRequest(in)
		if err != nil {
			return err
		}
		app, err := newApp(cfg, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		resp, err := app.availability.GetAvailability(ctx, req)
		if err != nil {
			return err
		}
		if err := printJSON(cmd, resp); err != nil {
			return err
		}

		display, _ := cmd.Flags().GetString("offer")
		if display == "" {
			return nil
		}
		o, err := app.composer.Compose(ctx, offer.Request{
			AvailabilityResult: resp.AsResult(),
			DisplayCurrency:    display,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, o)
	},
}

func init() {
	checkCmd.Flags().String("check-in", "", "check-in date (YYYY-MM-DD)")
	checkCmd.Flags().String("check-out", "", "check-out date (YYYY-MM-DD)")
	checkCmd.Flags().Int("adults", 2, "number of adults (1-8)")
	checkCmd.Flags().Int("children", 0, "number of children (0-8)")
	checkCmd.Flags().String("currency", "", "requested currency for the stay summary")
	checkCmd.Flags().String("offer", "", "also compose an offer in this display currency")
	_ = checkCmd.MarkFlagRequired("check-in")
	_ = checkCmd.MarkFlagRequired("check-out")
}

// --- Offer Command ---

var offerCmd = &cobra.Command{
	Use:   "offer",
	Short: "Compose a priced offer from a stay total",
	Example: `  hotelrunner offer --total 43400 --currency TRY --nights 10 --display EUR
  hotelrunner offer --total 43400 --phone-country DE --breakfast=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		totalRaw, _ := cmd.Flags().GetString("total")
		total, err := decimal.NewFromString(totalRaw)
		if err != nil {
			return fmt.Errorf("invalid --total %q: %w", totalRaw, err)
		}
		baseCur, _ := cmd.Flags().GetString("currency")
		nights, _ := cmd.Flags().GetInt("nights")
		breakfast, _ := cmd.Flags().GetBool("breakfast")

		result := map[string]any{
			"total":  json.Number(total.String()),
			"nights": json.Number(strconv.Itoa(nights)),
		}
		if baseCur != "" {
			result["currency"] = baseCur
		}

		req := offer.Request{AvailabilityResult: result, IncludeBreakfast: &breakfast}
		req.DisplayCurrency, _ = cmd.Flags().GetString("display")
		req.UserChoice, _ = cmd.Flags().GetString("user-choice")
		req.ChannelDefault, _ = cmd.Flags().GetString("channel-default")
		req.PhoneCountry, _ = cmd.Flags().GetString("phone-country")
		req.IPCountry, _ = cmd.Flags().GetString("ip-country")

		app, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		o, err := app.composer.Compose(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(cmd, o)
	},
}

func init() {
	offerCmd.Flags().String("total", "0", "stay total in the base currency")
	offerCmd.Flags().String("currency", "", "base currency of the total (default: property base currency)")
	offerCmd.Flags().Int("nights", 1, "number of nights")
	offerCmd.Flags().String("display", "", "display currency (overrides the hints)")
	offerCmd.Flags().String("user-choice", "", "currency the guest asked for")
	offerCmd.Flags().String("channel-default", "", "channel default currency")
	offerCmd.Flags().String("phone-country", "", "ISO country of the caller's phone number")
	offerCmd.Flags().String("ip-country", "", "ISO country of the caller's IP")
	offerCmd.Flags().Bool("breakfast", true, "include breakfast")
}

// --- Rate Command ---

var rateCmd = &cobra.Command{
	Use:   "rate [base] [target]",
	Short: "Resolve an FX rate and show where it came from",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		q := app.rates.Rate(cmd.Context(), args[0], args[1])
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  (%s)\n", q.Pair, q.Rate.String(), q.Source)
		return nil
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and credential status",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintln(out, "  HotelRunner Bridge Status")
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintf(out, "  Version:       %s (%s)\n", version, commit)
		fmt.Fprintf(out, "  Time (UTC):    %s\n", time.Now().UTC().Format(time.RFC3339))
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Configuration:")
		fmt.Fprintf(out, "    API Server:     %s\n", cfg.Server.Addr())
		fmt.Fprintf(out, "    Base Currency:  %s\n", cfg.Property.BaseCurrency)
		fmt.Fprintf(out, "    HotelRunner:    %s\n", cfg.HotelRunner.BaseURL)
		fmt.Fprintf(out, "    Apps API:       %s\n", cfg.HotelRunner.AppsBaseURL)
		fmt.Fprintf(out, "    Paging:         %d per page, max %d pages\n", cfg.HotelRunner.PerPage, cfg.HotelRunner.MaxPages)
		fmt.Fprintf(out, "    FX Source:      %s (cache %d min)\n", cfg.FX.APIURL, cfg.FX.CacheMinutes)
		fmt.Fprintf(out, "    FX Overrides:   %d\n", len(cfg.FX.Overrides))
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Credentials:")
		for _, k := range config.CheckKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Fprintf(out, "    %-20s %s\n", k.Name+":", status)
		}

		fmt.Fprintln(out, "═══════════════════════════════════════")
		return nil
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
