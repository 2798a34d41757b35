// Package api: configuration report for operators.
package api

import (
	"net/http"
	"sort"

	"github.com/flohan/hotelrunner/internal/config"
)

// ConfigResponse is the body returned by GET /retell/tool/config.
// Secrets only appear masked in Keys.
type ConfigResponse struct {
	BaseCurrency   string             `json:"base_currency"`
	FXCacheMinutes int                `json:"fx_cache_minutes"`
	FXAPIURL       string             `json:"fx_api_url"`
	FXOverrides    []string           `json:"fx_overrides"`
	HotelRunnerURL string             `json:"hotelrunner_base_url"`
	AppsURL        string             `json:"hotelrunner_apps_base_url"`
	PerPage        int                `json:"per_page"`
	MaxPages       int                `json:"max_pages"`
	Keys           []config.KeyStatus `json:"keys"`
}

// handleToolConfig reports the running configuration and credential status.
func (s *Server) handleToolConfig(w http.ResponseWriter, r *http.Request) {
	pairs := make([]string, 0, len(s.cfg.FX.Overrides))
	for k := range s.cfg.FX.Overrides {
		pairs = append(pairs, k)
	}
	sort.Strings(pairs)

	writeJSON(w, http.StatusOK, ConfigResponse{
		BaseCurrency:   s.cfg.Property.BaseCurrency,
		FXCacheMinutes: s.cfg.FX.CacheMinutes,
		FXAPIURL:       s.cfg.FX.APIURL,
		FXOverrides:    pairs,
		HotelRunnerURL: s.cfg.HotelRunner.BaseURL,
		AppsURL:        s.cfg.HotelRunner.AppsBaseURL,
		PerPage:        s.cfg.HotelRunner.PerPage,
		MaxPages:       s.cfg.HotelRunner.MaxPages,
		Keys:           config.CheckKeys(s.cfg),
	})
}
