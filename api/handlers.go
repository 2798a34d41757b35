package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/flohan/hotelrunner/internal/availability"
	"github.com/flohan/hotelrunner/internal/offer"
)

// maxRequestBody caps request bodies.
const maxRequestBody = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, routeList(s.router))
}

// handleCheckAvailability validates the query, runs it against HotelRunner
// and returns the availability matrix.
func (s *Server) handleCheckAvailability(w http.ResponseWriter, r *http.Request) {
	var fields map[string]json.RawMessage
	if err := decodeBody(r, &fields); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Details: err.Error()})
		return
	}

	req, err := availability.DecodeRequest(fields)
	if err != nil {
		var verr *availability.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Details: verr.Fields})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Details: err.Error()})
		return
	}

	resp, err := s.avail.GetAvailability(r.Context(), req)
	if err != nil {
		s.logger.Error("availability lookup failed",
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
		writeError(w, http.StatusBadGateway, "upstream_error", "Availability service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleComposeOffer prices an availability result in the guest's currency.
func (s *Server) handleComposeOffer(w http.ResponseWriter, r *http.Request) {
	var req offer.Request
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "compose_failed", err.Error())
		return
	}

	o, err := s.offers.Compose(r.Context(), req)
	if err != nil {
		s.logger.Warn("offer compose failed",
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
		writeError(w, http.StatusBadRequest, "compose_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleToolPing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "t": s.now().UnixMilli()})
}

// decodeBody reads a JSON object, keeping numbers exact.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
