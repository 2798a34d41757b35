// Package hotelrunner is a client for the HotelRunner property-management
// API: room inventory, reservations, the availability summary and the
// currency list.
package hotelrunner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/flohan/hotelrunner/internal/config"
	"github.com/flohan/hotelrunner/internal/infra"
	"github.com/flohan/hotelrunner/pkg/utils"
)

// UserAgent identifies this service to HotelRunner.
const UserAgent = "retell-booking-service/1.0"

// Per-call timeouts.
const (
	DefaultTimeout      = 15 * time.Second
	ReservationsTimeout = 20 * time.Second
)

// Circuit breaker defaults: open after this many consecutive failures and
// stay open for BreakerOpenFor.
const (
	BreakerThreshold = 3
	BreakerOpenFor   = 10 * time.Second
)

const summaryPath = "/api/v1/availability/search.json"

// Upstream operations. Each one is guarded by its own circuit breaker so a
// failing optional endpoint never blocks the others.
const (
	opRooms        = "rooms"
	opReservations = "reservations"
	opSummary      = "summary"
	opCurrencies   = "currencies"
)

var operations = []string{opRooms, opReservations, opSummary, opCurrencies}

// maxBody bounds how much of a response is read into memory.
const maxBody = 16 << 20

// Record is a raw JSON object returned by HotelRunner.
type Record = map[string]any

// Client talks to HotelRunner. It is safe for concurrent use.
type Client struct {
	baseURL     string
	appsURL     string
	currencyURL string
	token       string
	hrID        string
	perPage     int
	maxPages    int

	http     *http.Client
	throttle *infra.Throttle
	breakers map[string]*gobreaker.CircuitBreaker
	retry    infra.RetryPolicy
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBreaker overrides the circuit breaker threshold and open interval
// of every operation.
func WithBreaker(threshold uint32, openFor time.Duration) Option {
	return func(c *Client) { c.breakers = newBreakers(threshold, openFor, c.logger) }
}

// New creates a client from configuration.
func New(cfg config.HotelRunnerConfig, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 100
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 50
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		appsURL:     strings.TrimRight(cfg.AppsBaseURL, "/"),
		currencyURL: cfg.CurrencyURL,
		token:       cfg.Token,
		hrID:        cfg.HRID,
		perPage:     perPage,
		maxPages:    maxPages,
		http:        &http.Client{},
		retry:       cfg.Retry,
		logger:      logger.With("component", "hotelrunner"),
	}
	if cfg.RateLimit > 0 {
		c.throttle = infra.NewThrottle(cfg.RateLimit, time.Second)
	}
	c.breakers = newBreakers(BreakerThreshold, BreakerOpenFor, c.logger)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newBreakers(threshold uint32, openFor time.Duration, logger *slog.Logger) map[string]*gobreaker.CircuitBreaker {
	out := make(map[string]*gobreaker.CircuitBreaker, len(operations))
	for _, op := range operations {
		out[op] = newBreaker("hotelrunner."+op, threshold, openFor, logger)
	}
	return out
}

func newBreaker(name string, threshold uint32, openFor time.Duration, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// Rooms returns the full room inventory.
func (c *Client) Rooms(ctx context.Context) ([]Record, error) {
	params, err := c.appsParams()
	if err != nil {
		return nil, err
	}
	var payload struct {
		Rooms []Record `json:"rooms"`
	}
	if err := c.getJSON(ctx, opRooms, c.appsURL+"/rooms", params, DefaultTimeout, &payload); err != nil {
		return nil, err
	}
	if payload.Rooms == nil {
		return []Record{}, nil
	}
	return payload.Rooms, nil
}

// Reservations returns every reservation between from and to, following
// pagination until a short page. Running into the page ceiling is an
// error, never a silent truncation.
func (c *Client) Reservations(ctx context.Context, from, to time.Time) ([]Record, error) {
	all := []Record{}
	for page := 1; ; page++ {
		if page > c.maxPages {
			return nil, fmt.Errorf("%w (%d pages of %d)", ErrPageLimit, c.maxPages, c.perPage)
		}
		params, err := c.appsParams()
		if err != nil {
			return nil, err
		}
		params.Set("from_date", utils.FormatDate(from))
		params.Set("to_date", utils.FormatDate(to))
		params.Set("page", strconv.Itoa(page))
		params.Set("per_page", strconv.Itoa(c.perPage))
		params.Set("undelivered", "false")
		params.Set("modified", "false")
		params.Set("booked", "false")

		var payload struct {
			Reservations []Record `json:"reservations"`
		}
		if err := c.getJSON(ctx, opReservations, c.appsURL+"/reservations", params, ReservationsTimeout, &payload); err != nil {
			return nil, err
		}
		all = append(all, payload.Reservations...)
		c.logger.Debug("reservations page", "page", page, "count", len(payload.Reservations))
		if len(payload.Reservations) < c.perPage {
			return all, nil
		}
	}
}

// SummaryQuery is the body of an availability search.
type SummaryQuery struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Adults   int    `json:"adults"`
	Children int    `json:"children"`
	Currency string `json:"currency"`
}

// Summary posts an availability search and returns the raw answer, which
// carries the stay total and its currency.
func (c *Client) Summary(ctx context.Context, q SummaryQuery) (Record, error) {
	if c.token == "" {
		return nil, missingCredential("HOTELRUNNER_TOKEN")
	}
	body, err := json.Marshal(struct {
		HRID string `json:"hr_id"`
		SummaryQuery
	}{HRID: c.hrID, SummaryQuery: q})
	if err != nil {
		return nil, fmt.Errorf("encode summary body: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+cleanToken(c.token))
	headers.Set("Content-Type", "application/json")

	data, err := c.do(ctx, opSummary, http.MethodPost, c.baseURL+summaryPath, headers, body, DefaultTimeout)
	if err != nil {
		return nil, err
	}
	var out Record
	if err := decodeJSON(data, &out); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if out == nil {
		out = Record{}
	}
	return out, nil
}

// Currencies returns the property's currency list. Both {"currencies":[...]}
// and a bare list are accepted; anything else yields an empty list.
func (c *Client) Currencies(ctx context.Context) ([]any, error) {
	params, err := c.appsParams()
	if err != nil {
		return nil, err
	}
	var raw any
	if err := c.getJSON(ctx, opCurrencies, c.currencyURL, params, DefaultTimeout, &raw); err != nil {
		return nil, err
	}
	switch v := raw.(type) {
	case map[string]any:
		if list, ok := v["currencies"].([]any); ok {
			return list, nil
		}
	case []any:
		return v, nil
	}
	return []any{}, nil
}

// --- request plumbing ---

func (c *Client) appsParams() (url.Values, error) {
	if c.token == "" {
		return nil, missingCredential("HOTELRUNNER_TOKEN")
	}
	if c.hrID == "" {
		return nil, missingCredential("HR_ID")
	}
	v := url.Values{}
	v.Set("token", c.token)
	v.Set("hr_id", c.hrID)
	return v, nil
}

func (c *Client) getJSON(ctx context.Context, op, endpoint string, params url.Values, timeout time.Duration, out any) error {
	u := endpoint
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + params.Encode()
	}
	data, err := c.do(ctx, op, http.MethodGet, u, nil, nil, timeout)
	if err != nil {
		return err
	}
	if err := decodeJSON(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", op, err)
	}
	return nil
}

// do runs one logical call: throttled, guarded by the operation's circuit
// breaker and retried according to the retry policy.
func (c *Client) do(ctx context.Context, op, method, u string, headers http.Header, body []byte, timeout time.Duration) ([]byte, error) {
	var data []byte
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		if err := c.throttle.Wait(ctx); err != nil {
			return infra.Permanent(err)
		}
		out, err := c.breakers[op].Execute(func() (any, error) {
			return c.attempt(ctx, op, method, u, headers, body, timeout)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return infra.Permanent(fmt.Errorf("hotelrunner %s: %w", op, err))
			}
			var se *StatusError
			if errors.As(err, &se) && !se.Temporary() {
				return infra.Permanent(err)
			}
			return err
		}
		data = out.([]byte)
		return nil
	}, func(err error, next time.Duration) {
		c.logger.Warn("hotelrunner call failed, retrying", "op", op, "error", err, "retry_in", next)
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) attempt(ctx context.Context, op, method, u string, headers http.Header, body []byte, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hotelrunner %s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("hotelrunner %s: read body: %w", op, err)
	}
	c.logger.Debug("hotelrunner call", "op", op, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 400 {
		se := &StatusError{Op: op, StatusCode: resp.StatusCode, Snippet: snippet(data)}
		c.logger.Error("hotelrunner error response", "op", op, "status", se.StatusCode, "snippet", se.Snippet)
		return nil, se
	}
	return data, nil
}

func decodeJSON(data []byte, out any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}

// cleanToken strips a leading "Bearer " so the token is never doubled.
func cleanToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		return token[7:]
	}
	return token
}
