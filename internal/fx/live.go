package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// LiveTimeout bounds a single live rate lookup.
const LiveTimeout = 5 * time.Second

// ErrRateMissing is returned when the rate source answers without the
// requested target currency.
var ErrRateMissing = errors.New("rate missing from response")

// ErrHTTP wraps a non-2xx answer from the rate source.
type ErrHTTP struct {
	StatusCode int
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("fx source HTTP %d: %s", e.StatusCode, e.Body)
}

// LiveSource queries an exchangerate.host compatible endpoint:
// GET <url>?base=TRY&symbols=EUR -> {"rates":{"EUR":0.02857}}.
type LiveSource struct {
	endpoint string
	client   *http.Client
}

// NewLiveSource creates a live rate source. A nil client gets a default
// one bounded by LiveTimeout.
func NewLiveSource(endpoint string, client *http.Client) *LiveSource {
	if client == nil {
		client = &http.Client{Timeout: LiveTimeout}
	}
	return &LiveSource{endpoint: endpoint, client: client}
}

// Fetch implements FetchFunc.
func (s *LiveSource) Fetch(ctx context.Context, base, target string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, LiveTimeout)
	defer cancel()

	u, err := url.Parse(s.endpoint)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse fx endpoint: %w", err)
	}
	q := u.Query()
	q.Set("base", base)
	q.Set("symbols", target)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("HTTP GET %s: %w", s.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 180))
		return decimal.Decimal{}, &ErrHTTP{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		Rates map[string]json.Number `json:"rates"`
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode fx response: %w", err)
	}

	raw, ok := payload.Rates[target]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", target, ErrRateMissing)
	}
	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse rate %q: %w", raw, err)
	}
	return rate, nil
}
