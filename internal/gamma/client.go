package gamma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultURL = "https://gamma-api.polymarket.com"

// DefaultUserAgent mimics a browser UA to avoid Cloudflare 403s.
const DefaultUserAgent = "Mozilla/5.0"

// Client fetches market metadata from the Gamma API.
type Client struct {
	host       string
	httpClient *http.Client
	userAgent  string
}

func NewClient(host string) (*Client, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultURL
	}
	host = strings.TrimRight(host, "/")

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("gamma url parse %q: %w", host, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("gamma url must be http(s), got %q", host)
	}

	return &Client{
		host: host,
		httpClient: &http.Client{
			Timeout: 12 * time.Second,
		},
		userAgent: DefaultUserAgent,
	}, nil
}

// Market is one prediction-market instrument. TokenIDs and OutcomePrices are
// ordered outcome-0 first.
type Market struct {
	ID            string
	Question      string
	Slug          string
	ConditionID   string
	TokenIDs      []string
	Outcomes      []string
	OutcomePrices []float64
	Volume24h     float64
	Liquidity     float64
	Active        bool
	Closed        bool
	EndDate       string
}

// OutcomePrice returns the quoted price for the given outcome index, or 0
// when the index is out of range.
func (m Market) OutcomePrice(idx int) float64 {
	if idx < 0 || idx >= len(m.OutcomePrices) {
		return 0
	}
	return m.OutcomePrices[idx]
}

// stringList tolerates Gamma's habit of returning lists either as JSON arrays
// or as JSON strings that themselves contain a JSON array.
type stringList []string

func (s *stringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}

	if b[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*s = nil
			return nil
		}
		var vals []string
		if err := json.Unmarshal([]byte(raw), &vals); err != nil {
			return err
		}
		*s = vals
		return nil
	}

	var vals []string
	if err := json.Unmarshal(b, &vals); err != nil {
		return err
	}
	*s = vals
	return nil
}

// floatString accepts a JSON number or a quoted decimal string.
type floatString float64

func (f *floatString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse decimal %q: %w", s, err)
		}
		*f = floatString(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = floatString(v)
	return nil
}

type marketJSON struct {
	ID            string      `json:"id"`
	Question      string      `json:"question"`
	Slug          string      `json:"slug"`
	ConditionID   string      `json:"conditionId"`
	ClobTokenIDs  stringList  `json:"clobTokenIds"`
	Outcomes      stringList  `json:"outcomes"`
	OutcomePrices stringList  `json:"outcomePrices"`
	Volume24h     floatString `json:"volume24hr"`
	Liquidity     floatString `json:"liquidity"`
	Active        bool        `json:"active"`
	Closed        bool        `json:"closed"`
	EndDate       string      `json:"endDate"`
}

func (m marketJSON) toMarket() Market {
	prices := make([]float64, 0, len(m.OutcomePrices))
	for _, p := range m.OutcomePrices {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			v = 0
		}
		prices = append(prices, v)
	}

	ids := make([]string, 0, len(m.ClobTokenIDs))
	for _, id := range m.ClobTokenIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}

	return Market{
		ID:            m.ID,
		Question:      m.Question,
		Slug:          m.Slug,
		ConditionID:   m.ConditionID,
		TokenIDs:      ids,
		Outcomes:      append([]string(nil), m.Outcomes...),
		OutcomePrices: prices,
		Volume24h:     float64(m.Volume24h),
		Liquidity:     float64(m.Liquidity),
		Active:        m.Active,
		Closed:        m.Closed,
		EndDate:       m.EndDate,
	}
}

// MarketsByConditionID looks up markets bound to an oracle condition id. Zero
// results is not an error; the caller decides whether that matters.
func (c *Client) MarketsByConditionID(ctx context.Context, conditionID string) ([]Market, error) {
	conditionID = strings.TrimSpace(conditionID)
	if conditionID == "" {
		return nil, fmt.Errorf("condition id required")
	}

	q := url.Values{}
	q.Set("condition_ids", conditionID)
	return c.listMarkets(ctx, q)
}

// MarketBySlug resolves a single market by its URL slug.
func (c *Client) MarketBySlug(ctx context.Context, slug string) (Market, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Market{}, fmt.Errorf("slug required")
	}

	q := url.Values{}
	q.Set("slug", slug)
	markets, err := c.listMarkets(ctx, q)
	if err != nil {
		return Market{}, err
	}
	if len(markets) == 0 {
		return Market{}, fmt.Errorf("gamma: no market for slug %q", slug)
	}
	return markets[0], nil
}

// ListMarkets fetches up to limit markets, optionally active-only. Used by
// the markets CLI, not the strategy loop.
func (c *Client) ListMarkets(ctx context.Context, limit int, activeOnly bool) ([]Market, error) {
	if limit <= 0 {
		limit = 20
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if activeOnly {
		q.Set("active", "true")
		q.Set("closed", "false")
	}
	return c.listMarkets(ctx, q)
}

func (c *Client) listMarkets(ctx context.Context, q url.Values) ([]Market, error) {
	if c == nil {
		return nil, fmt.Errorf("gamma client nil")
	}

	endpoint := c.host + "/markets?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := readBodyLimit(resp.Body, 8<<10)
		return nil, fmt.Errorf("gamma %s: status=%d body=%q", endpoint, resp.StatusCode, body)
	}

	var raw []marketJSON
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("gamma decode: %w", err)
	}

	markets := make([]Market, 0, len(raw))
	for _, m := range raw {
		markets = append(markets, m.toMarket())
	}
	return markets, nil
}

func readBodyLimit(r io.Reader, max int64) string {
	if r == nil || max <= 0 {
		return ""
	}
	lr := &io.LimitedReader{R: r, N: max}
	b, _ := io.ReadAll(lr)
	return strings.TrimSpace(string(b))
}
