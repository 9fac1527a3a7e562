// Package kbars is the Go client SDK for the kbars-server API.
package kbars

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Client talks to a kbars-server instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new kbars API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-200 response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kbars: server returned %d: %s", e.StatusCode, e.Message)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
			body.Error = resp.Status
		}
		return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.get(ctx, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Instruments lists instruments, filtered by type when instrumentType is
// non-empty.
func (c *Client) Instruments(ctx context.Context, instrumentType string) (*Instruments, error) {
	q := url.Values{}
	if instrumentType != "" {
		q.Set("type", instrumentType)
	}
	var out Instruments
	if err := c.get(ctx, "/api/v1/instruments", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Instrument fetches one instrument by order book ID.
func (c *Client) Instrument(ctx context.Context, orderBookID string) (*Instrument, error) {
	var out Instrument
	if err := c.get(ctx, "/api/v1/instruments/"+url.PathEscape(orderBookID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BarsOptions narrows a history query. The zero value asks for the server
// defaults: 120 daily bars as of the newest data, suspensions skipped.
type BarsOptions struct {
	Count  int
	Freq   string
	Date   time.Time
	Fields []string

	// SkipSuspended and IncludeNow override the server defaults (both
	// true) when non-nil.
	SkipSuspended *bool
	IncludeNow    *bool
}

// Bars fetches a columnar history window ending at the as-of date.
func (c *Client) Bars(ctx context.Context, orderBookID string, opts BarsOptions) (*Bars, error) {
	q := url.Values{}
	if opts.Count > 0 {
		q.Set("count", strconv.Itoa(opts.Count))
	}
	if opts.Freq != "" {
		q.Set("freq", opts.Freq)
	}
	if !opts.Date.IsZero() {
		q.Set("date", opts.Date.Format(dateLayout))
	}
	if len(opts.Fields) > 0 {
		q.Set("fields", strings.Join(opts.Fields, ","))
	}
	if opts.SkipSuspended != nil {
		q.Set("skip_suspended", strconv.FormatBool(*opts.SkipSuspended))
	}
	if opts.IncludeNow != nil {
		q.Set("include_now", strconv.FormatBool(*opts.IncludeNow))
	}
	var out Bars
	if err := c.get(ctx, "/api/v1/bars/"+url.PathEscape(orderBookID), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Bar fetches the daily bar of one trading day. A zero date means the
// newest available day.
func (c *Client) Bar(ctx context.Context, orderBookID string, date time.Time) (*Bar, error) {
	var out Bar
	if err := c.get(ctx, "/api/v1/bar/"+url.PathEscape(orderBookID), dateQuery(date), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SettlePrice fetches a futures settlement price for one trading day.
func (c *Client) SettlePrice(ctx context.Context, orderBookID string, date time.Time) (*SettlePrice, error) {
	var out SettlePrice
	if err := c.get(ctx, "/api/v1/settle-price/"+url.PathEscape(orderBookID), dateQuery(date), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Margin fetches the margin schedule of a futures instrument.
func (c *Client) Margin(ctx context.Context, orderBookID string) (*MarginInfo, error) {
	var out MarginInfo
	if err := c.get(ctx, "/api/v1/margin/"+url.PathEscape(orderBookID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Commission fetches the commission schedule of a futures instrument.
func (c *Client) Commission(ctx context.Context, orderBookID string) (*CommissionInfo, error) {
	var out CommissionInfo
	if err := c.get(ctx, "/api/v1/commission/"+url.PathEscape(orderBookID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Range fetches the available data range. An empty freq means daily.
func (c *Client) Range(ctx context.Context, freq string) (*DataRange, error) {
	q := url.Values{}
	if freq != "" {
		q.Set("freq", freq)
	}
	var out DataRange
	if err := c.get(ctx, "/api/v1/range", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dividends fetches dividend events. Variant is "adjusted" (the default
// when empty) or "original".
func (c *Client) Dividends(ctx context.Context, orderBookID, variant string) (*Dividends, error) {
	q := url.Values{}
	if variant != "" {
		q.Set("variant", variant)
	}
	var out Dividends
	if err := c.get(ctx, "/api/v1/dividends/"+url.PathEscape(orderBookID), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Suspended reports, per date, whether the instrument was suspended.
func (c *Client) Suspended(ctx context.Context, orderBookID string, dates []time.Time) (*DateFlags, error) {
	return c.dateFlags(ctx, "/api/v1/suspended/", orderBookID, dates)
}

// STStock reports, per date, whether the stock was under special treatment.
func (c *Client) STStock(ctx context.Context, orderBookID string, dates []time.Time) (*DateFlags, error) {
	return c.dateFlags(ctx, "/api/v1/st/", orderBookID, dates)
}

func (c *Client) dateFlags(ctx context.Context, prefix, orderBookID string, dates []time.Time) (*DateFlags, error) {
	labels := make([]string, len(dates))
	for i, d := range dates {
		labels[i] = d.Format(dateLayout)
	}
	q := url.Values{"dates": {strings.Join(labels, ",")}}
	var out DateFlags
	if err := c.get(ctx, prefix+url.PathEscape(orderBookID), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Calendar fetches trading dates, windowed when start or end is non-zero.
func (c *Client) Calendar(ctx context.Context, start, end time.Time) (*Calendar, error) {
	q := url.Values{}
	if !start.IsZero() {
		q.Set("start", start.Format(dateLayout))
	}
	if !end.IsZero() {
		q.Set("end", end.Format(dateLayout))
	}
	var out Calendar
	if err := c.get(ctx, "/api/v1/calendar", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// YieldCurve fetches yield curve points in [start, end], restricted to one
// tenor when tenor is non-empty.
func (c *Client) YieldCurve(ctx context.Context, start, end time.Time, tenor string) (*YieldCurve, error) {
	q := windowQuery(start, end)
	if tenor != "" {
		q.Set("tenor", tenor)
	}
	var out YieldCurve
	if err := c.get(ctx, "/api/v1/yield-curve", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RiskFreeRate fetches the annualized risk-free rate for [start, end].
func (c *Client) RiskFreeRate(ctx context.Context, start, end time.Time) (*RiskFreeRate, error) {
	var out RiskFreeRate
	if err := c.get(ctx, "/api/v1/risk-free-rate", windowQuery(start, end), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func dateQuery(date time.Time) url.Values {
	q := url.Values{}
	if !date.IsZero() {
		q.Set("date", date.Format(dateLayout))
	}
	return q
}

func windowQuery(start, end time.Time) url.Values {
	q := url.Values{}
	q.Set("start", start.Format(dateLayout))
	q.Set("end", end.Format(dateLayout))
	return q
}
