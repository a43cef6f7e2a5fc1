// Package bridge is the HTTP client for the external trading bridge. The
// bridge owns all hard computation (price history, indicator math,
// backtesting, order execution); this client only ferries requests and
// decodes its structured error payloads.
package bridge

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

	"tradesim/internal/model"
)

// Client wraps REST access to the trade bridge and the indicator service.
type Client struct {
	BaseURL      string // account/strategy/history endpoints
	IndicatorURL string // stream handshake endpoint
	HTTPClient   *http.Client
}

// NewClient builds a bridge client for the two service bases.
func NewClient(baseURL, indicatorURL string) *Client {
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		IndicatorURL: strings.TrimRight(indicatorURL, "/"),
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Status probes the bridge session and returns the account snapshot when a
// terminal is logged in.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.getJSON(ctx, c.BaseURL+"/status", &out, "failed to fetch bridge status"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login opens a terminal session on the bridge and returns the account info.
func (c *Client) Login(ctx context.Context, account int64, password, server string) (*model.AccountInfo, error) {
	payload := map[string]any{
		"account":  account,
		"password": password,
		"server":   server,
	}
	var out struct {
		AccountInfo model.AccountInfo `json:"account_info"`
	}
	if err := c.postJSON(ctx, c.BaseURL+"/login", payload, &out, "login failed"); err != nil {
		return nil, err
	}
	return &out.AccountInfo, nil
}

// StartStream asks the indicator service for a per-strategy stream socket and
// returns the websocket URL to connect to.
func (c *Client) StartStream(ctx context.Context, s model.Strategy) (string, error) {
	var out struct {
		WebsocketURL string `json:"websocket_url"`
	}
	if err := c.postJSON(ctx, c.IndicatorURL+"/start-stream/", toPayload(s), &out, "failed to start indicator stream"); err != nil {
		return "", err
	}
	if out.WebsocketURL == "" {
		return "", &Error{Message: "bridge returned no websocket url"}
	}
	return out.WebsocketURL, nil
}

// StartStrategy issues a start command and returns the bridge's raw
// acknowledgement status.
func (c *Client) StartStrategy(ctx context.Context, s model.Strategy) (string, error) {
	return c.strategyCommand(ctx, c.BaseURL+"/start-strategy/", s, "failed to start strategy")
}

// StopStrategy issues a stop command and returns the bridge's raw
// acknowledgement status.
func (c *Client) StopStrategy(ctx context.Context, s model.Strategy) (string, error) {
	return c.strategyCommand(ctx, c.BaseURL+"/stop-strategy/", s, "failed to stop strategy")
}

func (c *Client) strategyCommand(ctx context.Context, endpoint string, s model.Strategy, fallback string) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.postJSON(ctx, endpoint, toPayload(s), &out, fallback); err != nil {
		return "", err
	}
	return out.Status, nil
}

// Trades fetches the bridge's current open position list: ground truth for
// which strategies are actually live.
func (c *Client) Trades(ctx context.Context) ([]model.Position, error) {
	var out struct {
		Positions []model.Position `json:"positions"`
	}
	if err := c.getJSON(ctx, c.BaseURL+"/trades", &out, "failed to fetch trades"); err != nil {
		return nil, err
	}
	return out.Positions, nil
}

// History fetches past deal records.
func (c *Client) History(ctx context.Context) ([]model.Deal, error) {
	var out []model.Deal
	if err := c.getJSON(ctx, c.BaseURL+"/history", &out, "failed to fetch history"); err != nil {
		return nil, err
	}
	return out, nil
}

// DataRange reports the historical bars available for symbol at the given
// timeframe code. Errors may carry the bridge's available_symbols hint.
func (c *Client) DataRange(ctx context.Context, symbol string, timeframe int) (*DataRange, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("timeframe", strconv.Itoa(timeframe))

	var out DataRange
	u := fmt.Sprintf("%s/available-data-range?%s", c.BaseURL, params.Encode())
	if err := c.getJSON(ctx, u, &out, "failed to check data range"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Backtest runs the strategy against the bridge's simulator over the date
// range (YYYY-MM-DD) and returns the raw report.
func (c *Client) Backtest(ctx context.Context, s model.Strategy, startDate, endDate string) (BacktestReport, error) {
	payload := toPayload(s)
	payload.StartDate = startDate
	payload.EndDate = endDate

	var out BacktestReport
	if err := c.postJSON(ctx, c.BaseURL+"/backtest-strategy/", payload, &out, "backtest failed"); err != nil {
		return nil, err
	}
	// The bridge signals simulator failures inside a 200 body.
	if raw, ok := out["error"]; ok {
		var msg string
		_ = json.Unmarshal(raw, &msg)
		return nil, &Error{Message: msg}
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any, fallback string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out, fallback)
}

func (c *Client) postJSON(ctx context.Context, u string, payload, out any, fallback string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out, fallback)
}

func (c *Client) do(req *http.Request, out any, fallback string) error {
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("bridge request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read bridge response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return decodeError(res.StatusCode, body, fallback)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode bridge response: %w", err)
	}
	return nil
}
