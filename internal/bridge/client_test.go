package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tradesim/internal/model"
)

func testStrategy() model.Strategy {
	return model.Strategy{
		ID:                "s1",
		Name:              "EURUSD/GBPUSD",
		CurrencyPairs:     [2]string{"EURUSD", "GBPUSD"},
		LotSize:           [2]float64{0.1, 0.25},
		TimeFrame:         16385,
		MagicNumber:       900001,
		TradeComment:      "tradesim",
		RSIPeriod:         14,
		CorrelationWindow: 50,
		RSIOverbought:     70,
		RSIOversold:       30,
	}
}

func TestLoginDecodesAccountInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["server"] != "Demo-Server" {
			t.Errorf("server = %v", req["server"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"account_info": map[string]any{
				"account_number": 12345,
				"balance":        10000.5,
				"equity":         10010.0,
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL)
	info, err := c.Login(context.Background(), 12345, "pw", "Demo-Server")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if info.AccountNumber != 12345 || info.Balance != 10000.5 {
		t.Errorf("account info = %+v", info)
	}
}

func TestErrorDecodingShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"detail object", `{"detail":{"message":"invalid credentials"}}`, "invalid credentials"},
		{"detail string", `{"detail":"terminal not running"}`, "terminal not running"},
		{"error field", `{"error":"symbol unknown"}`, "symbol unknown"},
		{"unknown shape", `{"weird":true}`, "failed to fetch bridge status"},
		{"not json", `<html>busted</html>`, "failed to fetch bridge status"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, srv.URL)
			_, err := c.Status(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			var be *Error
			if !errors.As(err, &be) {
				t.Fatalf("error type %T, want *Error", err)
			}
			if be.Message != tc.want {
				t.Errorf("message = %q, want %q", be.Message, tc.want)
			}
			if be.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d", be.StatusCode)
			}
		})
	}
}

func TestDataRangeCarriesAvailableSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "XAUUSD" {
			t.Errorf("symbol = %q", got)
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"symbol not found","available_symbols":["EURUSD","GBPUSD"]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL)
	_, err := c.DataRange(context.Background(), "XAUUSD", 16385)
	var be *Error
	if !errors.As(err, &be) {
		t.Fatalf("error type %T, want *Error", err)
	}
	if be.Message != "symbol not found" {
		t.Errorf("message = %q", be.Message)
	}
	if len(be.AvailableSymbols) != 2 || be.AvailableSymbols[0] != "EURUSD" {
		t.Errorf("available symbols = %v", be.AvailableSymbols)
	}
}

func TestStartStrategyPayloadFormatting(t *testing.T) {
	var got strategyPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL)
	status, err := c.StartStrategy(context.Background(), testStrategy())
	if err != nil {
		t.Fatalf("StartStrategy: %v", err)
	}
	if status != "success" {
		t.Errorf("status = %q", status)
	}
	// Lot sizes and the magic number travel as text.
	if got.LotSize != [2]string{"0.1", "0.25"} {
		t.Errorf("lotSize = %v", got.LotSize)
	}
	if got.MagicNumber != "900001" {
		t.Errorf("magicNumber = %q", got.MagicNumber)
	}
}

func TestStartStreamRequiresURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL)
	if _, err := c.StartStream(context.Background(), testStrategy()); err == nil {
		t.Fatal("expected error for missing websocket_url")
	}
}

func TestBacktestInBodyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "not enough history"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL)
	_, err := c.Backtest(context.Background(), testStrategy(), "2024-01-01", "2024-02-01")
	var be *Error
	if !errors.As(err, &be) {
		t.Fatalf("error type %T, want *Error", err)
	}
	if be.Message != "not enough history" {
		t.Errorf("message = %q", be.Message)
	}
}

func TestTradesDecodesPositions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"positions":[{"id":11,"symbol":"EURUSD","magic":900001,"profit":3.2}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL)
	positions, err := c.Trades(context.Background())
	if err != nil {
		t.Fatalf("Trades: %v", err)
	}
	if len(positions) != 1 || positions[0].Ticket != 11 || positions[0].Magic != 900001 {
		t.Errorf("positions = %+v", positions)
	}
}
