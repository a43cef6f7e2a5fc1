package reconcile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradesim/internal/bridge"
	"tradesim/internal/events"
	"tradesim/internal/model"
	"tradesim/internal/store"
	"tradesim/pkg/db"
)

func newTestStore(t *testing.T, strategies []model.Strategy) *store.Store {
	t.Helper()
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	st, err := store.New(context.Background(), database, "trade-sim-store")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	st.SetStrategies(strategies)
	return st
}

func TestTickPromotesEveryMatchedStrategy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"positions":[
			{"id":1,"symbol":"EURUSD","magic":100},
			{"id":2,"symbol":"GBPUSD","magic":300},
			{"id":3,"symbol":"AUDUSD","magic":999}
		]}`))
	}))
	defer srv.Close()

	st := newTestStore(t, []model.Strategy{
		{ID: "a", Name: "first", MagicNumber: 100, Status: model.StatusInactive},
		{ID: "b", Name: "second", MagicNumber: 200, Status: model.StatusInactive},
		{ID: "c", Name: "third", MagicNumber: 300, Status: model.StatusInactive},
	})

	r := New(bridge.NewClient(srv.URL, srv.URL), st, events.NewBus(), time.Second)
	r.Tick(context.Background())

	list := st.Strategies()
	if list[0].Status != model.StatusActive {
		t.Errorf("strategy a = %q, want active", list[0].Status)
	}
	if list[1].Status != model.StatusInactive {
		t.Errorf("strategy b = %q, want inactive (no live position)", list[1].Status)
	}
	// A magic match beyond the first position must also count.
	if list[2].Status != model.StatusActive {
		t.Errorf("strategy c = %q, want active", list[2].Status)
	}
	if !st.StartActiveStrategy() {
		t.Error("promotion must set the resume flag")
	}
}

func TestTickLeavesActiveStrategiesAlone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"positions":[]}`))
	}))
	defer srv.Close()

	st := newTestStore(t, []model.Strategy{
		{ID: "a", MagicNumber: 100, Status: model.StatusActive},
	})

	r := New(bridge.NewClient(srv.URL, srv.URL), st, events.NewBus(), time.Second)
	r.Tick(context.Background())

	// No open positions does not demote anything; stopping is explicit.
	if got, _ := st.StrategyByID("a"); got.Status != model.StatusActive {
		t.Errorf("strategy a = %q, want active", got.Status)
	}
	if st.StartActiveStrategy() {
		t.Error("resume flag must not flip without a promotion")
	}
}

func TestTickSkipsOnFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"terminal gone"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	st := newTestStore(t, []model.Strategy{
		{ID: "a", MagicNumber: 100, Status: model.StatusInactive},
	})

	r := New(bridge.NewClient(srv.URL, srv.URL), st, events.NewBus(), time.Second)
	r.Tick(context.Background())

	if got, _ := st.StrategyByID("a"); got.Status != model.StatusInactive {
		t.Errorf("strategy a = %q, failed fetch must change nothing", got.Status)
	}
}

func TestTickPublishesPositions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"positions":[{"id":1,"symbol":"EURUSD","magic":100,"profit":1.5}]}`))
	}))
	defer srv.Close()

	st := newTestStore(t, nil)
	bus := events.NewBus()
	ch, unsub := bus.Subscribe(events.EventPositions, 1)
	defer unsub()

	r := New(bridge.NewClient(srv.URL, srv.URL), st, bus, time.Second)
	r.Tick(context.Background())

	select {
	case msg := <-ch:
		payload, ok := msg.(events.PositionsPayload)
		if !ok || len(payload.Positions) != 1 || payload.Positions[0].Magic != 100 {
			t.Errorf("payload = %+v", msg)
		}
	default:
		t.Fatal("no positions event published")
	}
}
