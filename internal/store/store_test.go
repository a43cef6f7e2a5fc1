package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"tradesim/internal/model"
	"tradesim/pkg/db"
)

func newTestDB(t *testing.T) *db.Database {
	t.Helper()
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestDefaultsOnEmptyDatabase(t *testing.T) {
	s, err := New(context.Background(), newTestDB(t), "trade-sim-store")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.IsLoggedIn() {
		t.Error("fresh store should not be logged in")
	}
	if got := s.SelectedPage(); got != "Dashboard" {
		t.Errorf("SelectedPage = %q, want Dashboard", got)
	}
	if got := s.Strategies(); len(got) != 0 {
		t.Errorf("expected empty strategy list, got %d", len(got))
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	s1, err := New(ctx, database, "trade-sim-store")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s1.Login(&model.AccountInfo{AccountNumber: 12345, Balance: 9876.5, Equity: 9900})
	s1.SetSelectedPage("Strategies")
	s1.SetStartActiveStrategy(true)
	s1.SetStrategies([]model.Strategy{
		{ID: "a", Name: "EURUSD/GBPUSD", MagicNumber: 7, Status: model.StatusActive},
	})

	// A second store over the same database must see the persisted tree.
	s2, err := New(ctx, database, "trade-sim-store")
	if err != nil {
		t.Fatalf("New (reload): %v", err)
	}
	if !s2.IsLoggedIn() {
		t.Error("reloaded store should be logged in")
	}
	if info := s2.AccountInfo(); info == nil || info.AccountNumber != 12345 {
		t.Errorf("AccountInfo = %+v, want account 12345", info)
	}
	if got := s2.SelectedPage(); got != "Strategies" {
		t.Errorf("SelectedPage = %q, want Strategies", got)
	}
	if !s2.StartActiveStrategy() {
		t.Error("StartActiveStrategy flag lost across reload")
	}
	list := s2.Strategies()
	if len(list) != 1 || list[0].ID != "a" || list[0].Status != model.StatusActive {
		t.Errorf("Strategies = %+v", list)
	}
}

func TestPartialSnapshotKeepsDefaults(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	// Snapshot written by an older build without selectedPage.
	if err := database.PutState(ctx, "trade-sim-store", `{"isLoggedIn":true}`); err != nil {
		t.Fatalf("PutState: %v", err)
	}

	s, err := New(ctx, database, "trade-sim-store")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !s.IsLoggedIn() {
		t.Error("isLoggedIn from snapshot lost")
	}
	if got := s.SelectedPage(); got != "Dashboard" {
		t.Errorf("missing selectedPage should default to Dashboard, got %q", got)
	}
	if s.Strategies() == nil {
		t.Error("missing strategies should default to empty list, not nil")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	s, err := New(context.Background(), newTestDB(t), "trade-sim-store")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Login(&model.AccountInfo{AccountNumber: 1})
	s.Logout()
	if s.IsLoggedIn() {
		t.Error("Logout should clear isLoggedIn")
	}
	if s.AccountInfo() != nil {
		t.Error("Logout should clear account info")
	}
}

func TestUpdateStrategyStatus(t *testing.T) {
	s, err := New(context.Background(), newTestDB(t), "trade-sim-store")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.SetStrategies([]model.Strategy{
		{ID: "a", Status: model.StatusInactive},
		{ID: "b", Status: model.StatusInactive},
	})

	if !s.UpdateStrategyStatus("b", model.StatusActive) {
		t.Fatal("UpdateStrategyStatus returned false for known id")
	}
	if s.UpdateStrategyStatus("missing", model.StatusActive) {
		t.Error("UpdateStrategyStatus returned true for unknown id")
	}

	list := s.Strategies()
	if list[0].Status != model.StatusInactive {
		t.Errorf("strategy a status = %q, want inactive", list[0].Status)
	}
	if list[1].Status != model.StatusActive {
		t.Errorf("strategy b status = %q, want active", list[1].Status)
	}
}

func TestMutateStrategiesConcurrent(t *testing.T) {
	s, err := New(context.Background(), newTestDB(t), "trade-sim-store")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const workers, perWorker = 4, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				s.MutateStrategies(func(list []model.Strategy) []model.Strategy {
					return append(list, model.Strategy{ID: id})
				})
			}
		}(w)
	}
	wg.Wait()

	if got := len(s.Strategies()); got != workers*perWorker {
		t.Errorf("strategies = %d, want %d (lost updates)", got, workers*perWorker)
	}
}

func TestStrategiesReturnsCopy(t *testing.T) {
	s, err := New(context.Background(), newTestDB(t), "trade-sim-store")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.SetStrategies([]model.Strategy{{ID: "a", Status: model.StatusInactive}})

	list := s.Strategies()
	list[0].Status = model.StatusActive

	if got, _ := s.StrategyByID("a"); got.Status != model.StatusInactive {
		t.Error("mutating the returned slice must not affect the store")
	}
}
