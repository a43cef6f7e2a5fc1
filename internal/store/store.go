// Package store is the single persisted container for dashboard session
// state. Every UI surface reads it and mutates it only through named actions;
// each action is one atomic field replace followed by a snapshot write.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"tradesim/internal/model"
	"tradesim/pkg/db"
)

// State is the full snapshot persisted under the store key. A snapshot taken
// with an older field set unmarshals over defaults, so missing keys fall back
// rather than fail.
type State struct {
	IsLoggedIn          bool               `json:"isLoggedIn"`
	AccountInfo         *model.AccountInfo `json:"accountInfo"`
	IsLoading           bool               `json:"isLoading"`
	StartActiveStrategy bool               `json:"startActiveStrategy"`
	Strategies          []model.Strategy   `json:"strategies"`
	StrategyToBackTest  *model.Strategy    `json:"strategyToBackTest"`
	SelectedPage        string             `json:"selectedPage"`
}

func defaultState() State {
	return State{
		Strategies:   []model.Strategy{},
		SelectedPage: "Dashboard",
	}
}

// Store owns the state tree. All mutation goes through the setter actions;
// callers needing multi-field consistency replace the strategy list itself as
// one action.
type Store struct {
	mu    sync.RWMutex
	db    *db.Database
	key   string
	state State
}

// New loads the persisted snapshot under key from database, substituting
// defaults for any missing field.
func New(ctx context.Context, database *db.Database, key string) (*Store, error) {
	s := &Store{db: database, key: key, state: defaultState()}

	raw, err := database.GetState(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	if raw != "" {
		// Unmarshal over defaults: absent keys keep their default value.
		if err := json.Unmarshal([]byte(raw), &s.state); err != nil {
			return nil, fmt.Errorf("decode store snapshot: %w", err)
		}
		if s.state.Strategies == nil {
			s.state.Strategies = []model.Strategy{}
		}
		if s.state.SelectedPage == "" {
			s.state.SelectedPage = "Dashboard"
		}
	}
	return s, nil
}

// persist serializes the whole tree under the fixed key. Called with the
// write lock held so snapshots are never interleaved.
func (s *Store) persist() {
	raw, err := json.Marshal(s.state)
	if err != nil {
		log.Printf("store: marshal snapshot: %v", err)
		return
	}
	if err := s.db.PutState(context.Background(), s.key, string(raw)); err != nil {
		log.Printf("store: persist snapshot: %v", err)
	}
}

// Snapshot returns a copy of the current state tree.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Strategies = append([]model.Strategy(nil), s.state.Strategies...)
	return st
}

// Strategies returns a copy of the strategy list.
func (s *Store) Strategies() []model.Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Strategy(nil), s.state.Strategies...)
}

// StrategyByID looks a strategy up by id.
func (s *Store) StrategyByID(id string) (model.Strategy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.state.Strategies {
		if st.ID == id {
			return st, true
		}
	}
	return model.Strategy{}, false
}

func (s *Store) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsLoggedIn
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsLoading
}

func (s *Store) AccountInfo() *model.AccountInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.AccountInfo == nil {
		return nil
	}
	info := *s.state.AccountInfo
	return &info
}

func (s *Store) SelectedPage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SelectedPage
}

func (s *Store) StartActiveStrategy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.StartActiveStrategy
}

func (s *Store) StrategyToBackTest() *model.Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.StrategyToBackTest == nil {
		return nil
	}
	st := *s.state.StrategyToBackTest
	return &st
}

// Named actions. Each replaces its field wholesale and persists.

func (s *Store) SetIsLoggedIn(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoggedIn = v
	s.persist()
}

func (s *Store) SetAccountInfo(info *model.AccountInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AccountInfo = info
	s.persist()
}

func (s *Store) SetIsLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = v
	s.persist()
}

func (s *Store) SetStartActiveStrategy(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.StartActiveStrategy = v
	s.persist()
}

func (s *Store) SetStrategies(list []model.Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Strategies = append([]model.Strategy(nil), list...)
	s.persist()
}

// MutateStrategies applies fn to a copy of the strategy list and installs
// its result, all under the write lock. Callers use this instead of a
// Strategies/SetStrategies pair so concurrent mutations never clobber each
// other.
func (s *Store) MutateStrategies(fn func([]model.Strategy) []model.Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append([]model.Strategy(nil), s.state.Strategies...)
	s.state.Strategies = fn(list)
	s.persist()
}

func (s *Store) SetSelectedPage(page string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SelectedPage = page
	s.persist()
}

func (s *Store) SetStrategyToBackTest(st *model.Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.StrategyToBackTest = st
	s.persist()
}

// Login marks the session logged in and records the account snapshot.
func (s *Store) Login(info *model.AccountInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoggedIn = true
	s.state.AccountInfo = info
	s.persist()
}

// Logout resets the session and account snapshot.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoggedIn = false
	s.state.AccountInfo = nil
	s.persist()
}

// UpdateStrategyStatus replaces the list with one where the strategy carries
// the given status. Reports whether the id was found.
func (s *Store) UpdateStrategyStatus(id, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	list := append([]model.Strategy(nil), s.state.Strategies...)
	for i := range list {
		if list[i].ID == id {
			list[i].Status = status
			found = true
		}
	}
	if found {
		s.state.Strategies = list
		s.persist()
	}
	return found
}
