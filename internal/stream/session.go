// Package stream maintains the live per-strategy indicator feed: one socket
// per strategy, a bounded chart window, and reconnection with a capped retry
// budget.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tradesim/internal/bridge"
	"tradesim/internal/events"
	"tradesim/internal/model"
)

// State is a session's connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// Defaults for the reconnect budget.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 5 * time.Second
)

// Values is the latest indicator snapshot, formatted for display.
type Values struct {
	Correlation string            `json:"correlation"`
	RSI1        string            `json:"rsi1"`
	RSI2        string            `json:"rsi2"`
	Pair1       string            `json:"pair1"`
	Pair2       string            `json:"pair2"`
	Thresholds  *model.Thresholds `json:"thresholds,omitempty"`
}

// Session owns the lifecycle of one indicator stream: handshake, socket,
// bounded window, retries and teardown. All socket handles, timers and
// idempotency markers are session fields; there are no ambient globals.
//
// The reader goroutine applies messages in delivery order; every callback is
// fenced by a generation counter so nothing lands in a session that has been
// stopped or reconnected in the meantime.
type Session struct {
	mu         sync.Mutex
	bridge     *bridge.Client
	bus        *events.Bus
	dialer     *websocket.Dialer
	maxRetries int
	retryDelay time.Duration

	initiated  bool
	strategy   model.Strategy
	conn       *websocket.Conn
	state      State
	lastErr    string
	retries    int
	retryTimer *time.Timer
	gen        int

	latest Values
	window Window
}

// NewSession builds an idle session bound to the bridge client.
func NewSession(b *bridge.Client, bus *events.Bus, maxRetries int, retryDelay time.Duration) *Session {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Session{
		bridge:     b,
		bus:        bus,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		state:      StateDisconnected,
	}
}

// Start requests a stream endpoint for the strategy and connects. Starting a
// session that is already initiated for the same strategy id is a no-op. A
// handshake failure surfaces the bridge's error and does not enter the retry
// loop; only socket drops do.
//
// The handshake and the dial run without the lock held so Stop and the
// getters stay responsive during a slow bridge; the generation counter
// discards any result that arrives after a concurrent Stop.
func (s *Session) Start(ctx context.Context, strategy model.Strategy) error {
	s.mu.Lock()
	if s.initiated && s.strategy.ID == strategy.ID {
		s.mu.Unlock()
		return nil
	}
	s.initiated = true
	s.strategy = strategy
	gen := s.gen
	s.mu.Unlock()

	return s.open(ctx, strategy, gen)
}

// open performs the stream handshake and connects. The lock is only taken to
// apply results; gen fences out sessions torn down mid-flight.
func (s *Session) open(ctx context.Context, strategy model.Strategy, gen int) error {
	wsURL, err := s.bridge.StartStream(ctx, strategy)

	if err != nil {
		msg := "failed to start indicator stream"
		var be *bridge.Error
		if errors.As(err, &be) && be.Message != "" {
			msg = be.Message
		}
		s.mu.Lock()
		if gen == s.gen {
			s.initiated = false
			s.setStateLocked(StateError, msg)
		}
		s.mu.Unlock()
		return fmt.Errorf("start stream for %s: %w", strategy.ID, err)
	}

	s.connect(gen, wsURL)
	return nil
}

// connect dials wsURL. A socket that is already connected is left alone; any
// other existing socket is closed first.
func (s *Session) connect(gen int, wsURL string) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	if s.conn != nil && s.state == StateConnected {
		s.mu.Unlock()
		return
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.setStateLocked(StateConnecting, s.lastErr)
	s.mu.Unlock()

	conn, _, err := s.dialer.Dial(wsURL, nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// Stopped while dialing; the late socket is not ours to keep.
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		// A failed dial is a transport failure followed by an immediate
		// close, so it consumes the same retry budget as a drop.
		log.Printf("stream %s: dial %s: %v", s.strategy.ID, wsURL, err)
		s.lastErr = "websocket connection error"
		s.handleCloseLocked(wsURL)
		return
	}

	s.conn = conn
	s.gen++
	s.retries = 0
	s.lastErr = ""
	s.window = Window{} // fresh window per connection
	s.setStateLocked(StateConnected, "")
	go s.readLoop(conn, s.gen, wsURL)
}

func (s *Session) readLoop(conn *websocket.Conn, gen int, wsURL string) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if gen == s.gen {
				s.conn = nil
				s.handleCloseLocked(wsURL)
			}
			s.mu.Unlock()
			return
		}
		s.handleMessage(gen, data)
	}
}

func (s *Session) handleMessage(gen int, data []byte) {
	f, err := parseFrame(data)
	if err != nil {
		log.Printf("stream: dropping malformed frame: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return // message from a torn-down socket
	}

	if f.Err != "" {
		s.lastErr = f.Err
		s.publishStateLocked()
		return
	}
	if !f.HasSample {
		return
	}

	pair1, pair2 := f.pair(0), f.pair(1)
	s.latest = Values{
		Correlation: fmt.Sprintf("%.3f", f.Correlation),
		RSI1:        f.rsiFor(pair1),
		RSI2:        f.rsiFor(pair2),
		Pair1:       pair1,
		Pair2:       pair2,
		Thresholds:  f.Thresholds,
	}

	label := f.label()
	s.window.Append(f.Correlation, f.rsiAverage(), label)

	if s.bus != nil {
		s.bus.Publish(events.EventIndicatorSample, events.SamplePayload{
			StrategyID:  s.strategy.ID,
			Correlation: s.latest.Correlation,
			RSI1:        s.latest.RSI1,
			RSI2:        s.latest.RSI2,
			Pair1:       pair1,
			Pair2:       pair2,
			Label:       label,
			Thresholds:  f.Thresholds,
		})
	}
}

// handleCloseLocked runs the retry decision after a socket drop. The budget
// is only reset by a successful open, never by repeated failures.
func (s *Session) handleCloseLocked(wsURL string) {
	s.setStateLocked(StateDisconnected, s.lastErr)

	if s.retries < s.maxRetries {
		s.retries++
		log.Printf("stream %s: retrying connection (%d/%d)", s.strategy.ID, s.retries, s.maxRetries)
		gen := s.gen
		s.retryTimer = time.AfterFunc(s.retryDelay, func() { s.restart(gen) })
		return
	}
	s.retryTimer = nil
	s.setStateLocked(StateError, "maximum retry attempts reached")
}

// restart re-runs the handshake and dial for the session's own strategy. The
// generation check makes a timer that lost the race with Stop a no-op.
func (s *Session) restart(gen int) {
	s.mu.Lock()
	if gen != s.gen || !s.initiated {
		s.mu.Unlock()
		return
	}
	s.retryTimer = nil
	strategy := s.strategy
	s.mu.Unlock()

	if err := s.open(context.Background(), strategy, gen); err != nil {
		log.Printf("stream %s: reconnect: %v", strategy.ID, err)
	}
}

// Stop tears the session down: socket closed, pending retry timer cancelled,
// idempotency markers reset. Safe to call repeatedly; after Stop a Start for
// the same or a different strategy is honored with no state carried over.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++ // fence any in-flight callbacks and timers
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.retries = 0
	s.latest = Values{}
	s.window = Window{}
	s.setStateLocked(StateDisconnected, "")
	s.initiated = false
	s.strategy = model.Strategy{}
}

func (s *Session) setStateLocked(state State, errMsg string) {
	s.state = state
	s.lastErr = errMsg
	s.publishStateLocked()
}

func (s *Session) publishStateLocked() {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.EventStreamState, events.StreamStatePayload{
		StrategyID: s.strategy.ID,
		State:      string(s.state),
		Error:      s.lastErr,
	})
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the most recent surfaced error message, "" when clean.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Latest returns the newest indicator snapshot.
func (s *Session) Latest() Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// WindowCopy returns an independent copy of the chart window.
func (s *Session) WindowCopy() Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Clone()
}

// Retries returns how much of the reconnect budget has been consumed.
func (s *Session) Retries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retries
}

// RetryPending reports whether a reconnect timer is currently scheduled.
func (s *Session) RetryPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryTimer != nil
}
