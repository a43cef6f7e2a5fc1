package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tradesim/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// indicatorSocket relays one strategy's indicator samples and stream state
// changes to the browser.
func (s *Server) indicatorSocket(c *gin.Context) {
	strategyID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	samples, unsubSamples := s.Bus.Subscribe(events.EventIndicatorSample, 100)
	defer unsubSamples()
	states, unsubStates := s.Bus.Subscribe(events.EventStreamState, 16)
	defer unsubStates()

	for {
		select {
		case msg, ok := <-samples:
			if !ok {
				return
			}
			payload, isSample := msg.(events.SamplePayload)
			if !isSample || payload.StrategyID != strategyID {
				continue
			}
			if err := conn.WriteJSON(gin.H{"type": "sample", "data": payload}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case msg, ok := <-states:
			if !ok {
				return
			}
			payload, isState := msg.(events.StreamStatePayload)
			if !isState || payload.StrategyID != strategyID {
				continue
			}
			if err := conn.WriteJSON(gin.H{"type": "state", "data": payload}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}
}
