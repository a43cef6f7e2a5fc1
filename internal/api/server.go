// Package api exposes the dashboard's HTTP and websocket surface.
package api

import (
	"net/http"
	"time"

	"tradesim/internal/bridge"
	"tradesim/internal/control"
	"tradesim/internal/events"
	"tradesim/internal/store"
	"tradesim/internal/stream"

	"github.com/gin-gonic/gin"
)

// Server wires HTTP endpoints around the store, the bridge and the stream
// manager.
type Server struct {
	Router    *gin.Engine
	Bus       *events.Bus
	Store     *store.Store
	Bridge    *bridge.Client
	Streams   *stream.Manager
	Control   *control.Controller
	JWTSecret string
}

func NewServer(bus *events.Bus, st *store.Store, b *bridge.Client, streams *stream.Manager, ctl *control.Controller, jwtSecret string) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:    r,
		Bus:       bus,
		Store:     st,
		Bridge:    b,
		Streams:   streams,
		Control:   ctl,
		JWTSecret: jwtSecret,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws/indicators/:id", s.indicatorSocket)

	api := s.Router.Group("/api")
	{
		// Auth endpoints (no auth required)
		auth := api.Group("/auth")
		{
			auth.POST("/login", s.login)
		}

		// Protected API
		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.POST("/auth/logout", s.logout)

			protected.GET("/state", s.getState)
			protected.PUT("/state/page", s.setSelectedPage)
			protected.GET("/account", s.getAccount)

			protected.GET("/strategies", s.listStrategies)
			protected.POST("/strategies", s.createStrategy)
			protected.PUT("/strategies/:id", s.updateStrategy)
			protected.DELETE("/strategies/:id", s.deleteStrategy)

			// Strategy Actions
			protected.POST("/strategies/:id/run", s.runStrategy)
			protected.POST("/strategies/:id/stop", s.stopStrategy)
			protected.POST("/strategies/:id/backtest", s.backtestStrategy)
			protected.GET("/strategies/:id/data-ranges", s.getDataRanges)

			// Indicator streams
			protected.POST("/strategies/:id/stream/start", s.startStream)
			protected.POST("/strategies/:id/stream/stop", s.stopStream)
			protected.GET("/strategies/:id/stream", s.getStreamSnapshot)

			protected.GET("/positions", s.getPositions)
			protected.GET("/history", s.getHistory)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
