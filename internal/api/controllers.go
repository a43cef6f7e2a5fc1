package api

import (
	"errors"
	"net/http"
	"strconv"

	"tradesim/internal/bridge"
	"tradesim/internal/control"
	"tradesim/internal/history"

	"github.com/gin-gonic/gin"
)

type createStrategyRequest struct {
	Name          string    `json:"name" binding:"required,min=1,max=120"`
	CurrencyPairs [2]string `json:"currencyPairs"`
	MagicNumber   int64     `json:"magicNumber"`
}

type backtestRequest struct {
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate" binding:"required"`
}

type setPageRequest struct {
	Page string `json:"page" binding:"required,min=1"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

// respondControlError maps controller and bridge failures onto HTTP statuses.
func respondControlError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, control.ErrNotFound):
		respondError(c, http.StatusNotFound, "STRATEGY_NOT_FOUND", err.Error())
	case errors.Is(err, control.ErrIncomplete):
		respondError(c, http.StatusBadRequest, "STRATEGY_INCOMPLETE", err.Error())
	default:
		var bridgeErr *bridge.Error
		if errors.As(err, &bridgeErr) {
			body := gin.H{
				"code":  "BRIDGE_ERROR",
				"error": bridgeErr.Message,
			}
			if len(bridgeErr.AvailableSymbols) > 0 {
				body["available_symbols"] = bridgeErr.AvailableSymbols
			}
			c.JSON(http.StatusBadGateway, body)
			return
		}
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// getState returns the whole persisted dashboard snapshot.
func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.Store.Snapshot())
}

func (s *Server) setSelectedPage(c *gin.Context) {
	var req setPageRequest
	if err := c.BindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "invalid request payload")
		return
	}
	s.Store.SetSelectedPage(req.Page)
	c.JSON(http.StatusOK, gin.H{"selectedPage": req.Page})
}

// getAccount refreshes the account snapshot from the bridge when a session is
// live, falling back to the stored copy when the bridge is unreachable.
func (s *Server) getAccount(c *gin.Context) {
	status, err := s.Bridge.Status(c.Request.Context())
	if err == nil && status.LoggedIn() {
		info := status.Account()
		s.Store.SetAccountInfo(info)
		c.JSON(http.StatusOK, info)
		return
	}
	if cached := s.Store.AccountInfo(); cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}
	respondError(c, http.StatusNotFound, "NO_ACCOUNT", "no account session")
}

func (s *Server) listStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": s.Store.Strategies()})
}

func (s *Server) createStrategy(c *gin.Context) {
	var req createStrategyRequest
	if err := c.BindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	created := s.Control.Create(req.Name, req.CurrencyPairs, req.MagicNumber)
	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateStrategy(c *gin.Context) {
	id := c.Param("id")
	existing, ok := s.Store.StrategyByID(id)
	if !ok {
		respondError(c, http.StatusNotFound, "STRATEGY_NOT_FOUND", "strategy not found")
		return
	}
	// Bind over the stored copy so omitted fields keep their values.
	updated := existing
	if err := c.BindJSON(&updated); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	updated.ID = id
	out, err := s.Control.Update(updated)
	if err != nil {
		respondControlError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) deleteStrategy(c *gin.Context) {
	if err := s.Control.Delete(c.Param("id")); err != nil {
		if errors.Is(err, control.ErrNotFound) {
			respondError(c, http.StatusNotFound, "STRATEGY_NOT_FOUND", "strategy not found")
			return
		}
		respondError(c, http.StatusConflict, "STRATEGY_ACTIVE", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) runStrategy(c *gin.Context) {
	id := c.Param("id")
	if err := s.Control.Run(c.Request.Context(), id); err != nil {
		respondControlError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) stopStrategy(c *gin.Context) {
	id := c.Param("id")
	if err := s.Control.Stop(c.Request.Context(), id); err != nil {
		respondControlError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (s *Server) backtestStrategy(c *gin.Context) {
	var req backtestRequest
	if err := c.BindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "startDate and endDate are required")
		return
	}
	report, err := s.Control.Backtest(c.Request.Context(), c.Param("id"), req.StartDate, req.EndDate)
	if err != nil {
		respondControlError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) getDataRanges(c *gin.Context) {
	ranges, err := s.Control.DataRanges(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondControlError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ranges": ranges})
}

// startStream opens (or re-uses) the indicator stream for a strategy.
func (s *Server) startStream(c *gin.Context) {
	id := c.Param("id")
	strategy, ok := s.Store.StrategyByID(id)
	if !ok {
		respondError(c, http.StatusNotFound, "STRATEGY_NOT_FOUND", "strategy not found")
		return
	}
	if err := s.Streams.Start(c.Request.Context(), strategy); err != nil {
		respondControlError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "streaming"})
}

func (s *Server) stopStream(c *gin.Context) {
	s.Streams.Stop(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

// getStreamSnapshot reports a session's state, latest values and the chart
// window so a freshly loaded page can render without waiting for the socket.
func (s *Server) getStreamSnapshot(c *gin.Context) {
	sess, ok := s.Streams.Get(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "STREAM_NOT_FOUND", "no stream for strategy")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":   sess.State(),
		"error":   sess.LastError(),
		"latest":  sess.Latest(),
		"window":  sess.WindowCopy(),
		"retries": sess.Retries(),
	})
}

func (s *Server) getPositions(c *gin.Context) {
	positions, err := s.Bridge.Trades(c.Request.Context())
	if err != nil {
		respondControlError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

// getHistory returns grouped trades plus headline numbers. An optional magic
// query narrows the result to one strategy's trades.
func (s *Server) getHistory(c *gin.Context) {
	deals, err := s.Bridge.History(c.Request.Context())
	if err != nil {
		respondControlError(c, err)
		return
	}
	trades := history.Group(deals)
	if raw := c.Query("magic"); raw != "" {
		magic, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_MAGIC", "magic must be an integer")
			return
		}
		trades = history.FilterByMagic(trades, magic)
	}
	c.JSON(http.StatusOK, gin.H{
		"trades":  trades,
		"summary": history.Summarize(trades),
	})
}
