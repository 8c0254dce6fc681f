package server

import (
	"volley-observer/src/helpers"
	"volley-observer/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Metric ingest
// -----------------------------------------------------------------------------

// metricRequest uses pointers so an absent field is distinguishable from a
// zero value. Values are not range-checked: out-of-[0,1] ratios are stored as
// sent.
type metricRequest struct {
	MatchID       *string  `json:"matchId"`
	PlayerID      *string  `json:"playerId"`
	ServeAccuracy *float64 `json:"serveAccuracy"`
	SpikeSuccess  *float64 `json:"spikeSuccess"`
	BlockEff      *float64 `json:"blockEff"`
}

func (r metricRequest) validate() error {
	if r.MatchID == nil || *r.MatchID == "" ||
		r.PlayerID == nil || *r.PlayerID == "" ||
		r.ServeAccuracy == nil ||
		r.SpikeSuccess == nil ||
		r.BlockEff == nil {
		return &helpers.ValidationError{VolleyObserverError: helpers.VolleyObserverError{
			Message: "Required fields: matchId, playerId, serveAccuracy, spikeSuccess, blockEff",
		}}
	}
	return nil
}

// -----------------------------------------------------------------------------

// ingestMetric persists one metric record. The downstream change event is
// produced by the store's change-capture facility, never by this handler.
func (s *APIServer) ingestMetric(c *gin.Context) {
	var req metricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid JSON body"})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	stored, err := s.Store.InsertMetric(models.MMetric{
		MatchID:       *req.MatchID,
		PlayerID:      *req.PlayerID,
		ServeAccuracy: *req.ServeAccuracy,
		SpikeSuccess:  *req.SpikeSuccess,
		BlockEff:      *req.BlockEff,
	})
	if err != nil {
		s.Logger.Error("POST /api/metrics: %v", err)
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	s.instruments.IngestedMetrics.Inc()
	c.JSON(201, stored)
}

// -----------------------------------------------------------------------------

// metricsByMatch returns every record for one match, in store order.
func (s *APIServer) metricsByMatch(c *gin.Context) {
	matchID := c.Param("matchId")

	result, err := s.Store.MetricsByMatch(matchID)
	if err != nil {
		s.Logger.Error("GET /api/metrics/%s: %v", matchID, err)
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if result == nil {
		result = []models.MMetric{}
	}
	c.JSON(200, result)
}

// -----------------------------------------------------------------------------
// Roster
// -----------------------------------------------------------------------------

func (s *APIServer) getPlayers(c *gin.Context) {
	result, err := s.Store.Players()
	if err != nil {
		s.Logger.Error("GET /api/players: %v", err)
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if result == nil {
		result = []models.MPlayer{}
	}
	c.JSON(200, result)
}

// -----------------------------------------------------------------------------

func (s *APIServer) createPlayer(c *gin.Context) {
	var req models.MPlayer
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid JSON body"})
		return
	}
	if req.FullName == "" || req.Position == "" {
		c.JSON(400, gin.H{"error": "Missing required fields: full_name, position"})
		return
	}

	id, err := s.Store.InsertPlayer(req)
	if err != nil {
		s.Logger.Error("POST /api/players: %v", err)
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(201, gin.H{"id": id})
}

// -----------------------------------------------------------------------------
// Matches
// -----------------------------------------------------------------------------

func (s *APIServer) getMatches(c *gin.Context) {
	result, err := s.Store.Matches()
	if err != nil {
		s.Logger.Error("GET /api/matches: %v", err)
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if result == nil {
		result = []models.MMatch{}
	}
	c.JSON(200, result)
}

// -----------------------------------------------------------------------------

func (s *APIServer) createMatch(c *gin.Context) {
	var req models.MMatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid JSON body"})
		return
	}
	// location is optional
	if req.Opponent == "" || req.MatchDate == "" || req.CreatedBy == "" {
		c.JSON(400, gin.H{"error": "Missing required fields: opponent, match_date, created_by"})
		return
	}

	id, err := s.Store.InsertMatch(req)
	if err != nil {
		s.Logger.Error("POST /api/matches: %v", err)
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(201, gin.H{"id": id})
}

// -----------------------------------------------------------------------------
// Health
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":          "ok",
		"connections":     s.sessionCount.Load(),
		"total_memory_mb": helpers.GetTotalSystemMemoryMB(),
	})
}
