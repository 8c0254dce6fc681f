package server

import (
	"fmt"
	"strings"
	"sync/atomic"

	"volley-observer/src/interfaces"
	"volley-observer/src/logger"
	"volley-observer/src/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	Store  interfaces.IDatabase
	Videos interfaces.IObjectStore
	engine *gin.Engine

	// WebSocket sessions
	clients    map[*Client]struct{}
	broadcast  chan models.MWireMessage // Strongly typed and Buffered Queue
	directed   chan directedMessage     // Single-session replies (snapshot command)
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// Session count readable outside the hub goroutine (health endpoint)
	sessionCount atomic.Int64

	instruments *Instruments
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, store interfaces.IDatabase, videos interfaces.IObjectStore, logger *logger.Logger) *APIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Videos:  videos,
		engine:  gin.Default(),
		clients: make(map[*Client]struct{}),
		// Buffered channel so a burst of change events never blocks the
		// notifier; per-session queues apply their own bound downstream
		broadcast:   make(chan models.MWireMessage, 256),
		directed:    make(chan directedMessage, 64),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		instruments: NewInstruments(),
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.engine.Use(s.instruments.Middleware())

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	// REST API endpoints
	s.engine.POST("/api/metrics", s.ingestMetric)
	s.engine.GET("/api/metrics/:matchId", s.metricsByMatch)
	s.engine.GET("/api/players", s.getPlayers)
	s.engine.POST("/api/players", s.createPlayer)
	s.engine.GET("/api/matches", s.getMatches)
	s.engine.POST("/api/matches", s.createMatch)
	s.engine.POST("/api/uploadVideo", s.uploadVideo)
	s.engine.GET("/api/health", s.getHealth)

	// Prometheus endpoint (per-server registry)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.instruments.Registry, promhttp.HandlerOpts{})))

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *APIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop() error {
	// Stops the hub loop; in-flight sessions are closed by their pumps
	close(s.done)
	return nil
}

// -----------------------------------------------------------------------------
// Handler access for in-process tests and the smoke harness
// -----------------------------------------------------------------------------

// Engine exposes the underlying gin engine.
func (s *APIServer) Engine() *gin.Engine {
	return s.engine
}

// RunHub starts only the hub loop, without binding a listener.
func (s *APIServer) RunHub() {
	go s.handleWebsockets()
}
