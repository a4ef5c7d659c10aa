package server

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/gonzaloreinoso/stdev-dag/src/logger"
	"github.com/gonzaloreinoso/stdev-dag/src/models"
	"github.com/gonzaloreinoso/stdev-dag/src/utils"
)

// -----------------------------------------------------------------------------
// APIServer serves computed results over REST and websocket.
// -----------------------------------------------------------------------------

type APIServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	Cache  *utils.ResultCache
	engine *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MLatestData // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client

	// Local cache
	latestState *models.MLatestData
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, logger *logger.Logger, cache *utils.ResultCache) *APIServer {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:  cfg,
		Logger:  logger,
		Cache:   cache,
		engine:  gin.Default(),
		clients: make(map[*Client]struct{}),
		// Buffered channel to prevent lock/blocking
		// Queue size of 256 ensures we can handle bursts of updates
		broadcast:  make(chan *models.MLatestData, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		latestState: &models.MLatestData{
			Type:      "INITIAL",
			Results:   make(map[string][]models.MStdevResult),
			Timestamp: 0,
		},
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/metrics", s.getMetrics)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/results", s.getResults)

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
	// Clean shutdown
	close(s.broadcast)
	close(s.register)
	close(s.unregister)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getMetrics(c *gin.Context) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	if s.latestState.Report == nil {
		c.JSON(200, gin.H{})
		return
	}
	c.JSON(200, s.latestState.Report)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	c.JSON(200, gin.H{
		"window_size":               s.Config.Analysis.WindowSize,
		"lookback_days":             s.Config.Analysis.LookbackDays,
		"gap_reset":                 s.Config.Analysis.GapReset,
		"schedule_interval_minutes": s.Config.Schedule.IntervalMinutes,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

// getResults serves recent rows from the in-memory cache. Without a
// security_id it lists what is cached.
func (s *APIServer) getResults(c *gin.Context) {
	securityID := c.Query("security_id")
	if securityID == "" {
		c.JSON(200, gin.H{"securities": s.Cache.SecurityIDs()})
		return
	}

	limit := utils.PointsPerDay
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(400, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	rows := s.Cache.Latest(securityID, limit)
	if rows == nil {
		c.JSON(404, gin.H{"error": fmt.Sprintf("no results for security %s", securityID)})
		return
	}

	c.JSON(200, gin.H{
		"security_id": securityID,
		"results":     rows,
	})
}
