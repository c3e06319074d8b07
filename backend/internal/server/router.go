package server

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diarygraph/backend/internal/diary"
	"diarygraph/backend/internal/graphview"
	"diarygraph/backend/internal/layout"
	apperrors "diarygraph/backend/pkg/errors"
)

// maxTicksPerRequest bounds explicit frame stepping
const maxTicksPerRequest = 5000

type pointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p pointRequest) vec() layout.Vec { return layout.Vec{X: p.X, Y: p.Y} }

type wheelRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"delta_y"`
}

type modeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type detailedRequest struct {
	Detailed bool `json:"detailed"`
}

type sizeRequest struct {
	Width  float64 `json:"width" binding:"required,gt=0"`
	Height float64 `json:"height" binding:"required,gt=0"`
}

type drillRequest struct {
	NodeID string `json:"node_id" binding:"required"`
}

type tickRequest struct {
	Ticks int `json:"ticks" binding:"required,gt=0"`
}

// Handler serves the graph view API
type Handler struct {
	manager *Manager
	logger  *zap.Logger
}

// NewRouter builds the gin engine with middleware and every route
func NewRouter(manager *Manager, log *zap.Logger) *gin.Engine {
	h := &Handler{manager: manager, logger: log}

	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())
	router.Use(cors())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": manager.Len()})
	})

	api := router.Group("/api")
	{
		api.POST("/users/:userID/graph", h.open)

		g := api.Group("/graph/:sid")
		g.GET("", h.snapshot)
		g.DELETE("", h.close)
		g.GET("/facets", h.facets)

		g.POST("/pointer/down", h.pointerDown)
		g.POST("/pointer/move", h.withPoint(func(ctrl *graphview.Controller, p layout.Vec) { ctrl.PointerMove(p) }))
		g.POST("/pointer/up", h.action(func(ctrl *graphview.Controller) { ctrl.PointerUp() }))
		g.POST("/dblclick", h.doubleClick)
		g.POST("/drill", h.drill)
		g.POST("/wheel", h.wheel)

		g.POST("/zoom/in", h.action(func(ctrl *graphview.Controller) { ctrl.ZoomIn() }))
		g.POST("/zoom/out", h.action(func(ctrl *graphview.Controller) { ctrl.ZoomOut() }))
		g.POST("/fit", h.action(func(ctrl *graphview.Controller) { ctrl.FitToScreen() }))
		g.POST("/reset-view", h.action(func(ctrl *graphview.Controller) { ctrl.ResetView() }))
		g.POST("/back", h.action(func(ctrl *graphview.Controller) { ctrl.Back() }))
		g.POST("/reset", h.action(func(ctrl *graphview.Controller) { ctrl.Reset() }))
		g.POST("/tick", h.tick)
		g.POST("/history", h.history)

		g.PUT("/mode", h.setMode)
		g.PUT("/detailed", h.setDetailed)
		g.PUT("/filters", h.setFilters)
		g.PUT("/size", h.setSize)
	}

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// respondError maps typed errors onto status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	var notFound *apperrors.ErrSessionNotFound
	switch {
	case stderrors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case apperrors.IsErrorType(err, apperrors.ErrorTypeNavigation):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.IsErrorType(err, apperrors.ErrorTypeEntries):
		h.logger.Error("Failed to fetch entries", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch entries"})
	default:
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// session resolves :sid or writes the error response
func (h *Handler) session(c *gin.Context) (*Session, bool) {
	s, err := h.manager.Get(c.Param("sid"))
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) open(c *gin.Context) {
	var req OpenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	s, err := h.manager.Open(c.Request.Context(), c.Param("userID"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var snap graphview.Snapshot
	s.Do(func(ctrl *graphview.Controller) { snap = ctrl.Snapshot() })
	c.JSON(http.StatusCreated, gin.H{"session_id": s.ID, "snapshot": snap})
}

func (h *Handler) close(c *gin.Context) {
	if err := h.manager.Close(c.Param("sid")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

func (h *Handler) snapshot(c *gin.Context) {
	h.action(func(*graphview.Controller) {})(c)
}

// action runs fn under the session lock and responds with a snapshot
func (h *Handler) action(fn func(ctrl *graphview.Controller)) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := h.session(c)
		if !ok {
			return
		}
		var snap graphview.Snapshot
		s.Do(func(ctrl *graphview.Controller) {
			fn(ctrl)
			snap = ctrl.Snapshot()
		})
		c.JSON(http.StatusOK, snap)
	}
}

func (h *Handler) withPoint(fn func(ctrl *graphview.Controller, p layout.Vec)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pointRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.action(func(ctrl *graphview.Controller) { fn(ctrl, req.vec()) })(c)
	}
}

func (h *Handler) pointerDown(c *gin.Context) {
	var req pointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}

	var hit string
	var selected *layout.Node
	s.Do(func(ctrl *graphview.Controller) {
		hit = ctrl.PointerDown(req.vec())
		selected = ctrl.Selected()
	})
	c.JSON(http.StatusOK, gin.H{"hit": hit, "selected": selected})
}

func (h *Handler) doubleClick(c *gin.Context) {
	var req pointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}

	var drilled bool
	var err error
	var snap graphview.Snapshot
	s.Do(func(ctrl *graphview.Controller) {
		drilled, err = ctrl.DoubleClick(req.vec())
		snap = ctrl.Snapshot()
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drilled": drilled, "snapshot": snap})
}

func (h *Handler) drill(c *gin.Context) {
	var req drillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}

	var err error
	var snap graphview.Snapshot
	s.Do(func(ctrl *graphview.Controller) {
		err = ctrl.DrillInto(req.NodeID)
		snap = ctrl.Snapshot()
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) wheel(c *gin.Context) {
	var req wheelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.action(func(ctrl *graphview.Controller) {
		ctrl.Wheel(layout.Vec{X: req.X, Y: req.Y}, req.DeltaY)
	})(c)
}

func (h *Handler) tick(c *gin.Context) {
	var req tickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Ticks > maxTicksPerRequest {
		req.Ticks = maxTicksPerRequest
	}
	h.action(func(ctrl *graphview.Controller) {
		for i := 0; i < req.Ticks; i++ {
			ctrl.Tick()
		}
	})(c)
}

func (h *Handler) history(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var filters diary.FilterState
	s.Do(func(ctrl *graphview.Controller) { filters = ctrl.OpenHistory() })
	c.JSON(http.StatusOK, gin.H{"filters": filters})
}

func (h *Handler) facets(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var facets layout.Facets
	s.Do(func(ctrl *graphview.Controller) { facets = ctrl.Facets() })
	c.JSON(http.StatusOK, facets)
}

func (h *Handler) setMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode, err := layout.ParseDimension(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}

	var snap graphview.Snapshot
	s.Do(func(ctrl *graphview.Controller) {
		err = ctrl.SetClusterMode(mode)
		snap = ctrl.Snapshot()
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) setDetailed(c *gin.Context) {
	var req detailedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.action(func(ctrl *graphview.Controller) { ctrl.SetForceDetailed(req.Detailed) })(c)
}

func (h *Handler) setFilters(c *gin.Context) {
	var req diary.FilterState
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.action(func(ctrl *graphview.Controller) { ctrl.SetFilters(req) })(c)
}

func (h *Handler) setSize(c *gin.Context) {
	var req sizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.action(func(ctrl *graphview.Controller) { ctrl.Resize(req.Width, req.Height) })(c)
}
