package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/bypass"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/navigation"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/policy"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/types"
)

// Browser is the part of the host the control API drives
type Browser interface {
	OpenTab(ctx context.Context, url string) (types.ContextID, error)
	CloseTab(id types.ContextID) error
	Tabs() []types.NavigableContext
}

// Hub reports how many contexts the pipeline is tracking
type Hub interface {
	Contexts() int
}

// Matcher reports the matcher client status
type Matcher interface {
	Enabled() bool
	Endpoint() string
	Health() string
}

// Deps are the collaborators behind the handlers. Browser may be nil when
// no browser is attached; tab routes then answer 503.
type Deps struct {
	Store   *policy.Store
	Engine  *bypass.Engine
	Browser Browser
	Hub     Hub
	Matcher Matcher
}

// Handlers contains all HTTP handlers
type Handlers struct {
	deps    Deps
	started time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{deps: deps, started: time.Now()}
}

// Root identifies the service
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "AiPlugs shell core",
	})
}

// Health reports pipeline status
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status":         "healthy",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"browser":        h.deps.Browser != nil,
	}
	if h.deps.Hub != nil {
		body["contexts"] = h.deps.Hub.Contexts()
	}
	if h.deps.Matcher != nil {
		body["matcher"] = gin.H{
			"enabled":  h.deps.Matcher.Enabled(),
			"endpoint": h.deps.Matcher.Endpoint(),
			"circuit":  h.deps.Matcher.Health(),
		}
	}
	c.JSON(http.StatusOK, body)
}

// Policy returns the resolved security policy, load issues and switches
func (h *Handlers) Policy(c *gin.Context) {
	issues := make([]string, 0)
	for _, issue := range h.deps.Store.Issues() {
		issues = append(issues, issue.String())
	}
	switches := make([]string, 0)
	for _, s := range h.deps.Engine.Switches() {
		switches = append(switches, s.String())
	}
	c.JSON(http.StatusOK, gin.H{
		"policy":   h.deps.Store.Resolve(),
		"issues":   issues,
		"switches": switches,
	})
}

// ListTabs lists the open tabs
func (h *Handlers) ListTabs(c *gin.Context) {
	if !h.requireBrowser(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"tabs": h.deps.Browser.Tabs()})
}

type openTabRequest struct {
	URL string `json:"url" binding:"required"`
}

// OpenTab opens a tab at the requested address
func (h *Handlers) OpenTab(c *gin.Context) {
	if !h.requireBrowser(c) {
		return
	}
	var req openTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	target, err := NormalizeURL(req.URL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.deps.Browser.OpenTab(c.Request.Context(), target)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not open tab"})
		return
	}
	tracing.Logger(c.Request.Context()).Info("Tab opened",
		zap.String("context_id", string(id)),
		zap.String("url", target))
	c.JSON(http.StatusCreated, gin.H{"id": id, "url": target})
}

// CloseTab closes the tab named in the path
func (h *Handlers) CloseTab(c *gin.Context) {
	if !h.requireBrowser(c) {
		return
	}
	id := types.ContextID(c.Param("id"))
	err := h.deps.Browser.CloseTab(id)
	switch {
	case errors.Is(err, navigation.ErrContextGone):
		c.JSON(http.StatusNotFound, gin.H{"error": "tab not found"})
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not close tab"})
	default:
		c.Status(http.StatusNoContent)
	}
}

func (h *Handlers) requireBrowser(c *gin.Context) bool {
	if h.deps.Browser != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no browser attached"})
	return false
}
