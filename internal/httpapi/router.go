// Package httpapi is the JSON API behind the single-page UI.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"family-os/internal/app"
	"family-os/internal/logger"
	"family-os/internal/session"
)

// RouterConfig holds what the router serves.
type RouterConfig struct {
	App         *app.App
	Sessions    *session.Manager
	Log         *logger.Logger
	CORSOrigins []string
	// Webhook receives Telegram updates when the chat front end is enabled.
	Webhook http.HandlerFunc
}

// NewRouter builds the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	h := NewHandler(cfg.App, cfg.Sessions, cfg.Log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(cfg.Log))
	r.Use(corsMiddleware(cfg.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if cfg.Webhook != nil {
		r.POST("/webhook", gin.WrapF(cfg.Webhook))
	}

	api := r.Group("/api")
	api.GET("/members", h.Members)
	api.POST("/session", h.Login)

	authed := api.Group("")
	authed.Use(requireSession(cfg.Sessions))
	{
		authed.GET("/session", h.Me)
		authed.DELETE("/session", h.Logout)
		authed.GET("/tonight", h.Tonight)
		authed.POST("/tonight/feedback", h.RateTonight)
	}

	parent := authed.Group("")
	parent.Use(requireParent())
	{
		parent.GET("/family", h.Family)
		parent.GET("/plan", h.Plan)
		parent.POST("/plan/generate", h.GenerateWeek)
		parent.POST("/plan/:day/regenerate", h.RegenerateDay)
		parent.POST("/plan/:day/:slot/lock", h.ToggleLock)
		parent.POST("/plan/:day/:slot/reroll", h.Reroll)
		parent.POST("/plan/:day/:slot/recipe", h.Recipe)
		parent.POST("/plan/:day/:slot/rate", h.RateMeal)
		parent.GET("/shopping", h.ShoppingList)
		parent.POST("/shopping", h.BuildShoppingList)
		parent.GET("/history", h.History)
	}

	return r
}
