package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"family-os/internal/app"
	"family-os/internal/family"
	"family-os/internal/logger"
	"family-os/internal/planner"
	"family-os/internal/session"
	"family-os/internal/shopping"
)

// Handler serves the household operations over HTTP.
type Handler struct {
	app      *app.App
	sessions *session.Manager
	log      *logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(a *app.App, sessions *session.Manager, log *logger.Logger) *Handler {
	return &Handler{app: a, sessions: sessions, log: log.With("component", "httpapi")}
}

type memberView struct {
	Name string      `json:"name"`
	Role family.Role `json:"role"`
}

type sessionView struct {
	Token     string      `json:"token,omitempty"`
	Member    string      `json:"member"`
	Role      family.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// GET /api/members
// The member picker shown before a session exists.
func (h *Handler) Members(c *gin.Context) {
	fam, err := h.app.Family(c.Request.Context())
	if err != nil {
		respondFailure(c, err)
		return
	}
	out := make([]memberView, 0, len(fam.Members))
	for _, m := range fam.Members {
		out = append(out, memberView{Name: m.Name, Role: m.Role})
	}
	c.JSON(http.StatusOK, gin.H{"members": out})
}

// POST /api/session
// body: { "member": "Dad" }
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Member string `json:"member" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	ctx := c.Request.Context()
	fam, err := h.app.Family(ctx)
	if err != nil {
		respondFailure(c, err)
		return
	}
	s, err := h.sessions.Start(ctx, fam, "", req.Member)
	if err != nil {
		respondFailure(c, err)
		return
	}
	token, err := h.sessions.Token(s)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "token_failed", err)
		return
	}
	h.log.Info("session started", "member", s.Member, "role", s.Role)
	c.JSON(http.StatusCreated, sessionView{Token: token, Member: s.Member, Role: s.Role, ExpiresAt: s.ExpiresAt})
}

// GET /api/session
func (h *Handler) Me(c *gin.Context) {
	s := currentSession(c)
	c.JSON(http.StatusOK, sessionView{Member: s.Member, Role: s.Role, ExpiresAt: s.ExpiresAt})
}

// DELETE /api/session
func (h *Handler) Logout(c *gin.Context) {
	s := currentSession(c)
	if err := h.sessions.End(c.Request.Context(), s.ID); err != nil {
		respondError(c, http.StatusInternalServerError, "logout_failed", err)
		return
	}
	h.log.Info("session ended", "member", s.Member)
	c.Status(http.StatusNoContent)
}

// GET /api/tonight
func (h *Handler) Tonight(c *gin.Context) {
	meal, day, err := h.app.TonightsDinner(c.Request.Context())
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "meal": meal})
}

// POST /api/tonight/feedback
// body: { "rating": "like" | "dislike" }
func (h *Handler) RateTonight(c *gin.Context) {
	rating, ok := bindRating(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	_, day, err := h.app.TonightsDinner(ctx)
	if err != nil {
		respondFailure(c, err)
		return
	}
	h.rate(c, day, family.Dinner, rating)
}

// POST /api/plan/:day/:slot/rate
// body: { "rating": "like" | "dislike" }
func (h *Handler) RateMeal(c *gin.Context) {
	day, slot, err := mealParams(c)
	if err != nil {
		respondFailure(c, err)
		return
	}
	rating, ok := bindRating(c)
	if !ok {
		return
	}
	h.rate(c, day, slot, rating)
}

func (h *Handler) rate(c *gin.Context, day string, slot family.Slot, rating family.Rating) {
	s := currentSession(c)
	out, err := h.app.RateMeal(c.Request.Context(), s.Member, day, slot, rating)
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": out.Event, "style": out.Style, "score": out.Score})
}

// GET /api/family
func (h *Handler) Family(c *gin.Context) {
	fam, err := h.app.Family(c.Request.Context())
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, fam)
}

// GET /api/plan
func (h *Handler) Plan(c *gin.Context) {
	fam, err := h.app.Family(c.Request.Context())
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"week_plan": fam.WeekPlan})
}

// POST /api/plan/generate
func (h *Handler) GenerateWeek(c *gin.Context) {
	res, err := h.app.GenerateWeek(c.Request.Context())
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"week_plan": res.Plan,
		"accent":    gin.H{"style": res.Accent.Style, "mode": res.Accent.Mode},
		"warnings":  nonNil(res.Warnings),
	})
}

// POST /api/plan/:day/regenerate
func (h *Handler) RegenerateDay(c *gin.Context) {
	day, ok := family.CanonicalDay(c.Param("day"))
	if !ok {
		respondFailure(c, fmt.Errorf("%w: day %q", planner.ErrUnknownSlot, c.Param("day")))
		return
	}
	res, err := h.app.RegenerateDay(c.Request.Context(), day)
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"week_plan": res.Plan, "warnings": nonNil(res.Warnings)})
}

// POST /api/plan/:day/:slot/lock
func (h *Handler) ToggleLock(c *gin.Context) {
	day, slot, err := mealParams(c)
	if err != nil {
		respondFailure(c, err)
		return
	}
	locked, err := h.app.ToggleLock(c.Request.Context(), day, slot)
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "slot": slot, "locked": locked})
}

// POST /api/plan/:day/:slot/reroll
func (h *Handler) Reroll(c *gin.Context) {
	day, slot, err := mealParams(c)
	if err != nil {
		respondFailure(c, err)
		return
	}
	res, err := h.app.RegenerateMeal(c.Request.Context(), day, slot)
	if err != nil {
		respondFailure(c, err)
		return
	}
	if res.Refused {
		respondError(c, http.StatusConflict, "locked", errors.New(res.Notice))
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "slot": slot, "meal": res.Meal})
}

// POST /api/plan/:day/:slot/recipe
func (h *Handler) Recipe(c *gin.Context) {
	day, slot, err := mealParams(c)
	if err != nil {
		respondFailure(c, err)
		return
	}
	res, err := h.app.FetchRecipe(c.Request.Context(), day, slot)
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "slot": slot, "recipe_details": res.Details})
}

// GET /api/shopping
func (h *Handler) ShoppingList(c *gin.Context) {
	fam, err := h.app.Family(c.Request.Context())
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, shoppingView(fam.ShoppingList, fam.PriceComparison))
}

// POST /api/shopping
func (h *Handler) BuildShoppingList(c *gin.Context) {
	res, err := h.app.BuildShoppingList(c.Request.Context())
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, shoppingView(res.Items, res.Comparison))
}

// GET /api/history?limit=20
func (h *Handler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_request", errors.New("limit must be a positive integer"))
		return
	}
	events, err := h.app.History(c.Request.Context(), limit)
	if err != nil {
		respondFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": nonNil(events)})
}

func shoppingView(items []family.ShoppingItem, comparison []family.StorePrice) gin.H {
	out := gin.H{
		"items":            nonNil(items),
		"price_comparison": nonNil(comparison),
		"total":            shopping.Total(items),
	}
	if cheapest, saving, ok := shopping.Savings(comparison); ok {
		out["cheapest"] = cheapest
		out["saving"] = saving
	}
	return out
}

func mealParams(c *gin.Context) (string, family.Slot, error) {
	day, ok := family.CanonicalDay(c.Param("day"))
	if !ok {
		return "", "", fmt.Errorf("%w: day %q", planner.ErrUnknownSlot, c.Param("day"))
	}
	slot, ok := family.ParseSlot(c.Param("slot"))
	if !ok {
		return "", "", fmt.Errorf("%w: slot %q", planner.ErrUnknownSlot, c.Param("slot"))
	}
	return day, slot, nil
}

func bindRating(c *gin.Context) (family.Rating, bool) {
	var req struct {
		Rating string `json:"rating" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return "", false
	}
	r := family.Rating(strings.ToLower(strings.TrimSpace(req.Rating)))
	if r != family.RatingLike && r != family.RatingDislike {
		respondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("rating must be %q or %q", family.RatingLike, family.RatingDislike))
		return "", false
	}
	return r, true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
