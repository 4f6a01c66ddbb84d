package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"family-os/internal/family"
	"family-os/internal/feedback"
	"family-os/internal/logger"
	"family-os/internal/planner"
	"family-os/internal/session"
	"family-os/internal/shared"
	"family-os/internal/shopping"
	"family-os/internal/store"
)

// MetricsRecorder stores agent usage.
type MetricsRecorder interface {
	RecordMeta(ctx context.Context, meta shared.AgentMeta) error
}

type invalidator interface {
	Invalidate(ctx context.Context, id string)
}

// App runs the household operations against the family document: it loads
// state, calls the planner, persists the outcome and drops cached copies.
type App struct {
	familyID string
	store    store.DocumentStore
	planner  *planner.Planner
	shopper  *shopping.Builder
	feedback *feedback.Recorder
	metrics  MetricsRecorder
	log      *logger.Logger
	now      func() time.Time
}

// NewApp creates and initializes a new App instance. metrics may be nil.
func NewApp(
	familyID string,
	docs store.DocumentStore,
	mealPlanner *planner.Planner,
	shopper *shopping.Builder,
	recorder *feedback.Recorder,
	metricsRecorder MetricsRecorder,
	log *logger.Logger,
) *App {
	return &App{
		familyID: familyID,
		store:    docs,
		planner:  mealPlanner,
		shopper:  shopper,
		feedback: recorder,
		metrics:  metricsRecorder,
		log:      log.With("family_id", familyID),
		now:      time.Now,
	}
}

// FamilyID is the household this App serves.
func (a *App) FamilyID() string {
	return a.familyID
}

// Family loads the household, creating the default record on first access.
func (a *App) Family(ctx context.Context) (*family.Family, error) {
	fam, err := a.store.Get(ctx, a.familyID)
	if errors.Is(err, store.ErrNotFound) {
		a.log.Info("no family document, creating default")
		fam = family.New(a.familyID)
		if err := a.store.Set(ctx, a.familyID, fam); err != nil {
			return nil, fmt.Errorf("failed to create family: %w", err)
		}
		a.invalidate(ctx)
		return fam, nil
	}
	if err != nil {
		return nil, err
	}
	return fam, nil
}

// Seed overwrites the household document with seed data.
func (a *App) Seed(ctx context.Context, seed *family.Seed) (*family.Family, error) {
	fam := seed.Family(a.familyID)
	if seed.FamilyID != "" && seed.FamilyID != a.familyID {
		a.log.Warn("seed family_id ignored", "seed", seed.FamilyID, "family", a.familyID)
	}
	if err := a.store.Set(ctx, a.familyID, fam); err != nil {
		return nil, fmt.Errorf("failed to seed family: %w", err)
	}
	a.invalidate(ctx)
	a.log.Info("family seeded", "members", len(fam.Members))
	return fam, nil
}

// GenerateWeek replaces the week plan, keeping locked meals.
func (a *App) GenerateWeek(ctx context.Context) (planner.WeekResult, error) {
	fam, err := a.Family(ctx)
	if err != nil {
		return planner.WeekResult{}, err
	}

	res, err := a.planner.GenerateWeek(ctx, fam)
	a.recordMeta(ctx, res.Meta)
	if err != nil {
		return res, fmt.Errorf("failed to generate week plan: %w", err)
	}

	if err := a.savePlan(ctx, res.Plan); err != nil {
		return planner.WeekResult{}, err
	}
	a.log.Info("week plan saved", "accent", res.Accent.Style, "warnings", len(res.Warnings))
	return res, nil
}

// RegenerateDay replans one day, keeping its locked meals.
func (a *App) RegenerateDay(ctx context.Context, day string) (planner.DayResult, error) {
	fam, err := a.Family(ctx)
	if err != nil {
		return planner.DayResult{}, err
	}

	res, err := a.planner.RegenerateDay(ctx, fam, day)
	a.recordMeta(ctx, res.Meta)
	if err != nil {
		return res, fmt.Errorf("failed to regenerate %s: %w", day, err)
	}

	if err := a.savePlan(ctx, res.Plan); err != nil {
		return planner.DayResult{}, err
	}
	a.log.Info("day regenerated", "day", day)
	return res, nil
}

// RegenerateMeal rerolls one meal. A refusal for a locked meal is returned
// as a result, not an error, and nothing is written.
func (a *App) RegenerateMeal(ctx context.Context, day string, slot family.Slot) (planner.MealResult, error) {
	fam, err := a.Family(ctx)
	if err != nil {
		return planner.MealResult{}, err
	}

	res, err := a.planner.RegenerateMeal(ctx, fam, day, slot)
	a.recordMeta(ctx, res.Meta)
	if err != nil {
		return res, fmt.Errorf("failed to regenerate %s %s: %w", day, slot, err)
	}
	if res.Refused {
		a.log.Info("reroll refused", "day", day, "slot", slot)
		return res, nil
	}

	if err := a.savePlan(ctx, res.Plan); err != nil {
		return planner.MealResult{}, err
	}
	a.log.Info("meal regenerated", "day", day, "slot", slot, "meal", res.Meal.Name)
	return res, nil
}

// ToggleLock flips the lock of one meal and returns the new state.
func (a *App) ToggleLock(ctx context.Context, day string, slot family.Slot) (bool, error) {
	fam, err := a.Family(ctx)
	if err != nil {
		return false, err
	}

	plan, locked, err := planner.ToggleLock(fam.WeekPlan, day, slot)
	if err != nil {
		return false, err
	}
	if err := a.savePlan(ctx, plan); err != nil {
		return false, err
	}
	a.log.Info("lock toggled", "day", day, "slot", slot, "locked", locked)
	return locked, nil
}

// FetchRecipe expands one meal into steps and stores them on the plan.
func (a *App) FetchRecipe(ctx context.Context, day string, slot family.Slot) (planner.RecipeResult, error) {
	fam, err := a.Family(ctx)
	if err != nil {
		return planner.RecipeResult{}, err
	}

	res, err := a.planner.FetchRecipe(ctx, fam, day, slot)
	a.recordMeta(ctx, res.Meta)
	if err != nil {
		return res, fmt.Errorf("failed to fetch recipe: %w", err)
	}

	if err := a.savePlan(ctx, res.Plan); err != nil {
		return planner.RecipeResult{}, err
	}
	return res, nil
}

// BuildShoppingList prices the current plan and stores the list and the
// store comparison.
func (a *App) BuildShoppingList(ctx context.Context) (shopping.Result, error) {
	fam, err := a.Family(ctx)
	if err != nil {
		return shopping.Result{}, err
	}

	res, err := a.shopper.Build(ctx, fam.WeekPlan)
	a.recordMeta(ctx, res.Meta)
	if err != nil {
		return res, fmt.Errorf("failed to build shopping list: %w", err)
	}

	items := res.Items
	if items == nil {
		items = []family.ShoppingItem{}
	}
	comparison := res.Comparison
	if comparison == nil {
		comparison = []family.StorePrice{}
	}
	if err := a.update(ctx, map[string]any{
		family.FieldShoppingList:    items,
		family.FieldPriceComparison: comparison,
	}); err != nil {
		return shopping.Result{}, err
	}
	a.log.Info("shopping list saved", "items", len(items), "total", shopping.Total(items))
	return res, nil
}

// RecordFeedback appends a rating and nudges the preference for styleTag.
func (a *App) RecordFeedback(ctx context.Context, meal string, rating family.Rating, member, styleTag string) (feedback.Outcome, error) {
	out, err := a.feedback.Record(ctx, a.familyID, meal, rating, member, styleTag)
	a.invalidate(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to record feedback: %w", err)
	}
	return out, nil
}

// RateMeal records member's rating of the planned meal at (day, slot).
// member must belong to the household.
func (a *App) RateMeal(ctx context.Context, member, day string, slot family.Slot, rating family.Rating) (feedback.Outcome, error) {
	fam, err := a.Family(ctx)
	if err != nil {
		return feedback.Outcome{}, err
	}
	m, ok := fam.Member(member)
	if !ok {
		return feedback.Outcome{}, fmt.Errorf("%w: %q", session.ErrUnknownMember, member)
	}
	if fam.WeekPlan.IsEmpty() {
		return feedback.Outcome{}, planner.ErrNoPlan
	}
	meal, ok := fam.WeekPlan.Meal(day, slot)
	if !ok {
		return feedback.Outcome{}, fmt.Errorf("%w: %s %s", planner.ErrUnknownSlot, day, slot)
	}
	return a.RecordFeedback(ctx, meal.Name, rating, m.Name, meal.StyleTag)
}

// TonightsDinner returns today's dinner, or the first planned dinner when
// today is not in the plan.
func (a *App) TonightsDinner(ctx context.Context) (*family.Meal, string, error) {
	fam, err := a.Family(ctx)
	if err != nil {
		return nil, "", err
	}
	meal, day, ok := fam.TonightsDinner(a.now())
	if !ok {
		return nil, "", planner.ErrNoPlan
	}
	return meal, day, nil
}

// History returns recent feedback, newest first.
func (a *App) History(ctx context.Context, limit int) ([]family.FeedbackEvent, error) {
	return a.feedback.History(ctx, a.familyID, limit)
}

func (a *App) savePlan(ctx context.Context, plan *family.WeekPlan) error {
	return a.update(ctx, map[string]any{family.FieldWeekPlan: plan})
}

func (a *App) update(ctx context.Context, fields map[string]any) error {
	err := a.store.Update(ctx, a.familyID, fields)
	a.invalidate(ctx)
	if err != nil {
		return fmt.Errorf("failed to save family: %w", err)
	}
	return nil
}

func (a *App) invalidate(ctx context.Context) {
	if inv, ok := a.store.(invalidator); ok {
		inv.Invalidate(ctx, a.familyID)
	}
}

// contextBloatTokens is the prompt size that earns a warning.
const contextBloatTokens = 4000

func (a *App) recordMeta(ctx context.Context, meta shared.AgentMeta) {
	if meta.AgentName == "" {
		return
	}
	a.log.Debug("agent finished",
		"agent", meta.AgentName,
		"model", meta.Usage.Model,
		"tokens", meta.Usage.Total(),
		"latency_ms", meta.Latency.Milliseconds())
	if meta.Usage.PromptTokens > contextBloatTokens {
		a.log.Warn("context bloat", "agent", meta.AgentName, "prompt_tokens", meta.Usage.PromptTokens)
	}
	if a.metrics == nil {
		return
	}
	if err := a.metrics.RecordMeta(ctx, meta); err != nil {
		a.log.Warn("failed to record metrics", "agent", meta.AgentName, "error", err)
	}
}
