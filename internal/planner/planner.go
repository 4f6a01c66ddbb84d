// Package planner builds and rebuilds the weekly meal plan with the language
// model while keeping locked meals in place.
package planner

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"text/template"
	"time"

	"family-os/internal/family"
	"family-os/internal/llm"
	"family-os/internal/logger"
	"family-os/internal/preference"
	"family-os/internal/shared"
)

//go:embed prompts/*.md
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").
	Funcs(template.FuncMap{"join": strings.Join}).
	ParseFS(promptFS, "prompts/*.md"))

var (
	// ErrNoPlan is returned when an operation needs a week plan and there is none.
	ErrNoPlan = errors.New("no week plan")
	// ErrUnknownSlot is returned for a day or meal slot that is not in the plan.
	ErrUnknownSlot = errors.New("unknown day or meal slot")
)

// Agent names reported in AgentMeta.
const (
	AgentWeek   = "WeekPlanner"
	AgentDay    = "DayPlanner"
	AgentMeal   = "MealPlanner"
	AgentRecipe = "RecipeWriter"
)

// Busy is the schedule status of a day that needs a quick dinner.
const (
	Busy = "Busy"
	Free = "Free"
)

// Schedule is the household's fixed weekly rhythm.
var Schedule = map[string]string{"Tuesday": Busy}

// DayStatus returns Busy or Free for a weekday.
func DayStatus(day string) string {
	if s, ok := Schedule[day]; ok {
		return s
	}
	return Free
}

// Planner handles the generation of meal plans.
type Planner struct {
	textGen llm.TextGenerator
	log     *logger.Logger
	rng     *rand.Rand
}

// NewPlanner creates a new Planner instance.
func NewPlanner(textGen llm.TextGenerator, log *logger.Logger) *Planner {
	now := uint64(time.Now().UnixNano())
	return &Planner{
		textGen: textGen,
		log:     log.With("component", "planner"),
		rng:     rand.New(rand.NewPCG(now, now>>1)),
	}
}

// WeekResult is the outcome of a full week generation.
type WeekResult struct {
	Plan     *family.WeekPlan
	Accent   preference.Accent
	Warnings []string
	Meta     shared.AgentMeta
}

// DayResult is the outcome of regenerating one day.
type DayResult struct {
	Plan     *family.WeekPlan
	Warnings []string
	Meta     shared.AgentMeta
}

// MealResult is the outcome of rerolling one meal. A locked meal is refused:
// Refused is set, Notice explains why and Plan is nil.
type MealResult struct {
	Plan    *family.WeekPlan
	Meal    family.Meal
	Refused bool
	Notice  string
	Meta    shared.AgentMeta
}

// RecipeResult is the outcome of a recipe expansion.
type RecipeResult struct {
	Plan    *family.WeekPlan
	Details family.RecipeDetails
	Meta    shared.AgentMeta
}

type scheduleDay struct {
	Day    string
	Status string
}

type slotMeal struct {
	Day      string
	Slot     family.Slot
	Name     string
	StyleTag string
}

type promptData struct {
	MemberCount int
	Members     []family.Member
	Kitchen     family.KitchenProfile
	Catalog     []string
	Favorites   []string
	Disliked    []string
	Accent      preference.Accent
	Schedule    []scheduleDay
	Locked      []slotMeal

	Day        string
	Status     string
	Slot       family.Slot
	Current    *family.Meal
	SameDay    []slotMeal
	Neighbours []slotMeal
	Meal       family.Meal
}

func newPromptData(fam *family.Family) promptData {
	favorites, disliked := preference.Classify(fam.Preferences)
	n := len(fam.Members)
	if n == 0 {
		n = 1
	}
	return promptData{
		MemberCount: n,
		Members:     fam.Members,
		Kitchen:     fam.KitchenProfile,
		Catalog:     preference.Catalog,
		Favorites:   favorites,
		Disliked:    disliked,
	}
}

func renderPrompt(name string, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// ask renders a prompt, sends it and decodes the JSON reply into out. The
// returned meta carries the usage even when decoding fails.
func (p *Planner) ask(ctx context.Context, agent, tmpl string, data promptData, out any) (shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: agent}

	prompt, err := renderPrompt(tmpl, data)
	if err != nil {
		return meta, err
	}

	resp, err := p.textGen.GenerateContent(ctx, prompt)
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)
	if err != nil {
		return meta, fmt.Errorf("%s request failed: %w", agent, err)
	}

	if err := llm.DecodeJSON(resp.Content, out); err != nil {
		return meta, fmt.Errorf("failed to parse %s response: %w", agent, err)
	}
	return meta, nil
}

// GenerateWeek plans a whole new week. Locked meals of the current plan are
// carried over verbatim. The family is not modified.
func (p *Planner) GenerateWeek(ctx context.Context, fam *family.Family) (WeekResult, error) {
	locks := CaptureLocks(fam.WeekPlan)

	data := newPromptData(fam)
	data.Accent = preference.WeeklyAccent(fam.Preferences, p.rng)
	for _, d := range family.Days {
		data.Schedule = append(data.Schedule, scheduleDay{Day: d, Status: DayStatus(d)})
	}
	data.Locked = locks.list()

	var raw weekResponse
	meta, err := p.ask(ctx, AgentWeek, "week.md", data, &raw)
	if err != nil {
		return WeekResult{Meta: meta}, err
	}

	plan, err := raw.toPlan()
	if err != nil {
		return WeekResult{Meta: meta}, fmt.Errorf("failed to parse %s response: %w", AgentWeek, err)
	}
	locks.Apply(plan)

	warnings := Review(plan)
	for _, w := range warnings {
		p.log.Warn("week plan check", "issue", w)
	}
	p.log.Info("week planned", "accent", data.Accent.Style, "mode", data.Accent.Mode, "locked", len(locks))

	return WeekResult{Plan: plan, Accent: data.Accent, Warnings: warnings, Meta: meta}, nil
}

// RegenerateDay replans the three meals of one day, keeping that day's locked
// meals. Every other day of the returned plan is identical to the input.
func (p *Planner) RegenerateDay(ctx context.Context, fam *family.Family, day string) (DayResult, error) {
	if fam.WeekPlan.IsEmpty() {
		return DayResult{}, ErrNoPlan
	}
	name, ok := family.CanonicalDay(day)
	if !ok {
		return DayResult{}, fmt.Errorf("%w: %q", ErrUnknownSlot, day)
	}
	plan := fam.WeekPlan.Clone()
	target, ok := plan.Day(name)
	if !ok {
		return DayResult{}, fmt.Errorf("%w: %q", ErrUnknownSlot, day)
	}

	locks := CaptureDayLocks(plan, name)

	data := newPromptData(fam)
	data.Day = name
	data.Status = DayStatus(name)
	data.Locked = locks.list()
	data.Neighbours = neighbourDinners(plan, name)

	var raw dayResponse
	meta, err := p.ask(ctx, AgentDay, "day.md", data, &raw)
	if err != nil {
		return DayResult{Meta: meta}, err
	}

	meals, err := raw.Meals.toMeals(name)
	if err != nil {
		return DayResult{Meta: meta}, fmt.Errorf("failed to parse %s response: %w", AgentDay, err)
	}
	target.Meals = meals
	locks.Apply(plan)

	warnings := Review(plan)
	for _, w := range warnings {
		p.log.Warn("day plan check", "day", name, "issue", w)
	}
	return DayResult{Plan: plan, Warnings: warnings, Meta: meta}, nil
}

// RegenerateMeal rerolls a single meal. A locked meal is refused without
// calling the model.
func (p *Planner) RegenerateMeal(ctx context.Context, fam *family.Family, day string, slot family.Slot) (MealResult, error) {
	if fam.WeekPlan.IsEmpty() {
		return MealResult{}, ErrNoPlan
	}
	plan := fam.WeekPlan.Clone()
	target, name, err := locate(plan, day, slot)
	if err != nil {
		return MealResult{}, err
	}
	if target.Locked {
		notice := fmt.Sprintf("%s %s (%s) is locked. Unlock it before rerolling.", name, slot, target.Name)
		return MealResult{Meal: *target, Refused: true, Notice: notice}, nil
	}

	data := newPromptData(fam)
	data.Day = name
	data.Status = DayStatus(name)
	data.Slot = slot
	current := target.Clone()
	data.Current = &current
	d, _ := plan.Day(name)
	for _, s := range family.Slots {
		if s == slot {
			continue
		}
		m, _ := d.Meals.Get(s)
		data.SameDay = append(data.SameDay, slotMeal{Day: name, Slot: s, Name: m.Name, StyleTag: m.StyleTag})
	}
	if slot == family.Dinner {
		data.Neighbours = neighbourDinners(plan, name)
	}

	var raw rawMeal
	meta, err := p.ask(ctx, AgentMeal, "meal.md", data, &raw)
	if err != nil {
		return MealResult{Meta: meta}, err
	}
	meal, err := raw.toMeal(string(slot))
	if err != nil {
		return MealResult{Meta: meta}, fmt.Errorf("failed to parse %s response: %w", AgentMeal, err)
	}
	*target = meal

	for _, ing := range meal.Ingredients {
		if !HasQuantity(ing) {
			p.log.Warn("meal check", "day", name, "slot", slot, "issue", "ingredient without quantity", "ingredient", ing)
		}
	}
	return MealResult{Plan: plan, Meal: meal, Meta: meta}, nil
}

// FetchRecipe expands a planned meal into step-by-step instructions and stores
// them on that meal. Lock state is untouched.
func (p *Planner) FetchRecipe(ctx context.Context, fam *family.Family, day string, slot family.Slot) (RecipeResult, error) {
	if fam.WeekPlan.IsEmpty() {
		return RecipeResult{}, ErrNoPlan
	}
	plan := fam.WeekPlan.Clone()
	target, name, err := locate(plan, day, slot)
	if err != nil {
		return RecipeResult{}, err
	}

	data := newPromptData(fam)
	data.Day = name
	data.Slot = slot
	data.Meal = target.Clone()

	var raw family.RecipeDetails
	meta, err := p.ask(ctx, AgentRecipe, "recipe.md", data, &raw)
	if err != nil {
		return RecipeResult{Meta: meta}, err
	}

	steps := raw.Steps[:0]
	for _, s := range raw.Steps {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}
	if len(steps) == 0 {
		return RecipeResult{Meta: meta}, fmt.Errorf("failed to parse %s response: %w: no steps", AgentRecipe, llm.ErrMalformedOutput)
	}
	if len(steps) < 5 || len(steps) > 8 {
		p.log.Warn("recipe check", "meal", target.Name, "steps", len(steps))
	}

	details := family.RecipeDetails{Steps: steps, Tip: strings.TrimSpace(raw.Tip)}
	stored := details
	stored.Steps = append([]string(nil), steps...)
	target.RecipeDetails = &stored

	return RecipeResult{Plan: plan, Details: details, Meta: meta}, nil
}

// locate finds the meal at (day, slot) in plan.
func locate(plan *family.WeekPlan, day string, slot family.Slot) (*family.Meal, string, error) {
	name, ok := family.CanonicalDay(day)
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownSlot, day)
	}
	m, ok := plan.Meal(name, slot)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s %q", ErrUnknownSlot, name, slot)
	}
	return m, name, nil
}

// neighbourDinners lists the dinners of the days before and after day.
func neighbourDinners(plan *family.WeekPlan, day string) []slotMeal {
	var out []slotMeal
	for i, d := range plan.Days {
		if !strings.EqualFold(d.Day, day) {
			continue
		}
		for _, j := range []int{i - 1, i + 1} {
			if j < 0 || j >= len(plan.Days) {
				continue
			}
			n := plan.Days[j]
			out = append(out, slotMeal{Day: n.Day, Slot: family.Dinner, Name: n.Meals.Dinner.Name, StyleTag: n.Meals.Dinner.StyleTag})
		}
	}
	return out
}
