package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"family-os/internal/app"
	"family-os/internal/config"
	"family-os/internal/family"
	"family-os/internal/metrics"
	"family-os/internal/preference"
	"family-os/internal/shopping"
)

// Context is handed to every command.
type Context struct {
	Ctx context.Context
	Cfg *config.Config
	Svc *app.Services
	Out io.Writer
}

// MealRef names one meal of the plan.
type MealRef struct {
	Day  string `arg:"" help:"Day of the week, e.g. Monday."`
	Slot string `arg:"" enum:"breakfast,lunch,dinner" help:"breakfast, lunch or dinner."`
}

func (m MealRef) resolve() (string, family.Slot, error) {
	day, ok := family.CanonicalDay(m.Day)
	if !ok {
		return "", "", fmt.Errorf("unknown day %q", m.Day)
	}
	slot, _ := family.ParseSlot(m.Slot)
	return day, slot, nil
}

type GenerateCmd struct{}

func (c *GenerateCmd) Run(ctx *Context) error {
	res, err := ctx.Svc.App.GenerateWeek(ctx.Ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Accent this week: %s (%s)\n\n", res.Accent.Style, res.Accent.Mode)
	printPlan(ctx.Out, res.Plan)
	printWarnings(ctx.Out, res.Warnings)
	return nil
}

type RegenDayCmd struct {
	Day string `arg:"" help:"Day of the week to regenerate."`
}

func (c *RegenDayCmd) Run(ctx *Context) error {
	day, ok := family.CanonicalDay(c.Day)
	if !ok {
		return fmt.Errorf("unknown day %q", c.Day)
	}
	res, err := ctx.Svc.App.RegenerateDay(ctx.Ctx, day)
	if err != nil {
		return err
	}
	d, _ := res.Plan.Day(day)
	printDay(ctx.Out, d)
	printWarnings(ctx.Out, res.Warnings)
	return nil
}

type RegenMealCmd struct {
	MealRef `embed:""`
}

func (c *RegenMealCmd) Run(ctx *Context) error {
	day, slot, err := c.resolve()
	if err != nil {
		return err
	}
	res, err := ctx.Svc.App.RegenerateMeal(ctx.Ctx, day, slot)
	if err != nil {
		return err
	}
	if res.Refused {
		fmt.Fprintln(ctx.Out, res.Notice)
		return nil
	}
	fmt.Fprintf(ctx.Out, "%s %s: %s (%s)\n", day, slot, res.Meal.Name, res.Meal.StyleTag)
	return nil
}

type LockCmd struct {
	MealRef `embed:""`
}

func (c *LockCmd) Run(ctx *Context) error {
	day, slot, err := c.resolve()
	if err != nil {
		return err
	}
	locked, err := ctx.Svc.App.ToggleLock(ctx.Ctx, day, slot)
	if err != nil {
		return err
	}
	state := "unlocked"
	if locked {
		state = "locked"
	}
	fmt.Fprintf(ctx.Out, "%s %s is now %s\n", day, slot, state)
	return nil
}

type RecipeCmd struct {
	MealRef `embed:""`
}

func (c *RecipeCmd) Run(ctx *Context) error {
	day, slot, err := c.resolve()
	if err != nil {
		return err
	}
	res, err := ctx.Svc.App.FetchRecipe(ctx.Ctx, day, slot)
	if err != nil {
		return err
	}
	m, _ := res.Plan.Meal(day, slot)
	fmt.Fprintf(ctx.Out, "%s\n\n", m.Name)
	for i, step := range res.Details.Steps {
		fmt.Fprintf(ctx.Out, "%d. %s\n", i+1, step)
	}
	if res.Details.Tip != "" {
		fmt.Fprintf(ctx.Out, "\nTip: %s\n", res.Details.Tip)
	}
	return nil
}

type ShopCmd struct{}

func (c *ShopCmd) Run(ctx *Context) error {
	res, err := ctx.Svc.App.BuildShoppingList(ctx.Ctx)
	if err != nil {
		return err
	}
	printShopping(ctx.Out, res.Items, res.Comparison)
	return nil
}

type RateCmd struct {
	Member string `arg:"" help:"Who is rating."`
	MealRef `embed:""`
	Rating string `arg:"" enum:"like,dislike" help:"like or dislike."`
}

func (c *RateCmd) Run(ctx *Context) error {
	day, slot, err := c.resolve()
	if err != nil {
		return err
	}
	out, err := ctx.Svc.App.RateMeal(ctx.Ctx, c.Member, day, slot, family.Rating(c.Rating))
	if err != nil {
		return err
	}
	if out.Style == "" {
		fmt.Fprintf(ctx.Out, "Recorded %s for %s (style not in catalog)\n", c.Rating, out.Event.Meal)
		return nil
	}
	fmt.Fprintf(ctx.Out, "Recorded %s for %s: %s is now %+d\n", c.Rating, out.Event.Meal, out.Style, out.Score)
	return nil
}

type ShowCmd struct {
	History int `help:"Also list this many recent ratings." default:"0"`
}

func (c *ShowCmd) Run(ctx *Context) error {
	fam, err := ctx.Svc.App.Family(ctx.Ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Family %s\n", fam.ID)
	for _, m := range fam.Members {
		fmt.Fprintf(ctx.Out, "  %s (%s)", m.Name, m.Role)
		if len(m.Dislikes) > 0 {
			fmt.Fprintf(ctx.Out, " dislikes: %s", strings.Join(m.Dislikes, ", "))
		}
		if len(m.DietaryFlags) > 0 {
			fmt.Fprintf(ctx.Out, " flags: %s", strings.Join(m.DietaryFlags, ", "))
		}
		fmt.Fprintln(ctx.Out)
	}

	favorites, disliked := preference.Classify(fam.Preferences)
	if len(favorites) > 0 {
		fmt.Fprintf(ctx.Out, "Favorites: %s\n", strings.Join(favorites, "; "))
	}
	if len(disliked) > 0 {
		fmt.Fprintf(ctx.Out, "Avoiding: %s\n", strings.Join(disliked, "; "))
	}
	fmt.Fprintln(ctx.Out)

	printPlan(ctx.Out, fam.WeekPlan)
	if len(fam.ShoppingList) > 0 {
		fmt.Fprintln(ctx.Out)
		printShopping(ctx.Out, fam.ShoppingList, fam.PriceComparison)
	}

	if c.History > 0 {
		events, err := ctx.Svc.App.History(ctx.Ctx, c.History)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.Out, "\nRecent ratings:")
		for _, e := range events {
			fmt.Fprintf(ctx.Out, "  %s %s %s (%s) %s\n", e.Member, e.Rating, e.Meal, e.Style, humanize.Time(e.RecordedAt))
		}
	}
	return nil
}

type SeedCmd struct {
	File string `help:"Seed YAML file; the embedded default is used when empty." type:"path"`
}

func (c *SeedCmd) Run(ctx *Context) error {
	seed, err := family.LoadSeed(c.File)
	if err != nil {
		return err
	}
	fam, err := ctx.Svc.App.Seed(ctx.Ctx, seed)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Seeded family %s with %d members\n", fam.ID, len(fam.Members))
	return nil
}

type MetricsCmd struct {
	Days int `help:"How many days to report." default:"7"`
}

func (c *MetricsCmd) Run(ctx *Context) error {
	usage, err := ctx.Svc.Metrics.GetDailyUsage(ctx.Ctx, c.Days)
	if err != nil {
		return err
	}
	agents, err := ctx.Svc.Metrics.GetAgentUsage(ctx.Ctx, c.Days)
	if err != nil {
		return err
	}

	fmt.Fprintln(ctx.Out, "Daily usage:")
	if len(usage) == 0 {
		fmt.Fprintln(ctx.Out, "  no data yet")
	}
	for _, d := range usage {
		fmt.Fprintf(ctx.Out, "  %s: %s tokens (%d calls)\n", d.Date, humanize.Comma(int64(d.TotalPrompt+d.TotalCompletion)), d.TotalExecution)
	}
	fmt.Fprintln(ctx.Out, "\nBy agent:")
	for _, a := range agents {
		fmt.Fprintf(ctx.Out, "  %-22s %4d calls %10s tokens %6d ms avg\n", a.AgentName, a.Executions, humanize.Comma(int64(a.TotalTokens)), a.AvgLatencyMS)
	}

	h := metrics.GetSysHealth(filepath.Dir(ctx.Cfg.DatabasePath))
	fmt.Fprintf(ctx.Out, "\nMemory: %s alloc, %s sys, %d GCs\nData on disk: %s\n", h.Alloc, h.Sys, h.NumGC, h.DataDiskSize)
	return nil
}

type MetricsCleanupCmd struct {
	Days int `help:"Delete rows older than this many days." default:"30"`
}

func (c *MetricsCleanupCmd) Run(ctx *Context) error {
	n, err := ctx.Svc.Metrics.Cleanup(ctx.Ctx, c.Days)
	if err != nil {
		return err
	}
	removed, err := ctx.Svc.Sessions.Cleanup(ctx.Ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Deleted %d usage rows older than %d days and %d expired sessions\n", n, c.Days, removed)
	return nil
}

func printPlan(w io.Writer, plan *family.WeekPlan) {
	if plan.IsEmpty() {
		fmt.Fprintln(w, "No plan yet. Run `familyos generate`.")
		return
	}
	for i := range plan.Days {
		printDay(w, &plan.Days[i])
	}
}

func printDay(w io.Writer, d *family.Day) {
	fmt.Fprintln(w, d.Day)
	for _, slot := range family.Slots {
		m, _ := d.Meals.Get(slot)
		lock := ""
		if m.Locked {
			lock = " [locked]"
		}
		fmt.Fprintf(w, "  %-9s %s (%s)%s\n", slot, m.Name, m.StyleTag, lock)
	}
}

func printWarnings(w io.Writer, warnings []string) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func printShopping(w io.Writer, items []family.ShoppingItem, comparison []family.StorePrice) {
	if len(items) == 0 {
		fmt.Fprintln(w, "Shopping list is empty.")
		return
	}
	fmt.Fprintln(w, "Shopping list:")
	for _, it := range items {
		fmt.Fprintf(w, "  %-28s %-10s £%.2f\n", it.Item, it.Quantity, it.EstPrice)
	}
	fmt.Fprintf(w, "  Estimated total: £%.2f\n", shopping.Total(items))
	for _, sp := range comparison {
		fmt.Fprintf(w, "  %-12s £%.2f\n", sp.Store, sp.Total)
	}
	if cheapest, saving, ok := shopping.Savings(comparison); ok {
		fmt.Fprintf(w, "  Cheapest at %s, saving £%.2f\n", cheapest.Store, saving)
	}
}
