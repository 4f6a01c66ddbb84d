package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"family-os/internal/app"
	"family-os/internal/config"
	"family-os/internal/logger"
)

var CLI struct {
	Generate       GenerateCmd       `cmd:"" help:"Generate this week's plan, keeping locked meals."`
	RegenDay       RegenDayCmd       `cmd:"" name:"regen-day" help:"Regenerate one day."`
	RegenMeal      RegenMealCmd      `cmd:"" name:"regen-meal" help:"Reroll one meal."`
	Lock           LockCmd           `cmd:"" help:"Toggle the lock on one meal."`
	Recipe         RecipeCmd         `cmd:"" help:"Expand one meal into a step-by-step recipe."`
	Shop           ShopCmd           `cmd:"" help:"Build the shopping list and store comparison."`
	Rate           RateCmd           `cmd:"" help:"Rate a planned meal."`
	Show           ShowCmd           `cmd:"" help:"Show the family, the plan and the shopping list." default:"1"`
	Seed           SeedCmd           `cmd:"" help:"Overwrite the family document with seed data."`
	Metrics        MetricsCmd        `cmd:"" help:"Show model usage and process health."`
	MetricsCleanup MetricsCleanupCmd `cmd:"" name:"metrics-cleanup" help:"Delete old usage rows."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("familyos"),
		kong.Description("Family OS: a weekly meal planner for the household."),
		kong.UsageOnError(),
	)

	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	svc, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize services", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = kctx.Run(&Context{Ctx: ctx, Cfg: cfg, Svc: svc, Out: os.Stdout})
	svc.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
