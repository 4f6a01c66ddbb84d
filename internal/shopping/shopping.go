// Package shopping turns a week plan into a consolidated, priced shopping list
// and compares basket totals across supermarkets.
package shopping

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"text/template"
	"time"

	"family-os/internal/family"
	"family-os/internal/llm"
	"family-os/internal/logger"
	"family-os/internal/shared"
)

//go:embed prompts/consolidate.md
var consolidatePrompt string

var consolidateTmpl = template.Must(template.New("Consolidator").Parse(consolidatePrompt))

// AgentName is reported in AgentMeta.
const AgentName = "ShoppingConsolidator"

// BaselineStore is the store savings are measured against.
const BaselineStore = "Sainsbury's"

// StoreIndex is the fixed price multiplier of each store relative to the baseline.
var StoreIndex = map[string]float64{
	"Waitrose":    1.22,
	"Sainsbury's": 1.0,
	"Tesco":       0.96,
	"Asda":        0.92,
	"Aldi":        0.83,
}

// Result is a built shopping list.
type Result struct {
	Items      []family.ShoppingItem
	Comparison []family.StorePrice
	Meta       shared.AgentMeta
}

// Builder asks the model to consolidate a plan's ingredients.
type Builder struct {
	textGen llm.TextGenerator
	log     *logger.Logger
}

// NewBuilder creates a new Builder.
func NewBuilder(textGen llm.TextGenerator, log *logger.Logger) *Builder {
	return &Builder{textGen: textGen, log: log.With("component", "shopping")}
}

type promptData struct {
	Ingredients []string
}

// quantity accepts a JSON string or number.
type quantity string

func (q *quantity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = quantity(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("quantity must be a string or a number, got %s", data)
	}
	*q = quantity(n.String())
	return nil
}

type rawItem struct {
	Item     string   `json:"item"`
	Quantity quantity `json:"quantity"`
	EstPrice float64  `json:"est_price"`
}

// Build consolidates every ingredient of the plan and prices it. A plan
// without ingredients yields an empty list without calling the model.
func (b *Builder) Build(ctx context.Context, plan *family.WeekPlan) (Result, error) {
	ingredients := Ingredients(plan)
	if len(ingredients) == 0 {
		return Result{}, nil
	}

	start := time.Now()
	meta := shared.AgentMeta{AgentName: AgentName}

	var buf bytes.Buffer
	if err := consolidateTmpl.Execute(&buf, promptData{Ingredients: ingredients}); err != nil {
		return Result{Meta: meta}, fmt.Errorf("failed to render shopping prompt: %w", err)
	}

	resp, err := b.textGen.GenerateContent(ctx, buf.String())
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)
	if err != nil {
		return Result{Meta: meta}, fmt.Errorf("%s request failed: %w", AgentName, err)
	}

	var raw struct {
		Items []rawItem `json:"items"`
	}
	if err := llm.DecodeJSON(resp.Content, &raw); err != nil {
		return Result{Meta: meta}, fmt.Errorf("failed to parse %s response: %w", AgentName, err)
	}

	items := make([]family.ShoppingItem, 0, len(raw.Items))
	for _, r := range raw.Items {
		it := family.ShoppingItem{
			Item:     strings.TrimSpace(r.Item),
			Quantity: strings.TrimSpace(string(r.Quantity)),
			EstPrice: r.EstPrice,
		}
		if it.Item == "" {
			continue
		}
		if it.EstPrice < 0 || math.IsNaN(it.EstPrice) {
			b.log.Warn("negative price clamped", "item", it.Item, "price", it.EstPrice)
			it.EstPrice = 0
		}
		items = append(items, it)
	}
	if len(items) == 0 && len(raw.Items) > 0 {
		return Result{Meta: meta}, fmt.Errorf("failed to parse %s response: %w: no named items", AgentName, llm.ErrMalformedOutput)
	}

	b.log.Info("shopping list built", "ingredients", len(ingredients), "items", len(items))
	return Result{Items: items, Comparison: Compare(items), Meta: meta}, nil
}

// Ingredients flattens every ingredient line of the plan in day and slot order.
// Duplicates are kept.
func Ingredients(plan *family.WeekPlan) []string {
	if plan == nil {
		return nil
	}
	var out []string
	for _, d := range plan.Days {
		for _, s := range family.Slots {
			m, _ := d.Meals.Get(s)
			out = append(out, m.Ingredients...)
		}
	}
	return out
}

// Total sums the estimated prices.
func Total(items []family.ShoppingItem) float64 {
	var total float64
	for _, it := range items {
		total += it.EstPrice
	}
	return total
}

// Compare prices the basket at every store in StoreIndex, cheapest first.
// Totals are rounded to pennies. No items means no comparison.
func Compare(items []family.ShoppingItem) []family.StorePrice {
	if len(items) == 0 {
		return nil
	}
	total := Total(items)
	out := make([]family.StorePrice, 0, len(StoreIndex))
	for store, m := range StoreIndex {
		out = append(out, family.StorePrice{Store: store, Total: roundPennies(total * m)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total < out[j].Total
		}
		return StoreIndex[out[i].Store] < StoreIndex[out[j].Store]
	})
	return out
}

// Savings returns the cheapest store and how much it saves against the
// baseline store. ok is false when the cheapest store is the baseline or the
// comparison is empty.
func Savings(comparison []family.StorePrice) (cheapest family.StorePrice, amount float64, ok bool) {
	if len(comparison) == 0 {
		return family.StorePrice{}, 0, false
	}
	cheapest = comparison[0]
	if cheapest.Store == BaselineStore {
		return cheapest, 0, false
	}
	for _, sp := range comparison {
		if sp.Store == BaselineStore {
			return cheapest, roundPennies(sp.Total - cheapest.Total), true
		}
	}
	return cheapest, 0, false
}

func roundPennies(v float64) float64 {
	return math.Round(v*100) / 100
}
