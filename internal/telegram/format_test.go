package telegram

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"family-os/internal/family"
	"family-os/internal/metrics"
)

func samplePlan() *family.WeekPlan {
	plan := &family.WeekPlan{}
	for _, d := range family.Days {
		plan.Days = append(plan.Days, family.Day{Day: d, Meals: family.Meals{
			Breakfast: family.Meal{Name: d + " Porridge", Ingredients: []string{"50g oats"}},
			Lunch:     family.Meal{Name: d + " Soup", Ingredients: []string{"1 leek"}},
			Dinner:    family.Meal{Name: d + " Pie", Ingredients: []string{"500g beef"}, StyleTag: "Modern British"},
		}})
	}
	plan.Days[0].Meals.Dinner.Locked = true
	return plan
}

func TestCallbackDataRoundTrip(t *testing.T) {
	data := callbackData(actReroll, "Wednesday", "breakfast")
	assert.Equal(t, "reroll|Wednesday|breakfast", data)
	assert.LessOrEqual(t, len(data), 64)

	action, args := parseCallback(data)
	assert.Equal(t, actReroll, action)
	day, slot, ok := slotArgs(args)
	require.True(t, ok)
	assert.Equal(t, "Wednesday", day)
	assert.Equal(t, family.Breakfast, slot)

	action, args = parseCallback(callbackData(actGen))
	assert.Equal(t, actGen, action)
	assert.Empty(t, args)

	_, _, ok = slotArgs([]string{"Someday", "dinner"})
	assert.False(t, ok)
}

func TestFormatWeek(t *testing.T) {
	assert.Contains(t, formatWeek(nil), "No plan yet")
	kb := weekKeyboard(nil)
	require.Len(t, kb.InlineKeyboard, 1)

	out := formatWeek(samplePlan())
	assert.Contains(t, out, "📅 *Weekly Meal Plan*")
	assert.Contains(t, out, "*Monday*: Monday Pie 🔒")
	assert.Contains(t, out, "*Tuesday*: Tuesday Pie\n")

	kb = weekKeyboard(samplePlan())
	// Seven day buttons in rows of four, then the actions row.
	require.Len(t, kb.InlineKeyboard, 3)
	assert.Equal(t, "day|Monday", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "gen", *kb.InlineKeyboard[2][0].CallbackData)
}

func TestFormatDay(t *testing.T) {
	plan := samplePlan()
	d, ok := plan.Day("Monday")
	require.True(t, ok)

	out := formatDay(d)
	assert.Contains(t, out, "*Breakfast*: Monday Porridge\n")
	assert.Contains(t, out, "*Dinner*: Monday Pie 🔒")
	assert.Contains(t, out, "• 500g beef")

	kb := dayKeyboard(d)
	require.Len(t, kb.InlineKeyboard, 4)
	assert.Equal(t, "🔓 Unlock dinner", kb.InlineKeyboard[2][0].Text)
	assert.Equal(t, "lock|Monday|dinner", *kb.InlineKeyboard[2][0].CallbackData)
	assert.Equal(t, "regen|Monday", *kb.InlineKeyboard[3][0].CallbackData)
}

func TestFormatShopping(t *testing.T) {
	assert.Contains(t, formatShopping(nil, nil), "Nothing to buy")

	items := []family.ShoppingItem{
		{Item: "Onions", Quantity: "3", EstPrice: 0.9},
		{Item: "Beef mince", Quantity: "500g", EstPrice: 4.1},
	}
	comparison := []family.StorePrice{
		{Store: "Aldi", Total: 4.15},
		{Store: "Sainsbury's", Total: 5},
	}
	out := formatShopping(items, comparison)
	assert.Contains(t, out, "• Onions (3) £0.90")
	assert.Contains(t, out, "*Estimated total:* £5.00")
	assert.Contains(t, out, "• Aldi: £4.15")
	assert.Contains(t, out, "save £0.85")
}

func TestFormatTonightAndRecipe(t *testing.T) {
	m := family.Meal{Name: "Fish_Fingers", Method: "Bake for 20 minutes."}
	out := formatTonight("Friday", &m)
	assert.Contains(t, out, "*Tonight (Friday)*")
	assert.Contains(t, out, `Fish\_Fingers`, "markdown is escaped")

	kb := tonightKeyboard()
	assert.Equal(t, "rate|like", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "rate|dislike", *kb.InlineKeyboard[0][1].CallbackData)

	out = formatRecipe(m, family.RecipeDetails{Steps: []string{"Heat oven", "Bake"}, Tip: "Serve with peas"})
	assert.Contains(t, out, "1. Heat oven\n2. Bake\n")
	assert.Contains(t, out, "💡 _Serve with peas_")
}

func TestFormatUsageAndError(t *testing.T) {
	out := formatUsage([]metrics.DailyUsage{{Date: "2026-10-19", TotalPrompt: 100, TotalCompletion: 20, TotalExecution: 3}},
		metrics.SysHealth{Alloc: "1.2 MB", Sys: "8 MB", Goroutines: 7, DataDiskSize: "40 kB"})
	assert.Contains(t, out, "• *2026-10-19*: 120 tokens (3 execs)")
	assert.Contains(t, out, "• RAM: 1.2 MB (Alloc) / 8 MB (Sys)")

	assert.Contains(t, formatError("Oops", errors.New("bad `thing`")), "bad 'thing'")
}

func TestMemberKeyboard(t *testing.T) {
	kb := memberKeyboard(family.New("f").Members)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "🧑 Dad", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "🧒 Kid", kb.InlineKeyboard[1][0].Text)
	assert.Equal(t, "pick|Kid", *kb.InlineKeyboard[1][0].CallbackData)
}
