package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"family-os/internal/family"
	"family-os/internal/metrics"
	"family-os/internal/shopping"
)

// Callback actions. Data is "action|arg|arg" and must stay under 64 bytes.
const (
	actPick   = "pick"
	actWeek   = "week"
	actGen    = "gen"
	actDay    = "day"
	actRegen  = "regen"
	actLock   = "lock"
	actReroll = "reroll"
	actRecipe = "recipe"
	actRate   = "rate"
	actShop   = "shop"
)

func callbackData(action string, args ...string) string {
	return strings.Join(append([]string{action}, args...), "|")
}

func parseCallback(data string) (string, []string) {
	parts := strings.Split(data, "|")
	return parts[0], parts[1:]
}

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func memberKeyboard(members []family.Member) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, m := range members {
		label := "🧑 " + m.Name
		if m.IsChild() {
			label = "🧒 " + m.Name
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, callbackData(actPick, m.Name)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func formatWeek(plan *family.WeekPlan) string {
	if plan.IsEmpty() {
		return "📅 *No plan yet.*\nTap *Generate* to plan the week."
	}
	var sb strings.Builder
	sb.WriteString("📅 *Weekly Meal Plan*\n\n")
	for _, d := range plan.Days {
		dinner := d.Meals.Dinner
		sb.WriteString(fmt.Sprintf("*%s*: %s", d.Day, esc(dinner.Name)))
		if dinner.Locked {
			sb.WriteString(" 🔒")
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("_%s · %s_\n", esc(d.Meals.Breakfast.Name), esc(d.Meals.Lunch.Name)))
	}
	return sb.String()
}

func weekKeyboard(plan *family.WeekPlan) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	if plan.IsEmpty() {
		return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✨ Generate", callbackData(actGen)),
		))
	}
	for _, d := range plan.Days {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(d.Day[:3], callbackData(actDay, d.Day)))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✨ Generate", callbackData(actGen)),
		tgbotapi.NewInlineKeyboardButtonData("🛒 Shopping", callbackData(actShop)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func formatDay(d *family.Day) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🗓 *%s*\n\n", d.Day))
	for _, slot := range family.Slots {
		m, _ := d.Meals.Get(slot)
		sb.WriteString(fmt.Sprintf("*%s*: %s", slotLabel(slot), esc(m.Name)))
		if m.Locked {
			sb.WriteString(" 🔒")
		}
		sb.WriteString("\n")
		if m.StyleTag != "" {
			sb.WriteString(fmt.Sprintf("_%s_\n", esc(m.StyleTag)))
		}
		for _, ing := range m.Ingredients {
			sb.WriteString(fmt.Sprintf("• %s\n", esc(ing)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func slotLabel(s family.Slot) string {
	name := string(s)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func dayKeyboard(d *family.Day) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, slot := range family.Slots {
		m, _ := d.Meals.Get(slot)
		lock := "🔒 Lock"
		if m.Locked {
			lock = "🔓 Unlock"
		}
		name := string(slot)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(lock+" "+name, callbackData(actLock, d.Day, name)),
			tgbotapi.NewInlineKeyboardButtonData("🎲", callbackData(actReroll, d.Day, name)),
			tgbotapi.NewInlineKeyboardButtonData("📖", callbackData(actRecipe, d.Day, name)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Redo "+d.Day, callbackData(actRegen, d.Day)),
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Week", callbackData(actWeek)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func formatTonight(day string, m *family.Meal) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🍽 *Tonight (%s)*\n\n*%s*\n", day, esc(m.Name)))
	if m.Method != "" {
		sb.WriteString(fmt.Sprintf("\n%s\n", esc(m.Method)))
	}
	sb.WriteString("\nDid you like it?")
	return sb.String()
}

func tonightKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("👍 Yum", callbackData(actRate, string(family.RatingLike))),
		tgbotapi.NewInlineKeyboardButtonData("👎 Yuck", callbackData(actRate, string(family.RatingDislike))),
	))
}

func formatRecipe(m family.Meal, rd family.RecipeDetails) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📖 *%s*\n\n", esc(m.Name)))
	for i, step := range rd.Steps {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, esc(step)))
	}
	if rd.Tip != "" {
		sb.WriteString(fmt.Sprintf("\n💡 _%s_\n", esc(rd.Tip)))
	}
	return sb.String()
}

func formatShopping(items []family.ShoppingItem, comparison []family.StorePrice) string {
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")
	if len(items) == 0 {
		sb.WriteString("_Nothing to buy._\n")
		return sb.String()
	}
	for _, it := range items {
		sb.WriteString(fmt.Sprintf("• %s (%s) £%.2f\n", esc(it.Item), esc(it.Quantity), it.EstPrice))
	}
	sb.WriteString(fmt.Sprintf("\n*Estimated total:* £%.2f\n", shopping.Total(items)))

	if len(comparison) > 0 {
		sb.WriteString("\n🏪 *Store comparison*\n")
		for _, sp := range comparison {
			sb.WriteString(fmt.Sprintf("• %s: £%.2f\n", esc(sp.Store), sp.Total))
		}
	}
	if cheapest, saving, ok := shopping.Savings(comparison); ok {
		sb.WriteString(fmt.Sprintf("\nShop at *%s* to save £%.2f vs %s.\n", esc(cheapest.Store), saving, esc(shopping.BaselineStore)))
	}
	return sb.String()
}

func formatUsage(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %s (Alloc) / %s (Sys)\n", health.Alloc, health.Sys))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}

func formatError(prefix string, err error) string {
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	return fmt.Sprintf("❌ *%s:*\n```\n%v\n```", prefix, safeErr)
}
