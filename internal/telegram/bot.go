// Package telegram is the chat front end: a member picker, the parent plan
// views with inline controls and the child's tonight view.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"family-os/internal/app"
	"family-os/internal/config"
	"family-os/internal/family"
	"family-os/internal/logger"
	"family-os/internal/metrics"
	"family-os/internal/planner"
	"family-os/internal/session"
)

const interactionTimeout = 3 * time.Minute

// Bot wraps the Telegram API and the household operations.
type Bot struct {
	api          *tgbotapi.BotAPI
	app          *app.App
	sessions     *session.Manager
	metricsStore *metrics.Store
	cfg          *config.Config
	log          *logger.Logger
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	a *app.App,
	sessions *session.Manager,
	metricsStore *metrics.Store,
	log *logger.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log = log.With("component", "telegram")
	log.Info("authorized on account", "username", api.Self.UserName)

	if cfg.TelegramWebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
		}
		resp, err := api.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
		}
		log.Info("webhook set", "description", resp.Description)
	}

	return &Bot{
		api:          api,
		app:          a,
		sessions:     sessions,
		metricsStore: metricsStore,
		cfg:          cfg,
		log:          log,
	}, nil
}

// HandleWebhook receives one update. Work continues in the background so
// Telegram gets its 200 straight away.
func (b *Bot) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.log.Warn("error parsing update", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	switch {
	case update.CallbackQuery != nil:
		if !b.allowed(update.CallbackQuery.From) {
			return
		}
		go b.handleCallbackQuery(update.CallbackQuery)
	case update.Message != nil:
		if !b.allowed(update.Message.From) {
			return
		}
		go b.processMessage(update.Message)
	}
}

// allowed checks the user allow-list. An empty list admits everyone.
func (b *Bot) allowed(u *tgbotapi.User) bool {
	if u == nil {
		return false
	}
	if len(b.cfg.TelegramAllowedUserIDs) == 0 {
		return true
	}
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if u.ID == id {
			return true
		}
	}
	b.log.Warn("unauthorized access attempt", "user_id", u.ID, "username", u.UserName)
	return false
}

func channelFor(userID int64) string {
	return "tg:" + strconv.FormatInt(userID, 10)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()
	chatID := msg.Chat.ID
	channel := channelFor(msg.From.ID)

	if msg.IsCommand() && msg.Command() == "logout" {
		if err := b.sessions.EndChannel(ctx, channel); err != nil {
			b.reply(chatID, formatError("Logout failed", err), nil)
			return
		}
		b.reply(chatID, "👋 Logged out.", nil)
		b.sendPicker(ctx, chatID)
		return
	}

	s, err := b.sessions.CurrentForChannel(ctx, channel)
	if errors.Is(err, session.ErrNoSession) {
		b.sendPicker(ctx, chatID)
		return
	}
	if err != nil {
		b.reply(chatID, formatError("Session error", err), nil)
		return
	}

	if s.IsChild() {
		b.sendTonight(ctx, chatID)
		return
	}

	switch msg.Command() {
	case "metrics":
		b.sendMetrics(ctx, chatID)
	case "shop":
		b.buildShopping(ctx, chatID, 0)
	case "tonight":
		b.sendTonight(ctx, chatID)
	default:
		b.sendWeek(ctx, chatID, 0)
	}
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	// Answer callback to remove spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Debug("failed to answer callback", "error", err)
	}
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	msgID := query.Message.MessageID
	channel := channelFor(query.From.ID)
	action, args := parseCallback(query.Data)

	if action == actPick {
		if len(args) != 1 {
			return
		}
		b.pickMember(ctx, chatID, msgID, channel, args[0])
		return
	}

	s, err := b.sessions.CurrentForChannel(ctx, channel)
	if err != nil {
		b.sendPicker(ctx, chatID)
		return
	}

	if action == actRate {
		b.rate(ctx, chatID, msgID, s, args)
		return
	}
	if s.IsChild() {
		b.sendTonight(ctx, chatID)
		return
	}

	switch action {
	case actWeek:
		b.sendWeek(ctx, chatID, msgID)
	case actGen:
		b.edit(chatID, msgID, "🧑‍🍳 *Thinking...*\n(Planning your week)", nil)
		res, err := b.app.GenerateWeek(ctx)
		if err != nil {
			b.edit(chatID, msgID, formatError("Error generating plan", err), nil)
			return
		}
		b.log.Info("week generated over telegram", "member", s.Member, "accent", res.Accent.Style)
		b.sendWeek(ctx, chatID, msgID)
	case actShop:
		b.buildShopping(ctx, chatID, msgID)
	case actDay:
		if len(args) == 1 {
			b.sendDay(ctx, chatID, msgID, args[0])
		}
	case actRegen:
		if len(args) != 1 {
			return
		}
		b.edit(chatID, msgID, fmt.Sprintf("🧑‍🍳 *Replanning %s...*", args[0]), nil)
		if _, err := b.app.RegenerateDay(ctx, args[0]); err != nil {
			b.edit(chatID, msgID, formatError("Error regenerating day", err), nil)
			return
		}
		b.sendDay(ctx, chatID, msgID, args[0])
	case actLock, actReroll, actRecipe:
		day, slot, ok := slotArgs(args)
		if !ok {
			return
		}
		b.mealAction(ctx, chatID, msgID, action, day, slot)
	default:
		b.log.Debug("unknown callback", "data", query.Data)
	}
}

func slotArgs(args []string) (string, family.Slot, bool) {
	if len(args) != 2 {
		return "", "", false
	}
	day, ok := family.CanonicalDay(args[0])
	if !ok {
		return "", "", false
	}
	slot, ok := family.ParseSlot(args[1])
	return day, slot, ok
}

func (b *Bot) mealAction(ctx context.Context, chatID int64, msgID int, action, day string, slot family.Slot) {
	switch action {
	case actLock:
		if _, err := b.app.ToggleLock(ctx, day, slot); err != nil {
			b.edit(chatID, msgID, formatError("Error toggling lock", err), nil)
			return
		}
	case actReroll:
		res, err := b.app.RegenerateMeal(ctx, day, slot)
		if err != nil {
			b.edit(chatID, msgID, formatError("Error rerolling meal", err), nil)
			return
		}
		if res.Refused {
			b.reply(chatID, "🔒 "+esc(res.Notice), nil)
			return
		}
	case actRecipe:
		res, err := b.app.FetchRecipe(ctx, day, slot)
		if err != nil {
			b.reply(chatID, formatError("Error fetching recipe", err), nil)
			return
		}
		m, _ := res.Plan.Meal(day, slot)
		b.reply(chatID, formatRecipe(*m, res.Details), nil)
		return
	}
	b.sendDay(ctx, chatID, msgID, day)
}

func (b *Bot) pickMember(ctx context.Context, chatID int64, msgID int, channel, name string) {
	fam, err := b.app.Family(ctx)
	if err != nil {
		b.edit(chatID, msgID, formatError("Error loading family", err), nil)
		return
	}
	s, err := b.sessions.Start(ctx, fam, channel, name)
	if err != nil {
		b.edit(chatID, msgID, formatError("Could not log in", err), nil)
		return
	}
	b.log.Info("session started", "member", s.Member, "channel", channel)
	b.edit(chatID, msgID, fmt.Sprintf("👋 Hi *%s*!", esc(s.Member)), nil)
	if s.IsChild() {
		b.sendTonight(ctx, chatID)
		return
	}
	b.sendWeek(ctx, chatID, 0)
}

func (b *Bot) rate(ctx context.Context, chatID int64, msgID int, s *session.Session, args []string) {
	if len(args) == 0 {
		return
	}
	rating := family.Rating(args[0])
	if rating != family.RatingLike && rating != family.RatingDislike {
		return
	}
	_, day, err := b.app.TonightsDinner(ctx)
	if err != nil {
		b.edit(chatID, msgID, formatError("Error rating meal", err), nil)
		return
	}
	out, err := b.app.RateMeal(ctx, s.Member, day, family.Dinner, rating)
	if err != nil {
		b.edit(chatID, msgID, formatError("Error rating meal", err), nil)
		return
	}
	thanks := "👍 Thanks! Noted that you liked *%s*."
	if rating == family.RatingDislike {
		thanks = "👎 Thanks! We'll cook *%s* less often."
	}
	b.edit(chatID, msgID, fmt.Sprintf(thanks, esc(out.Event.Meal)), nil)
}

func (b *Bot) sendPicker(ctx context.Context, chatID int64) {
	fam, err := b.app.Family(ctx)
	if err != nil {
		b.reply(chatID, formatError("Error loading family", err), nil)
		return
	}
	kb := memberKeyboard(fam.Members)
	b.reply(chatID, "👪 *Who's there?*", &kb)
}

func (b *Bot) sendWeek(ctx context.Context, chatID int64, msgID int) {
	fam, err := b.app.Family(ctx)
	if err != nil {
		b.reply(chatID, formatError("Error loading plan", err), nil)
		return
	}
	kb := weekKeyboard(fam.WeekPlan)
	b.show(chatID, msgID, formatWeek(fam.WeekPlan), &kb)
}

func (b *Bot) sendDay(ctx context.Context, chatID int64, msgID int, day string) {
	fam, err := b.app.Family(ctx)
	if err != nil {
		b.reply(chatID, formatError("Error loading plan", err), nil)
		return
	}
	d, ok := fam.WeekPlan.Day(day)
	if !ok {
		b.show(chatID, msgID, formatError("Error", fmt.Errorf("%w: %s", planner.ErrUnknownSlot, day)), nil)
		return
	}
	kb := dayKeyboard(d)
	b.show(chatID, msgID, formatDay(d), &kb)
}

func (b *Bot) sendTonight(ctx context.Context, chatID int64) {
	meal, day, err := b.app.TonightsDinner(ctx)
	if errors.Is(err, planner.ErrNoPlan) {
		b.reply(chatID, "🍽 No dinner planned yet. Ask a grown-up!", nil)
		return
	}
	if err != nil {
		b.reply(chatID, formatError("Error loading dinner", err), nil)
		return
	}
	kb := tonightKeyboard()
	b.reply(chatID, formatTonight(day, meal), &kb)
}

func (b *Bot) buildShopping(ctx context.Context, chatID int64, msgID int) {
	b.show(chatID, msgID, "🛒 *Building your shopping list...*", nil)
	res, err := b.app.BuildShoppingList(ctx)
	if err != nil {
		b.show(chatID, msgID, formatError("Error building shopping list", err), nil)
		return
	}
	b.reply(chatID, formatShopping(res.Items, res.Comparison), nil)
}

func (b *Bot) sendMetrics(ctx context.Context, chatID int64) {
	usage, err := b.metricsStore.GetDailyUsage(ctx, 7)
	if err != nil {
		b.reply(chatID, "❌ Error fetching metrics.", nil)
		return
	}
	health := metrics.GetSysHealth(filepath.Dir(b.cfg.DatabasePath))
	b.reply(chatID, formatUsage(usage, health), nil)
}

// show edits msgID in place, or sends a new message when msgID is zero.
func (b *Bot) show(chatID int64, msgID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	if msgID == 0 {
		b.reply(chatID, text, kb)
		return
	}
	b.edit(chatID, msgID, text, kb)
}

func (b *Bot) reply(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb != nil {
		msg.ReplyMarkup = kb
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) edit(chatID int64, msgID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = kb
	if _, err := b.api.Send(edit); err != nil && !strings.Contains(err.Error(), "message is not modified") {
		b.log.Warn("failed to edit message", "chat_id", chatID, "error", err)
	}
}
