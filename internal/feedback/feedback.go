// Package feedback records meal ratings and feeds them back into the family's
// style preferences.
package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"family-os/internal/family"
	"family-os/internal/logger"
	"family-os/internal/preference"
	"family-os/internal/store"
)

// DefaultStyle is recorded when a meal carries no style tag.
const DefaultStyle = "General"

// Outcome describes what a rating changed.
type Outcome struct {
	Event family.FeedbackEvent
	// Style is the catalog entry whose score moved, empty when the tag matched nothing.
	Style string
	Score int
}

// Recorder appends rating events and nudges style preferences.
type Recorder struct {
	store store.DocumentStore
	log   *logger.Logger
	now   func() time.Time
}

// NewRecorder creates a Recorder.
func NewRecorder(s store.DocumentStore, log *logger.Logger) *Recorder {
	return &Recorder{store: s, log: log.With("component", "feedback"), now: time.Now}
}

// Record appends the event, then adjusts the score of the catalog style the tag
// resolves to. An unmatched tag is still recorded but changes no score.
// The event is not rolled back when the score update fails: the error is
// returned alongside an Outcome carrying the stored event and no Style.
func (r *Recorder) Record(ctx context.Context, familyID, meal string, rating family.Rating, member, styleTag string) (Outcome, error) {
	if rating != family.RatingLike && rating != family.RatingDislike {
		return Outcome{}, fmt.Errorf("unknown rating %q", rating)
	}
	if strings.TrimSpace(styleTag) == "" {
		styleTag = DefaultStyle
	}

	ev := family.FeedbackEvent{
		ID:         uuid.NewString(),
		Meal:       meal,
		Rating:     rating,
		Member:     member,
		Style:      styleTag,
		RecordedAt: r.now().UTC(),
	}
	if err := r.store.AppendEvent(ctx, familyID, ev); err != nil {
		return Outcome{}, err
	}

	out := Outcome{Event: ev}
	if _, ok := preference.Resolve(styleTag); !ok {
		r.log.Info("feedback recorded", "meal", meal, "rating", rating, "member", member, "style", styleTag, "matched", false)
		return out, nil
	}

	fam, err := r.store.Get(ctx, familyID)
	if err != nil {
		return out, fmt.Errorf("failed to load preferences: %w", err)
	}
	prefs, style, _ := preference.Nudge(fam.Preferences, styleTag, rating)
	if err := r.store.Update(ctx, familyID, map[string]any{family.FieldPreferences: prefs}); err != nil {
		return out, fmt.Errorf("failed to save preferences: %w", err)
	}

	out.Style = style
	out.Score = prefs[style]
	r.log.Info("feedback recorded", "meal", meal, "rating", rating, "member", member, "style", style, "score", out.Score)
	return out, nil
}

// History returns the latest feedback events, newest first.
func (r *Recorder) History(ctx context.Context, familyID string, limit int) ([]family.FeedbackEvent, error) {
	return r.store.ListEvents(ctx, familyID, limit)
}
