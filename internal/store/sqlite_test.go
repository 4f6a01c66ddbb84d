package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"family-os/internal/database"
	"family-os/internal/family"
	"family-os/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "store.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStore(db.SQL)
}

func samplePlan() *family.WeekPlan {
	plan := &family.WeekPlan{}
	for _, d := range family.Days {
		plan.Days = append(plan.Days, family.Day{Day: d, Meals: family.Meals{
			Breakfast: family.Meal{Name: d + " oats", Ingredients: []string{"80g oats"}, StyleTag: "Modern British"},
			Lunch:     family.Meal{Name: d + " wrap", Ingredients: []string{"2 wraps"}, StyleTag: "Mexican Street Food"},
			Dinner:    family.Meal{Name: d + " pasta", Ingredients: []string{"300g pasta"}, StyleTag: "Italian Nonna"},
		}})
	}
	return plan
}

func TestSQLiteStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	_, err := s.Get(ctx, family.DefaultID)
	assert.ErrorIs(t, err, ErrNotFound)

	fam := family.New("ignored")
	fam.WeekPlan = samplePlan()
	require.NoError(t, s.Set(ctx, family.DefaultID, fam))

	got, err := s.Get(ctx, family.DefaultID)
	require.NoError(t, err)
	assert.Equal(t, family.DefaultID, got.ID)
	assert.Equal(t, fam.Members, got.Members)
	assert.Equal(t, fam.WeekPlan, got.WeekPlan)
	assert.NotNil(t, got.Preferences)

	// Set overwrites the whole document.
	require.NoError(t, s.Set(ctx, family.DefaultID, family.New(family.DefaultID)))
	got, err = s.Get(ctx, family.DefaultID)
	require.NoError(t, err)
	assert.True(t, got.WeekPlan.IsEmpty())
}

func TestSQLiteStoreUpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	assert.ErrorIs(t, s.Update(ctx, "nobody", map[string]any{family.FieldPreferences: map[string]int{}}), ErrNotFound)

	fam := family.New(family.DefaultID)
	require.NoError(t, s.Set(ctx, family.DefaultID, fam))

	plan := samplePlan()
	plan.Days[0].Meals.Dinner.Locked = true
	require.NoError(t, s.Update(ctx, family.DefaultID, map[string]any{
		family.FieldWeekPlan:     plan,
		family.FieldPreferences:  map[string]int{"Italian Nonna (Classic pasta, slow sauces, comfort)": 2},
		family.FieldShoppingList: []family.ShoppingItem{{Item: "Milk", Quantity: "4 pints", EstPrice: 1.5}},
	}))

	got, err := s.Get(ctx, family.DefaultID)
	require.NoError(t, err)
	assert.Equal(t, plan, got.WeekPlan)
	assert.Equal(t, 2, got.Preferences["Italian Nonna (Classic pasta, slow sauces, comfort)"])
	assert.Equal(t, fam.Members, got.Members, "untouched fields survive")
	assert.Equal(t, fam.KitchenProfile, got.KitchenProfile)
	require.Len(t, got.ShoppingList, 1)
	assert.Equal(t, 1.5, got.ShoppingList[0].EstPrice)
}

func TestSQLiteStoreEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	base := time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)
	for i, meal := range []string{"Lasagne", "Pad Thai", "Fish pie"} {
		require.NoError(t, s.AppendEvent(ctx, family.DefaultID, family.FeedbackEvent{
			Meal: meal, Rating: family.RatingLike, Member: "Leo", Style: "General",
			RecordedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, s.AppendEvent(ctx, "other-family", family.FeedbackEvent{Meal: "Soup", Rating: family.RatingDislike}))

	all, err := s.ListEvents(ctx, family.DefaultID, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Fish pie", all[0].Meal)
	assert.Equal(t, "Lasagne", all[2].Meal)
	assert.NotEmpty(t, all[0].ID)
	assert.Equal(t, base.Add(2*time.Hour), all[0].RecordedAt)
	assert.Equal(t, family.RatingLike, all[0].Rating)

	recent, err := s.ListEvents(ctx, family.DefaultID, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
