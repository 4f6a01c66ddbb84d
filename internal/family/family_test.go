package family

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlotAndDay(t *testing.T) {
	s, ok := ParseSlot(" Dinner ")
	assert.True(t, ok)
	assert.Equal(t, Dinner, s)

	_, ok = ParseSlot("brunch")
	assert.False(t, ok)

	d, ok := CanonicalDay("tuesday")
	assert.True(t, ok)
	assert.Equal(t, "Tuesday", d)

	_, ok = CanonicalDay("Funday")
	assert.False(t, ok)
}

func TestWeekPlanCloneIsDeep(t *testing.T) {
	plan := &WeekPlan{Days: []Day{{
		Day: "Monday",
		Meals: Meals{Dinner: Meal{
			Name:          "Lasagne",
			Ingredients:   []string{"500g beef mince"},
			RecipeDetails: &RecipeDetails{Steps: []string{"Brown the mince"}, Tip: "Rest it"},
		}},
	}}}

	cp := plan.Clone()
	cp.Days[0].Meals.Dinner.Ingredients[0] = "changed"
	cp.Days[0].Meals.Dinner.RecipeDetails.Steps[0] = "changed"

	assert.Equal(t, "500g beef mince", plan.Days[0].Meals.Dinner.Ingredients[0])
	assert.Equal(t, "Brown the mince", plan.Days[0].Meals.Dinner.RecipeDetails.Steps[0])
}

func TestTonightsDinner(t *testing.T) {
	f := New(DefaultID)
	_, _, ok := f.TonightsDinner(time.Now())
	assert.False(t, ok, "empty plan has no dinner")

	f.WeekPlan = &WeekPlan{Days: []Day{
		{Day: "Monday", Meals: Meals{Dinner: Meal{Name: "Tacos"}}},
		{Day: "Wednesday", Meals: Meals{Dinner: Meal{Name: "Risotto"}}},
	}}

	wednesday := time.Date(2026, 10, 21, 18, 0, 0, 0, time.UTC)
	m, day, ok := f.TonightsDinner(wednesday)
	require.True(t, ok)
	assert.Equal(t, "Wednesday", day)
	assert.Equal(t, "Risotto", m.Name)

	friday := time.Date(2026, 10, 23, 18, 0, 0, 0, time.UTC)
	m, day, ok = f.TonightsDinner(friday)
	require.True(t, ok)
	assert.Equal(t, "Monday", day)
	assert.Equal(t, "Tacos", m.Name)
}

func TestLoadSeed(t *testing.T) {
	t.Run("Embedded", func(t *testing.T) {
		s, err := LoadSeed("")
		require.NoError(t, err)
		assert.Equal(t, DefaultID, s.FamilyID)
		f := s.Family("fam_other")
		assert.Equal(t, "fam_other", f.ID, "documents are keyed by the caller's id")
		require.Len(t, f.Members, 2)
		leo, ok := f.Member("leo")
		require.True(t, ok)
		assert.True(t, leo.IsChild())
		assert.Equal(t, []string{"peanut_allergy"}, leo.DietaryFlags)
		assert.Equal(t, "low", leo.SensoryProfile.SpicinessTolerance)
		assert.Contains(t, f.KitchenProfile.Equipment, "air_fryer")
	})

	t.Run("DuplicateMember", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seed.yaml")
		require.NoError(t, os.WriteFile(path, []byte("members:\n  - name: A\n  - name: A\n"), 0o644))
		_, err := LoadSeed(path)
		assert.Error(t, err)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadSeed(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
