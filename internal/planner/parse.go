package planner

import (
	"fmt"
	"strings"

	"family-os/internal/family"
	"family-os/internal/llm"
)

type rawMeal struct {
	Name        string   `json:"name"`
	Ingredients []string `json:"ingredients"`
	Method      string   `json:"method"`
	StyleTag    string   `json:"style_tag"`
}

type rawMeals struct {
	Breakfast *rawMeal `json:"breakfast"`
	Lunch     *rawMeal `json:"lunch"`
	Dinner    *rawMeal `json:"dinner"`
}

type rawDay struct {
	Day   string   `json:"day"`
	Meals rawMeals `json:"meals"`
}

type weekResponse struct {
	Days []rawDay `json:"days"`
}

type dayResponse struct {
	Meals rawMeals `json:"meals"`
}

// toMeal checks the required fields and normalizes a model meal. The result
// is never locked.
func (r rawMeal) toMeal(where string) (family.Meal, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return family.Meal{}, fmt.Errorf("%w: %s has no name", llm.ErrMalformedOutput, where)
	}
	var ingredients []string
	for _, ing := range r.Ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			ingredients = append(ingredients, ing)
		}
	}
	return family.Meal{
		Name:        name,
		Ingredients: ingredients,
		Method:      strings.TrimSpace(r.Method),
		StyleTag:    strings.TrimSpace(r.StyleTag),
	}, nil
}

func (r rawMeals) toMeals(where string) (family.Meals, error) {
	var out family.Meals
	for _, s := range family.Slots {
		var src *rawMeal
		switch s {
		case family.Breakfast:
			src = r.Breakfast
		case family.Lunch:
			src = r.Lunch
		case family.Dinner:
			src = r.Dinner
		}
		if src == nil {
			return family.Meals{}, fmt.Errorf("%w: %s is missing %s", llm.ErrMalformedOutput, where, s)
		}
		m, err := src.toMeal(where + " " + string(s))
		if err != nil {
			return family.Meals{}, err
		}
		dst, _ := out.Get(s)
		*dst = m
	}
	return out, nil
}

// toPlan requires every weekday exactly once and returns the days in
// Monday to Sunday order.
func (w weekResponse) toPlan() (*family.WeekPlan, error) {
	byDay := make(map[string]family.Meals, len(family.Days))
	for _, d := range w.Days {
		name, ok := family.CanonicalDay(d.Day)
		if !ok {
			return nil, fmt.Errorf("%w: unknown day %q", llm.ErrMalformedOutput, d.Day)
		}
		if _, dup := byDay[name]; dup {
			return nil, fmt.Errorf("%w: %s planned twice", llm.ErrMalformedOutput, name)
		}
		meals, err := d.Meals.toMeals(name)
		if err != nil {
			return nil, err
		}
		byDay[name] = meals
	}

	plan := &family.WeekPlan{Days: make([]family.Day, 0, len(family.Days))}
	for _, name := range family.Days {
		meals, ok := byDay[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s is missing", llm.ErrMalformedOutput, name)
		}
		plan.Days = append(plan.Days, family.Day{Day: name, Meals: meals})
	}
	return plan, nil
}
