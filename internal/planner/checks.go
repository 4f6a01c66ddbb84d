package planner

import (
	"fmt"
	"strings"
	"unicode"

	"family-os/internal/family"
)

var quantityWords = map[string]bool{
	"a": true, "an": true, "one": true, "two": true, "three": true, "four": true,
	"five": true, "six": true, "seven": true, "eight": true, "nine": true, "ten": true,
	"half": true, "quarter": true, "pinch": true, "handful": true, "dash": true,
	"splash": true, "drizzle": true, "knob": true, "bunch": true, "few": true,
	"couple": true, "some": true, "dozen": true,
}

// HasQuantity reports whether an ingredient line carries an amount, either a
// number ("400g", "2 tbsp", "½ lemon") or a quantity word ("a pinch of salt").
func HasQuantity(ingredient string) bool {
	for _, r := range ingredient {
		if unicode.IsDigit(r) || unicode.Is(unicode.No, r) {
			return true
		}
	}
	fields := strings.Fields(strings.ToLower(ingredient))
	if len(fields) == 0 {
		return false
	}
	return quantityWords[strings.Trim(fields[0], ",.:;")]
}

// DinnerRepeats returns the days whose dinner style tag equals the previous
// day's dinner style tag.
func DinnerRepeats(plan *family.WeekPlan) []string {
	if plan == nil {
		return nil
	}
	var out []string
	for i := 1; i < len(plan.Days); i++ {
		prev := strings.TrimSpace(plan.Days[i-1].Meals.Dinner.StyleTag)
		cur := strings.TrimSpace(plan.Days[i].Meals.Dinner.StyleTag)
		if cur != "" && strings.EqualFold(prev, cur) {
			out = append(out, plan.Days[i].Day)
		}
	}
	return out
}

// Review lists soft problems with a plan: ingredients without quantities and
// dinners repeating the previous day's style.
func Review(plan *family.WeekPlan) []string {
	if plan == nil {
		return nil
	}
	var issues []string
	for _, d := range plan.Days {
		for _, s := range family.Slots {
			m, _ := d.Meals.Get(s)
			for _, ing := range m.Ingredients {
				if !HasQuantity(ing) {
					issues = append(issues, fmt.Sprintf("%s %s: %q has no quantity", d.Day, s, ing))
				}
			}
		}
	}
	for _, day := range DinnerRepeats(plan) {
		issues = append(issues, fmt.Sprintf("%s dinner repeats the previous day's style", day))
	}
	return issues
}
