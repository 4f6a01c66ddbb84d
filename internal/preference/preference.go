// Package preference scores cuisine styles from family feedback and turns the
// scores into planning bias.
package preference

import (
	"math/rand/v2"
	"strings"

	"family-os/internal/family"
)

// Classification thresholds. Scores strictly between them are neutral.
const (
	FavoriteAbove = 2
	DislikedBelow = -1
)

// Catalog is the fixed list of cuisine archetypes used for prompting and scoring.
var Catalog = []string{
	"Jamie Oliver 15-Minute Meals (Quick, fresh, rustic)",
	"Ottolenghi (Middle Eastern, veg-heavy, complex spices)",
	"Italian Nonna (Classic pasta, slow sauces, comfort)",
	"Mexican Street Food (Tacos, fresh salsas, grilled meats)",
	"Japanese Izakaya (Rice bowls, teriyaki, miso, clean flavors)",
	"Modern British (Roasts, pies, seasonal veg)",
	"Thai Street Food (Pad Thai, curries, zesty salads)",
	"Mediterranean Diet (Grilled fish, olive oil, salads)",
	"American Diner (Burgers, mac n cheese, ribs)",
	"French Bistro (Steak frites, quiches, rich sauces)",
}

// Resolve maps a free-form style tag to a catalog entry. It is a best-effort
// classifier: the first entry whose leading word occurs in the tag wins,
// compared case-insensitively.
func Resolve(tag string) (string, bool) {
	t := strings.ToLower(tag)
	if strings.TrimSpace(t) == "" {
		return "", false
	}
	for _, style := range Catalog {
		lead := strings.ToLower(strings.Fields(style)[0])
		if strings.Contains(t, lead) {
			return style, true
		}
	}
	return "", false
}

// Classify splits the catalog into favorite and disliked styles. Missing
// scores count as zero.
func Classify(prefs map[string]int) (favorites, disliked []string) {
	for _, style := range Catalog {
		score := prefs[style]
		switch {
		case score > FavoriteAbove:
			favorites = append(favorites, style)
		case score < DislikedBelow:
			disliked = append(disliked, style)
		}
	}
	return favorites, disliked
}

// Neutral returns the catalog entries that are neither favorite nor disliked.
func Neutral(prefs map[string]int) []string {
	var out []string
	for _, style := range Catalog {
		score := prefs[style]
		if score <= FavoriteAbove && score >= DislikedBelow {
			out = append(out, style)
		}
	}
	return out
}

// Delta is the score change a rating applies.
func Delta(r family.Rating) int {
	switch r {
	case family.RatingLike:
		return 1
	case family.RatingDislike:
		return -1
	}
	return 0
}

// Nudge applies a rating for the given style tag to prefs in place. It returns
// the catalog entry that changed, if any. A nil map is allocated.
func Nudge(prefs map[string]int, tag string, r family.Rating) (map[string]int, string, bool) {
	if prefs == nil {
		prefs = map[string]int{}
	}
	style, ok := Resolve(tag)
	d := Delta(r)
	if !ok || d == 0 {
		return prefs, "", false
	}
	prefs[style] += d
	return prefs, style, true
}

// Accent is a weekly style hint for the planner.
type Accent struct {
	Style string
	Mode  string // "revival", "favorite", "explore" or "crowd-pleaser"
}

// WeeklyAccent picks one style to lean on this week. Disliked styles get an
// occasional second chance, favorites are preferred, otherwise a neutral style
// is explored.
func WeeklyAccent(prefs map[string]int, rng *rand.Rand) Accent {
	favorites, disliked := Classify(prefs)
	neutral := Neutral(prefs)

	if len(disliked) > 0 && rng.Float64() < 0.10 {
		return Accent{Style: disliked[rng.IntN(len(disliked))], Mode: "revival"}
	}
	if len(favorites) > 0 && rng.Float64() < 0.70 {
		return Accent{Style: favorites[rng.IntN(len(favorites))], Mode: "favorite"}
	}
	if len(neutral) > 0 {
		return Accent{Style: neutral[rng.IntN(len(neutral))], Mode: "explore"}
	}
	return Accent{Style: Catalog[rng.IntN(len(Catalog))], Mode: "crowd-pleaser"}
}
