package family

import (
	"strings"
	"time"
)

// DefaultID is the single household this deployment serves.
const DefaultID = "fam_8829_xyz"

// Top-level document fields used for partial updates.
const (
	FieldMembers         = "members"
	FieldKitchenProfile  = "kitchen_profile"
	FieldPreferences     = "style_preferences"
	FieldWeekPlan        = "current_week_plan"
	FieldShoppingList    = "shopping_list"
	FieldPriceComparison = "price_comparison"
)

// Role is a member's role in the household.
type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

// Rating is a member's verdict on a meal.
type Rating string

const (
	RatingLike    Rating = "like"
	RatingDislike Rating = "dislike"
)

// Slot identifies one of the three meals of a day.
type Slot string

const (
	Breakfast Slot = "breakfast"
	Lunch     Slot = "lunch"
	Dinner    Slot = "dinner"
)

// Slots lists the meal slots in serving order.
var Slots = []Slot{Breakfast, Lunch, Dinner}

// Days lists the planned week in order.
var Days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// ParseSlot accepts any casing of a slot name.
func ParseSlot(s string) (Slot, bool) {
	switch Slot(strings.ToLower(strings.TrimSpace(s))) {
	case Breakfast:
		return Breakfast, true
	case Lunch:
		return Lunch, true
	case Dinner:
		return Dinner, true
	}
	return "", false
}

// CanonicalDay maps any casing of a weekday name to its entry in Days.
func CanonicalDay(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, d := range Days {
		if strings.EqualFold(d, s) {
			return d, true
		}
	}
	return "", false
}

// SensoryProfile captures texture and heat sensitivities, mostly for children.
type SensoryProfile struct {
	TextureAversion    []string `json:"texture_aversion,omitempty" yaml:"texture_aversion,omitempty"`
	SpicinessTolerance string   `json:"spiciness_tolerance,omitempty" yaml:"spiciness_tolerance,omitempty"`
}

// Member is a person in the household.
type Member struct {
	Name           string          `json:"name" yaml:"name"`
	Role           Role            `json:"role" yaml:"role"`
	DOB            string          `json:"dob,omitempty" yaml:"dob,omitempty"`
	Dislikes       []string        `json:"dislikes,omitempty" yaml:"dislikes,omitempty"`
	DietaryFlags   []string        `json:"dietary_flags,omitempty" yaml:"dietary_flags,omitempty"`
	SensoryProfile *SensoryProfile `json:"sensory_profile,omitempty" yaml:"sensory_profile,omitempty"`
}

// IsChild reports whether the member gets the child view.
func (m Member) IsChild() bool {
	return m.Role == RoleChild
}

// KitchenProfile describes what the household can cook with.
type KitchenProfile struct {
	Equipment        []string `json:"equipment,omitempty" yaml:"equipment,omitempty"`
	PantryStaples    []string `json:"pantry_staples,omitempty" yaml:"pantry_staples,omitempty"`
	CurrentInventory []string `json:"current_inventory,omitempty" yaml:"current_inventory,omitempty"`
}

// RecipeDetails is the expanded cooking guide for a meal.
type RecipeDetails struct {
	Steps []string `json:"steps"`
	Tip   string   `json:"tip"`
}

// Meal is one planned dish.
type Meal struct {
	Name          string         `json:"name"`
	Ingredients   []string       `json:"ingredients"`
	Method        string         `json:"method"`
	StyleTag      string         `json:"style_tag"`
	Locked        bool           `json:"locked,omitempty"`
	RecipeDetails *RecipeDetails `json:"recipe_details,omitempty"`
}

// Meals holds the three slots of a day.
type Meals struct {
	Breakfast Meal `json:"breakfast"`
	Lunch     Meal `json:"lunch"`
	Dinner    Meal `json:"dinner"`
}

// Get returns a pointer to the meal in slot s.
func (m *Meals) Get(s Slot) (*Meal, bool) {
	switch s {
	case Breakfast:
		return &m.Breakfast, true
	case Lunch:
		return &m.Lunch, true
	case Dinner:
		return &m.Dinner, true
	}
	return nil, false
}

// Day is one entry of the week plan.
type Day struct {
	Day   string `json:"day"`
	Meals Meals  `json:"meals"`
}

// WeekPlan is the 7 x 3 meal grid.
type WeekPlan struct {
	Days []Day `json:"days"`
}

// IsEmpty reports whether no days have been planned.
func (p *WeekPlan) IsEmpty() bool {
	return p == nil || len(p.Days) == 0
}

// Day returns the entry for the named day.
func (p *WeekPlan) Day(name string) (*Day, bool) {
	if p == nil {
		return nil, false
	}
	for i := range p.Days {
		if strings.EqualFold(p.Days[i].Day, name) {
			return &p.Days[i], true
		}
	}
	return nil, false
}

// Meal returns the meal at (day, slot).
func (p *WeekPlan) Meal(day string, slot Slot) (*Meal, bool) {
	d, ok := p.Day(day)
	if !ok {
		return nil, false
	}
	return d.Meals.Get(slot)
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (p *WeekPlan) Clone() *WeekPlan {
	if p == nil {
		return nil
	}
	out := &WeekPlan{Days: make([]Day, len(p.Days))}
	for i, d := range p.Days {
		out.Days[i] = Day{Day: d.Day}
		for _, s := range Slots {
			src, _ := d.Meals.Get(s)
			dst, _ := out.Days[i].Meals.Get(s)
			*dst = src.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the meal.
func (m Meal) Clone() Meal {
	out := m
	out.Ingredients = append([]string(nil), m.Ingredients...)
	if m.RecipeDetails != nil {
		rd := *m.RecipeDetails
		rd.Steps = append([]string(nil), m.RecipeDetails.Steps...)
		out.RecipeDetails = &rd
	}
	return out
}

// ShoppingItem is one consolidated line of the shopping list.
type ShoppingItem struct {
	Item     string  `json:"item"`
	Quantity string  `json:"quantity"`
	EstPrice float64 `json:"est_price"`
}

// StorePrice is a store's estimated basket total in GBP.
type StorePrice struct {
	Store string  `json:"store"`
	Total float64 `json:"total"`
}

// FeedbackEvent is an append-only rating record.
type FeedbackEvent struct {
	ID         string    `json:"id"`
	Meal       string    `json:"meal"`
	Rating     Rating    `json:"rating"`
	Member     string    `json:"member"`
	Style      string    `json:"style"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Family is the household document.
type Family struct {
	ID              string         `json:"family_id,omitempty"`
	Members         []Member       `json:"members"`
	KitchenProfile  KitchenProfile `json:"kitchen_profile"`
	Preferences     map[string]int `json:"style_preferences,omitempty"`
	WeekPlan        *WeekPlan      `json:"current_week_plan,omitempty"`
	ShoppingList    []ShoppingItem `json:"shopping_list,omitempty"`
	PriceComparison []StorePrice   `json:"price_comparison,omitempty"`
}

// Member looks a member up by name.
func (f *Family) Member(name string) (Member, bool) {
	for _, m := range f.Members {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return Member{}, false
}

// TonightsDinner returns the dinner planned for now's weekday, or the first
// planned day's dinner when that weekday is missing.
func (f *Family) TonightsDinner(now time.Time) (*Meal, string, bool) {
	if f.WeekPlan.IsEmpty() {
		return nil, "", false
	}
	day := now.Weekday().String()
	if d, ok := f.WeekPlan.Day(day); ok {
		return &d.Meals.Dinner, d.Day, true
	}
	first := &f.WeekPlan.Days[0]
	return &first.Meals.Dinner, first.Day, true
}
