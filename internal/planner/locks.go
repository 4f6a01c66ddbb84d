package planner

import (
	"sort"

	"family-os/internal/family"
)

type lockKey struct {
	Day  string
	Slot family.Slot
}

// LockSet holds locked meals keyed by day and slot.
type LockSet map[lockKey]family.Meal

// CaptureLocks copies every locked meal of plan.
func CaptureLocks(plan *family.WeekPlan) LockSet {
	locks := LockSet{}
	if plan == nil {
		return locks
	}
	for i := range plan.Days {
		locks.capture(&plan.Days[i])
	}
	return locks
}

// CaptureDayLocks copies the locked meals of a single day.
func CaptureDayLocks(plan *family.WeekPlan, day string) LockSet {
	locks := LockSet{}
	if d, ok := plan.Day(day); ok {
		locks.capture(d)
	}
	return locks
}

func (l LockSet) capture(d *family.Day) {
	name, ok := family.CanonicalDay(d.Day)
	if !ok {
		return
	}
	for _, s := range family.Slots {
		if m, _ := d.Meals.Get(s); m.Locked {
			l[lockKey{Day: name, Slot: s}] = m.Clone()
		}
	}
}

// Has reports whether (day, slot) is locked in the set.
func (l LockSet) Has(day string, slot family.Slot) bool {
	_, ok := l[lockKey{Day: day, Slot: slot}]
	return ok
}

// Apply writes every captured meal back over plan, verbatim and locked.
func (l LockSet) Apply(plan *family.WeekPlan) {
	if plan == nil || len(l) == 0 {
		return
	}
	for i := range plan.Days {
		name, ok := family.CanonicalDay(plan.Days[i].Day)
		if !ok {
			continue
		}
		for _, s := range family.Slots {
			m, ok := l[lockKey{Day: name, Slot: s}]
			if !ok {
				continue
			}
			dst, _ := plan.Days[i].Meals.Get(s)
			*dst = m.Clone()
			dst.Locked = true
		}
	}
}

// list orders the set by weekday then slot for prompting.
func (l LockSet) list() []slotMeal {
	out := make([]slotMeal, 0, len(l))
	for k, m := range l {
		out = append(out, slotMeal{Day: k.Day, Slot: k.Slot, Name: m.Name, StyleTag: m.StyleTag})
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := dayIndex(out[i].Day), dayIndex(out[j].Day)
		if di != dj {
			return di < dj
		}
		return slotIndex(out[i].Slot) < slotIndex(out[j].Slot)
	})
	return out
}

// ToggleLock flips the lock on one meal and returns the updated copy of plan
// together with the new lock state.
func ToggleLock(plan *family.WeekPlan, day string, slot family.Slot) (*family.WeekPlan, bool, error) {
	if plan.IsEmpty() {
		return nil, false, ErrNoPlan
	}
	out := plan.Clone()
	m, _, err := locate(out, day, slot)
	if err != nil {
		return nil, false, err
	}
	m.Locked = !m.Locked
	return out, m.Locked, nil
}

func dayIndex(day string) int {
	for i, d := range family.Days {
		if d == day {
			return i
		}
	}
	return len(family.Days)
}

func slotIndex(s family.Slot) int {
	for i, x := range family.Slots {
		if x == s {
			return i
		}
	}
	return len(family.Slots)
}
