package models

import "time"

// DayKeyLayout is the canonical timezone-naive day key format used to join
// events to calendar cells.
const DayKeyLayout = "2006-01-02"

// multiDayThreshold is the minimum start→end distance for an event to be
// treated as spanning multiple days.
const multiDayThreshold = 24 * time.Hour

// Event represents one calendar-worthy occurrence, normalized from a CMS
// event document. Events are immutable for the lifetime of a page render.
type Event struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Slug            string     `json:"slug,omitempty"`
	Start           time.Time  `json:"start"`
	End             *time.Time `json:"end,omitempty"`
	Location        string     `json:"location,omitempty"`
	Program         string     `json:"program,omitempty"`
	Description     string     `json:"description"`
	Capacity        int        `json:"capacity,omitempty"`
	RegistrationURL string     `json:"registrationUrl,omitempty"`
	ImageURL        string     `json:"imageUrl,omitempty"`
}

// DayKey returns the canonical YYYY-MM-DD key for the event's start date.
func (e Event) DayKey() string {
	return e.Start.Format(DayKeyLayout)
}

// MultiDay reports whether the event spans more than one calendar day,
// defined as an end timestamp more than 24 hours after the start.
func (e Event) MultiDay() bool {
	if e.End == nil {
		return false
	}
	return e.End.Sub(e.Start) > multiDayThreshold
}

// LastRelevantMoment is the point in time after which the event is no longer
// "upcoming": the end when present, otherwise the start.
func (e Event) LastRelevantMoment() time.Time {
	if e.End != nil {
		return *e.End
	}
	return e.Start
}

// DayCell is one grid position in a calendar month view. Cells are derived
// state, recomputed fully on every render; they have no independent identity.
type DayCell struct {
	Date           time.Time `json:"date"`
	DayKey         string    `json:"dayKey"`
	IsCurrentMonth bool      `json:"isCurrentMonth"`
	IsToday        bool      `json:"isToday"`
	Events         []Event   `json:"events"`
}

// GroupEventsByDay builds the day→events lookup from an already-sorted event
// list. Values keep the input (chronological) order.
func GroupEventsByDay(events []Event) map[string][]Event {
	byDay := make(map[string][]Event)
	for _, ev := range events {
		key := ev.DayKey()
		byDay[key] = append(byDay[key], ev)
	}
	return byDay
}
