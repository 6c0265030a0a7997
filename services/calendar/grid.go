// Package calendar derives the month-view state consumed by the site
// frontend: the fixed 35-cell day grid, multi-day span roles, and the
// keyboard navigation state machine.
package calendar

import (
	"time"

	"harborlight/models"
)

const (
	// GridCellCount fixes the month view at 5 full weeks regardless of how
	// many weeks the month actually spans.
	GridCellCount = 35

	daysPerWeek = 7
)

// GridOptions carries the injected configuration for grid construction.
// Nothing reads ambient globals, so the grid is testable with a fake clock.
type GridOptions struct {
	// WeekStartsOn is the weekday shown in the first column.
	WeekStartsOn time.Weekday
	// Now supplies the clock used for the today flag. Defaults to time.Now.
	Now func() time.Time
}

// BuildGrid returns exactly 35 day cells for the given month, bridged with
// trailing days of the previous month and leading days of the next. Each
// cell's events come from the day→events map; absent keys yield an empty
// slice, never an error.
func BuildGrid(year int, month time.Month, dayEvents map[string][]models.Event, opts GridOptions) []models.DayCell {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	today := now()

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	leading := (int(first.Weekday()) - int(opts.WeekStartsOn) + daysPerWeek) % daysPerWeek
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	cells := make([]models.DayCell, 0, GridCellCount)

	// Trailing days of the previous month.
	for i := leading; i > 0; i-- {
		cells = append(cells, makeCell(first.AddDate(0, 0, -i), false, today, dayEvents))
	}

	// The month itself. A month pushed past 35 cells by its leading offset
	// is cut at the grid boundary.
	for d := 1; d <= daysInMonth && len(cells) < GridCellCount; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
		cells = append(cells, makeCell(date, true, today, dayEvents))
	}

	// Leading days of the next month.
	next := 1
	for len(cells) < GridCellCount {
		date := time.Date(year, month+1, next, 0, 0, 0, 0, time.UTC)
		cells = append(cells, makeCell(date, false, today, dayEvents))
		next++
	}

	return cells
}

func makeCell(date time.Time, currentMonth bool, today time.Time, dayEvents map[string][]models.Event) models.DayCell {
	key := date.Format(models.DayKeyLayout)
	evs := dayEvents[key]
	if evs == nil {
		evs = []models.Event{}
	}
	return models.DayCell{
		Date:           date,
		DayKey:         key,
		IsCurrentMonth: currentMonth,
		IsToday:        sameDate(date, today),
		Events:         evs,
	}
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
