package calendar

import (
	"time"

	"harborlight/models"
)

// MaxVisibleEventsPerCell caps how many events a multi-event cell renders
// before collapsing the rest behind a "+N more" indicator.
const MaxVisibleEventsPerCell = 3

// SpanRole classifies a day cell's position within a multi-day event's span.
// The role drives the visual connectors only; it never affects filtering or
// sorting.
type SpanRole int

const (
	SpanNone SpanRole = iota
	SpanStart
	SpanMiddle
	SpanEnd
)

func (r SpanRole) String() string {
	switch r {
	case SpanStart:
		return "start"
	case SpanMiddle:
		return "middle"
	case SpanEnd:
		return "end"
	default:
		return "none"
	}
}

// MarshalJSON emits the role as its string name.
func (r SpanRole) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// ResolveSpan classifies the cell date's role in the event's span. Single-day
// events, and multi-day events rendered outside their span, carry no role.
func ResolveSpan(cellDate time.Time, ev models.Event) SpanRole {
	if !ev.MultiDay() {
		return SpanNone
	}

	cellKey := cellDate.Format(models.DayKeyLayout)
	startKey := ev.Start.Format(models.DayKeyLayout)
	endKey := ev.End.Format(models.DayKeyLayout)

	switch {
	case cellKey == startKey:
		return SpanStart
	case cellKey == endKey:
		return SpanEnd
	case cellKey > startKey && cellKey < endKey:
		return SpanMiddle
	default:
		return SpanNone
	}
}

// CellDisplay describes how a cell's events should be rendered: a lone event
// expands to full height, multiple events render compactly with at most
// MaxVisibleEventsPerCell shown and the remainder counted.
type CellDisplay struct {
	Expanded bool           `json:"expanded"`
	Visible  []models.Event `json:"visible"`
	Overflow int            `json:"overflow"`
}

// DisplayFor computes the rendering policy for a cell.
func DisplayFor(cell models.DayCell) CellDisplay {
	if len(cell.Events) == 1 {
		return CellDisplay{Expanded: true, Visible: cell.Events, Overflow: 0}
	}

	visible := cell.Events
	overflow := 0
	if len(visible) > MaxVisibleEventsPerCell {
		overflow = len(visible) - MaxVisibleEventsPerCell
		visible = visible[:MaxVisibleEventsPerCell]
	}
	if visible == nil {
		visible = []models.Event{}
	}
	return CellDisplay{Expanded: false, Visible: visible, Overflow: overflow}
}
