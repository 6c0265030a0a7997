package calendar

import (
	"testing"
	"time"

	"harborlight/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveSpanRoles(t *testing.T) {
	end := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	ev := models.Event{
		ID:    "retreat",
		Start: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		End:   &end,
	}

	tests := []struct {
		cell time.Time
		want SpanRole
	}{
		{date(2024, time.June, 1), SpanStart},
		{date(2024, time.June, 2), SpanMiddle},
		{date(2024, time.June, 3), SpanEnd},
		{date(2024, time.May, 31), SpanNone},
		{date(2024, time.June, 4), SpanNone},
	}

	for _, tt := range tests {
		if got := ResolveSpan(tt.cell, ev); got != tt.want {
			t.Errorf("ResolveSpan(%s) = %v, want %v", tt.cell.Format(models.DayKeyLayout), got, tt.want)
		}
	}
}

func TestResolveSpanSingleDayEvent(t *testing.T) {
	ev := models.Event{ID: "dinner", Start: date(2024, time.June, 1)}
	if got := ResolveSpan(date(2024, time.June, 1), ev); got != SpanNone {
		t.Fatalf("single-day event has no span role, got %v", got)
	}

	// An end within 24 hours does not make the event multi-day.
	end := ev.Start.Add(3 * time.Hour)
	ev.End = &end
	if got := ResolveSpan(date(2024, time.June, 1), ev); got != SpanNone {
		t.Fatalf("same-day end has no span role, got %v", got)
	}
}

func TestSpanRoleMarshalJSON(t *testing.T) {
	tests := []struct {
		role SpanRole
		want string
	}{
		{SpanNone, `"none"`},
		{SpanStart, `"start"`},
		{SpanMiddle, `"middle"`},
		{SpanEnd, `"end"`},
	}
	for _, tt := range tests {
		b, err := tt.role.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON(%v): %v", tt.role, err)
		}
		if string(b) != tt.want {
			t.Errorf("MarshalJSON(%v) = %s, want %s", tt.role, b, tt.want)
		}
	}
}

func TestDisplayForSingleEventExpands(t *testing.T) {
	cell := models.DayCell{Events: []models.Event{{ID: "only"}}}
	display := DisplayFor(cell)
	if !display.Expanded {
		t.Fatal("lone event should render expanded")
	}
	if len(display.Visible) != 1 || display.Overflow != 0 {
		t.Fatalf("unexpected display: %+v", display)
	}
}

func TestDisplayForTruncatesOverflow(t *testing.T) {
	cell := models.DayCell{Events: []models.Event{
		{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"},
	}}
	display := DisplayFor(cell)
	if display.Expanded {
		t.Fatal("multi-event cell should not expand")
	}
	if len(display.Visible) != MaxVisibleEventsPerCell {
		t.Fatalf("expected %d visible, got %d", MaxVisibleEventsPerCell, len(display.Visible))
	}
	if display.Overflow != 2 {
		t.Fatalf("expected overflow 2, got %d", display.Overflow)
	}
	if display.Visible[0].ID != "a" || display.Visible[2].ID != "c" {
		t.Fatalf("visible events must keep order, got %+v", display.Visible)
	}
}

func TestDisplayForEmptyCell(t *testing.T) {
	display := DisplayFor(models.DayCell{})
	if display.Expanded || display.Overflow != 0 {
		t.Fatalf("unexpected display for empty cell: %+v", display)
	}
	if display.Visible == nil {
		t.Fatal("visible must be an empty slice, not nil")
	}
}
