package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"harborlight/services/cms"
	"harborlight/services/events"
)

func monthRequest(t *testing.T, handler *CalendarHandler, year, month, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/calendar/"+year+"/"+month+query, nil)
	req = mux.SetURLVars(req, map[string]string{"year": year, "month": month})
	rec := httptest.NewRecorder()
	handler.GetMonth(rec, req)
	return rec
}

func TestGetMonthReturns35Cells(t *testing.T) {
	src := &stubEventSource{docs: []cms.EventDoc{
		{ID: "e1", Title: "Dinner", Start: "2024-06-05T18:00:00Z"},
	}}
	handler := NewCalendarHandler(events.New(src, nil))

	rec := monthRequest(t, handler, "2024", "6", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CalendarResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Cells) != 35 {
		t.Fatalf("expected 35 cells, got %d", len(resp.Cells))
	}
	if resp.Year != 2024 || resp.Month != 6 {
		t.Fatalf("unexpected month echo: %+v", resp)
	}

	var found bool
	for _, cell := range resp.Cells {
		if cell.DayKey == "2024-06-05" {
			found = true
			if len(cell.Events) != 1 {
				t.Fatalf("expected event on 2024-06-05, got %+v", cell.Events)
			}
			if !cell.Display.Expanded {
				t.Fatal("lone event should render expanded")
			}
		}
	}
	if !found {
		t.Fatal("2024-06-05 missing from grid")
	}
}

func TestGetMonthSpanRoles(t *testing.T) {
	src := &stubEventSource{docs: []cms.EventDoc{
		{ID: "retreat", Title: "Retreat", Start: "2024-06-01T10:00:00Z", End: "2024-06-03T10:00:00Z"},
	}}
	handler := NewCalendarHandler(events.New(src, nil))

	rec := monthRequest(t, handler, "2024", "6", "")
	var resp CalendarResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	// The event is grouped under its start day only; that cell carries the
	// start role.
	for _, cell := range resp.Cells {
		if cell.DayKey == "2024-06-01" {
			if cell.SpanRoles["retreat"] != "start" {
				t.Fatalf("expected start role on 2024-06-01, got %+v", cell.SpanRoles)
			}
			return
		}
	}
	t.Fatal("2024-06-01 missing from grid")
}

func TestGetMonthWeekStart(t *testing.T) {
	handler := NewCalendarHandler(events.New(&stubEventSource{}, nil))

	rec := monthRequest(t, handler, "2024", "6", "?weekStart=3")
	var resp CalendarResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.WeekStartsOn != 3 {
		t.Fatalf("weekStartsOn = %d", resp.WeekStartsOn)
	}
	// June 2024 starts Saturday; a Wednesday week start leads with 3 cells.
	if resp.Cells[3].DayKey != "2024-06-01" {
		t.Fatalf("expected 2024-06-01 at index 3, got %s", resp.Cells[3].DayKey)
	}
}

func TestGetMonthValidation(t *testing.T) {
	handler := NewCalendarHandler(events.New(&stubEventSource{}, nil))

	tests := []struct {
		year, month, query string
	}{
		{"2024", "0", ""},
		{"2024", "13", ""},
		{"abcd", "6", ""},
		{"2024", "6", "?weekStart=7"},
		{"2024", "6", "?weekStart=x"},
	}
	for _, tt := range tests {
		rec := monthRequest(t, handler, tt.year, tt.month, tt.query)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s/%s%s: expected 400, got %d", tt.year, tt.month, tt.query, rec.Code)
		}
	}
}
