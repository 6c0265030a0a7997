package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"harborlight/models"
	"harborlight/services/calendar"
	"harborlight/services/events"
)

// CalendarHandler serves the month-view grid endpoint.
type CalendarHandler struct {
	Service *events.Service
}

// NewCalendarHandler creates a new CalendarHandler.
func NewCalendarHandler(service *events.Service) *CalendarHandler {
	return &CalendarHandler{Service: service}
}

// CalendarCell is one day cell of the month grid, with its display policy
// and per-event span roles resolved.
type CalendarCell struct {
	Date           string               `json:"date"`
	DayKey         string               `json:"dayKey"`
	IsCurrentMonth bool                 `json:"isCurrentMonth"`
	IsToday        bool                 `json:"isToday"`
	Display        calendar.CellDisplay `json:"display"`
	SpanRoles      map[string]string    `json:"spanRoles,omitempty"`
	Events         []models.Event       `json:"events"`
}

// CalendarResponse is the month-view payload.
type CalendarResponse struct {
	Year         int            `json:"year"`
	Month        int            `json:"month"`
	WeekStartsOn int            `json:"weekStartsOn"`
	Cells        []CalendarCell `json:"cells"`
}

// GetMonth returns the 35-cell grid for /api/calendar/{year}/{month}.
// Month is 1-12. An optional weekStart query (0=Sunday ... 6=Saturday)
// shifts the first column.
func (h *CalendarHandler) GetMonth(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	year, err := strconv.Atoi(vars["year"])
	if err != nil || year < 1 {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	monthNum, err := strconv.Atoi(vars["month"])
	if err != nil || monthNum < 1 || monthNum > 12 {
		writeError(w, http.StatusBadRequest, "invalid month: must be 1-12")
		return
	}

	weekStart := time.Sunday
	if ws := strings.TrimSpace(r.URL.Query().Get("weekStart")); ws != "" {
		parsed, err := strconv.Atoi(ws)
		if err != nil || parsed < 0 || parsed > 6 {
			writeError(w, http.StatusBadRequest, "invalid weekStart: must be 0-6")
			return
		}
		weekStart = time.Weekday(parsed)
	}

	evs := h.Service.FetchAll(r.Context())
	dayEvents := models.GroupEventsByDay(evs)

	cells := calendar.BuildGrid(year, time.Month(monthNum), dayEvents, calendar.GridOptions{
		WeekStartsOn: weekStart,
	})

	out := make([]CalendarCell, 0, len(cells))
	for _, cell := range cells {
		cc := CalendarCell{
			Date:           cell.Date.Format(time.RFC3339),
			DayKey:         cell.DayKey,
			IsCurrentMonth: cell.IsCurrentMonth,
			IsToday:        cell.IsToday,
			Display:        calendar.DisplayFor(cell),
			Events:         cell.Events,
		}
		for _, ev := range cell.Events {
			role := calendar.ResolveSpan(cell.Date, ev)
			if role == calendar.SpanNone {
				continue
			}
			if cc.SpanRoles == nil {
				cc.SpanRoles = make(map[string]string)
			}
			cc.SpanRoles[ev.ID] = role.String()
		}
		out = append(out, cc)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(CalendarResponse{
		Year:         year,
		Month:        monthNum,
		WeekStartsOn: int(weekStart),
		Cells:        out,
	})
}

// Options handles CORS preflight.
func (h *CalendarHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
