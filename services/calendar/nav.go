package calendar

import (
	"harborlight/models"
)

// DetailDrawerMinWidth is the viewport width threshold at or above which the
// selected day's events open in a side drawer instead of an inline list.
const DetailDrawerMinWidth = 768

// Key is a keyboard input recognized by the navigation state machine.
type Key int

const (
	KeyArrowUp Key = iota
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight
	KeyHome
	KeyEnd
	KeyEnter
	KeySpace
	KeyEscape
)

// EffectType describes the observable outcome of a transition.
type EffectType int

const (
	EffectNone EffectType = iota
	EffectFocusMoved
	EffectSelected
	EffectFocusCleared
)

// ScrollHint asks the view to bring the focused cell into view without a
// jarring jump: smooth behavior, nearest-edge alignment.
type ScrollHint struct {
	Smooth bool   `json:"smooth"`
	Block  string `json:"block"`
}

// Effect is what a transition asks the view layer to do. The state machine
// itself never touches the view.
type Effect struct {
	Type   EffectType
	DayKey string
	Scroll *ScrollHint
}

// ViewMode is how the selected day's detail is presented.
type ViewMode string

const (
	ViewModeDrawer ViewMode = "drawer"
	ViewModeInline ViewMode = "inline"
)

// NavState tracks the focused and selected day cells over a 35-cell grid.
// Focus and selection are distinct: arrows move focus, Enter/Space selects
// without moving focus, Escape clears focus only.
type NavState struct {
	cells          []models.DayCell
	focused        int // index into cells, -1 when nothing is focused
	selectedDayKey string
	viewportWidth  int
	onSelect       func(dayKey string)
}

// NewNavState creates a navigation state machine over the given cells.
// onSelect fires on Enter/Space; it may be nil. viewportWidth decides the
// detail-view mode against DetailDrawerMinWidth (injected, not read from
// any ambient environment).
func NewNavState(cells []models.DayCell, viewportWidth int, onSelect func(dayKey string)) *NavState {
	return &NavState{
		cells:         cells,
		focused:       -1,
		viewportWidth: viewportWidth,
		onSelect:      onSelect,
	}
}

// Transition applies one key input and returns the resulting effect.
func (n *NavState) Transition(key Key) Effect {
	if len(n.cells) == 0 {
		return Effect{Type: EffectNone}
	}

	switch key {
	case KeyArrowUp:
		return n.moveFocus(-daysPerWeek)
	case KeyArrowDown:
		return n.moveFocus(daysPerWeek)
	case KeyArrowLeft:
		return n.moveFocus(-1)
	case KeyArrowRight:
		return n.moveFocus(1)
	case KeyHome:
		return n.setFocus(n.firstCurrentMonthIndex())
	case KeyEnd:
		return n.setFocus(n.lastCurrentMonthIndex())
	case KeyEnter, KeySpace:
		return n.selectFocused()
	case KeyEscape:
		n.focused = -1
		return Effect{Type: EffectFocusCleared}
	default:
		return Effect{Type: EffectNone}
	}
}

// moveFocus shifts focus by delta in the flattened cell sequence. Any move
// past an edge lands on the opposite end's extreme cell: up from the first
// row wraps to the last cell, down from the last row wraps to the first.
func (n *NavState) moveFocus(delta int) Effect {
	if n.focused < 0 {
		return n.setFocus(0)
	}
	target := n.focused + delta
	switch {
	case target < 0:
		target = len(n.cells) - 1
	case target >= len(n.cells):
		target = 0
	}
	return n.setFocus(target)
}

func (n *NavState) setFocus(idx int) Effect {
	n.focused = idx
	return Effect{
		Type:   EffectFocusMoved,
		DayKey: n.cells[idx].DayKey,
		Scroll: &ScrollHint{Smooth: true, Block: "nearest"},
	}
}

// selectFocused updates the selected day and fires the select callback.
// Focus does not change.
func (n *NavState) selectFocused() Effect {
	if n.focused < 0 {
		return Effect{Type: EffectNone}
	}
	key := n.cells[n.focused].DayKey
	n.selectedDayKey = key
	if n.onSelect != nil {
		n.onSelect(key)
	}
	return Effect{Type: EffectSelected, DayKey: key}
}

// firstCurrentMonthIndex falls back to index 0 when no current-month cell
// exists, matching the Home key's wraparound policy.
func (n *NavState) firstCurrentMonthIndex() int {
	for i, c := range n.cells {
		if c.IsCurrentMonth {
			return i
		}
	}
	return 0
}

// lastCurrentMonthIndex falls back to the last index when no current-month
// cell exists.
func (n *NavState) lastCurrentMonthIndex() int {
	for i := len(n.cells) - 1; i >= 0; i-- {
		if n.cells[i].IsCurrentMonth {
			return i
		}
	}
	return len(n.cells) - 1
}

// FocusedDayKey returns the focused cell's day key, if any.
func (n *NavState) FocusedDayKey() (string, bool) {
	if n.focused < 0 {
		return "", false
	}
	return n.cells[n.focused].DayKey, true
}

// FocusedIndex returns the focused cell index, or -1.
func (n *NavState) FocusedIndex() int {
	return n.focused
}

// SelectedDayKey returns the selected day key, empty when nothing is
// selected.
func (n *NavState) SelectedDayKey() string {
	return n.selectedDayKey
}

// DetailViewMode reports whether the selected day's events render in a
// drawer (wide viewports) or inline (narrow viewports).
func (n *NavState) DetailViewMode() ViewMode {
	if n.viewportWidth >= DetailDrawerMinWidth {
		return ViewModeDrawer
	}
	return ViewModeInline
}
