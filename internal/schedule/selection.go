package schedule

import "sort"

// Selection accumulates a click/drag gesture over one court's slot row into a
// single candidate booking range. It is a plain state machine over gesture
// events with no shared mutable state: Idle until a press on a free future
// slot, Dragging while the pointer moves across the same court, back to Idle
// on release.
type Selection struct {
	grid        *SlotGrid
	unavailable func(label string) bool

	dragging bool
	courtID  int64
	anchor   int
	current  int
}

// CandidateRange is the minimal-start/maximal-end envelope handed off when a
// drag ends: one booking spanning the whole selection, not N per-slot
// bookings.
type CandidateRange struct {
	CourtID         int64  `json:"court_id"`
	Start           string `json:"start_time"`
	End             string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

// NewSelection builds an aggregator over the grid. unavailable reports slots
// that cannot be selected (booked or already elapsed); nil means every slot
// is selectable.
func NewSelection(grid *SlotGrid, unavailable func(label string) bool) *Selection {
	if unavailable == nil {
		unavailable = func(string) bool { return false }
	}
	return &Selection{grid: grid, unavailable: unavailable}
}

// Press begins a drag on the given court and slot. A press on an unavailable
// slot, an unknown slot, or while a drag is already underway is ignored.
func (s *Selection) Press(courtID int64, slot string) bool {
	if s.dragging {
		return false
	}
	i, ok := s.grid.Index(slot)
	if !ok || s.unavailable(slot) {
		return false
	}
	s.dragging = true
	s.courtID = courtID
	s.anchor = i
	s.current = i
	return true
}

// Enter extends the drag to another slot. Entering a slot on a different
// court is ignored; the drag is single-court only.
func (s *Selection) Enter(courtID int64, slot string) {
	if !s.dragging || courtID != s.courtID {
		return
	}
	if i, ok := s.grid.Index(slot); ok {
		s.current = i
	}
}

// Slots returns the current selection set: the contiguous inclusive range
// between anchor and pointer, minus any unavailable slot inside that span. A
// drag may jump over a booked slot, but that slot is never selected.
func (s *Selection) Slots() []string {
	if !s.dragging {
		return nil
	}
	lo, hi := s.anchor, s.current
	if hi < lo {
		lo, hi = hi, lo
	}
	labels := s.grid.Labels()
	selected := make([]string, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		if s.unavailable(labels[i]) {
			continue
		}
		selected = append(selected, labels[i])
	}
	return selected
}

// Release ends the drag. If the selection set is non-empty it collapses into
// one candidate range from the earliest selected slot's start to the latest
// selected slot's end.
func (s *Selection) Release() (CandidateRange, bool) {
	if !s.dragging {
		return CandidateRange{}, false
	}
	selected := s.Slots()
	courtID := s.courtID
	s.dragging = false

	if len(selected) == 0 {
		return CandidateRange{}, false
	}

	indexes := make([]int, len(selected))
	for i, label := range selected {
		indexes[i], _ = s.grid.Index(label)
	}
	sort.Ints(indexes)

	start := s.grid.StartTime(indexes[0])
	end := s.grid.StartTime(indexes[len(indexes)-1] + 1)
	startMin, _ := MinutesOfDay(start)
	endMin, _ := MinutesOfDay(end)
	return CandidateRange{
		CourtID:         courtID,
		Start:           start,
		End:             end,
		DurationMinutes: endMin - startMin,
	}, true
}
