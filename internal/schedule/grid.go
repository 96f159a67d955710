package schedule

import (
	"fmt"
	"time"
)

// SlotGrid is the ordered sequence of 15-minute slot labels spanning a
// court's operating window, inclusive of the closing hour's slots. Labels are
// display-format ("2:00 PM"); bookings themselves store start/end times, not
// slot ids.
type SlotGrid struct {
	openHour  int
	closeHour int
	labels    []string
	index     map[string]int
}

// NewSlotGrid builds the grid for an operating window of whole hours,
// e.g. open 6 and close 21 yields "6:00 AM" through "9:45 PM".
func NewSlotGrid(openHour, closeHour int) (*SlotGrid, error) {
	if openHour < 0 || openHour > 23 {
		return nil, fmt.Errorf("open hour %d out of range", openHour)
	}
	if closeHour < openHour || closeHour > 23 {
		return nil, fmt.Errorf("close hour %d out of range", closeHour)
	}

	slotCount := (closeHour - openHour + 1) * (60 / SlotMinutes)
	grid := &SlotGrid{
		openHour:  openHour,
		closeHour: closeHour,
		labels:    make([]string, 0, slotCount),
		index:     make(map[string]int, slotCount),
	}
	for hour := openHour; hour <= closeHour; hour++ {
		for minute := 0; minute < 60; minute += SlotMinutes {
			label := formatSlotLabel(hour, minute)
			grid.index[label] = len(grid.labels)
			grid.labels = append(grid.labels, label)
		}
	}
	return grid, nil
}

// Labels returns every slot label in order. The returned slice is shared;
// callers must not modify it.
func (g *SlotGrid) Labels() []string { return g.labels }

// Index returns the position of a slot label within the grid.
func (g *SlotGrid) Index(label string) (int, bool) {
	i, ok := g.index[label]
	return i, ok
}

// Contains reports whether the label belongs to the operating window.
func (g *SlotGrid) Contains(label string) bool {
	_, ok := g.index[label]
	return ok
}

// OpenMinutes and CloseMinutes bound the bookable window as minute offsets
// from midnight. The close bound is one slot past the last slot's start.
func (g *SlotGrid) OpenMinutes() int  { return g.openHour * 60 }
func (g *SlotGrid) CloseMinutes() int { return (g.closeHour + 1) * 60 }

// StartTime returns the storage-format start time for the slot at index i.
func (g *SlotGrid) StartTime(i int) string {
	minutes := g.OpenMinutes() + i*SlotMinutes
	return storageTimeFromMinutes(minutes)
}

// VisibleSlots returns the labels to render for the given date. When the date
// is today in the facility zone, slots whose start has already elapsed are
// excluded. Once the facility clock reaches the closing hour the day is
// spent, so the full unfiltered grid is returned instead of a dwindling tail
// and the view never dead-ends on an empty calendar.
func (g *SlotGrid) VisibleSlots(date string, clock *FacilityClock) []string {
	if date != clock.Today() {
		return g.labels
	}

	now := clock.Now()
	elapsed := now.Hour()*60 + now.Minute()
	if elapsed >= g.closeHour*60 {
		return g.labels
	}

	first := 0
	for first < len(g.labels) && g.OpenMinutes()+first*SlotMinutes <= elapsed {
		first++
	}
	return g.labels[first:]
}

// SlotLabelForTime maps a storage-format start time onto its slot label,
// failing when the time does not sit on a slot boundary inside the window.
func (g *SlotGrid) SlotLabelForTime(storage string) (string, error) {
	minutes, err := MinutesOfDay(storage)
	if err != nil {
		return "", err
	}
	if minutes%SlotMinutes != 0 {
		return "", fmt.Errorf("time %s is not on a %d-minute boundary", storage, SlotMinutes)
	}
	label := formatSlotLabel(minutes/60, minutes%60)
	if !g.Contains(label) {
		return "", fmt.Errorf("time %s is outside operating hours", storage)
	}
	return label, nil
}

func formatSlotLabel(hour, minute int) string {
	t := time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC)
	return t.Format("3:04 PM")
}
