package schedule

import "fmt"

// ActiveBooking is the slice of a booking the availability index needs:
// cancelled bookings must be filtered out before indexing.
type ActiveBooking struct {
	ID              int64
	CourtName       string
	StartTime       string // storage format "HH:MM:SS"
	DurationMinutes int
	Status          string
	BookingType     string
}

// SlotBooking is one occupied cell of the rendered grid. The cell at the
// booking's own start carries IsFirstSlot so the UI renders a single merged
// block; continuation cells reference the same booking id.
type SlotBooking struct {
	BookingID       int64  `json:"booking_id"`
	CourtName       string `json:"court_name"`
	Slot            string `json:"slot"`
	IsFirstSlot     bool   `json:"is_first_slot"`
	SlotsSpanned    int    `json:"slots_spanned"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	BookingType     string `json:"booking_type"`
}

// Occupancy maps court name -> slot label -> the booking occupying that cell.
// Absent cells are free.
type Occupancy map[string]map[string]SlotBooking

// IntegrityError reports two bookings claiming the same (court, slot) cell.
// Under correct conflict enforcement this cannot happen, so it is surfaced as
// a data defect rather than resolved by last-write-wins.
type IntegrityError struct {
	CourtName  string
	Slot       string
	BookingID  int64
	ExistingID int64
}

func (e IntegrityError) Error() string {
	return fmt.Sprintf("bookings %d and %d both claim court %q slot %s",
		e.ExistingID, e.BookingID, e.CourtName, e.Slot)
}

// BuildOccupancy expands each booking's duration into the slots it spans:
// ceil(duration/15) cells walked forward in 15-minute steps from the start.
func BuildOccupancy(bookings []ActiveBooking) (Occupancy, error) {
	occupancy := make(Occupancy)
	for _, booking := range bookings {
		spanned := (booking.DurationMinutes + SlotMinutes - 1) / SlotMinutes
		if spanned < 1 {
			continue
		}

		startMinutes, err := MinutesOfDay(booking.StartTime)
		if err != nil {
			return nil, fmt.Errorf("booking %d: %w", booking.ID, err)
		}

		court := occupancy[booking.CourtName]
		if court == nil {
			court = make(map[string]SlotBooking, spanned)
			occupancy[booking.CourtName] = court
		}

		for i := 0; i < spanned; i++ {
			minutes := startMinutes + i*SlotMinutes
			label := formatSlotLabel(minutes/60, minutes%60)
			if existing, ok := court[label]; ok && existing.BookingID != booking.ID {
				return nil, IntegrityError{
					CourtName:  booking.CourtName,
					Slot:       label,
					BookingID:  booking.ID,
					ExistingID: existing.BookingID,
				}
			}
			court[label] = SlotBooking{
				BookingID:       booking.ID,
				CourtName:       booking.CourtName,
				Slot:            label,
				IsFirstSlot:     i == 0,
				SlotsSpanned:    spanned,
				DurationMinutes: booking.DurationMinutes,
				Status:          booking.Status,
				BookingType:     booking.BookingType,
			}
		}
	}
	return occupancy, nil
}
