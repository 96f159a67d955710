package schedule

import (
	"errors"
	"testing"
)

// A 45-minute booking from 2:00 PM occupies exactly {2:00, 2:15, 2:30 PM},
// with 2:00 PM flagged as the first slot.
func TestBuildOccupancyExpandsDuration(t *testing.T) {
	occupancy, err := BuildOccupancy([]ActiveBooking{
		{ID: 7, CourtName: "Court 1", StartTime: "14:00:00", DurationMinutes: 45, Status: "confirmed", BookingType: "match"},
	})
	if err != nil {
		t.Fatalf("BuildOccupancy: %v", err)
	}

	court := occupancy["Court 1"]
	if len(court) != 3 {
		t.Fatalf("got %d occupied slots, want 3", len(court))
	}

	for _, slot := range []string{"2:00 PM", "2:15 PM", "2:30 PM"} {
		record, ok := court[slot]
		if !ok {
			t.Fatalf("slot %s should be occupied", slot)
		}
		if record.BookingID != 7 {
			t.Errorf("slot %s booking id = %d, want 7", slot, record.BookingID)
		}
		wantFirst := slot == "2:00 PM"
		if record.IsFirstSlot != wantFirst {
			t.Errorf("slot %s IsFirstSlot = %v, want %v", slot, record.IsFirstSlot, wantFirst)
		}
		if record.SlotsSpanned != 3 {
			t.Errorf("slot %s SlotsSpanned = %d, want 3", slot, record.SlotsSpanned)
		}
	}

	if _, ok := court["2:45 PM"]; ok {
		t.Error("2:45 PM should be free")
	}
}

func TestBuildOccupancyRoundsPartialSlotUp(t *testing.T) {
	occupancy, err := BuildOccupancy([]ActiveBooking{
		{ID: 1, CourtName: "Court 2", StartTime: "09:00:00", DurationMinutes: 50, Status: "confirmed"},
	})
	if err != nil {
		t.Fatalf("BuildOccupancy: %v", err)
	}
	if got := len(occupancy["Court 2"]); got != 4 {
		t.Errorf("50-minute booking should span ceil(50/15)=4 slots, got %d", got)
	}
}

func TestBuildOccupancySeparateCourts(t *testing.T) {
	occupancy, err := BuildOccupancy([]ActiveBooking{
		{ID: 1, CourtName: "Court 1", StartTime: "14:00:00", DurationMinutes: 30},
		{ID: 2, CourtName: "Court 2", StartTime: "14:00:00", DurationMinutes: 30},
	})
	if err != nil {
		t.Fatalf("BuildOccupancy: %v", err)
	}
	if occupancy["Court 1"]["2:00 PM"].BookingID != 1 {
		t.Error("Court 1 cell should belong to booking 1")
	}
	if occupancy["Court 2"]["2:00 PM"].BookingID != 2 {
		t.Error("Court 2 cell should belong to booking 2")
	}
}

// Two bookings writing the same cell is an upstream conflict-check failure
// and must surface as an integrity error, not a silent overwrite.
func TestBuildOccupancyDetectsDoubleClaim(t *testing.T) {
	_, err := BuildOccupancy([]ActiveBooking{
		{ID: 1, CourtName: "Court 1", StartTime: "14:00:00", DurationMinutes: 45},
		{ID: 2, CourtName: "Court 1", StartTime: "14:30:00", DurationMinutes: 30},
	})
	if err == nil {
		t.Fatal("expected integrity error")
	}

	var integrity IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("error %T is not an IntegrityError", err)
	}
	if integrity.Slot != "2:30 PM" {
		t.Errorf("conflicting slot = %q, want 2:30 PM", integrity.Slot)
	}
	if integrity.CourtName != "Court 1" {
		t.Errorf("conflicting court = %q, want Court 1", integrity.CourtName)
	}
}

func TestBuildOccupancyTouchingBookingsAllowed(t *testing.T) {
	occupancy, err := BuildOccupancy([]ActiveBooking{
		{ID: 1, CourtName: "Court 1", StartTime: "14:00:00", DurationMinutes: 45},
		{ID: 2, CourtName: "Court 1", StartTime: "14:45:00", DurationMinutes: 30},
	})
	if err != nil {
		t.Fatalf("touching bookings should not collide: %v", err)
	}
	if occupancy["Court 1"]["2:45 PM"].BookingID != 2 {
		t.Error("2:45 PM should belong to booking 2")
	}
}
