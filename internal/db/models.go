package db

import "time"

const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusPending   = "pending"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

// ActiveBookingStatuses are the statuses that participate in conflict checks.
var ActiveBookingStatuses = []string{BookingStatusConfirmed, BookingStatusPending}

type Facility struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

type Court struct {
	ID         int64  `json:"id"`
	FacilityID int64  `json:"facility_id"`
	Name       string `json:"name"`
	CourtType  string `json:"court_type"`
	Position   int64  `json:"position"`
}

type OperatingHours struct {
	ID         int64 `json:"id"`
	FacilityID int64 `json:"facility_id"`
	DayOfWeek  int64 `json:"day_of_week"`
	OpenHour   int64 `json:"open_hour"`
	CloseHour  int64 `json:"close_hour"`
}

type User struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
}

type Booking struct {
	ID              int64     `json:"id"`
	FacilityID      int64     `json:"facility_id"`
	CourtID         int64     `json:"court_id"`
	UserID          int64     `json:"user_id"`
	BookingDate     string    `json:"booking_date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	DurationMinutes int64     `json:"duration_minutes"`
	Status          string    `json:"status"`
	BookingType     string    `json:"booking_type"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BookingWithCourt joins the court name in for grid indexing.
type BookingWithCourt struct {
	Booking
	CourtName string `json:"court_name"`
}
