package scheduler

import (
	"context"
	"testing"
	"time"

	appdb "github.com/rallydesk/rallydesk/internal/db"
	"github.com/rallydesk/rallydesk/internal/testutil"
)

func seedBooking(t *testing.T, database *appdb.DB, date, start, end, status string) int64 {
	t.Helper()
	ctx := context.Background()

	exec := func(query string, args ...any) int64 {
		t.Helper()
		result, err := database.ExecContext(ctx, query, args...)
		if err != nil {
			t.Fatalf("seed %q: %v", query, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			t.Fatalf("seed id: %v", err)
		}
		return id
	}

	var facilityID, courtID, userID int64
	row := database.QueryRowContext(ctx, "SELECT id FROM facilities LIMIT 1")
	if err := row.Scan(&facilityID); err != nil {
		facilityID = exec(
			"INSERT INTO facilities (name, slug, timezone) VALUES (?, ?, ?)",
			"Harborside Courts", "harborside", "America/New_York",
		)
		courtID = exec(
			"INSERT INTO courts (facility_id, name, court_type, position) VALUES (?, ?, ?, ?)",
			facilityID, "Court 1", "tennis", 1,
		)
		userID = exec("INSERT INTO users (name, email) VALUES (?, ?)", "Alex Owner", "alex@example.com")
	} else {
		if err := database.QueryRowContext(ctx, "SELECT id FROM courts LIMIT 1").Scan(&courtID); err != nil {
			t.Fatalf("seed court lookup: %v", err)
		}
		if err := database.QueryRowContext(ctx, "SELECT id FROM users LIMIT 1").Scan(&userID); err != nil {
			t.Fatalf("seed user lookup: %v", err)
		}
	}

	return exec(
		`INSERT INTO bookings (facility_id, court_id, user_id, booking_date, start_time, end_time, duration_minutes, status, booking_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'match')`,
		facilityID, courtID, userID, date, start, end, 60, status,
	)
}

func bookingStatus(t *testing.T, database *appdb.DB, id int64) string {
	t.Helper()
	var status string
	err := database.QueryRowContext(context.Background(), "SELECT status FROM bookings WHERE id = ?", id).Scan(&status)
	if err != nil {
		t.Fatalf("booking status: %v", err)
	}
	return status
}

func TestSweepElapsedBookings(t *testing.T) {
	database := testutil.NewTestDB(t)

	elapsedYesterday := seedBooking(t, database, "2025-06-08", "10:00:00", "11:00:00", "confirmed")
	elapsedToday := seedBooking(t, database, "2025-06-09", "08:00:00", "09:00:00", "confirmed")
	inProgress := seedBooking(t, database, "2025-06-09", "09:30:00", "10:30:00", "confirmed")
	upcoming := seedBooking(t, database, "2025-06-09", "15:00:00", "16:00:00", "confirmed")
	cancelled := seedBooking(t, database, "2025-06-08", "10:00:00", "11:00:00", "cancelled")

	// 10:00 AM Eastern on 2025-06-09 expressed in UTC.
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2025, time.June, 9, 10, 0, 0, 0, loc).UTC()

	if err := SweepElapsedBookings(context.Background(), database, now); err != nil {
		t.Fatalf("SweepElapsedBookings: %v", err)
	}

	for _, tc := range []struct {
		name string
		id   int64
		want string
	}{
		{"yesterday completed", elapsedYesterday, "completed"},
		{"ended earlier today completed", elapsedToday, "completed"},
		{"in progress untouched", inProgress, "confirmed"},
		{"upcoming untouched", upcoming, "confirmed"},
		{"cancelled untouched", cancelled, "cancelled"},
	} {
		if got := bookingStatus(t, database, tc.id); got != tc.want {
			t.Errorf("%s: status = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestSweepElapsedBookingsRequiresDatabase(t *testing.T) {
	if err := SweepElapsedBookings(context.Background(), nil, time.Now()); err == nil {
		t.Fatal("expected error for nil database")
	}
}
