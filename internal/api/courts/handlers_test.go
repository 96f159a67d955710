package courts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	appdb "github.com/rallydesk/rallydesk/internal/db"
	"github.com/rallydesk/rallydesk/internal/testutil"
)

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type gridTestContext struct {
	db         *appdb.DB
	facilityID int64
	courtID    int64
	userID     int64
}

// setupGridTest seeds one Eastern-time facility open 6-21 every day with two
// courts, freezing the handler clock at 9:00 AM Eastern on 2025-06-09.
func setupGridTest(t *testing.T) gridTestContext {
	t.Helper()

	database := testutil.NewTestDB(t)
	ctx := context.Background()

	prevQueries := queries
	prevClock := clock
	t.Cleanup(func() {
		queries = prevQueries
		clock = prevClock
	})

	exec := func(query string, args ...any) int64 {
		t.Helper()
		result, err := database.ExecContext(ctx, query, args...)
		if err != nil {
			t.Fatalf("seed %q: %v", query, err)
		}
		id, _ := result.LastInsertId()
		return id
	}

	facilityID := exec(
		"INSERT INTO facilities (name, slug, timezone) VALUES (?, ?, ?)",
		"Riverside Racquet Club", "riverside", "America/New_York",
	)
	for day := 0; day <= 6; day++ {
		exec(
			"INSERT INTO operating_hours (facility_id, day_of_week, open_hour, close_hour) VALUES (?, ?, ?, ?)",
			facilityID, day, 6, 21,
		)
	}
	courtID := exec(
		"INSERT INTO courts (facility_id, name, court_type, position) VALUES (?, ?, ?, ?)",
		facilityID, "Court 1", "tennis", 1,
	)
	exec(
		"INSERT INTO courts (facility_id, name, court_type, position) VALUES (?, ?, ?, ?)",
		facilityID, "Court 2", "pickleball", 2,
	)
	userID := exec("INSERT INTO users (name, email) VALUES (?, ?)", "Alex Owner", "alex@example.com")

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	queries = database.Queries
	clock = &mockClock{now: time.Date(2025, time.June, 9, 9, 0, 0, 0, loc)}

	return gridTestContext{db: database, facilityID: facilityID, courtID: courtID, userID: userID}
}

func (tc gridTestContext) seedBooking(t *testing.T, start, end string, duration int) {
	t.Helper()
	_, err := tc.db.ExecContext(context.Background(),
		`INSERT INTO bookings (facility_id, court_id, user_id, booking_date, start_time, end_time, duration_minutes, status, booking_type)
		 VALUES (?, ?, ?, '2025-06-09', ?, ?, ?, 'confirmed', 'match')`,
		tc.facilityID, tc.courtID, tc.userID, start, end, duration,
	)
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}
}

func TestHandleCourtList(t *testing.T) {
	tc := setupGridTest(t)

	url := fmt.Sprintf("/api/v1/courts?facility_id=%d", tc.facilityID)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	HandleCourtList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Courts []appdb.Court `json:"courts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode courts response: %v", err)
	}
	if len(payload.Courts) != 2 {
		t.Fatalf("courts = %d, want 2", len(payload.Courts))
	}
	if payload.Courts[0].Name != "Court 1" || payload.Courts[1].Name != "Court 2" {
		t.Errorf("court order = %q, %q", payload.Courts[0].Name, payload.Courts[1].Name)
	}
}

func TestHandleCourtListMissingFacility(t *testing.T) {
	setupGridTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courts", nil)
	rec := httptest.NewRecorder()
	HandleCourtList(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleGridView(t *testing.T) {
	tc := setupGridTest(t)
	tc.seedBooking(t, "14:00:00", "14:45:00", 45)

	// A tomorrow date renders the full grid regardless of the clock.
	url := fmt.Sprintf("/api/v1/grid?facility_id=%d&date=2025-06-10", tc.facilityID)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	HandleGridView(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var grid GridResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &grid); err != nil {
		t.Fatalf("decode grid response: %v", err)
	}
	if len(grid.Slots) != 64 {
		t.Errorf("slots = %d, want 64", len(grid.Slots))
	}
	if grid.Slots[0] != "6:00 AM" || grid.Slots[len(grid.Slots)-1] != "9:45 PM" {
		t.Errorf("slot bounds = %q..%q", grid.Slots[0], grid.Slots[len(grid.Slots)-1])
	}
	if len(grid.Courts) != 2 {
		t.Errorf("courts = %d, want 2", len(grid.Courts))
	}
}

func TestHandleGridViewOccupancy(t *testing.T) {
	tc := setupGridTest(t)
	tc.seedBooking(t, "14:00:00", "14:45:00", 45)

	url := fmt.Sprintf("/api/v1/grid?facility_id=%d&date=2025-06-09", tc.facilityID)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	HandleGridView(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var grid GridResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &grid); err != nil {
		t.Fatalf("decode grid response: %v", err)
	}

	// The clock reads 9:00 AM, so slots through 9:00 AM have elapsed.
	if grid.Slots[0] != "9:15 AM" {
		t.Errorf("first slot = %q, want 9:15 AM", grid.Slots[0])
	}

	occupied := grid.Occupancy["Court 1"]
	for _, slot := range []string{"2:00 PM", "2:15 PM", "2:30 PM"} {
		cell, ok := occupied[slot]
		if !ok {
			t.Errorf("slot %q not occupied", slot)
			continue
		}
		if cell.SlotsSpanned != 3 {
			t.Errorf("slot %q spans = %d, want 3", slot, cell.SlotsSpanned)
		}
	}
	if _, ok := occupied["2:45 PM"]; ok {
		t.Error("slot 2:45 PM should be free")
	}
	if len(grid.Occupancy["Court 2"]) != 0 {
		t.Error("Court 2 should be empty")
	}
}

func TestHandleGridViewUnknownFacility(t *testing.T) {
	setupGridTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/grid?facility_id=999&date=2025-06-09", nil)
	rec := httptest.NewRecorder()
	HandleGridView(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
