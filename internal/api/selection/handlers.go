// Package selection resolves client drag gestures into candidate booking
// ranges against the server's view of availability.
package selection

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rallydesk/rallydesk/internal/api/apiutil"
	appdb "github.com/rallydesk/rallydesk/internal/db"
	"github.com/rallydesk/rallydesk/internal/schedule"
)

var (
	queries     *appdb.Queries
	clock       schedule.Clock
	queriesOnce sync.Once
)

const selectionQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB, clk schedule.Clock) {
	if database == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = database.Queries
		clock = clk
	})
}

func loadQueries() *appdb.Queries { return queries }

// ResolveRequest replays a drag gesture on the server: anchor is where the
// press happened, focus is the last slot the pointer entered. Slot labels use
// the grid's display form, e.g. "2:15 PM".
type ResolveRequest struct {
	FacilityID int64  `json:"facility_id"`
	CourtID    int64  `json:"court_id"`
	Date       string `json:"booking_date"`
	AnchorSlot string `json:"anchor_slot"`
	FocusSlot  string `json:"focus_slot"`
}

// ResolveResponse carries the collapsed candidate range plus the slots it
// covers. Resolvable is false when the press slot is unavailable or the
// selection set came out empty.
type ResolveResponse struct {
	Resolvable bool                     `json:"resolvable"`
	Candidate  *schedule.CandidateRange `json:"candidate,omitempty"`
	Slots      []string                 `json:"slots,omitempty"`
	Date       string                   `json:"booking_date"`
}

// POST /api/v1/selection/resolve
func HandleSelectionResolve(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error", "internal_error")
		return
	}

	var req ResolveRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteHandlerError(w, err)
		return
	}
	if req.FacilityID <= 0 || req.CourtID <= 0 {
		apiutil.WriteError(w, http.StatusBadRequest, "facility_id and court_id must be positive integers", "validation_failed")
		return
	}
	parsedDate, err := time.Parse(schedule.StorageDateLayout, req.Date)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "booking_date must be formatted YYYY-MM-DD", "validation_failed")
		return
	}
	if req.AnchorSlot == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "anchor_slot is required", "validation_failed")
		return
	}
	if req.FocusSlot == "" {
		req.FocusSlot = req.AnchorSlot
	}

	ctx, cancel := context.WithTimeout(r.Context(), selectionQueryTimeout)
	defer cancel()

	facility, err := q.GetFacilityByID(ctx, req.FacilityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Facility not found", "not_found")
			return
		}
		logger.Error().Err(err).Int64("facility_id", req.FacilityID).Msg("Failed to load facility")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load facility", "internal_error")
		return
	}

	court, err := q.GetCourtByID(ctx, req.CourtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Court not found", "not_found")
			return
		}
		logger.Error().Err(err).Int64("court_id", req.CourtID).Msg("Failed to load court")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load court", "internal_error")
		return
	}
	if court.FacilityID != req.FacilityID {
		apiutil.WriteError(w, http.StatusBadRequest, "court does not belong to facility", "validation_failed")
		return
	}

	hours, err := q.GetOperatingHours(ctx, appdb.GetOperatingHoursParams{
		FacilityID: req.FacilityID,
		DayOfWeek:  int64(parsedDate.Weekday()),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Facility is closed that day", "facility_closed")
			return
		}
		logger.Error().Err(err).Int64("facility_id", req.FacilityID).Msg("Failed to load operating hours")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load operating hours", "internal_error")
		return
	}

	grid, err := schedule.NewSlotGrid(int(hours.OpenHour), int(hours.CloseHour))
	if err != nil {
		logger.Error().Err(err).Int64("facility_id", req.FacilityID).Msg("Stored operating hours are invalid")
		apiutil.WriteError(w, http.StatusInternalServerError, "Operating hours are invalid", "internal_error")
		return
	}

	unavailable, err := unavailableSlots(ctx, q, grid, facility, court, req.Date)
	if err != nil {
		var integrityErr schedule.IntegrityError
		if errors.As(err, &integrityErr) {
			logger.Error().Err(err).Msg("Stored bookings violate slot exclusivity")
			apiutil.WriteError(w, http.StatusInternalServerError, "Schedule data is inconsistent", "internal_error")
			return
		}
		logger.Error().Err(err).Int64("court_id", req.CourtID).Str("date", req.Date).Msg("Failed to compute availability")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to compute availability", "internal_error")
		return
	}

	sel := schedule.NewSelection(grid, func(label string) bool {
		return unavailable[label]
	})
	if !sel.Press(req.CourtID, req.AnchorSlot) {
		apiutil.WriteJSON(w, http.StatusOK, ResolveResponse{Resolvable: false, Date: req.Date})
		return
	}
	sel.Enter(req.CourtID, req.FocusSlot)
	slots := sel.Slots()
	candidate, ok := sel.Release()
	if !ok {
		apiutil.WriteJSON(w, http.StatusOK, ResolveResponse{Resolvable: false, Date: req.Date})
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, ResolveResponse{
		Resolvable: true,
		Candidate:  &candidate,
		Slots:      slots,
		Date:       req.Date,
	})
}

// unavailableSlots marks every slot already claimed by an active booking on
// the court, plus slots that have elapsed when the date is today in the
// facility zone.
func unavailableSlots(ctx context.Context, q *appdb.Queries, grid *schedule.SlotGrid, facility appdb.Facility, court appdb.Court, date string) (map[string]bool, error) {
	rows, err := q.ListActiveBookingsByCourtDate(ctx, appdb.ListActiveBookingsByCourtDateParams{
		CourtID:     court.ID,
		BookingDate: date,
	})
	if err != nil {
		return nil, err
	}

	active := make([]schedule.ActiveBooking, 0, len(rows))
	for _, row := range rows {
		active = append(active, schedule.ActiveBooking{
			ID:              row.ID,
			CourtName:       court.Name,
			StartTime:       row.StartTime,
			DurationMinutes: int(row.DurationMinutes),
			Status:          row.Status,
			BookingType:     row.BookingType,
		})
	}
	occupancy, err := schedule.BuildOccupancy(active)
	if err != nil {
		return nil, err
	}

	unavailable := make(map[string]bool)
	for slot := range occupancy[court.Name] {
		unavailable[slot] = true
	}

	facilityClock, err := schedule.NewFacilityClock(facility.Timezone, clock)
	if err != nil {
		return nil, err
	}
	visible := make(map[string]bool, len(grid.Labels()))
	for _, label := range grid.VisibleSlots(date, facilityClock) {
		visible[label] = true
	}
	for _, label := range grid.Labels() {
		if !visible[label] {
			unavailable[label] = true
		}
	}
	return unavailable, nil
}
