// Package courts serves court listings and the daily availability grid.
package courts

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

const courtsQueryTimeout = 5 * time.Second

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

// GET /api/v1/courts?facility_id=
func HandleCourtList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error", "internal_error")
		return
	}

	facilityID, err := apiutil.FacilityIDFromQuery(r)
	if err != nil {
		apiutil.WriteHandlerError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	courts, err := q.ListCourts(ctx, facilityID)
	if err != nil {
		logger.Error().Err(err).Int64("facility_id", facilityID).Msg("Failed to list courts")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to list courts", "internal_error")
		return
	}
	if courts == nil {
		courts = []appdb.Court{}
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"courts": courts})
}

// GridResponse is the rendered availability grid for one facility and date.
// Slots are display labels in facility-local time, trimmed to the remainder
// of the day when the date is today.
type GridResponse struct {
	FacilityID int64              `json:"facility_id"`
	Date       string             `json:"date"`
	Slots      []string           `json:"slots"`
	Courts     []appdb.Court      `json:"courts"`
	Occupancy  schedule.Occupancy `json:"occupancy"`
}

// GET /api/v1/grid?facility_id=&date=
func HandleGridView(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error", "internal_error")
		return
	}

	facilityID, err := apiutil.FacilityIDFromQuery(r)
	if err != nil {
		apiutil.WriteHandlerError(w, err)
		return
	}

	date := r.URL.Query().Get("date")
	parsedDate, err := time.Parse(schedule.StorageDateLayout, date)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "date must be formatted YYYY-MM-DD", "validation_failed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), courtsQueryTimeout)
	defer cancel()

	facility, err := q.GetFacilityByID(ctx, facilityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Facility not found", "not_found")
			return
		}
		logger.Error().Err(err).Int64("facility_id", facilityID).Msg("Failed to load facility")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load facility", "internal_error")
		return
	}

	hours, err := q.GetOperatingHours(ctx, appdb.GetOperatingHoursParams{
		FacilityID: facilityID,
		DayOfWeek:  int64(parsedDate.Weekday()),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Facility is closed that day", "facility_closed")
			return
		}
		logger.Error().Err(err).Int64("facility_id", facilityID).Msg("Failed to load operating hours")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load operating hours", "internal_error")
		return
	}

	grid, err := schedule.NewSlotGrid(int(hours.OpenHour), int(hours.CloseHour))
	if err != nil {
		logger.Error().Err(err).Int64("facility_id", facilityID).Msg("Stored operating hours are invalid")
		apiutil.WriteError(w, http.StatusInternalServerError, "Operating hours are invalid", "internal_error")
		return
	}

	facilityClock, err := schedule.NewFacilityClock(facility.Timezone, clock)
	if err != nil {
		logger.Error().Err(err).Str("timezone", facility.Timezone).Msg("Failed to load facility timezone")
		apiutil.WriteError(w, http.StatusInternalServerError, "Facility timezone is invalid", "internal_error")
		return
	}

	courts, err := q.ListCourts(ctx, facilityID)
	if err != nil {
		logger.Error().Err(err).Int64("facility_id", facilityID).Msg("Failed to list courts")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to list courts", "internal_error")
		return
	}
	if courts == nil {
		courts = []appdb.Court{}
	}

	rows, err := q.ListActiveBookingsByFacilityDate(ctx, appdb.ListActiveBookingsByFacilityDateParams{
		FacilityID:  facilityID,
		BookingDate: date,
	})
	if err != nil {
		logger.Error().Err(err).Int64("facility_id", facilityID).Str("date", date).Msg("Failed to list bookings for grid")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load bookings", "internal_error")
		return
	}

	active := make([]schedule.ActiveBooking, 0, len(rows))
	for _, row := range rows {
		active = append(active, schedule.ActiveBooking{
			ID:              row.ID,
			CourtName:       row.CourtName,
			StartTime:       row.StartTime,
			DurationMinutes: int(row.DurationMinutes),
			Status:          row.Status,
			BookingType:     row.BookingType,
		})
	}

	occupancy, err := schedule.BuildOccupancy(active)
	if err != nil {
		logger.Error().Err(err).Int64("facility_id", facilityID).Str("date", date).Msg("Stored bookings violate slot exclusivity")
		apiutil.WriteError(w, http.StatusInternalServerError, "Schedule data is inconsistent", "internal_error")
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, GridResponse{
		FacilityID: facilityID,
		Date:       date,
		Slots:      grid.VisibleSlots(date, facilityClock),
		Courts:     courts,
		Occupancy:  occupancy,
	})
}
