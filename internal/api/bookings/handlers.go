// Package bookings exposes the booking lifecycle over the JSON API.
package bookings

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rallydesk/rallydesk/internal/api/apiutil"
	"github.com/rallydesk/rallydesk/internal/authz"
	"github.com/rallydesk/rallydesk/internal/booking"
	appdb "github.com/rallydesk/rallydesk/internal/db"
	"github.com/rallydesk/rallydesk/internal/schedule"
)

var (
	manager  *booking.Manager
	queries  *appdb.Queries
	initOnce sync.Once
)

const bookingQueryTimeout = 5 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(m *booking.Manager, database *appdb.DB) {
	if m == nil || database == nil {
		return
	}
	initOnce.Do(func() {
		manager = m
		queries = database.Queries
	})
}

func loadManager() *booking.Manager { return manager }
func loadQueries() *appdb.Queries   { return queries }

// POST /api/v1/bookings
func HandleBookingCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	m := loadManager()
	if m == nil {
		logger.Error().Msg("Booking manager not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error", "internal_error")
		return
	}

	identity, err := authz.RequireIdentity(r.Context())
	if err != nil {
		apiutil.WriteError(w, http.StatusUnauthorized, "Authentication required", "unauthenticated")
		return
	}

	var req booking.CreateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteHandlerError(w, err)
		return
	}

	// Non-staff callers may only book for themselves.
	if req.UserID == 0 {
		req.UserID = identity.UserID
	}
	if !identity.IsStaff && req.UserID != identity.UserID {
		apiutil.WriteError(w, http.StatusForbidden, "Cannot book on behalf of another user", "forbidden")
		return
	}

	created, err := m.Create(r.Context(), req)
	if err != nil {
		writeBookingError(w, r, err)
		return
	}

	logger.Info().
		Int64("booking_id", created.ID).
		Int64("court_id", created.CourtID).
		Str("date", created.BookingDate).
		Msg("Booking created")
	apiutil.WriteJSON(w, http.StatusCreated, created)
}

// GET /api/v1/bookings/{id}
func HandleBookingGet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := loadQueries()
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error", "internal_error")
		return
	}

	identity, err := authz.RequireIdentity(r.Context())
	if err != nil {
		apiutil.WriteError(w, http.StatusUnauthorized, "Authentication required", "unauthenticated")
		return
	}

	bookingID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteHandlerError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	found, err := q.GetBookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteError(w, http.StatusNotFound, "Booking not found", "not_found")
			return
		}
		logger.Error().Err(err).Int64("booking_id", bookingID).Msg("Failed to load booking")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to load booking", "internal_error")
		return
	}

	if !authz.CanActOn(identity, found.UserID) {
		apiutil.WriteError(w, http.StatusForbidden, "Forbidden", "forbidden")
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, found)
}

// GET /api/v1/bookings?facility_id=&date=
func HandleBookingList(w http.ResponseWriter, r *http.Request) {
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
	if _, err := time.Parse(schedule.StorageDateLayout, date); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "date must be formatted YYYY-MM-DD", "validation_failed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	rows, err := q.ListActiveBookingsByFacilityDate(ctx, appdb.ListActiveBookingsByFacilityDateParams{
		FacilityID:  facilityID,
		BookingDate: date,
	})
	if err != nil {
		logger.Error().Err(err).Int64("facility_id", facilityID).Str("date", date).Msg("Failed to list bookings")
		apiutil.WriteError(w, http.StatusInternalServerError, "Failed to list bookings", "internal_error")
		return
	}
	if rows == nil {
		rows = []appdb.BookingWithCourt{}
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]any{"bookings": rows})
}

// PUT /api/v1/bookings/{id}
func HandleBookingModify(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	m := loadManager()
	if m == nil {
		logger.Error().Msg("Booking manager not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error", "internal_error")
		return
	}

	identity := authz.IdentityFromContext(r.Context())

	bookingID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteHandlerError(w, err)
		return
	}

	var req booking.ModifyRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteHandlerError(w, err)
		return
	}

	updated, err := m.Modify(r.Context(), bookingID, identity, req)
	if err != nil {
		writeBookingError(w, r, err)
		return
	}

	logger.Info().
		Int64("booking_id", updated.ID).
		Str("date", updated.BookingDate).
		Str("start_time", updated.StartTime).
		Msg("Booking modified")
	apiutil.WriteJSON(w, http.StatusOK, updated)
}

// DELETE /api/v1/bookings/{id}
func HandleBookingCancel(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	m := loadManager()
	if m == nil {
		logger.Error().Msg("Booking manager not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error", "internal_error")
		return
	}

	identity := authz.IdentityFromContext(r.Context())

	bookingID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteHandlerError(w, err)
		return
	}

	cancelled, err := m.Cancel(r.Context(), bookingID, identity)
	if err != nil {
		writeBookingError(w, r, err)
		return
	}

	logger.Info().Int64("booking_id", cancelled.ID).Msg("Booking cancelled")
	apiutil.WriteJSON(w, http.StatusOK, cancelled)
}

// writeBookingError maps manager errors onto HTTP statuses. Conflicts carry
// the existing booking's range so clients can offer an alternative slot.
func writeBookingError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	var validationErr booking.ValidationError
	var conflictErr booking.ConflictError
	var integrityErr schedule.IntegrityError

	switch {
	case errors.As(err, &validationErr):
		apiutil.WriteJSON(w, http.StatusBadRequest, apiutil.ErrorBody{
			Error: validationErr.Error(),
			Code:  "validation_failed",
			Field: validationErr.Field,
		})
	case errors.Is(err, booking.ErrPastStart):
		apiutil.WriteError(w, http.StatusBadRequest, "Booking start is in the past", "past_start_time")
	case errors.As(err, &conflictErr):
		apiutil.WriteJSON(w, http.StatusConflict, apiutil.ErrorBody{
			Error: "Requested range conflicts with an existing booking",
			Code:  "booking_conflict",
			Conflict: &apiutil.ConflictDetail{
				BookingID: conflictErr.BookingID,
				StartTime: conflictErr.Start,
				EndTime:   conflictErr.End,
			},
		})
	case errors.Is(err, booking.ErrNotFound):
		apiutil.WriteError(w, http.StatusNotFound, "Booking not found", "not_found")
	case errors.Is(err, booking.ErrNotCancellable):
		apiutil.WriteError(w, http.StatusConflict, "Booking has already started", "not_cancellable")
	case errors.Is(err, booking.ErrTerminalStatus):
		apiutil.WriteError(w, http.StatusConflict, "Booking is cancelled or completed", "terminal_status")
	case errors.Is(err, authz.ErrUnauthenticated):
		apiutil.WriteError(w, http.StatusUnauthorized, "Authentication required", "unauthenticated")
	case errors.Is(err, authz.ErrForbidden):
		apiutil.WriteError(w, http.StatusForbidden, "Forbidden", "forbidden")
	case errors.As(err, &integrityErr):
		logger.Error().Err(err).Msg("Stored bookings violate slot exclusivity")
		apiutil.WriteError(w, http.StatusInternalServerError, "Schedule data is inconsistent", "internal_error")
	default:
		logger.Error().Err(err).Msg("Booking operation failed")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error", "internal_error")
	}
}
