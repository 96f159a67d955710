// Package booking orchestrates the booking lifecycle: create, cancel, and
// modify, each gated by the conflict check inside the same transaction as the
// write.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rallydesk/rallydesk/internal/authz"
	appdb "github.com/rallydesk/rallydesk/internal/db"
	"github.com/rallydesk/rallydesk/internal/schedule"
)

// Manager runs booking lifecycle operations against the store. All writes go
// through RunInTx, which opens immediate-mode SQLite transactions, so the
// conflict check and the write form one atomic unit: of two concurrent
// overlapping creates, exactly one commits and the other sees the winner's
// row during its own conflict check.
type Manager struct {
	store       *appdb.DB
	clock       schedule.Clock
	defaultZone string
}

func NewManager(store *appdb.DB, clock schedule.Clock, defaultZone string) (*Manager, error) {
	if store == nil {
		return nil, errors.New("booking manager requires a database")
	}
	if clock == nil {
		clock = schedule.SystemClock()
	}
	if defaultZone == "" {
		defaultZone = schedule.DefaultFacilityZone
	}
	return &Manager{store: store, clock: clock, defaultZone: defaultZone}, nil
}

// CreateRequest is a candidate booking. End time is derived, never supplied:
// end == start + duration.
type CreateRequest struct {
	FacilityID      int64  `json:"facility_id"`
	CourtID         int64  `json:"court_id"`
	UserID          int64  `json:"user_id"`
	Date            string `json:"booking_date"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	BookingType     string `json:"booking_type"`
	Notes           string `json:"notes"`
}

// ModifyRequest carries the new range for an existing booking. Zero values
// keep the current field.
type ModifyRequest struct {
	CourtID         int64   `json:"court_id"`
	Date            string  `json:"booking_date"`
	StartTime       string  `json:"start_time"`
	DurationMinutes int     `json:"duration_minutes"`
	BookingType     string  `json:"booking_type"`
	Notes           *string `json:"notes"`
}

// Create validates the candidate, rejects past starts, and persists a
// confirmed booking if no active booking on the same court/date overlaps.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (appdb.Booking, error) {
	if err := validateCreate(req); err != nil {
		return appdb.Booking{}, err
	}
	if req.BookingType == "" {
		req.BookingType = "match"
	}

	facility, err := m.store.Queries.GetFacilityByID(ctx, req.FacilityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appdb.Booking{}, ValidationError{Field: "facility_id", Reason: "does not exist"}
		}
		return appdb.Booking{}, fmt.Errorf("load facility: %w", err)
	}
	court, err := m.store.Queries.GetCourtByID(ctx, req.CourtID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appdb.Booking{}, ValidationError{Field: "court_id", Reason: "does not exist"}
		}
		return appdb.Booking{}, fmt.Errorf("load court: %w", err)
	}
	if court.FacilityID != req.FacilityID {
		return appdb.Booking{}, ValidationError{Field: "court_id", Reason: "belongs to a different facility"}
	}

	clock, err := m.facilityClock(facility)
	if err != nil {
		return appdb.Booking{}, err
	}

	endTime, err := schedule.AddMinutes(req.StartTime, req.DurationMinutes)
	if err != nil {
		return appdb.Booking{}, ValidationError{Field: "start_time", Reason: "must be a valid 24-hour time"}
	}

	if err := checkOperatingHours(ctx, m.store.Queries, req.FacilityID, req.Date, req.StartTime, endTime); err != nil {
		return appdb.Booking{}, err
	}

	past, err := clock.IsPastStart(req.Date, req.StartTime)
	if err != nil {
		return appdb.Booking{}, ValidationError{Field: "start_time", Reason: "must be a valid 24-hour time"}
	}
	if past {
		return appdb.Booking{}, ErrPastStart
	}

	var created appdb.Booking
	err = m.store.RunInTx(ctx, func(txdb *appdb.DB) error {
		if err := checkConflict(ctx, txdb.Queries, req.CourtID, req.Date, req.StartTime, endTime, 0); err != nil {
			return err
		}

		var err error
		created, err = txdb.Queries.CreateBooking(ctx, appdb.CreateBookingParams{
			FacilityID:      req.FacilityID,
			CourtID:         req.CourtID,
			UserID:          req.UserID,
			BookingDate:     req.Date,
			StartTime:       req.StartTime,
			EndTime:         endTime,
			DurationMinutes: int64(req.DurationMinutes),
			Status:          appdb.BookingStatusConfirmed,
			BookingType:     req.BookingType,
			Notes:           req.Notes,
		})
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return appdb.Booking{}, err
	}

	log.Ctx(ctx).Info().
		Int64("booking_id", created.ID).
		Int64("court_id", created.CourtID).
		Str("date", created.BookingDate).
		Str("start", created.StartTime).
		Str("end", created.EndTime).
		Msg("Booking created")
	return created, nil
}

// Cancel soft-deletes a booking: a status flip, never a row removal, so the
// audit trail survives. Only the owner or staff may cancel, and only while
// the start is still in the future. Cancelling an already-cancelled booking
// is a no-op success.
func (m *Manager) Cancel(ctx context.Context, bookingID int64, actor *authz.Identity) (appdb.Booking, error) {
	if actor == nil {
		return appdb.Booking{}, authz.ErrUnauthenticated
	}

	var cancelled appdb.Booking
	err := m.store.RunInTx(ctx, func(txdb *appdb.DB) error {
		current, err := txdb.Queries.GetBookingByID(ctx, bookingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("load booking: %w", err)
		}

		if !authz.CanActOn(actor, current.UserID) {
			return authz.ErrForbidden
		}
		if current.Status == appdb.BookingStatusCancelled {
			cancelled = current
			return nil
		}
		if current.Status == appdb.BookingStatusCompleted {
			return ErrTerminalStatus
		}

		clock, err := m.facilityClockByID(ctx, txdb.Queries, current.FacilityID)
		if err != nil {
			return err
		}
		past, err := clock.IsPastStart(current.BookingDate, current.StartTime)
		if err != nil {
			return fmt.Errorf("parse booking start: %w", err)
		}
		if past {
			return ErrNotCancellable
		}

		cancelled, err = txdb.Queries.SetBookingStatus(ctx, appdb.SetBookingStatusParams{
			ID:     bookingID,
			Status: appdb.BookingStatusCancelled,
		})
		if err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return appdb.Booking{}, err
	}

	log.Ctx(ctx).Info().
		Int64("booking_id", cancelled.ID).
		Int64("user_id", actor.UserID).
		Msg("Booking cancelled")
	return cancelled, nil
}

// Modify rewrites a booking's range as one atomic conditional update: the
// booking keeps its id and audit trail, and the conflict check excludes the
// booking's own row. There is no cancel-then-recreate window in which the
// freed slot could be claimed by someone else.
func (m *Manager) Modify(ctx context.Context, bookingID int64, actor *authz.Identity, req ModifyRequest) (appdb.Booking, error) {
	if actor == nil {
		return appdb.Booking{}, authz.ErrUnauthenticated
	}

	var updated appdb.Booking
	err := m.store.RunInTx(ctx, func(txdb *appdb.DB) error {
		current, err := txdb.Queries.GetBookingByID(ctx, bookingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("load booking: %w", err)
		}

		if !authz.CanActOn(actor, current.UserID) {
			return authz.ErrForbidden
		}
		if current.Status == appdb.BookingStatusCancelled || current.Status == appdb.BookingStatusCompleted {
			return ErrTerminalStatus
		}

		next := mergeModify(current, req)
		if err := validateCreate(CreateRequest{
			FacilityID:      current.FacilityID,
			CourtID:         next.CourtID,
			UserID:          current.UserID,
			Date:            next.BookingDate,
			StartTime:       next.StartTime,
			DurationMinutes: int(next.DurationMinutes),
			BookingType:     next.BookingType,
		}); err != nil {
			return err
		}

		court, err := txdb.Queries.GetCourtByID(ctx, next.CourtID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ValidationError{Field: "court_id", Reason: "does not exist"}
			}
			return fmt.Errorf("load court: %w", err)
		}
		if court.FacilityID != current.FacilityID {
			return ValidationError{Field: "court_id", Reason: "belongs to a different facility"}
		}

		endTime, err := schedule.AddMinutes(next.StartTime, int(next.DurationMinutes))
		if err != nil {
			return ValidationError{Field: "start_time", Reason: "must be a valid 24-hour time"}
		}

		clock, err := m.facilityClockByID(ctx, txdb.Queries, current.FacilityID)
		if err != nil {
			return err
		}
		if err := checkOperatingHours(ctx, txdb.Queries, current.FacilityID, next.BookingDate, next.StartTime, endTime); err != nil {
			return err
		}
		past, err := clock.IsPastStart(next.BookingDate, next.StartTime)
		if err != nil {
			return ValidationError{Field: "start_time", Reason: "must be a valid 24-hour time"}
		}
		if past {
			return ErrPastStart
		}

		if err := checkConflict(ctx, txdb.Queries, next.CourtID, next.BookingDate, next.StartTime, endTime, bookingID); err != nil {
			return err
		}

		updated, err = txdb.Queries.UpdateBookingTimes(ctx, appdb.UpdateBookingTimesParams{
			ID:              bookingID,
			CourtID:         next.CourtID,
			BookingDate:     next.BookingDate,
			StartTime:       next.StartTime,
			EndTime:         endTime,
			DurationMinutes: next.DurationMinutes,
			BookingType:     next.BookingType,
			Notes:           next.Notes,
		})
		if err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return appdb.Booking{}, err
	}

	log.Ctx(ctx).Info().
		Int64("booking_id", updated.ID).
		Str("date", updated.BookingDate).
		Str("start", updated.StartTime).
		Str("end", updated.EndTime).
		Msg("Booking modified")
	return updated, nil
}

// checkConflict is the single authoritative gate before any write. It runs
// inside the caller's transaction so the answer cannot go stale between check
// and insert. excludeID ignores the booking being edited during modify.
func checkConflict(ctx context.Context, q *appdb.Queries, courtID int64, date, start, end string, excludeID int64) error {
	active, err := q.ListActiveBookingsByCourtDate(ctx, appdb.ListActiveBookingsByCourtDateParams{
		CourtID:     courtID,
		BookingDate: date,
	})
	if err != nil {
		return fmt.Errorf("list active bookings: %w", err)
	}

	eligible := make([]appdb.Booking, 0, len(active))
	ranges := make([]schedule.TimeRange, 0, len(active))
	for _, existing := range active {
		if existing.ID == excludeID {
			continue
		}
		eligible = append(eligible, existing)
		ranges = append(ranges, schedule.TimeRange{Start: existing.StartTime, End: existing.EndTime})
	}

	if i, ok := schedule.FirstOverlap(schedule.TimeRange{Start: start, End: end}, ranges); ok {
		hit := eligible[i]
		return ConflictError{
			BookingID: hit.ID,
			Start:     hit.StartTime,
			End:       hit.EndTime,
		}
	}
	return nil
}

func checkOperatingHours(ctx context.Context, q *appdb.Queries, facilityID int64, date, start, end string) error {
	weekday, err := weekdayOf(date)
	if err != nil {
		return ValidationError{Field: "booking_date", Reason: "must be a valid date"}
	}

	hours, err := q.GetOperatingHours(ctx, appdb.GetOperatingHoursParams{
		FacilityID: facilityID,
		DayOfWeek:  int64(weekday),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ValidationError{Field: "booking_date", Reason: "facility is closed that day"}
		}
		return fmt.Errorf("load operating hours: %w", err)
	}

	startMin, err := schedule.MinutesOfDay(start)
	if err != nil {
		return ValidationError{Field: "start_time", Reason: "must be a valid 24-hour time"}
	}
	endMin, err := schedule.MinutesOfDay(end)
	if err != nil {
		return ValidationError{Field: "start_time", Reason: "must be a valid 24-hour time"}
	}

	// The bookable window runs from the opening hour through the end of the
	// closing hour's last slot.
	if startMin < int(hours.OpenHour)*60 || endMin > int(hours.CloseHour+1)*60 {
		return ValidationError{Field: "start_time", Reason: "falls outside operating hours"}
	}
	return nil
}

func (m *Manager) facilityClock(facility appdb.Facility) (*schedule.FacilityClock, error) {
	zone := facility.Timezone
	if zone == "" {
		zone = m.defaultZone
	}
	clock, err := schedule.NewFacilityClock(zone, m.clock)
	if err != nil {
		return nil, fmt.Errorf("facility %d: %w", facility.ID, err)
	}
	return clock, nil
}

func (m *Manager) facilityClockByID(ctx context.Context, q *appdb.Queries, facilityID int64) (*schedule.FacilityClock, error) {
	facility, err := q.GetFacilityByID(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("load facility: %w", err)
	}
	return m.facilityClock(facility)
}

func validateCreate(req CreateRequest) error {
	switch {
	case req.FacilityID <= 0:
		return ValidationError{Field: "facility_id", Reason: "must be a positive integer"}
	case req.CourtID <= 0:
		return ValidationError{Field: "court_id", Reason: "must be a positive integer"}
	case req.UserID <= 0:
		return ValidationError{Field: "user_id", Reason: "must be a positive integer"}
	case strings.TrimSpace(req.Date) == "":
		return ValidationError{Field: "booking_date", Reason: "is required"}
	case strings.TrimSpace(req.StartTime) == "":
		return ValidationError{Field: "start_time", Reason: "is required"}
	case req.DurationMinutes <= 0:
		return ValidationError{Field: "duration_minutes", Reason: "must be greater than 0"}
	case req.DurationMinutes%schedule.SlotMinutes != 0:
		return ValidationError{Field: "duration_minutes", Reason: fmt.Sprintf("must be a multiple of %d", schedule.SlotMinutes)}
	}

	if _, err := time.Parse(schedule.StorageDateLayout, req.Date); err != nil {
		return ValidationError{Field: "booking_date", Reason: "must be a valid date"}
	}
	startMin, err := schedule.MinutesOfDay(req.StartTime)
	if err != nil {
		return ValidationError{Field: "start_time", Reason: "must be a valid 24-hour time"}
	}
	if startMin%schedule.SlotMinutes != 0 {
		return ValidationError{Field: "start_time", Reason: fmt.Sprintf("must sit on a %d-minute boundary", schedule.SlotMinutes)}
	}
	return nil
}

func mergeModify(current appdb.Booking, req ModifyRequest) appdb.Booking {
	next := current
	if req.CourtID > 0 {
		next.CourtID = req.CourtID
	}
	if strings.TrimSpace(req.Date) != "" {
		next.BookingDate = req.Date
	}
	if strings.TrimSpace(req.StartTime) != "" {
		next.StartTime = req.StartTime
	}
	if req.DurationMinutes > 0 {
		next.DurationMinutes = int64(req.DurationMinutes)
	}
	if strings.TrimSpace(req.BookingType) != "" {
		next.BookingType = req.BookingType
	}
	if req.Notes != nil {
		next.Notes = *req.Notes
	}
	return next
}

func weekdayOf(date string) (time.Weekday, error) {
	parsed, err := time.Parse(schedule.StorageDateLayout, date)
	if err != nil {
		return 0, err
	}
	return parsed.Weekday(), nil
}
