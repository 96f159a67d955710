package db

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same queries run
// standalone or inside RunInTx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const bookingColumns = `id, facility_id, court_id, user_id, booking_date,
	start_time, end_time, duration_minutes, status, booking_type, notes,
	created_at, updated_at`

// activeStatusIn is the literal IN list the active-booking queries embed,
// derived from ActiveBookingStatuses so the two never drift apart.
var activeStatusIn = "('" + strings.Join(ActiveBookingStatuses, "', '") + "')"

func scanBooking(row interface{ Scan(...any) error }) (Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.FacilityID, &b.CourtID, &b.UserID, &b.BookingDate,
		&b.StartTime, &b.EndTime, &b.DurationMinutes, &b.Status,
		&b.BookingType, &b.Notes, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

type CreateBookingParams struct {
	FacilityID      int64
	CourtID         int64
	UserID          int64
	BookingDate     string
	StartTime       string
	EndTime         string
	DurationMinutes int64
	Status          string
	BookingType     string
	Notes           string
}

func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) (Booking, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO bookings (
			facility_id, court_id, user_id, booking_date, start_time,
			end_time, duration_minutes, status, booking_type, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+bookingColumns,
		arg.FacilityID, arg.CourtID, arg.UserID, arg.BookingDate,
		arg.StartTime, arg.EndTime, arg.DurationMinutes, arg.Status,
		arg.BookingType, arg.Notes,
	)
	return scanBooking(row)
}

func (q *Queries) GetBookingByID(ctx context.Context, id int64) (Booking, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

type ListActiveBookingsByCourtDateParams struct {
	CourtID     int64
	BookingDate string
}

// ListActiveBookingsByCourtDate returns confirmed and pending bookings for
// one court/date ordered by start time. Cancelled and completed bookings are
// excluded; they never participate in overlap checks.
func (q *Queries) ListActiveBookingsByCourtDate(ctx context.Context, arg ListActiveBookingsByCourtDateParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE court_id = ? AND booking_date = ?
		  AND status IN `+activeStatusIn+`
		ORDER BY start_time`,
		arg.CourtID, arg.BookingDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

type ListActiveBookingsByFacilityDateParams struct {
	FacilityID  int64
	BookingDate string
}

func (q *Queries) ListActiveBookingsByFacilityDate(ctx context.Context, arg ListActiveBookingsByFacilityDateParams) ([]BookingWithCourt, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT b.id, b.facility_id, b.court_id, b.user_id, b.booking_date,
			b.start_time, b.end_time, b.duration_minutes, b.status,
			b.booking_type, b.notes, b.created_at, b.updated_at, c.name
		FROM bookings b
		JOIN courts c ON c.id = b.court_id
		WHERE b.facility_id = ? AND b.booking_date = ?
		  AND b.status IN `+activeStatusIn+`
		ORDER BY c.position, c.name, b.start_time`,
		arg.FacilityID, arg.BookingDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []BookingWithCourt
	for rows.Next() {
		var b BookingWithCourt
		if err := rows.Scan(
			&b.ID, &b.FacilityID, &b.CourtID, &b.UserID, &b.BookingDate,
			&b.StartTime, &b.EndTime, &b.DurationMinutes, &b.Status,
			&b.BookingType, &b.Notes, &b.CreatedAt, &b.UpdatedAt, &b.CourtName,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

type UpdateBookingTimesParams struct {
	ID              int64
	CourtID         int64
	BookingDate     string
	StartTime       string
	EndTime         string
	DurationMinutes int64
	BookingType     string
	Notes           string
}

// UpdateBookingTimes rewrites a booking's range in place, preserving its id
// and audit trail.
func (q *Queries) UpdateBookingTimes(ctx context.Context, arg UpdateBookingTimesParams) (Booking, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE bookings
		SET court_id = ?, booking_date = ?, start_time = ?, end_time = ?,
			duration_minutes = ?, booking_type = ?, notes = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING `+bookingColumns,
		arg.CourtID, arg.BookingDate, arg.StartTime, arg.EndTime,
		arg.DurationMinutes, arg.BookingType, arg.Notes, arg.ID,
	)
	return scanBooking(row)
}

type SetBookingStatusParams struct {
	ID     int64
	Status string
}

func (q *Queries) SetBookingStatus(ctx context.Context, arg SetBookingStatusParams) (Booking, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE bookings
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING `+bookingColumns,
		arg.Status, arg.ID,
	)
	return scanBooking(row)
}

type CompleteElapsedBookingsParams struct {
	FacilityID  int64
	BookingDate string
	EndTime     string
}

// CompleteElapsedBookings flips confirmed bookings whose end has passed in
// the facility's zone to completed, returning the number updated.
func (q *Queries) CompleteElapsedBookings(ctx context.Context, arg CompleteElapsedBookingsParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'completed', updated_at = CURRENT_TIMESTAMP
		WHERE facility_id = ? AND status = 'confirmed'
		  AND (booking_date < ? OR (booking_date = ? AND end_time <= ?))`,
		arg.FacilityID, arg.BookingDate, arg.BookingDate, arg.EndTime,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (q *Queries) GetFacilityByID(ctx context.Context, id int64) (Facility, error) {
	var f Facility
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, slug, timezone, created_at FROM facilities WHERE id = ?`, id,
	).Scan(&f.ID, &f.Name, &f.Slug, &f.Timezone, &f.CreatedAt)
	return f, err
}

func (q *Queries) ListFacilities(ctx context.Context) ([]Facility, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, slug, timezone, created_at FROM facilities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facilities []Facility
	for rows.Next() {
		var f Facility
		if err := rows.Scan(&f.ID, &f.Name, &f.Slug, &f.Timezone, &f.CreatedAt); err != nil {
			return nil, err
		}
		facilities = append(facilities, f)
	}
	return facilities, rows.Err()
}

func (q *Queries) GetCourtByID(ctx context.Context, id int64) (Court, error) {
	var c Court
	err := q.db.QueryRowContext(ctx,
		`SELECT id, facility_id, name, court_type, position FROM courts WHERE id = ?`, id,
	).Scan(&c.ID, &c.FacilityID, &c.Name, &c.CourtType, &c.Position)
	return c, err
}

func (q *Queries) ListCourts(ctx context.Context, facilityID int64) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, facility_id, name, court_type, position
		FROM courts WHERE facility_id = ?
		ORDER BY position, name`,
		facilityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courts []Court
	for rows.Next() {
		var c Court
		if err := rows.Scan(&c.ID, &c.FacilityID, &c.Name, &c.CourtType, &c.Position); err != nil {
			return nil, err
		}
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

type GetOperatingHoursParams struct {
	FacilityID int64
	DayOfWeek  int64
}

func (q *Queries) GetOperatingHours(ctx context.Context, arg GetOperatingHoursParams) (OperatingHours, error) {
	var h OperatingHours
	err := q.db.QueryRowContext(ctx, `
		SELECT id, facility_id, day_of_week, open_hour, close_hour
		FROM operating_hours
		WHERE facility_id = ? AND day_of_week = ?`,
		arg.FacilityID, arg.DayOfWeek,
	).Scan(&h.ID, &h.FacilityID, &h.DayOfWeek, &h.OpenHour, &h.CloseHour)
	return h, err
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, email, is_staff FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.IsStaff)
	return u, err
}
