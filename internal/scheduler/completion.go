package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/rallydesk/rallydesk/internal/db"
	"github.com/rallydesk/rallydesk/internal/schedule"
)

const completionJobTimeout = 2 * time.Minute

// RegisterCompletionJob schedules the sweep that marks confirmed bookings
// whose end time has passed as completed.
func RegisterCompletionJob(database *db.DB, cronExpr string) error {
	if database == nil {
		return fmt.Errorf("completion job requires database")
	}

	jobName := "booking_completion_sweep"
	jobLogger := log.With().
		Str("component", "booking_completion_job").
		Str("job_name", jobName).
		Str("cron", cronExpr).
		Logger()

	_, err := AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), completionJobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		if err := SweepElapsedBookings(ctx, database, time.Now()); err != nil {
			jobLogger.Error().Err(err).Msg("Booking completion sweep failed")
		}
	}, gocron.WithSingletonMode(gocron.LimitModeWait))
	if err != nil {
		return fmt.Errorf("add booking completion job: %w", err)
	}

	jobLogger.Info().Msg("Booking completion job registered")
	return nil
}

// SweepElapsedBookings walks every facility and completes confirmed bookings
// that have already ended in the facility's local time.
func SweepElapsedBookings(ctx context.Context, database *db.DB, now time.Time) error {
	if database == nil {
		return fmt.Errorf("booking completion sweep requires database")
	}

	facilities, err := database.Queries.ListFacilities(ctx)
	if err != nil {
		return fmt.Errorf("list facilities for completion sweep: %w", err)
	}

	logger := log.Ctx(ctx)
	var completedTotal int64
	for _, facility := range facilities {
		facilityLoc := time.Local
		zone := facility.Timezone
		if zone == "" {
			zone = schedule.DefaultFacilityZone
		}
		loadedLoc, loadErr := time.LoadLocation(zone)
		if loadErr != nil {
			logger.Error().Err(loadErr).
				Str("timezone", zone).
				Int64("facility_id", facility.ID).
				Msg("Failed to load facility timezone for completion sweep")
		} else {
			facilityLoc = loadedLoc
		}

		localNow := now.In(facilityLoc)
		completed, err := database.Queries.CompleteElapsedBookings(ctx, db.CompleteElapsedBookingsParams{
			FacilityID:  facility.ID,
			BookingDate: localNow.Format(schedule.StorageDateLayout),
			EndTime:     localNow.Format(schedule.StorageTimeLayout),
		})
		if err != nil {
			return fmt.Errorf("complete elapsed bookings for facility %d: %w", facility.ID, err)
		}
		completedTotal += completed
	}

	logger.Debug().Int64("completed_bookings", completedTotal).Msg("Swept elapsed bookings")
	return nil
}
