// Package schedule implements the slot-based scheduling core: facility-zone
// time handling, slot grid generation, per-slot availability, overlap
// detection, and drag-selection aggregation.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

const (
	// SlotMinutes is the fixed grid granularity.
	SlotMinutes = 15

	// StorageTimeLayout is the 24-hour format bookings are stored in.
	StorageTimeLayout = "15:04:05"

	// StorageDateLayout is the calendar date format bookings are stored in.
	StorageDateLayout = "2006-01-02"

	// DefaultFacilityZone is used when a facility has no time zone configured.
	DefaultFacilityZone = "America/New_York"
)

// Clock supplies the current time; injected for tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by the system time.
func SystemClock() Clock { return realClock{} }

// FacilityClock resolves "now" and "today" in a facility's home time zone so
// every viewer sees the same answer regardless of their own locale.
type FacilityClock struct {
	loc   *time.Location
	clock Clock
}

// NewFacilityClock loads the named time zone. An empty zone falls back to
// DefaultFacilityZone. A nil clock uses the system time.
func NewFacilityClock(zone string, clock Clock) (*FacilityClock, error) {
	if strings.TrimSpace(zone) == "" {
		zone = DefaultFacilityZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load facility time zone %q: %w", zone, err)
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &FacilityClock{loc: loc, clock: clock}, nil
}

// Now returns the current wall-clock time in the facility zone.
func (c *FacilityClock) Now() time.Time {
	return c.clock.Now().In(c.loc)
}

// Today returns today's calendar date in the facility zone, storage format.
func (c *FacilityClock) Today() string {
	return c.Now().Format(StorageDateLayout)
}

// SameCalendarDay reports whether a and b fall on the same calendar date in
// the facility zone, not in the caller's zone.
func (c *FacilityClock) SameCalendarDay(a, b time.Time) bool {
	a = a.In(c.loc)
	b = b.In(c.loc)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsPastStart reports whether the (date, startTime) pair has already elapsed
// in the facility zone.
func (c *FacilityClock) IsPastStart(date, startTime string) (bool, error) {
	start, err := time.ParseInLocation(StorageDateLayout+" "+StorageTimeLayout, date+" "+startTime, c.loc)
	if err != nil {
		return false, fmt.Errorf("parse booking start: %w", err)
	}
	return !start.After(c.Now()), nil
}

// To12Hour converts a storage time ("14:00:00") to a display label
// ("2:00 PM"). It is a pure function over valid 24-hour inputs.
func To12Hour(storage string) (string, error) {
	t, err := time.Parse(StorageTimeLayout, storage)
	if err != nil {
		return "", fmt.Errorf("parse storage time %q: %w", storage, err)
	}
	return t.Format("3:04 PM"), nil
}

// To24Hour converts a display label ("2:00 PM") back to storage format
// ("14:00:00"). Inverse of To12Hour.
func To24Hour(label string) (string, error) {
	t, err := time.Parse("3:04 PM", strings.TrimSpace(label))
	if err != nil {
		return "", fmt.Errorf("parse slot label %q: %w", label, err)
	}
	return t.Format(StorageTimeLayout), nil
}

// MinutesOfDay returns the minute offset from midnight for a storage time.
// Only canonical zero-padded HH:MM:SS is accepted: stored times compare
// lexicographically, so an unpadded hour like "9:30:00" would sort before
// "10:00:00" and slip past the overlap check. Hour 24 is allowed only as
// "24:00:00", the end-of-day instant that sorts after every same-day start.
func MinutesOfDay(storage string) (int, error) {
	if len(storage) != len(StorageTimeLayout) {
		return 0, fmt.Errorf("invalid storage time %q", storage)
	}
	for i, c := range storage {
		if i == 2 || i == 5 {
			if c != ':' {
				return 0, fmt.Errorf("invalid storage time %q", storage)
			}
		} else if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid storage time %q", storage)
		}
	}
	hour := int(storage[0]-'0')*10 + int(storage[1]-'0')
	minute := int(storage[3]-'0')*10 + int(storage[4]-'0')
	second := int(storage[6]-'0')*10 + int(storage[7]-'0')
	if hour > 24 || (hour == 24 && minute != 0) || minute > 59 || second != 0 {
		return 0, fmt.Errorf("invalid storage time %q", storage)
	}
	return hour*60 + minute, nil
}

// storageTimeFromMinutes converts a minute offset from midnight to storage
// format. An offset of exactly 24h renders as "24:00:00" rather than wrapping,
// so end times stay lexicographically comparable within one day.
func storageTimeFromMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d:00", minutes/60, minutes%60)
}

// AddMinutes advances a storage time by the given number of minutes.
func AddMinutes(storage string, minutes int) (string, error) {
	base, err := MinutesOfDay(storage)
	if err != nil {
		return "", err
	}
	return storageTimeFromMinutes(base + minutes), nil
}
