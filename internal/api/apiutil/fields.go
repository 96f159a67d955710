package apiutil

import (
	"net/http"
	"strconv"
	"strings"
)

const facilityIDQueryKey = "facility_id"

func ParsePositiveInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, badField(field, "is required")
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, badField(field, "must be greater than 0")
	}
	return value, nil
}

func FacilityIDFromQuery(r *http.Request) (int64, error) {
	return ParsePositiveInt64Field(r.URL.Query().Get(facilityIDQueryKey), facilityIDQueryKey)
}

// PathID parses the named Go 1.22 route wildcard as a positive integer id.
func PathID(r *http.Request, name string) (int64, error) {
	return ParsePositiveInt64Field(r.PathValue(name), name)
}

func badField(field, reason string) error {
	return HandlerError{
		Status: http.StatusBadRequest,
		Code:   "validation_failed",
		Err:    FieldError{Field: field, Reason: reason},
	}
}
