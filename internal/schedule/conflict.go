package schedule

// Overlaps tests half-open interval overlap between [aStart, aEnd) and
// [bStart, bEnd). Times are storage format, which orders lexicographically,
// so two ranges that share only a boundary instant do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && aEnd > bStart
}

// TimeRange is a candidate or existing booking range on one court/date.
type TimeRange struct {
	Start string
	End   string
}

// FirstOverlap returns the index of the first range in existing that
// overlaps candidate.
func FirstOverlap(candidate TimeRange, existing []TimeRange) (int, bool) {
	for i, r := range existing {
		if Overlaps(candidate.Start, candidate.End, r.Start, r.End) {
			return i, true
		}
	}
	return -1, false
}
