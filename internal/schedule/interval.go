package schedule

import "time"

const SessionDuration = time.Hour

// Interval is half-open: Start is occupied, End is not.
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewSlot(start time.Time) Interval {
	return Interval{Start: start, End: start.Add(SessionDuration)}
}

func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

func AnyOverlap(candidate Interval, existing []Interval) bool {
	for _, slot := range existing {
		if candidate.Overlaps(slot) {
			return true
		}
	}
	return false
}
