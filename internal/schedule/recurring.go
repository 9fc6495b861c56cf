package schedule

import "time"

const (
	MinFrequency = 1
	MaxFrequency = 5
	// MaxMonths bounds a single recurring contract.
	MaxMonths    = 24
)

var weekOffsets = map[int][]int{
	1: {0},
	2: {0, 3},
	3: {0, 2, 4},
	4: {0, 2, 4, 6},
	5: {0, 1, 2, 3, 4},
}

func ClampFrequency(frequency int) int {
	if frequency < MinFrequency {
		return MinFrequency
	}
	if frequency > MaxFrequency {
		return MaxFrequency
	}
	return frequency
}

// WeekOffsets returns day offsets from the contract's start weekday for a clamped frequency.
func WeekOffsets(frequency int) []int {
	offsets := weekOffsets[ClampFrequency(frequency)]
	out := make([]int, len(offsets))
	copy(out, offsets)
	return out
}

// RecurringDates walks [start, start+months] in 7-day steps and emits the
// offset days of each week that stay inside the window, earliest first.
// months is capped at MaxMonths.
func RecurringDates(start time.Time, months int, frequency int) []time.Time {
	if months <= 0 {
		return []time.Time{}
	}
	if months > MaxMonths {
		months = MaxMonths
	}

	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end := AddMonths(start, months)
	offsets := WeekOffsets(frequency)

	dates := make([]time.Time, 0, len(offsets)*(months*31/7+1))
	for weekStart := start; !weekStart.After(end); weekStart = weekStart.AddDate(0, 0, 7) {
		for _, offset := range offsets {
			day := weekStart.AddDate(0, 0, offset)
			if day.Before(start) || day.After(end) {
				continue
			}
			dates = append(dates, day)
		}
	}
	return dates
}
