package quiz

import (
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// localDate renders t as a family-local calendar date string.
func localDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// minutesOfDay is t's family-local wall clock as minutes since midnight.
func minutesOfDay(t time.Time, loc *time.Location) int {
	lt := t.In(loc)
	return lt.Hour()*60 + lt.Minute()
}

// parseMinutes converts an "HH:MM" schedule time to minutes since midnight.
// Malformed parts parse as zero, matching how the schedule rows have always
// been interpreted.
func parseMinutes(timeOfDay string) int {
	parts := strings.SplitN(timeOfDay, ":", 2)
	var h, m int
	if len(parts) > 0 {
		h, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 {
		m, _ = strconv.Atoi(parts[1])
	}
	return h*60 + m
}

// dayIndex is the UTC-normalized ordinal day of year (Jan 1 = 1) of a
// YYYY-MM-DD date, used for the deterministic pool rotation.
func dayIndex(forDate string) int {
	t, err := time.ParseInLocation(dateLayout, forDate, time.UTC)
	if err != nil {
		return 0
	}
	return t.YearDay()
}

// endOfDay is 23:59:00 family-local on the given calendar date.
func endOfDay(forDate string, loc *time.Location) time.Time {
	t, err := time.ParseInLocation(dateLayout, forDate, loc)
	if err != nil {
		return time.Time{}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, loc)
}
