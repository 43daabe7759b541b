package model

import (
	"strconv"
	"time"
)

// DateOf truncates t to midnight UTC of its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from the date of a to the date of b.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)) / (24 * time.Hour))
}

func formatCents(c int64) string {
	return strconv.FormatInt(c, 10) + " cents outstanding"
}

func formatDays(d int) string {
	return strconv.Itoa(d) + " days past due"
}
