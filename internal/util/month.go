package util

import "time"

// MonthWindow returns the first and last calendar day (UTC midnight) of the month containing t
func MonthWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	// day 0 of next month is the last day of this one
	last := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	return first, last
}

// DaysUntil counts whole calendar days from from to to, both taken at UTC midnight
func DaysUntil(from, to time.Time) int {
	f := time.Date(from.UTC().Year(), from.UTC().Month(), from.UTC().Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.UTC().Year(), to.UTC().Month(), to.UTC().Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
