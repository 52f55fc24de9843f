package features

import (
	"regexp"
	"strconv"
	"time"
)

var (
	// Day-first dates such as 10/05/2024, 10-05-24 or 1/5/2024.
	dayFirstDate = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})\b`)
	// ISO dates such as 2024-05-10.
	isoDate = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

// ExtractDates returns every valid calendar date embedded in text, in order
// of appearance. ISO dates are listed before day-first dates.
func ExtractDates(text string) []time.Time {
	var dates []time.Time

	for _, m := range isoDate.FindAllStringSubmatch(text, -1) {
		if d, ok := makeDate(m[1], m[2], m[3]); ok {
			dates = append(dates, d)
		}
	}
	for _, m := range dayFirstDate.FindAllStringSubmatch(text, -1) {
		if len(m[3]) == 3 {
			continue
		}
		if d, ok := makeDate(m[3], m[2], m[1]); ok {
			dates = append(dates, d)
		}
	}
	return dates
}

// mentionsDateNear reports whether text embeds a date within one day of day.
func mentionsDateNear(text string, day time.Time) bool {
	for _, d := range ExtractDates(text) {
		diff := d.Sub(day)
		if diff < 0 {
			diff = -diff
		}
		if diff <= 24*time.Hour {
			return true
		}
	}
	return false
}

func makeDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	if len(year) == 2 {
		y += 2000
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 {
		return time.Time{}, false
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalises overflow such as 31/02; reject it.
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}
