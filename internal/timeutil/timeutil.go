// Package timeutil holds the canonical time-of-day and weekday helpers shared
// by every import path and by reminder trigger math.
//
// The canonical time representation everywhere in this repo is a zero-padded
// 24-hour "HH:MM" string; the canonical weekday is one of the 7 full English
// names. Everything else (12-hour clocks, bare hours, spreadsheet serial
// fractions, weekday abbreviations) is normalized here at the boundary.
package timeutil

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Weekdays is the canonical 7-day enumeration, Monday-first, which is how
// schedules are displayed.
var Weekdays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

const minutesPerDay = 24 * 60

// weekdayAliases maps lowercase tokens (full names and common abbreviations)
// to the canonical form.
var weekdayAliases = map[string]string{
	"mon": "Monday", "monday": "Monday",
	"tue": "Tuesday", "tues": "Tuesday", "tuesday": "Tuesday",
	"wed": "Wednesday", "weds": "Wednesday", "wednesday": "Wednesday",
	"thu": "Thursday", "thur": "Thursday", "thurs": "Thursday", "thursday": "Thursday",
	"fri": "Friday", "friday": "Friday",
	"sat": "Saturday", "saturday": "Saturday",
	"sun": "Sunday", "sunday": "Sunday",
}

// NormalizeHeader lowercases s and strips whitespace, hyphens and underscores.
// Used for fuzzy column-header matching in tabular imports.
func NormalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '\t', '\n', '\r', '-', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CanonicalWeekday fuzzy-matches token against the canonical weekday names and
// their common abbreviations, case-insensitively. Returns ("", false) when the
// token is not a weekday.
func CanonicalWeekday(token string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(token))
	key = strings.TrimSuffix(key, ".")
	day, ok := weekdayAliases[key]
	return day, ok
}

// WeekdayRank gives the display sort order: Monday=1 .. Sunday=7.
// Unknown names rank 8 so they sort last instead of disappearing.
func WeekdayRank(name string) int {
	for i, d := range Weekdays {
		if d == name {
			return i + 1
		}
	}
	return 8
}

// WeekdayIndex gives the calendar index 0=Sunday .. 6=Saturday, matching
// time.Weekday, for interop with absolute-date arithmetic. Unknown names
// return -1.
func WeekdayIndex(name string) int {
	switch name {
	case "Sunday":
		return 0
	case "Monday":
		return 1
	case "Tuesday":
		return 2
	case "Wednesday":
		return 3
	case "Thursday":
		return 4
	case "Friday":
		return 5
	case "Saturday":
		return 6
	}
	return -1
}

var reClockTime = regexp.MustCompile(`^(\d{1,2})(?::(\d{2})(?::(\d{2}))?)?\s*([AaPp])?\.?[Mm]?\.?$`)

// ParseTime normalizes one of many textual time encodings to canonical
// "HH:MM". Accepted shapes:
//
//   - canonical 24-hour "HH:MM" (or "H:MM")
//   - 12-hour "H:MM AM/PM", case-insensitive, optional seconds
//   - bare hour ("7am", "19", "7" with a fallback meridiem)
//   - spreadsheet serial time: a numeric value whose fractional part encodes
//     a fraction of a day (0.5 -> "12:00"); a bare integer in [0,23] is a
//     whole hour
//
// fallbackMeridiem ("AM"/"PM", or "" for none) resolves 12-hour times that
// carry no meridiem marker. With no fallback, hours are read as 24-hour.
//
// Returns "" for anything it cannot recognize; it never panics and never
// returns a partially formatted value.
func ParseTime(value string, fallbackMeridiem string) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return ""
	}

	// Numeric encodings first: spreadsheet serials and bare hours.
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return parseNumericTime(v)
	}

	m := reClockTime.FindStringSubmatch(s)
	if m == nil {
		return ""
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return ""
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil {
			return ""
		}
	}
	// Seconds (m[3]) are accepted and discarded.

	meridiem := strings.ToUpper(m[4])
	if meridiem == "" && hour >= 1 && hour <= 12 {
		switch strings.ToUpper(strings.TrimSpace(fallbackMeridiem)) {
		case "AM":
			meridiem = "A"
		case "PM":
			meridiem = "P"
		}
	}

	switch meridiem {
	case "A":
		if hour < 1 || hour > 12 {
			return ""
		}
		if hour == 12 {
			hour = 0
		}
	case "P":
		if hour < 1 || hour > 12 {
			return ""
		}
		if hour != 12 {
			hour += 12
		}
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// parseNumericTime handles spreadsheet-style numeric cells.
//
//	0.5      -> "12:00"  (fraction of a day)
//	45123.25 -> "06:00"  (datetime serial; only the day fraction matters)
//	7        -> "07:00"  (whole hour)
func parseNumericTime(v float64) string {
	if v < 0 {
		return ""
	}
	frac := v - math.Floor(v)
	if v < 1 || frac != 0 {
		totalMin := int(math.Round(frac * minutesPerDay))
		return HHMMFromMinutes(totalMin)
	}
	hour := int(v)
	if hour > 23 {
		return ""
	}
	return fmt.Sprintf("%02d:00", hour)
}

// MinutesSinceMidnight converts a canonical "HH:MM" string to the minute of
// the day.
func MinutesSinceMidnight(hhmm string) (int, error) {
	h, m, err := splitHHMM(hhmm)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

// HHMMFromMinutes formats a minute count as canonical "HH:MM". Inputs outside
// [0,1440) wrap into the correct day-relative minute, so negative values walk
// back from midnight: HHMMFromMinutes(-30) == "23:30".
func HHMMFromMinutes(totalMinutes int) string {
	m := ((totalMinutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func splitHHMM(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: bad hour", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: bad minute", s)
	}
	if hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid time %q: hour out of range", s)
	}
	if minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %q: minute out of range", s)
	}
	return hour, minute, nil
}
