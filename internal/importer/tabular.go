// Package importer turns loosely structured schedule data (tabular rows,
// JSON payloads, CSV files) into canonical model.ScheduleItems.
//
// All importers validate the entire input before anything is handed to
// storage, so a single bad row aborts the whole import with no partial
// writes.
package importer

import (
	"fmt"
	"strconv"
	"strings"

	"acadsched/internal/model"
	"acadsched/internal/timeutil"
)

// Row is one ordered record of header->cell mappings as read from a tabular
// source. Headers may vary in case, spacing and synonyms; ConvertRows
// resolves them.
type Row map[string]string

// headerSynonyms maps normalized header names to canonical field names.
var headerSynonyms = map[string]string{
	"title":    "title",
	"activity": "title",
	"task":     "title",
	"subject":  "title",

	"day":     "day",
	"weekday": "day",

	"starttime": "start",
	"start":     "start",

	"endtime": "end",
	"end":     "end",

	"room":     "room",
	"location": "room",
	"place":    "room",

	"teacher":    "teacher",
	"owner":      "teacher",
	"instructor": "teacher",

	"notes": "notes",
	"note":  "notes",

	"reminderenabled": "reminder",
	"reminder":        "reminder",

	"done": "done",
}

// RowError reports a problem with one row. Row numbers are 1-based and
// include the header row, so the first data row is row 2.
type RowError struct {
	Row    int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// headerRowOffset shifts 0-based data-row indexes into user-facing row
// numbers that count the header row.
const headerRowOffset = 2

// ConvertRows validates and converts tabular rows into canonical schedule
// items. Fully blank rows (title, day, start and end all empty) are skipped;
// a row with only some of those four populated fails the import.
//
// defaultMeridiem ("AM"/"PM", or "") resolves 12-hour time cells that carry
// no marker of their own; empty reads them as 24-hour.
func ConvertRows(rows []Row, defaultMeridiem string) ([]model.ScheduleItem, error) {
	var out []model.ScheduleItem
	for i, raw := range rows {
		fields := resolveFields(raw)

		title := fields["title"]
		day := fields["day"]
		start := fields["start"]
		end := fields["end"]

		if title == "" && day == "" && start == "" && end == "" {
			// Blank separator row.
			continue
		}

		rowNum := i + headerRowOffset
		if title == "" || day == "" || start == "" || end == "" {
			return nil, &RowError{Row: rowNum, Reason: missingReason(title, day, start, end)}
		}

		canonDay, ok := timeutil.CanonicalWeekday(day)
		if !ok {
			return nil, &RowError{Row: rowNum, Reason: fmt.Sprintf("unrecognized day %q", day)}
		}

		startHHMM := timeutil.ParseTime(start, defaultMeridiem)
		if startHHMM == "" {
			return nil, &RowError{Row: rowNum, Reason: fmt.Sprintf("unparseable start time %q", start)}
		}
		endHHMM := parseEndTime(end, start, startHHMM, defaultMeridiem)
		if endHHMM == "" {
			return nil, &RowError{Row: rowNum, Reason: fmt.Sprintf("unparseable end time %q", end)}
		}

		startMin, _ := timeutil.MinutesSinceMidnight(startHHMM)
		endMin, _ := timeutil.MinutesSinceMidnight(endHHMM)
		if endMin <= startMin {
			return nil, &RowError{Row: rowNum, Reason: fmt.Sprintf("end time %s is not after start time %s", endHHMM, startHHMM)}
		}

		out = append(out, model.ScheduleItem{
			Day:              canonDay,
			StartTime:        startHHMM,
			EndTime:          endHHMM,
			Subject:          title,
			Room:             fields["room"],
			Teacher:          fields["teacher"],
			Notes:            fields["notes"],
			Done:             model.ParseTruthy(fields["done"]),
			RemindersEnabled: model.ParseTruthy(fields["reminder"]),
		})
	}
	return out, nil
}

// parseEndTime parses an end-time cell. An end that lands strictly before the
// start is re-read as PM only when the row is genuinely ambiguous: no default
// meridiem configured, a bare-hour start and an end with no marker of its own
// (the start "7", end "1:30" shape). Every other reading is kept as-is so the
// end-after-start check can reject equal and inverted ranges.
func parseEndTime(rawEnd, rawStart, startHHMM, defaultMeridiem string) string {
	end := timeutil.ParseTime(rawEnd, defaultMeridiem)
	if end == "" {
		return ""
	}
	startMin, err := timeutil.MinutesSinceMidnight(startHHMM)
	if err != nil {
		return end
	}
	endMin, _ := timeutil.MinutesSinceMidnight(end)
	if endMin >= startMin || defaultMeridiem != "" {
		return end
	}
	if !bareHour(rawStart) || !meridiemless(rawEnd) {
		return end
	}
	if pm := timeutil.ParseTime(rawEnd, "PM"); pm != "" {
		if pmMin, err := timeutil.MinutesSinceMidnight(pm); err == nil && pmMin > startMin {
			return pm
		}
	}
	return end
}

// bareHour reports a plain 1-12 hour cell: no minutes, no meridiem marker.
func bareHour(s string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil && n >= 1 && n <= 12
}

// meridiemless reports a cell readable as a 12-hour time that carries no
// AM/PM marker of its own.
func meridiemless(s string) bool {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, "aApP") {
		return false
	}
	h := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		h = s[:i]
	}
	n, err := strconv.Atoi(h)
	return err == nil && n >= 1 && n <= 12
}

// resolveFields maps raw headers through NormalizeHeader + synonym lookup.
// Unknown headers are ignored; the first header to claim a canonical field
// wins.
func resolveFields(raw Row) map[string]string {
	fields := map[string]string{}
	for header, value := range raw {
		canon, ok := headerSynonyms[timeutil.NormalizeHeader(header)]
		if !ok {
			continue
		}
		v := trim(value)
		if _, taken := fields[canon]; taken && v == "" {
			continue
		}
		if cur := fields[canon]; cur == "" {
			fields[canon] = v
		}
	}
	return fields
}

func missingReason(title, day, start, end string) string {
	var missing []string
	if title == "" {
		missing = append(missing, "title")
	}
	if day == "" {
		missing = append(missing, "day")
	}
	if start == "" {
		missing = append(missing, "start time")
	}
	if end == "" {
		missing = append(missing, "end time")
	}
	if len(missing) == 0 {
		return "invalid row"
	}
	return "missing required field(s): " + strings.Join(missing, ", ")
}

func trim(s string) string { return strings.TrimSpace(s) }
