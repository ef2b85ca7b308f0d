// Package timetable segments the token stream extracted from a timetable
// document into canonical schedule items for one semester/section.
package timetable

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"acadsched/internal/model"
	"acadsched/internal/timeutil"
)

// ErrNoLectures marks a well-formed document that yielded zero items for the
// requested semester/section. Not a parse failure; callers should suggest
// another import path.
var ErrNoLectures = errors.New("no lectures found for the requested semester/section")

// Slot is one (start,end) pair of the document's recurring slot table.
type Slot struct {
	Start string
	End   string
}

// DefaultSlots is the fallback 6-slot table used when a document declares
// fewer than 6 of its own slot markers.
var DefaultSlots = []Slot{
	{Start: "08:00", End: "09:20"},
	{Start: "09:30", End: "10:50"},
	{Start: "11:00", End: "12:20"},
	{Start: "12:30", End: "13:50"},
	{Start: "14:00", End: "15:20"},
	{Start: "15:30", End: "16:50"},
}

const maxSlots = 6

var (
	// Slot markers look like "S-1(08:00-09:20)".
	reSlotMarker = regexp.MustCompile(`S-(\d)\s*\(\s*([^()\-]+?)\s*-\s*([^()]+?)\s*\)`)

	// Semester labels: "3rd Semester", "5 Semester", "1st semester".
	reSemester = regexp.MustCompile(`(?i)\b([1-8])\s*(?:st|nd|rd|th)?\s+semester\b`)
)

// ParseSemester extracts the target semester number from free text. Fails
// fast when no digit 1-8 is present.
func ParseSemester(text string) (int, error) {
	for _, r := range text {
		if r >= '1' && r <= '8' {
			return int(r - '0'), nil
		}
	}
	return 0, fmt.Errorf("no valid semester (1-8) in %q", strings.TrimSpace(text))
}

// Parse segments tokens into schedule items for the given semester and
// optional section (empty = any section, otherwise case-insensitive exact
// match). Token order must be document order, as produced by the extractor.
func Parse(tokens []string, semester int, section string, h Heuristics) ([]model.ScheduleItem, error) {
	if semester < 1 || semester > 8 {
		return nil, fmt.Errorf("semester %d out of range (1-8)", semester)
	}

	slots := scanSlots(tokens)

	var items []model.ScheduleItem
	seen := map[string]bool{}

	day := ""
	st := cursor{}
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		if d, ok := exactWeekday(tok); ok {
			day = d
			st = cursor{}
			continue
		}
		if day == "" {
			// Preamble before the first weekday marker.
			continue
		}

		next := ""
		if i+1 < len(tokens) {
			next = tokens[i+1]
		}
		after := ""
		if i+2 < len(tokens) {
			after = tokens[i+2]
		}

		var item *model.ScheduleItem
		var consumed int
		st, item, consumed = step(st, day, tok, next, after, semester, section, slots, h)
		i += consumed

		if item != nil && !seen[item.Key()] {
			seen[item.Key()] = true
			items = append(items, *item)
		}
	}

	return items, nil
}

// cursor is the walking segmentation state within one day segment.
type cursor struct {
	semester  int
	section   string
	slotIndex int
}

// step advances the cursor over one token (plus lookahead). It returns the
// new state, an item to emit (nil when filtered out or the token was a
// label), and how many extra tokens were consumed.
func step(st cursor, day, tok, next, after string, wantSem int, wantSection string, slots []Slot, h Heuristics) (cursor, *model.ScheduleItem, int) {
	// Semester label?
	if m := reSemester.FindStringSubmatch(tok); m != nil {
		sem, _ := strconv.Atoi(m[1])
		if sem != st.semester {
			st.semester = sem
			st.section = ""
			st.slotIndex = 0
		}
		return st, nil, 0
	}

	// Bare section code?
	if code, ok := h.sectionCode(tok); ok {
		sem := h.resolveSemester(st.semester, code)
		if code != st.section || sem != st.semester {
			st.semester = sem
			st.section = code
			st.slotIndex = 0
		}
		return st, nil, 0
	}

	// Subject + room (+ teacher) triple?
	if !h.isControl(tok) && next != "" && h.isRoom(next) && !h.isControl(next) {
		teacher := model.TeacherTBA
		consumed := 1
		if h.isTeacher(after) {
			teacher = after
			consumed = 2
		}

		idx := st.slotIndex
		st.slotIndex++

		matches := st.semester == wantSem &&
			(wantSection == "" || strings.EqualFold(st.section, wantSection))
		if !matches || idx >= len(slots) {
			// Slot index advanced regardless so alignment tracks layout.
			return st, nil, consumed
		}

		item := &model.ScheduleItem{
			Day:       day,
			StartTime: slots[idx].Start,
			EndTime:   slots[idx].End,
			Subject:   tok,
			Room:      next,
			Teacher:   teacher,
		}
		return st, item, consumed
	}

	return st, nil, 0
}

// scanSlots pre-scans the whole document for S-n(start-end) markers, keeping
// up to 6 in encounter order. Fewer than 6 falls back to DefaultSlots.
func scanSlots(tokens []string) []Slot {
	var slots []Slot
	for _, tok := range tokens {
		for _, m := range reSlotMarker.FindAllStringSubmatch(tok, -1) {
			start := timeutil.ParseTime(m[2], "")
			end := timeutil.ParseTime(m[3], "")
			if start == "" || end == "" {
				continue
			}
			slots = append(slots, Slot{Start: start, End: end})
			if len(slots) == maxSlots {
				return slots
			}
		}
	}
	if len(slots) < maxSlots {
		return DefaultSlots
	}
	return slots
}

// exactWeekday reports whether a token is exactly one of the 7 canonical
// weekday names (segmentation markers are never abbreviated).
func exactWeekday(tok string) (string, bool) {
	for _, d := range timeutil.Weekdays {
		if tok == d {
			return d, true
		}
	}
	return "", false
}

func (h Heuristics) isRoom(tok string) bool {
	for _, marker := range h.RoomMarkers {
		if containsFold(tok, marker) {
			return true
		}
	}
	return false
}

func (h Heuristics) isTeacher(tok string) bool {
	for _, prefix := range h.TeacherPrefixes {
		if strings.HasPrefix(tok, prefix) {
			return true
		}
	}
	return false
}

func (h Heuristics) sectionCode(tok string) (string, bool) {
	for _, code := range h.SectionCodes {
		if strings.EqualFold(tok, code) {
			return code, true
		}
	}
	return "", false
}

// resolveSemester recovers the semester a bare section code belongs to. When
// the current semester already pairs with the code in the layout table, it is
// kept; otherwise the first layout entry carrying the code wins.
func (h Heuristics) resolveSemester(current int, code string) int {
	for _, e := range h.SectionOrder {
		if e.Semester == current && strings.EqualFold(e.Section, code) {
			return current
		}
	}
	for _, e := range h.SectionOrder {
		if strings.EqualFold(e.Section, code) {
			return e.Semester
		}
	}
	return current
}

// isControl reports whether a token is a known non-content label: weekday
// markers, section codes, semester labels, or configured document furniture.
func (h Heuristics) isControl(tok string) bool {
	if _, ok := exactWeekday(tok); ok {
		return true
	}
	if _, ok := h.sectionCode(tok); ok {
		return true
	}
	if reSemester.MatchString(tok) {
		return true
	}
	for _, c := range h.ControlTokens {
		if strings.EqualFold(tok, c) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
