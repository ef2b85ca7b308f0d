package timetable

// Heuristics are the institution-specific pattern tables used to classify
// extracted tokens. They are configuration, not universal logic: documents
// from another layout get their own tables (or simply yield zero matches,
// which is non-fatal).
type Heuristics struct {
	// RoomMarkers: a token containing any of these (case-insensitive) is a
	// room/venue label. The token before a room is the subject.
	RoomMarkers []string

	// TeacherPrefixes: a token starting with one of these is a teacher name.
	TeacherPrefixes []string

	// SectionCodes: bare tokens recognized as section labels.
	SectionCodes []string

	// SectionOrder recovers which semester a bare section code belongs to
	// when the semester label is not repeated; it lists (semester, section)
	// pairs in the order they appear in the source document.
	SectionOrder []SectionEntry

	// ControlTokens are document furniture (titles, footers) that must never
	// be read as a subject or room.
	ControlTokens []string
}

// SectionEntry is one position in the document's semester/section layout.
type SectionEntry struct {
	Semester int
	Section  string
}

// DefaultHeuristics matches the timetable layout this tracker was built
// around: eight semesters, the first split into morning groups M1/M2 and the
// rest into sections A/B.
func DefaultHeuristics() Heuristics {
	h := Heuristics{
		RoomMarkers:     []string{"CR-", "CS Lab", "DLD Lab", "Lab", "Room", "Floor"},
		TeacherPrefixes: []string{"Mr.", "Ms.", "Dr."},
		SectionCodes:    []string{"M1", "M2", "A", "B"},
		ControlTokens:   []string{"Time Table", "Timetable", "Department of Computer Science"},
	}
	h.SectionOrder = []SectionEntry{
		{Semester: 1, Section: "M1"},
		{Semester: 1, Section: "M2"},
	}
	for sem := 2; sem <= 8; sem++ {
		h.SectionOrder = append(h.SectionOrder,
			SectionEntry{Semester: sem, Section: "A"},
			SectionEntry{Semester: sem, Section: "B"},
		)
	}
	return h
}
