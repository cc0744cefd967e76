package notifications

import (
	"slices"
	"strings"
	"time"
)

// timeLayouts are tried in order; zone-less layouts are read in the school's
// location.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime reads a backend timestamp. ok is false for empty or unparseable
// input.
func parseTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// matchesStudent is the identifier match, falling back to a case-insensitive
// name match.
func matchesStudent(lrn, name string, st Student) bool {
	if st.LRN != "" && strings.TrimSpace(lrn) == st.LRN {
		return true
	}
	return st.Name != "" && fold(name) == fold(st.Name)
}

// --------------------------------------------------------------------------
// Attendance
// --------------------------------------------------------------------------

// FilterAttendance keeps the student's records dated today in now's location.
func FilterAttendance(records []AttendanceRecord, st Student, now time.Time) []AttendanceRecord {
	today := now.Format(time.DateOnly)
	var out []AttendanceRecord
	for _, r := range records {
		if !matchesStudent(r.StudentLRN.String(), r.StudentName, st) {
			continue
		}
		date := strings.TrimSpace(r.Date)
		if len(date) > len(time.DateOnly) {
			date = date[:len(time.DateOnly)]
		}
		if date == today {
			out = append(out, r)
		}
	}
	return out
}

// attendanceTime orders records by created_at, else timestamp, else date.
func attendanceTime(r AttendanceRecord, loc *time.Location) time.Time {
	for _, s := range []string{r.CreatedAt, r.Timestamp, r.Date} {
		if strings.TrimSpace(s) == "" {
			continue
		}
		t, _ := parseTime(s, loc)
		return t
	}
	return time.Time{}
}

// newestAttendance returns the most recent record; ties keep input order.
func newestAttendance(records []AttendanceRecord, loc *time.Location) AttendanceRecord {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b AttendanceRecord) int {
		return attendanceTime(b, loc).Compare(attendanceTime(a, loc))
	})
	return sorted[0]
}

// --------------------------------------------------------------------------
// Events
// --------------------------------------------------------------------------

// FilterEvents keeps events scheduled between local midnight today and seven
// days later that the student may see.
func FilterEvents(events []Event, st Student, now time.Time) []Event {
	todayStart := startOfDay(now)
	windowEnd := todayStart.AddDate(0, 0, EventWindowDays)

	var out []Event
	for _, e := range events {
		at, ok := parseTime(e.ScheduledAt, now.Location())
		if !ok {
			continue
		}
		if startOfDay(at.In(now.Location())).Before(todayStart) || at.After(windowEnd) {
			continue
		}
		if EventVisible(e, st) {
			out = append(out, e)
		}
	}
	return out
}

// EventVisible applies the section/teacher rule. General events (no section
// and no teacher) are visible to everyone; a student with neither on file
// sees only general events. Otherwise both attributes must match, where an
// event leaving one blank matches any student value.
func EventVisible(e Event, st Student) bool {
	evSection, evTeacher := fold(e.Section), fold(e.TeacherName)
	section, teacher := fold(st.Section), fold(st.Teacher)

	general := evSection == "" && evTeacher == ""
	if section == "" && teacher == "" {
		return general
	}
	if general {
		return true
	}
	return attributeMatches(evSection, section) && attributeMatches(evTeacher, teacher)
}

func attributeMatches(event, student string) bool {
	switch {
	case student == "":
		return event == ""
	case event == "":
		return true
	default:
		return event == student
	}
}

func eventCreated(e Event) string {
	if strings.TrimSpace(e.CreatedAt) != "" {
		return e.CreatedAt
	}
	return e.ScheduledAt
}

// newestEvent returns the most recently created event, falling back to the
// scheduled time when created_at is missing.
func newestEvent(events []Event, loc *time.Location) Event {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b Event) int {
		ta, _ := parseTime(eventCreated(a), loc)
		tb, _ := parseTime(eventCreated(b), loc)
		return tb.Compare(ta)
	})
	return sorted[0]
}

// recentlyCreated reports whether e was created in the future or within
// RecencyWindow of now. A missing or unreadable created_at is not recent.
func recentlyCreated(e Event, now time.Time) bool {
	created, ok := parseTime(e.CreatedAt, now.Location())
	if !ok {
		return false
	}
	return now.Sub(created) <= RecencyWindow
}

// --------------------------------------------------------------------------
// Guardians
// --------------------------------------------------------------------------

// FilterGuardians keeps the student's pending or unregistered requests.
func FilterGuardians(requests []GuardianRequest, st Student) []GuardianRequest {
	var out []GuardianRequest
	for _, g := range requests {
		switch fold(g.Status) {
		case "pending", "unregistered":
		default:
			continue
		}
		if matchesStudent(g.StudentLRN.String(), g.StudentName, st) {
			out = append(out, g)
		}
	}
	return out
}

// newestGuardian returns the latest request by created_at; the first one wins
// ties and unreadable timestamps.
func newestGuardian(requests []GuardianRequest, loc *time.Location) GuardianRequest {
	newest := requests[0]
	newestAt, _ := parseTime(newest.CreatedAt, loc)
	for _, g := range requests[1:] {
		if at, ok := parseTime(g.CreatedAt, loc); ok && at.After(newestAt) {
			newest, newestAt = g, at
		}
	}
	return newest
}
