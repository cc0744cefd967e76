package notifications

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/childtrack/parent-notifier/internal/platform"
)

// eventDateLayout renders an event's scheduled date in notification bodies.
const eventDateLayout = "Jan 2, 2006"

var statusReplacer = strings.NewReplacer(" ", "", "_", "", "-", "", "\t", "")

// NormalizeStatus lowercases an attendance status and strips spaces,
// underscores and hyphens, so "Pick-up" and "pick_up" both read "pickup".
func NormalizeStatus(status string) string {
	return statusReplacer.Replace(strings.ToLower(strings.TrimSpace(status)))
}

type attendanceCopy struct {
	title string
	body  string // %s is the student's name
}

var attendanceMessages = map[string]attendanceCopy{
	"pickup":  {"Child Picked Up", "%s has been picked up"},
	"dropoff": {"Child Dropped Off", "%s is in the classroom"},
	"present": {"Child Present", "%s is marked present"},
	"absent":  {"Absence Recorded", "%s is marked absent"},
	"late":    {"Late Arrival", "%s arrived late"},
}

var attendanceFallback = attendanceCopy{"Attendance Update", "%s is in the classroom"}

// --------------------------------------------------------------------------
// Fingerprints
// --------------------------------------------------------------------------

// AttendanceFingerprint is "<id>-<normalized status>".
func AttendanceFingerprint(r AttendanceRecord) string {
	return fmt.Sprintf("%s-%s", r.ID, NormalizeStatus(r.Status))
}

// EventFingerprint is "event-<id>-<created_at, else scheduled_at>".
func EventFingerprint(e Event) string {
	return fmt.Sprintf("event-%s-%s", e.ID, eventCreated(e))
}

// GuardianFingerprint is the sorted, comma-joined request IDs.
func GuardianFingerprint(requests []GuardianRequest) string {
	ids := make([]string, 0, len(requests))
	for _, g := range requests {
		ids = append(ids, g.ID.String())
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// --------------------------------------------------------------------------
// Messages
// --------------------------------------------------------------------------

// AttendanceCandidate formats an attendance record. The record's student
// name is used, else fallbackName.
func AttendanceCandidate(r AttendanceRecord, fallbackName string) Candidate {
	name := strings.TrimSpace(r.StudentName)
	if name == "" {
		name = fallbackName
	}
	if name == "" {
		name = "Your child"
	}

	text, ok := attendanceMessages[NormalizeStatus(r.Status)]
	if !ok {
		text = attendanceFallback
	}
	return Candidate{
		Category: Attendance,
		ItemID:   r.ID.String(),
		Message: platform.Message{
			Title: text.title,
			Body:  fmt.Sprintf(text.body, name),
			Data: map[string]string{
				"type":          "attendance",
				"student_id":    r.StudentLRN.String(),
				"status":        r.Status,
				"attendance_id": r.ID.String(),
			},
			Channel: platform.ChannelAttendance,
		},
	}
}

// EventCandidate formats an event; the date is shown in loc.
func EventCandidate(e Event, loc *time.Location) Candidate {
	date := e.ScheduledAt
	if at, ok := parseTime(e.ScheduledAt, loc); ok {
		date = at.In(loc).Format(eventDateLayout)
	}
	return Candidate{
		Category: Events,
		ItemID:   e.ID.String(),
		Message: platform.Message{
			Title: "New Event",
			Body:  fmt.Sprintf("%s - %s", e.Title, date),
			Data: map[string]string{
				"type":       "event",
				"event_id":   e.ID.String(),
				"event_type": e.EventType,
			},
			Channel: platform.ChannelEvents,
		},
	}
}

// GuardianCandidate formats a pending guardian request.
func GuardianCandidate(g GuardianRequest) Candidate {
	return Candidate{
		Category: Guardians,
		ItemID:   g.ID.String(),
		Message: platform.Message{
			Title: "Guardian Approval Request",
			Body:  fmt.Sprintf("%s is requesting to be added as a guardian", g.Name),
			Data: map[string]string{
				"type":          "unregistered",
				"guardian_id":   g.ID.String(),
				"guardian_name": g.Name,
			},
			Channel: platform.ChannelGuardians,
		},
	}
}
