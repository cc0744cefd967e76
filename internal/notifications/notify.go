// Package notifications is the change-detection engine. Each poll cycle
// fetches the attendance, events and guardian-request collections, narrows
// them to what matters for the signed-in parent's student, compares a
// fingerprint of that subset with what was seen before, and presents at most
// one local notification per new fact.
package notifications

import (
	"context"
	"time"

	"github.com/childtrack/parent-notifier/internal/checkstate"
	"github.com/childtrack/parent-notifier/internal/childtrack"
	"github.com/childtrack/parent-notifier/internal/platform"
	"github.com/childtrack/parent-notifier/internal/session"
)

const (
	// DefaultPollInterval is the fixed cadence between poll cycles.
	DefaultPollInterval = 30 * time.Second

	// RecencyWindow is how old an event may be and still be announced on a
	// cold start.
	RecencyWindow = 5 * time.Minute

	// EventWindowDays is how many calendar days past local midnight today
	// events qualify.
	EventWindowDays = 7
)

// Category is a detector category.
type Category = checkstate.Category

const (
	Attendance = checkstate.Attendance
	Events     = checkstate.Events
	Guardians  = checkstate.Guardians
)

type (
	AttendanceRecord = childtrack.AttendanceRecord
	Event            = childtrack.Event
	GuardianRequest  = childtrack.GuardianRequest
	Student          = session.Student
)

// Candidate is a notification a detector decided to send.
type Candidate struct {
	Category Category
	ItemID   string
	Message  platform.Message
}

// Fetcher retrieves the three remote collections.
type Fetcher interface {
	FetchAttendance(ctx context.Context) ([]AttendanceRecord, error)
	FetchEvents(ctx context.Context) ([]Event, error)
	FetchGuardianRequests(ctx context.Context) ([]GuardianRequest, error)
}

// ParentSource yields the signed-in parent, or session.ErrNoSession.
type ParentSource interface {
	Parent(ctx context.Context) (*session.Parent, error)
}

var (
	_ Fetcher      = (*childtrack.Client)(nil)
	_ ParentSource = (*session.Store)(nil)
)
