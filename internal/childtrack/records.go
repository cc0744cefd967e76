package childtrack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ID is an identifier the backend sends either as a JSON number or a string.
// It is always handled as its decimal/string form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// AttendanceRecord is one row of the public attendance collection.
type AttendanceRecord struct {
	ID          ID     `json:"id"`
	StudentLRN  ID     `json:"student_lrn"`
	StudentName string `json:"student_name"`
	Status      string `json:"status"`
	Date        string `json:"date"` // YYYY-MM-DD, school-local
	Timestamp   string `json:"timestamp"`
	CreatedAt   string `json:"created_at"`
}

// Event is one row of the events collection.
type Event struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	EventType   string `json:"event_type"`
	ScheduledAt string `json:"scheduled_at"`
	CreatedAt   string `json:"created_at"`
	Section     string `json:"section"`
	TeacherName string `json:"teacher_name"`
}

// GuardianRequest is one row of the public guardian-requests collection.
type GuardianRequest struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	StudentLRN   ID     `json:"student_lrn"`
	StudentName  string `json:"student_name"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
}
