// Package session caches the signed-in parent and auth token in the
// key-value store, in the shape the ChildTrack login endpoint returns them.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/childtrack/parent-notifier/internal/childtrack"
	"github.com/childtrack/parent-notifier/internal/kvstore"
)

const (
	parentKey = "parent"
	tokenKey  = "token"
)

// ErrNoSession is returned when no parent is signed in.
var ErrNoSession = errors.New("session: no parent signed in")

var validate = validator.New()

// Parent is the cached parent record. Student may be sent as a bare LRN
// string or as a nested object, so it is kept raw and resolved by Student().
type Parent struct {
	ID                    childtrack.ID   `json:"id"`
	Username              string          `json:"username,omitempty"`
	Name                  string          `json:"name,omitempty"`
	StudentLRN            childtrack.ID   `json:"student_lrn,omitempty" validate:"required_without_all=StudentName StudentRaw"`
	StudentRaw            json.RawMessage `json:"student,omitempty"`
	StudentName           string          `json:"student_name,omitempty"`
	StudentSection        string          `json:"student_section,omitempty"`
	TeacherName           string          `json:"teacher_name,omitempty"`
	StudentTeacher        string          `json:"student_teacher,omitempty"`
	MustChangeCredentials bool            `json:"must_change_credentials,omitempty"`
}

// Student is the active student the notifier filters for.
type Student struct {
	LRN     string
	Name    string
	Section string
	Teacher string
}

// Identified reports whether the student can be matched at all.
func (s Student) Identified() bool {
	return s.LRN != "" || s.Name != ""
}

// nestedStudent is the object form of the parent's "student" field.
type nestedStudent struct {
	LRN     childtrack.ID `json:"lrn"`
	Name    string        `json:"name"`
	Section string        `json:"section"`
}

// Student resolves the active student: student_lrn, else the student field;
// student_section, else student.section; teacher_name, else student_teacher.
func (p *Parent) Student() Student {
	s := Student{
		LRN:     strings.TrimSpace(p.StudentLRN.String()),
		Name:    strings.TrimSpace(p.StudentName),
		Section: strings.TrimSpace(p.StudentSection),
		Teacher: strings.TrimSpace(p.TeacherName),
	}
	if s.Teacher == "" {
		s.Teacher = strings.TrimSpace(p.StudentTeacher)
	}

	if len(p.StudentRaw) > 0 {
		var nested nestedStudent
		var flat childtrack.ID
		if err := json.Unmarshal(p.StudentRaw, &flat); err == nil {
			if s.LRN == "" {
				s.LRN = strings.TrimSpace(flat.String())
			}
		} else if err := json.Unmarshal(p.StudentRaw, &nested); err == nil {
			if s.LRN == "" {
				s.LRN = strings.TrimSpace(nested.LRN.String())
			}
			if s.Name == "" {
				s.Name = strings.TrimSpace(nested.Name)
			}
			if s.Section == "" {
				s.Section = strings.TrimSpace(nested.Section)
			}
		}
	}
	return s
}

// Validate checks that the record names a student.
func (p *Parent) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("parent record has no student: %w", err)
	}
	return nil
}

// Store reads and writes the session keys.
type Store struct {
	kv kvstore.Store
}

func New(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

// Parent loads the cached parent. ErrNoSession when nobody is signed in.
func (s *Store) Parent(ctx context.Context) (*Parent, error) {
	raw, err := s.kv.Get(ctx, parentKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load parent: %w", err)
	}
	var p Parent
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode parent: %w", err)
	}
	return &p, nil
}

// SaveRaw validates and stores a parent record exactly as the backend sent it.
func (s *Store) SaveRaw(ctx context.Context, raw json.RawMessage) (*Parent, error) {
	var p Parent
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode parent: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, parentKey, string(raw)); err != nil {
		return nil, fmt.Errorf("save parent: %w", err)
	}
	return &p, nil
}

// Save validates and stores p.
func (s *Store) Save(ctx context.Context, p *Parent) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode parent: %w", err)
	}
	if err := s.kv.Set(ctx, parentKey, string(b)); err != nil {
		return fmt.Errorf("save parent: %w", err)
	}
	return nil
}

// Token returns the cached auth token, or "" when none is stored.
func (s *Store) Token(ctx context.Context) string {
	tok, err := s.kv.Get(ctx, tokenKey)
	if err != nil {
		return ""
	}
	return tok
}

// SetToken stores the auth token; an empty token removes it.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.kv.Remove(ctx, tokenKey)
	}
	return s.kv.Set(ctx, tokenKey, token)
}

// Clear signs the parent out.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Remove(ctx, parentKey); err != nil {
		return fmt.Errorf("clear parent: %w", err)
	}
	if err := s.kv.Remove(ctx, tokenKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
