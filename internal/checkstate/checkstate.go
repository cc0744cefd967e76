// Package checkstate persists what the change detectors have already seen:
// one fingerprint per category and a capped, ordered list of item IDs that
// already produced a notification.
//
// Each category owns two keys, so categories never contend:
//
//	<prefix>:v1:fingerprint:<category>
//	<prefix>:v1:notified:<category>
//
// Values are JSON records carrying a schema version.
package checkstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/childtrack/parent-notifier/internal/kvstore"
)

// SchemaVersion is written into every record.
const SchemaVersion = 1

// DefaultNotifiedLimit caps each category's notified list.
const DefaultNotifiedLimit = 200

// ErrSchemaVersion is returned for records that are unreadable or were
// written by a different schema version.
var ErrSchemaVersion = errors.New("checkstate: unsupported record")

// Category is one of the closed set of detector categories.
type Category string

const (
	Attendance Category = "attendance"
	Events     Category = "events"
	Guardians  Category = "guardians"
)

// Categories lists every category in a stable order.
func Categories() []Category {
	return []Category{Attendance, Events, Guardians}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case Attendance, Events, Guardians:
		return true
	}
	return false
}

type fingerprintRecord struct {
	Version     int       `json:"version"`
	Fingerprint string    `json:"fingerprint"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type notifiedRecord struct {
	Version int      `json:"version"`
	IDs     []string `json:"ids"`
}

// Store is the typed view over the key-value store.
type Store struct {
	kv     kvstore.Store
	prefix string
	limit  int
	now    func() time.Time

	// Serializes notified-list read-modify-write per category.
	mu sync.Map // Category -> *sync.Mutex
}

// Option customises a Store.
type Option func(*Store)

// WithNotifiedLimit overrides the per-category notified cap.
func WithNotifiedLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithClock overrides time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New wraps kv. prefix namespaces the keys ("notifier" when empty).
func New(kv kvstore.Store, prefix string, opts ...Option) *Store {
	if prefix == "" {
		prefix = "notifier"
	}
	s := &Store{kv: kv, prefix: prefix, limit: DefaultNotifiedLimit, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) fingerprintKey(c Category) string {
	return fmt.Sprintf("%s:v%d:fingerprint:%s", s.prefix, SchemaVersion, c)
}

func (s *Store) notifiedKey(c Category) string {
	return fmt.Sprintf("%s:v%d:notified:%s", s.prefix, SchemaVersion, c)
}

func (s *Store) lock(c Category) func() {
	m, _ := s.mu.LoadOrStore(c, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// --------------------------------------------------------------------------
// Fingerprints
// --------------------------------------------------------------------------

// Fingerprint returns the stored fingerprint. ok is false when the category
// has never been polled on this device.
func (s *Store) Fingerprint(ctx context.Context, c Category) (fp string, ok bool, err error) {
	raw, err := s.kv.Get(ctx, s.fingerprintKey(c))
	if errors.Is(err, kvstore.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load %s fingerprint: %w", c, err)
	}
	var rec fingerprintRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Version != SchemaVersion {
		return "", false, fmt.Errorf("%s fingerprint: %w", c, ErrSchemaVersion)
	}
	return rec.Fingerprint, true, nil
}

// SetFingerprint stores fp; an empty fp records "nothing relevant right now".
func (s *Store) SetFingerprint(ctx context.Context, c Category, fp string) error {
	b, err := json.Marshal(fingerprintRecord{Version: SchemaVersion, Fingerprint: fp, UpdatedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode %s fingerprint: %w", c, err)
	}
	if err := s.kv.Set(ctx, s.fingerprintKey(c), string(b)); err != nil {
		return fmt.Errorf("save %s fingerprint: %w", c, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Notified set
// --------------------------------------------------------------------------

// Notified returns the notified IDs for c, oldest first.
func (s *Store) Notified(ctx context.Context, c Category) ([]string, error) {
	raw, err := s.kv.Get(ctx, s.notifiedKey(c))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s notified: %w", c, err)
	}
	var rec notifiedRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Version != SchemaVersion {
		return nil, fmt.Errorf("%s notified: %w", c, ErrSchemaVersion)
	}
	return rec.IDs, nil
}

// IsNotified reports whether id already produced a notification for c.
func (s *Store) IsNotified(ctx context.Context, c Category, id string) (bool, error) {
	ids, err := s.Notified(ctx, c)
	if err != nil {
		return false, err
	}
	for _, v := range ids {
		if v == id {
			return true, nil
		}
	}
	return false, nil
}

// MarkNotified appends id to c's list unless present, evicting the oldest
// entries beyond the cap. An unreadable list is replaced.
func (s *Store) MarkNotified(ctx context.Context, c Category, id string) error {
	unlock := s.lock(c)
	defer unlock()

	ids, err := s.Notified(ctx, c)
	if err != nil && !errors.Is(err, ErrSchemaVersion) {
		return err
	}
	for _, v := range ids {
		if v == id {
			return nil
		}
	}
	ids = append(ids, id)
	if over := len(ids) - s.limit; over > 0 {
		ids = append([]string(nil), ids[over:]...)
	}

	b, err := json.Marshal(notifiedRecord{Version: SchemaVersion, IDs: ids})
	if err != nil {
		return fmt.Errorf("encode %s notified: %w", c, err)
	}
	if err := s.kv.Set(ctx, s.notifiedKey(c), string(b)); err != nil {
		return fmt.Errorf("save %s notified: %w", c, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Inspection
// --------------------------------------------------------------------------

// CategoryState is the persisted state of one category.
type CategoryState struct {
	Category    Category `json:"category" yaml:"category"`
	Polled      bool     `json:"polled" yaml:"polled"`
	Fingerprint string   `json:"fingerprint" yaml:"fingerprint"`
	Notified    []string `json:"notified" yaml:"notified"`
	Error       string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Snapshot reads every category. Read failures are reported per category.
func (s *Store) Snapshot(ctx context.Context) []CategoryState {
	out := make([]CategoryState, 0, 3)
	for _, c := range Categories() {
		st := CategoryState{Category: c}
		fp, ok, err := s.Fingerprint(ctx, c)
		if err != nil {
			st.Error = err.Error()
		}
		st.Polled, st.Fingerprint = ok, fp

		ids, err := s.Notified(ctx, c)
		if err != nil && st.Error == "" {
			st.Error = err.Error()
		}
		st.Notified = ids
		out = append(out, st)
	}
	return out
}

// Reset forgets everything stored for c; its next poll is a cold start.
func (s *Store) Reset(ctx context.Context, c Category) error {
	if err := s.kv.Remove(ctx, s.fingerprintKey(c)); err != nil {
		return fmt.Errorf("reset %s fingerprint: %w", c, err)
	}
	if err := s.kv.Remove(ctx, s.notifiedKey(c)); err != nil {
		return fmt.Errorf("reset %s notified: %w", c, err)
	}
	return nil
}

// CopyTo writes every readable fingerprint and notified list into dst.
// Records with an unsupported schema are skipped, as the engine reads them
// as absent.
func (s *Store) CopyTo(ctx context.Context, dst *Store) error {
	for _, c := range Categories() {
		fp, ok, err := s.Fingerprint(ctx, c)
		if err != nil && !errors.Is(err, ErrSchemaVersion) {
			return err
		}
		if ok {
			if err := dst.SetFingerprint(ctx, c, fp); err != nil {
				return err
			}
		}

		ids, err := s.Notified(ctx, c)
		if err != nil && !errors.Is(err, ErrSchemaVersion) {
			return err
		}
		for _, id := range ids {
			if err := dst.MarkNotified(ctx, c, id); err != nil {
				return err
			}
		}
	}
	return nil
}
