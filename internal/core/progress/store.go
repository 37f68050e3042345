// Package progress keeps the latest progress snapshot of every running pipeline
// so that clients can poll it while the upload request is still in flight.
package progress

import (
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/pdfdesk/internal/models"
)

// Task kinds, used as id prefixes.
const (
	KindText   = "text"
	KindImages = "images"
)

var ErrTaskNotFound = errors.New("task not found")

// Client-supplied ids are accepted only in this shape.
var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Store maps task ids to their latest snapshot. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]models.ProgressSnapshot

	now   func() time.Time
	newID func() string
}

func NewStore() *Store {
	return &Store{
		tasks: make(map[string]models.ProgressSnapshot),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Update overwrites the snapshot for id.
func (s *Store) Update(id string, current, total int, message string, etaSeconds *int) {
	snap := models.ProgressSnapshot{
		Current:    current,
		Total:      total,
		Percentage: percentage(current, total),
		Message:    message,
		Timestamp:  float64(s.now().UnixNano()) / float64(time.Second),
	}
	if etaSeconds != nil {
		eta := *etaSeconds
		snap.ETASeconds = &eta
	}

	s.mu.Lock()
	s.tasks[id] = snap
	s.mu.Unlock()
}

// Get returns the latest snapshot for id, or ErrTaskNotFound.
func (s *Store) Get(id string) (models.ProgressSnapshot, error) {
	s.mu.RLock()
	snap, ok := s.tasks[id]
	s.mu.RUnlock()
	if !ok {
		return models.ProgressSnapshot{}, ErrTaskNotFound
	}
	return snap, nil
}

func (s *Store) Clear(id string) {
	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()
}

// Len reports the number of live tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Begin registers a new task and returns its tracker. requestedID is used when
// it is well formed and not already live; otherwise a "<kind>_<uuid>" id is
// generated. The caller must Close the tracker.
func (s *Store) Begin(kind, requestedID string) *Tracker {
	s.mu.Lock()
	id := requestedID
	if _, taken := s.tasks[id]; taken || !validID.MatchString(id) {
		id = kind + "_" + s.newID()
	}
	s.tasks[id] = models.ProgressSnapshot{
		Message:   "Starting",
		Timestamp: float64(s.now().UnixNano()) / float64(time.Second),
	}
	s.mu.Unlock()

	return &Tracker{store: s, id: id}
}

func percentage(current, total int) int {
	if total <= 0 {
		return 0
	}
	p := current * 100 / total
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// Tracker is the scoped handle of one run. Updates after Close are dropped so a
// finished run can never resurrect its entry.
type Tracker struct {
	store *Store
	id    string

	mu     sync.Mutex
	closed bool
}

func (t *Tracker) ID() string { return t.id }

func (t *Tracker) Update(current, total int, message string, etaSeconds *int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.store.Update(t.id, current, total, message, etaSeconds)
}

// Close removes the task from the store. It is idempotent.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.store.Clear(t.id)
}
