package testsupport

import (
	"context"
	"strconv"
	"sync"

	"discshelf/internal/collection"
)

// MemoryBackend is an in-memory collection.Backend with a counter token.
type MemoryBackend struct {
	mu      sync.Mutex
	doc     *collection.Document
	version int
	saves   int
	loads   int

	// BeforeSave runs before each save compares tokens, letting tests slip
	// a concurrent write in between a read and a write.
	BeforeSave func(attempt int)
	// SaveErr, when set, is returned by every save.
	SaveErr error
	// Messages records the change descriptions passed to Save.
	Messages []string
}

// NewMemoryBackend returns a backend holding records. Without records the
// document does not exist yet.
func NewMemoryBackend(records ...collection.MovieRecord) *MemoryBackend {
	m := &MemoryBackend{}
	if len(records) > 0 {
		m.doc = &collection.Document{Movies: append([]collection.MovieRecord(nil), records...)}
		m.version = 1
	}
	return m
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Load(context.Context) (collection.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.doc == nil {
		return collection.Snapshot{Document: collection.Document{Movies: []collection.MovieRecord{}}}, nil
	}
	doc := *m.doc
	doc.Movies = append([]collection.MovieRecord(nil), m.doc.Movies...)
	return collection.Snapshot{Document: doc, Token: strconv.Itoa(m.version)}, nil
}

func (m *MemoryBackend) Save(_ context.Context, doc collection.Document, token, message string) (string, error) {
	m.mu.Lock()
	m.saves++
	attempt := m.saves
	hook := m.BeforeSave
	m.mu.Unlock()

	if hook != nil {
		hook(attempt)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return "", m.SaveErr
	}
	current := ""
	if m.doc != nil {
		current = strconv.Itoa(m.version)
	}
	if token != current {
		return "", collection.ErrPreconditionFailed
	}
	stored := doc
	stored.Movies = append([]collection.MovieRecord(nil), doc.Movies...)
	m.doc = &stored
	m.version++
	m.Messages = append(m.Messages, message)
	return strconv.Itoa(m.version), nil
}

// Put replaces the document as an outside writer would.
func (m *MemoryBackend) Put(records ...collection.MovieRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = &collection.Document{Movies: append([]collection.MovieRecord(nil), records...)}
	m.version++
}

// Append adds records as an outside writer would.
func (m *MemoryBackend) Append(records ...collection.MovieRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		m.doc = &collection.Document{}
	}
	m.doc.Movies = append(m.doc.Movies, records...)
	m.version++
}

// Records returns a copy of the stored records.
func (m *MemoryBackend) Records() []collection.MovieRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return nil
	}
	return append([]collection.MovieRecord(nil), m.doc.Movies...)
}

// Saves returns the number of save attempts.
func (m *MemoryBackend) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Loads returns the number of loads.
func (m *MemoryBackend) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}
