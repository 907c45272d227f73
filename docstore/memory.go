package docstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps documents in process memory. It is constructed explicitly and
// owned by whoever created it; there is no package-level instance.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	newID       func() string
}

type memCollection struct {
	order []string
	docs  map[string]Fields
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithIDGenerator replaces the uuid generator, mostly for deterministic tests.
func WithIDGenerator(fn func() string) MemoryOption {
	return func(m *Memory) { m.newID = fn }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		collections: make(map[string]*memCollection),
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return Document{}, ErrNotFound
	}
	fields, ok := c.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: fields.Clone()}, nil
}

func (m *Memory) List(_ context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return []Document{}, nil
	}
	docs := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		docs = append(docs, Document{ID: id, Fields: c.docs[id].Clone()})
	}
	return docs, nil
}

func (m *Memory) Query(_ context.Context, collection, field string, value any) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := []Document{}
	c, ok := m.collections[collection]
	if !ok {
		return docs, nil
	}
	want := normalize(value)
	for _, id := range c.order {
		got, ok := c.docs[id][field]
		if ok && reflect.DeepEqual(got, want) {
			docs = append(docs, Document{ID: id, Fields: c.docs[id].Clone()})
		}
	}
	return docs, nil
}

func (m *Memory) Add(_ context.Context, collection string, fields Fields) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(AddWrite(collection, fields))
}

func (m *Memory) Set(_ context.Context, collection, id string, fields Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.applyLocked(SetWrite(collection, id, fields))
	return err
}

func (m *Memory) Update(_ context.Context, collection, id string, fields Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.applyLocked(Write{Kind: WriteUpdate, Collection: collection, ID: id, Fields: fields})
	return err
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.applyLocked(Write{Kind: WriteDelete, Collection: collection, ID: id})
	return err
}

// Commit applies writes atomically. Simulated with a snapshot + rollback
// on the first failing write.
func (m *Memory) Commit(_ context.Context, writes []Write) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	ids := make([]string, 0, len(writes))
	for i, w := range writes {
		id, err := m.applyLocked(w)
		if err != nil {
			m.collections = snapshot
			return nil, &BatchWriteError{Writes: len(writes), Index: i, Err: err}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Memory) Close() error { return nil }

// Reset drops every collection.
func (m *Memory) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = make(map[string]*memCollection)
	return nil
}

func (m *Memory) applyLocked(w Write) (string, error) {
	c := m.collections[w.Collection]
	if c == nil {
		c = &memCollection{docs: make(map[string]Fields)}
		m.collections[w.Collection] = c
	}

	switch w.Kind {
	case WriteAdd:
		id := m.newID()
		if _, exists := c.docs[id]; exists {
			return "", Wrap("add", w.Collection, fmt.Errorf("duplicate id %q", id))
		}
		c.order = append(c.order, id)
		c.docs[id] = withoutNil(normalizeFields(w.Fields))
		return id, nil

	case WriteSet:
		if w.ID == "" {
			return "", Wrap("set", w.Collection, errors.New("empty id"))
		}
		if _, exists := c.docs[w.ID]; !exists {
			c.order = append(c.order, w.ID)
		}
		c.docs[w.ID] = withoutNil(normalizeFields(w.Fields))
		return w.ID, nil

	case WriteUpdate:
		doc, ok := c.docs[w.ID]
		if !ok {
			return "", ErrNotFound
		}
		doc.Merge(normalizeFields(w.Fields))
		return w.ID, nil

	case WriteDelete:
		if _, ok := c.docs[w.ID]; !ok {
			return "", ErrNotFound
		}
		delete(c.docs, w.ID)
		for i, id := range c.order {
			if id == w.ID {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
		return w.ID, nil

	default:
		return "", Wrap("write", w.Collection, fmt.Errorf("unknown write kind %d", w.Kind))
	}
}

func (m *Memory) snapshot() map[string]*memCollection {
	out := make(map[string]*memCollection, len(m.collections))
	for name, c := range m.collections {
		cp := &memCollection{
			order: append([]string(nil), c.order...),
			docs:  make(map[string]Fields, len(c.docs)),
		}
		for id, f := range c.docs {
			cp.docs[id] = f.Clone()
		}
		out[name] = cp
	}
	return out
}

// normalizeFields copies fields and coerces numbers to float64 so the memory
// store holds the same shapes a JSON-backed store would return.
func normalizeFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = normalize(v)
	}
	return out
}

func withoutNil(f Fields) Fields {
	for k, v := range f {
		if v == nil {
			delete(f, k)
		}
	}
	return f
}

func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	default:
		return cloneValue(v)
	}
}
