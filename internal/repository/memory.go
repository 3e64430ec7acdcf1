package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore is an in-memory Store and TripleStore, used by the standalone
// worker and by tests. No external repository server needed.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*Object
	triples []Triple
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]*Object),
	}
}

// AddObject registers an object with the store
func (ms *MemoryStore) AddObject(obj *Object) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if obj.Datastreams == nil {
		obj.Datastreams = make(map[string]*Datastream)
	}
	ms.objects[obj.PID] = obj
}

// GetObject returns the object with the given PID
func (ms *MemoryStore) GetObject(ctx context.Context, pid string) (*Object, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	obj, ok := ms.objects[pid]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", pid, ErrNotFound)
	}
	return obj, nil
}

// ReadDatastream returns a reader over the datastream's content
func (ms *MemoryStore) ReadDatastream(ctx context.Context, pid, dsid string) (io.ReadCloser, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	obj, ok := ms.objects[pid]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", pid, ErrNotFound)
	}
	ds, ok := obj.Datastreams[dsid]
	if !ok {
		return nil, fmt.Errorf("datastream %s/%s: %w", pid, dsid, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(ds.Content)), nil
}

// WriteDatastream creates or overwrites a datastream on the object
func (ms *MemoryStore) WriteDatastream(ctx context.Context, pid string, ds Datastream, r io.Reader) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read datastream content: %w", err)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	obj, ok := ms.objects[pid]
	if !ok {
		return fmt.Errorf("object %s: %w", pid, ErrNotFound)
	}

	existing, ok := obj.Datastreams[ds.ID]
	if !ok {
		if ds.ControlGroup == "" {
			ds.ControlGroup = ControlGroupManaged
		}
		ds.Content = content
		obj.Datastreams[ds.ID] = &ds
		return nil
	}

	existing.Content = content
	existing.Label = ds.Label
	existing.MimeType = ds.MimeType
	return nil
}

// Query returns matching triples in insertion order
func (ms *MemoryStore) Query(ctx context.Context, p Pattern) ([]Triple, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []Triple
	for _, t := range ms.triples {
		if p.Matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Add appends a triple
func (ms *MemoryStore) Add(ctx context.Context, t Triple) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.triples = append(ms.triples, t)
	return nil
}

// Remove deletes all triples matching the pattern
func (ms *MemoryStore) Remove(ctx context.Context, p Pattern) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	kept := ms.triples[:0]
	for _, t := range ms.triples {
		if !p.Matches(t) {
			kept = append(kept, t)
		}
	}
	ms.triples = kept
	return nil
}
