// Package registry holds the shared store of active documents. It replaces
// ambient process-wide state: every operation receives the registry
// explicitly and mutations are serialized per document id.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"paperdesk/internal/domain"
)

// Entry is one active document together with its quality assessment.
type Entry struct {
	Document domain.Document
	Quality  domain.QualityScore
}

type Registry struct {
	mu   sync.RWMutex
	docs map[string]*Entry
}

func New() *Registry {
	return &Registry{docs: map[string]*Entry{}}
}

// Put registers a document. Ids are immutable once created; registering a
// duplicate id is an input error.
func (r *Registry) Put(e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[e.Document.ID]; ok {
		return fmt.Errorf("%w: duplicate document id %s", domain.ErrInvalidInput, e.Document.ID)
	}
	r.docs[e.Document.ID] = e
	return nil
}

func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.docs[id]
	return e, ok
}

// Remove detaches the entry under the write lock and returns it. Index
// teardown happens after detachment, so no concurrent request can resolve
// the id to a half-torn-down collection.
func (r *Registry) Remove(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.docs[id]
	if ok {
		delete(r.docs, id)
	}
	return e, ok
}

// List returns all entries ordered by upload time, then id.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, 0, len(r.docs))
	for _, e := range r.docs {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Document.UploadedAt.Equal(out[j].Document.UploadedAt) {
			return out[i].Document.ID < out[j].Document.ID
		}
		return out[i].Document.UploadedAt.Before(out[j].Document.UploadedAt)
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}
