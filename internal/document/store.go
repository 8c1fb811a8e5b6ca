package document

import (
	"fmt"
	"sync"

	"document-qa/internal/apperrors"
)

// Store maps document ids to documents. Inserts come from uploads, lookups from questions;
// documents are never replaced in place.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]*Document
	order []string
}

func NewStore() *Store {
	return &Store{docs: make(map[string]*Document)}
}

// Put inserts doc; an id can only be stored once
func (s *Store) Put(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.id]; ok {
		return apperrors.Wrap(apperrors.KindInternal, fmt.Sprintf("document %s already stored", doc.id), nil)
	}
	s.docs[doc.id] = doc
	s.order = append(s.order, doc.id)
	return nil
}

func (s *Store) Get(id string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return doc, ok
}

// Resolve looks up every id in order and fails on the first one that is missing
func (s *Store) Resolve(ids []string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]*Document, 0, len(ids))
	for _, id := range ids {
		doc, ok := s.docs[id]
		if !ok {
			return nil, apperrors.DocumentNotFound(id)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// List returns the stored documents in insertion order
func (s *Store) List() []*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id])
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
