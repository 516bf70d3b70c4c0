package extension

import (
	"sync"

	"github.com/weavecode/weave/models"
)

// DocumentStore holds the full text of every open document.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*models.Document
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*models.Document)}
}

// Open starts tracking a document.
func (s *DocumentStore) Open(doc *models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.URI] = doc
}

// Change replaces the text of a tracked document. Unknown documents are ignored.
func (s *DocumentStore) Change(uri string, version int, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return false
	}
	s.docs[uri] = &models.Document{URI: uri, LanguageID: doc.LanguageID, Version: version, Text: text}
	return true
}

// Close stops tracking a document.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

// Get returns the latest snapshot of a document.
func (s *DocumentStore) Get(uri string) (*models.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	return doc, ok
}
