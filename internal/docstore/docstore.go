// Package docstore keeps the whole circulation state in one JSON document,
// either only in memory or mirrored to a file on disk.
//
// Every Update works on a copy of the document; the copy replaces the
// current state only after fn succeeds and, for file-backed stores, after
// the new document has been written and renamed into place.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/entities"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrReadOnly = errors.New("docstore: write attempted in a read-only view")
	ErrClosed   = errors.New("docstore: store is closed")
)

// Document is the persisted shape of the store.
type Document struct {
	Books    []entities.Book       `json:"books"`
	Accounts []entities.Account    `json:"accounts"`
	Requests []entities.Request    `json:"requests"`
	Loans    []entities.Loan       `json:"loans"`
	Fines    []entities.FineRecord `json:"fines"`
	Settings map[string]string     `json:"settings"`
	NextIDs  map[string]uint       `json:"next_ids"`
}

func newDocument() *Document {
	return &Document{
		Books:    []entities.Book{},
		Accounts: []entities.Account{},
		Requests: []entities.Request{},
		Loans:    []entities.Loan{},
		Fines:    []entities.FineRecord{},
		Settings: map[string]string{},
		NextIDs:  map[string]uint{},
	}
}

// clone copies every slice and map. Records are values, so edits made
// inside a transaction never reach the committed document.
func (d *Document) clone() *Document {
	c := &Document{
		Books:    append([]entities.Book(nil), d.Books...),
		Accounts: append([]entities.Account(nil), d.Accounts...),
		Requests: append([]entities.Request(nil), d.Requests...),
		Loans:    append([]entities.Loan(nil), d.Loans...),
		Fines:    append([]entities.FineRecord(nil), d.Fines...),
		Settings: make(map[string]string, len(d.Settings)),
		NextIDs:  make(map[string]uint, len(d.NextIDs)),
	}
	for k, v := range d.Settings {
		c.Settings[k] = v
	}
	for k, v := range d.NextIDs {
		c.NextIDs[k] = v
	}
	return c
}

func (d *Document) nextID(kind string) uint {
	d.NextIDs[kind]++
	return d.NextIDs[kind]
}

type Store struct {
	mu     sync.RWMutex
	doc    *Document
	path   string
	closed bool
}

// NewMemory returns a store that is never written to disk.
func NewMemory() *Store {
	return &Store{doc: newDocument()}
}

// Open loads the document at path, starting empty when the file does not exist.
func Open(path string) (*Store, error) {
	doc := newDocument()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("Document store %s not found, starting empty", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read document store: %w", err)
	case len(data) > 0:
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("failed to decode document store: %w", err)
		}
		normalize(doc)
	}

	return &Store{doc: doc, path: path}, nil
}

func normalize(doc *Document) {
	if doc.Settings == nil {
		doc.Settings = map[string]string{}
	}
	if doc.NextIDs == nil {
		doc.NextIDs = map[string]uint{}
	}
	for i := range doc.Loans {
		doc.Loans[i].StartDate = doc.Loans[i].StartDate.UTC()
		doc.Loans[i].DueDate = doc.Loans[i].DueDate.UTC()
	}
}

func (s *Store) Update(ctx context.Context, fn func(tx circulation.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	working := s.doc.clone()
	if err := fn(&tx{doc: working}); err != nil {
		return err
	}
	if s.path != "" {
		if err := writeFile(s.path, working); err != nil {
			return err
		}
	}
	s.doc = working
	return nil
}

func (s *Store) View(ctx context.Context, fn func(tx circulation.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return fn(&tx{doc: s.doc, readOnly: true})
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Path is empty for memory-only stores.
func (s *Store) Path() string {
	return s.path
}

// writeFile replaces path atomically via a temp file in the same directory.
func writeFile(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document store: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create document store directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write document store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync document store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close document store: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace document store: %w", err)
	}
	return nil
}
