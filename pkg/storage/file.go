package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/teambrain/knowledgesync/pkg/graph"
)

// File names inside the data directory. Other Team Brain agents read
// these directly, so the names are part of the contract.
const (
	entriesFile = "entries.json"
	graphFile   = "graph.json"
	syncLogFile = "sync_log.json"
)

// FileEngine persists each document as an indented JSON file in a data
// directory. This is the canonical interchange layout: a peer agent can
// point its own store at the same directory structure, or pick up an
// exported snapshot produced from it.
//
// Example:
//
//	engine, err := storage.NewFileEngine("~/.knowledgesync")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
type FileEngine struct {
	dir    string
	closed bool
}

// NewFileEngine creates a file engine rooted at dir, creating the
// directory if needed.
func NewFileEngine(dir string) (*FileEngine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileEngine{dir: dir}, nil
}

// Dir returns the data directory.
func (f *FileEngine) Dir() string { return f.dir }

func (f *FileEngine) LoadEntries() (*EntriesDocument, error) {
	var doc EntriesDocument
	if err := f.load(entriesFile, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (f *FileEngine) SaveEntries(doc *EntriesDocument) error {
	return f.save(entriesFile, doc)
}

func (f *FileEngine) LoadGraph() (*graph.Document, error) {
	var doc graph.Document
	if err := f.load(graphFile, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (f *FileEngine) SaveGraph(doc *graph.Document) error {
	return f.save(graphFile, doc)
}

func (f *FileEngine) LoadSyncLog() ([]SyncRecord, error) {
	var records []SyncRecord
	if err := f.load(syncLogFile, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (f *FileEngine) SaveSyncLog(records []SyncRecord) error {
	if len(records) > SyncLogLimit {
		records = records[len(records)-SyncLogLimit:]
	}
	return f.save(syncLogFile, records)
}

// Close marks the engine closed. File handles are not held open between
// operations, so there is nothing else to release.
func (f *FileEngine) Close() error {
	f.closed = true
	return nil
}

func (f *FileEngine) load(name string, v any) error {
	if f.closed {
		return ErrClosed
	}
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

func (f *FileEngine) save(name string, v any) error {
	if f.closed {
		return ErrClosed
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(f.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
