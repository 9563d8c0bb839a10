package storage

import (
	"encoding/json"
	"fmt"

	"github.com/teambrain/knowledgesync/pkg/graph"
)

// MemoryEngine keeps documents in memory. It round-trips every document
// through JSON so that tests exercise the same serialization path as the
// persistent engines — an entry that survives MemoryEngine survives
// FileEngine too.
//
// Intended for tests and for callers that want an explicitly ephemeral
// store; everything vanishes when the engine is garbage collected.
type MemoryEngine struct {
	docs   map[string][]byte
	closed bool
}

// NewMemoryEngine creates an empty in-memory document store.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{docs: make(map[string][]byte)}
}

func (m *MemoryEngine) LoadEntries() (*EntriesDocument, error) {
	var doc EntriesDocument
	if err := m.load(entriesFile, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *MemoryEngine) SaveEntries(doc *EntriesDocument) error {
	return m.save(entriesFile, doc)
}

func (m *MemoryEngine) LoadGraph() (*graph.Document, error) {
	var doc graph.Document
	if err := m.load(graphFile, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *MemoryEngine) SaveGraph(doc *graph.Document) error {
	return m.save(graphFile, doc)
}

func (m *MemoryEngine) LoadSyncLog() ([]SyncRecord, error) {
	var records []SyncRecord
	if err := m.load(syncLogFile, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (m *MemoryEngine) SaveSyncLog(records []SyncRecord) error {
	if len(records) > SyncLogLimit {
		records = records[len(records)-SyncLogLimit:]
	}
	return m.save(syncLogFile, records)
}

func (m *MemoryEngine) Close() error {
	m.closed = true
	return nil
}

func (m *MemoryEngine) load(name string, v any) error {
	if m.closed {
		return ErrClosed
	}
	data, ok := m.docs[name]
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

func (m *MemoryEngine) save(name string, v any) error {
	if m.closed {
		return ErrClosed
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	m.docs[name] = data
	return nil
}
