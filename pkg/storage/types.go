// Package storage provides the persistence boundary for KnowledgeSync.
//
// The store engine never touches disk directly; it hands three documents
// to an Engine and gets them back on load:
//
//   - the entries document: {version, updated, agent, entries: [...]}
//   - the graph document:   {nodes: {topic: meta}, edges: [...]}
//   - the sync log:         the most recent merge records (bounded)
//
// Implementations:
//   - FileEngine:   three JSON files in a data directory (the canonical
//     layout other agents read)
//   - BadgerEngine: persistent key-value storage via dgraph-io/badger
//   - MemoryEngine: in-memory, for tests
//
// An Engine reports a missing document with ErrNotFound; the store treats
// that as a fresh, empty state. Any other load error is downgraded by the
// store to a warning plus empty state — a malformed document must never
// make the store unusable.
package storage

import (
	"errors"

	"github.com/teambrain/knowledgesync/pkg/graph"
	"github.com/teambrain/knowledgesync/pkg/knowledge"
)

// Errors returned by storage engines.
var (
	// ErrNotFound means the requested document has never been saved.
	ErrNotFound = errors.New("storage: document not found")
	// ErrClosed means the engine has been closed.
	ErrClosed = errors.New("storage: engine closed")
)

// DocumentVersion is the version tag written into every document.
const DocumentVersion = "1.0"

// SyncLogLimit bounds the sync log: only the most recent records are
// retained.
const SyncLogLimit = 100

// EntriesDocument is the on-disk form of the entry collection.
type EntriesDocument struct {
	Version string             `json:"version"`
	Updated string             `json:"updated"`
	Agent   string             `json:"agent"`
	Entries []knowledge.Record `json:"entries"`
}

// SyncCounts is the three-count result of one merge.
type SyncCounts struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Conflicts int `json:"conflicts"`
}

// SyncRecord is one line of the sync log: who merged with whom, when,
// and with what outcome.
type SyncRecord struct {
	ID         string     `json:"id"`
	Timestamp  string     `json:"timestamp"`
	Agent      string     `json:"agent"`
	SyncedWith string     `json:"synced_with"`
	Stats      SyncCounts `json:"stats"`
}

// ExportDocument is the full-state snapshot exchanged between agents.
// It carries no deltas: repeated exchange of full snapshots is idempotent
// because merging an already-present, non-newer entry is a no-op.
type ExportDocument struct {
	Version    string             `json:"version"`
	ExportedAt string             `json:"exported_at"`
	Agent      string             `json:"agent"`
	Entries    []knowledge.Record `json:"entries"`
	Graph      graph.Document     `json:"graph"`
}

// Engine is the persistence boundary. All implementations must be usable
// from a single goroutine at a time; the store engine is single-threaded
// and serializes its own persistence calls.
type Engine interface {
	LoadEntries() (*EntriesDocument, error)
	SaveEntries(doc *EntriesDocument) error

	LoadGraph() (*graph.Document, error)
	SaveGraph(doc *graph.Document) error

	LoadSyncLog() ([]SyncRecord, error)
	SaveSyncLog(records []SyncRecord) error

	Close() error
}
