package storage

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/teambrain/knowledgesync/pkg/graph"
)

// Keys under which the three documents are stored. Single documents per
// key: the store is small enough that document-granularity writes beat a
// record-per-key layout in simplicity without costing anything at the
// target scale.
var (
	keyEntries = []byte{0x01}
	keyGraph   = []byte{0x02}
	keySyncLog = []byte{0x03}
)

// BadgerEngine persists documents in a BadgerDB key-value store. Compared
// to FileEngine it buys crash-safe writes at the price of an opaque data
// directory that peers cannot read as plain JSON — use it when the store
// is private to one agent and snapshots are exchanged via Export.
//
// Example:
//
//	engine, err := storage.NewBadgerEngine(storage.BadgerOptions{
//		DataDir: "./data",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
type BadgerEngine struct {
	db     *badger.DB
	closed bool
}

// BadgerOptions configures the BadgerDB engine.
type BadgerOptions struct {
	// DataDir is the directory for data files. Required unless InMemory.
	DataDir string

	// InMemory runs BadgerDB without persistence. Useful for tests.
	InMemory bool

	// SyncWrites forces fsync after each write. Slower but more durable.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output. Nil silences it.
	Logger *zap.Logger
}

// NewBadgerEngine opens (or creates) a Badger-backed document store.
func NewBadgerEngine(opts BadgerOptions) (*BadgerEngine, error) {
	if opts.DataDir == "" && !opts.InMemory {
		return nil, fmt.Errorf("badger engine: DataDir is required")
	}

	badgerOpts := badger.DefaultOptions(opts.DataDir).
		WithInMemory(opts.InMemory).
		WithSyncWrites(opts.SyncWrites).
		WithLogger(newBadgerLogger(opts.Logger))

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	return &BadgerEngine{db: db}, nil
}

func (b *BadgerEngine) LoadEntries() (*EntriesDocument, error) {
	var doc EntriesDocument
	if err := b.load(keyEntries, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (b *BadgerEngine) SaveEntries(doc *EntriesDocument) error {
	return b.save(keyEntries, doc)
}

func (b *BadgerEngine) LoadGraph() (*graph.Document, error) {
	var doc graph.Document
	if err := b.load(keyGraph, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (b *BadgerEngine) SaveGraph(doc *graph.Document) error {
	return b.save(keyGraph, doc)
}

func (b *BadgerEngine) LoadSyncLog() ([]SyncRecord, error) {
	var records []SyncRecord
	if err := b.load(keySyncLog, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (b *BadgerEngine) SaveSyncLog(records []SyncRecord) error {
	if len(records) > SyncLogLimit {
		records = records[len(records)-SyncLogLimit:]
	}
	return b.save(keySyncLog, records)
}

// Close releases the underlying BadgerDB. Idempotent.
func (b *BadgerEngine) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

func (b *BadgerEngine) load(key []byte, v any) error {
	if b.closed {
		return ErrClosed
	}
	return b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, v); err != nil {
				return fmt.Errorf("parsing document: %w", err)
			}
			return nil
		})
	})
}

func (b *BadgerEngine) save(key []byte, v any) error {
	if b.closed {
		return ErrClosed
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// badgerLogger adapts a zap logger to badger.Logger. Badger is chatty at
// INFO during compaction, so its output is mapped one level down.
type badgerLogger struct {
	l *zap.SugaredLogger
}

func newBadgerLogger(l *zap.Logger) badger.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &badgerLogger{l: l.Named("badger").Sugar()}
}

func (b *badgerLogger) Errorf(format string, args ...any)   { b.l.Errorf(format, args...) }
func (b *badgerLogger) Warningf(format string, args ...any) { b.l.Warnf(format, args...) }
func (b *badgerLogger) Infof(format string, args ...any)    { b.l.Debugf(format, args...) }
func (b *badgerLogger) Debugf(format string, args ...any)   { b.l.Debugf(format, args...) }
