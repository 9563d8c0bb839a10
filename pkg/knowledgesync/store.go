// Package knowledgesync implements the shared knowledge store for Team
// Brain agents: discrete knowledge entries, a topic co-occurrence graph
// derived from them, ranked queries, topic subscriptions, and
// timestamp-based synchronization between agents.
//
// Architecture:
//   - Entries: the canonical entry collection, keyed by derived ID
//   - Graph: topic association graph, grown from entry topic pairs
//   - Sync: single-pass last-writer-wins reconciliation with peers
//   - Storage: pluggable persistence boundary (file, badger, memory)
//
// Example Usage:
//
//	engine, _ := storage.NewFileEngine(dir)
//	store, err := knowledgesync.Open("ATLAS", &knowledgesync.Options{
//		Engine:   engine,
//		AutoSync: true,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	store.Add("TokenTracker uses ~$0.50/day on average", knowledgesync.AddOptions{
//		Category: knowledge.CategoryFinding,
//		Topics:   []string{"tokentracker", "costs"},
//	})
//
//	results := store.Query(knowledgesync.QueryOptions{Search: "tokentracker"})
//
// Thread Safety:
//
//	A Store is single-threaded by design: every operation runs to
//	completion before returning and the store supplies no internal
//	locking. Callers using a store from multiple goroutines must
//	serialize access externally.
package knowledgesync

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teambrain/knowledgesync/pkg/graph"
	"github.com/teambrain/knowledgesync/pkg/knowledge"
	"github.com/teambrain/knowledgesync/pkg/storage"
)

// RelationCoOccurs is the relation label for edges created automatically
// between topics that appear together on one entry. It is the only way
// the graph accrues structure — there is no separate relation-authoring
// API.
const RelationCoOccurs = "co-occurs"

// DefaultAgent is used when Open is given an empty agent name.
const DefaultAgent = "SYSTEM"

// Options configures a Store.
type Options struct {
	// Engine is the persistence boundary. Nil means memory-only: the
	// store works normally but nothing survives the process.
	Engine storage.Engine

	// AutoSync writes through to the engine after every mutation. When
	// false, callers batch mutations and call Flush explicitly. In-memory
	// consistency never depends on persistence succeeding either way.
	AutoSync bool

	// Logger receives warnings (tolerant loads, callback failures,
	// persistence errors) and debug traces. Nil means no logging.
	Logger *zap.Logger
}

// Store is the aggregate root: it exclusively owns the canonical entry
// collection, the topic graph, and the bounded sync log. Everything it
// hands out is a copy.
type Store struct {
	agent    string
	entries  map[string]*knowledge.Entry
	graph    *graph.Graph
	subs     map[string][]*Subscription
	syncLog  []storage.SyncRecord
	engine   storage.Engine
	autoSync bool
	logger   *zap.Logger

	// now is the store clock; tests may replace it.
	now func() time.Time
}

// Open creates a store for the given agent and loads any previously
// persisted state from the configured engine.
//
// Loading is tolerant: a missing document yields empty state silently, a
// malformed one yields empty state plus a warning. Open never fails
// because of document content, so the store is always usable after a
// successful return. Entries that expired while on disk are dropped
// during load.
func Open(agent string, opts *Options) (*Store, error) {
	if opts == nil {
		opts = &Options{}
	}
	if agent == "" {
		agent = DefaultAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		agent:    knowledge.CanonicalAgent(agent),
		entries:  make(map[string]*knowledge.Entry),
		graph:    graph.New(),
		subs:     make(map[string][]*Subscription),
		engine:   opts.Engine,
		autoSync: opts.AutoSync,
		logger:   logger,
		now:      time.Now,
	}
	s.load()
	return s, nil
}

// Agent returns the canonical agent identity this store writes as.
func (s *Store) Agent() string { return s.agent }

// Close flushes state if auto-sync is enabled and closes the engine.
func (s *Store) Close() error {
	if s.engine == nil {
		return nil
	}
	if s.autoSync {
		if err := s.Flush(); err != nil {
			s.logger.Warn("flush on close failed", zap.Error(err))
		}
	}
	return s.engine.Close()
}

// load pulls the three documents from the engine, downgrading every
// failure to a warning plus empty state.
func (s *Store) load() {
	if s.engine == nil {
		return
	}

	now := s.now()
	if doc, err := s.engine.LoadEntries(); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("could not load entries, starting empty", zap.Error(err))
		}
	} else {
		for _, rec := range doc.Entries {
			entry, err := knowledge.FromRecord(rec)
			if err != nil {
				s.logger.Warn("skipping malformed entry record",
					zap.String("entry_id", rec.EntryID), zap.Error(err))
				continue
			}
			if entry.IsExpired(now) {
				continue
			}
			s.entries[entry.ID] = entry
		}
	}

	if doc, err := s.engine.LoadGraph(); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("could not load graph, starting empty", zap.Error(err))
		}
	} else {
		s.graph = graph.FromDocument(*doc)
	}

	if records, err := s.engine.LoadSyncLog(); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("could not load sync log, starting empty", zap.Error(err))
		}
	} else {
		s.syncLog = records
	}
}

// AddOptions carries the optional fields for Add.
type AddOptions struct {
	// Category defaults to CategoryFact; unrecognized values coerce.
	Category knowledge.Category

	// Topics tag the entry and feed the graph.
	Topics []string

	// Confidence is clamped to [0.0, 1.0] and stored as given; 0 is a
	// legal (if useless) confidence.
	Confidence float64

	// ExpiresInDays, when positive, sets the entry to expire that many
	// days from now.
	ExpiresInDays int

	// References are related entry IDs; dangling references are legal.
	References []string

	// Metadata is an open key/value map.
	Metadata map[string]any
}

// Add records a new knowledge entry attributed to this store's agent.
//
// Every topic becomes a graph node, and every unordered pair of topics on
// the entry gets a co-occurs edge. Subscribers on any of the topics are
// notified. Returns knowledge.ErrEmptyContent for empty content.
//
// Example:
//
//	entry, err := store.Add("BCH uses port 8080 for web interface",
//		knowledgesync.AddOptions{
//			Category: knowledge.CategoryConfig,
//			Topics:   []string{"bch", "ports", "configuration"},
//			Confidence: knowledge.ConfidenceHigh,
//		})
func (s *Store) Add(content string, opts AddOptions) (*knowledge.Entry, error) {
	var expires *time.Time
	if opts.ExpiresInDays > 0 {
		t := s.now().AddDate(0, 0, opts.ExpiresInDays)
		expires = &t
	}

	entry, err := knowledge.New(content, s.agent, knowledge.Options{
		Category:   opts.Category,
		Topics:     opts.Topics,
		Confidence: opts.Confidence,
		Expires:    expires,
		References: opts.References,
		Metadata:   opts.Metadata,
		Created:    s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.entries[entry.ID] = entry
	s.linkTopics(entry.Topics)
	s.notify(entry)
	s.persistIfAuto()

	s.logger.Debug("entry added",
		zap.String("entry_id", entry.ID),
		zap.String("category", string(entry.Category)),
		zap.Int("topics", len(entry.Topics)))
	return entry.Clone(), nil
}

// linkTopics adds a node per topic and a co-occurs edge between every
// unordered pair of topics.
func (s *Store) linkTopics(topics []string) {
	for _, topic := range topics {
		s.graph.AddNode(topic, nil)
	}
	for i, a := range topics {
		for _, b := range topics[i+1:] {
			s.graph.AddEdge(a, b, RelationCoOccurs, 1.0)
		}
	}
}

// UpdateOptions carries the optional fields for Update. Nil fields are
// left untouched.
type UpdateOptions struct {
	Content    *string
	Category   *knowledge.Category
	Topics     []string // nil = untouched; empty slice clears topics
	Confidence *float64
	Metadata   map[string]any // merged key-by-key, never replaced
}

// Update applies a partial update to an existing entry and returns a
// copy of the result, or nil if the ID is unknown — "not found" is a
// normal outcome here, not an error.
//
// The updated timestamp always advances, even when no field changed.
// New topics feed the graph exactly as Add does, which preserves the
// invariant that every topic on a live entry has a graph node. An
// all-whitespace content update is ignored (content must stay non-empty).
func (s *Store) Update(id string, opts UpdateOptions) *knowledge.Entry {
	entry, ok := s.entries[id]
	if !ok {
		return nil
	}

	if opts.Content != nil {
		if trimmed := strings.TrimSpace(*opts.Content); trimmed != "" {
			entry.Content = trimmed
		} else {
			s.logger.Warn("ignoring empty content update", zap.String("entry_id", id))
		}
	}
	if opts.Category != nil {
		entry.Category = knowledge.ParseCategory(string(*opts.Category))
	}
	if opts.Topics != nil {
		entry.Topics = normalizeAll(opts.Topics)
		s.linkTopics(entry.Topics)
	}
	if opts.Confidence != nil {
		entry.Confidence = knowledge.ClampConfidence(*opts.Confidence)
	}
	for k, v := range opts.Metadata {
		entry.Metadata[k] = v
	}

	entry.Updated = s.now()
	s.notify(entry)
	s.persistIfAuto()
	return entry.Clone()
}

// Delete removes an entry from the collection. Topics the entry
// contributed stay in the graph — the graph is monotonic; orphaned nodes
// are harmless at this scale.
func (s *Store) Delete(id string) bool {
	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	s.persistIfAuto()
	return true
}

// Get returns a copy of the entry, or nil if the ID is unknown.
func (s *Store) Get(id string) *knowledge.Entry {
	entry, ok := s.entries[id]
	if !ok {
		return nil
	}
	return entry.Clone()
}

// Len returns the number of live entries.
func (s *Store) Len() int { return len(s.entries) }

// CleanupExpired removes every expired entry and returns how many were
// removed.
func (s *Store) CleanupExpired() int {
	now := s.now()
	var expired []string
	for id, entry := range s.entries {
		if entry.IsExpired(now) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.entries, id)
	}
	if len(expired) > 0 {
		s.persistIfAuto()
		s.logger.Debug("expired entries removed", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Clear wipes the store: entries, graph, and sync log. It does nothing
// and returns false unless confirm is true.
func (s *Store) Clear(confirm bool) bool {
	if !confirm {
		return false
	}
	s.entries = make(map[string]*knowledge.Entry)
	s.graph = graph.New()
	s.syncLog = nil
	s.persistIfAuto()
	return true
}

// Flush writes the current state through the persistence boundary. It is
// the explicit counterpart to AutoSync for callers that batch mutations.
func (s *Store) Flush() error {
	if s.engine == nil {
		return nil
	}
	return s.persist()
}

func (s *Store) persistIfAuto() {
	if !s.autoSync || s.engine == nil {
		return
	}
	if err := s.persist(); err != nil {
		// In-memory state is already committed; persistence failures are
		// reported, not propagated.
		s.logger.Warn("auto-sync persist failed", zap.Error(err))
	}
}

func (s *Store) persist() error {
	doc := &storage.EntriesDocument{
		Version: storage.DocumentVersion,
		Updated: s.now().Format(time.RFC3339Nano),
		Agent:   s.agent,
		Entries: make([]knowledge.Record, 0, len(s.entries)),
	}
	for _, entry := range s.entries {
		doc.Entries = append(doc.Entries, entry.ToRecord())
	}
	if err := s.engine.SaveEntries(doc); err != nil {
		return fmt.Errorf("saving entries: %w", err)
	}

	graphDoc := s.graph.ToDocument()
	if err := s.engine.SaveGraph(&graphDoc); err != nil {
		return fmt.Errorf("saving graph: %w", err)
	}

	if err := s.engine.SaveSyncLog(s.syncLog); err != nil {
		return fmt.Errorf("saving sync log: %w", err)
	}
	return nil
}

func normalizeAll(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		out = append(out, knowledge.NormalizeTopic(t))
	}
	return out
}

