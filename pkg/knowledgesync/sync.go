package knowledgesync

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teambrain/knowledgesync/pkg/graph"
	"github.com/teambrain/knowledgesync/pkg/knowledge"
	"github.com/teambrain/knowledgesync/pkg/storage"
)

// SyncStats reports the outcome of one merge: how many entries were
// added, how many were replaced by a newer version, and how many
// conflicted (equal timestamp, differing content — local copy retained).
type SyncStats = storage.SyncCounts

// Sync merges another store's knowledge into this one and records the
// outcome in the sync log. The other store is never modified; two-way
// convergence is two calls, one in each direction.
//
// Merge rules, applied per entry by ID:
//   - unknown ID: the entry is added
//   - known ID, incoming strictly newer: incoming replaces local
//   - known ID, equal timestamp, different content: conflict — the local
//     copy is retained and the conflict counted
//   - otherwise: no-op
//
// Graph merges are additive: nodes and edges absent locally are adopted
// verbatim, existing ones are left alone.
//
// ELI12: It's like comparing class notes with a friend. Anything they
// have that you don't, you copy. Where you both have notes on the same
// thing, the newer version wins. If both were written at the very same
// minute but say different things, you keep yours and make a tally mark
// so someone knows to sort it out later.
func (s *Store) Sync(other *Store) SyncStats {
	var stats SyncStats
	if other == nil {
		return stats
	}

	for _, entry := range other.entries {
		s.mergeEntry(entry, &stats)
	}
	s.graph.Merge(other.graph)
	s.recordSync(other.agent, stats)
	s.persistIfAuto()

	s.logger.Info("sync complete",
		zap.String("with", other.agent),
		zap.Int("added", stats.Added),
		zap.Int("updated", stats.Updated),
		zap.Int("conflicts", stats.Conflicts))
	return stats
}

// mergeEntry applies the merge rules for one incoming entry.
func (s *Store) mergeEntry(incoming *knowledge.Entry, stats *SyncStats) {
	local, ok := s.entries[incoming.ID]
	if !ok {
		s.entries[incoming.ID] = incoming.Clone()
		stats.Added++
		return
	}
	if incoming.Updated.After(local.Updated) {
		s.entries[incoming.ID] = incoming.Clone()
		stats.Updated++
		return
	}
	if incoming.Updated.Equal(local.Updated) && incoming.Content != local.Content {
		stats.Conflicts++
		s.logger.Warn("sync conflict, keeping local entry",
			zap.String("entry_id", incoming.ID),
			zap.String("local_source", local.Source),
			zap.String("incoming_source", incoming.Source))
	}
}

// recordSync appends a record to the bounded sync log.
func (s *Store) recordSync(with string, stats SyncStats) {
	s.syncLog = append(s.syncLog, storage.SyncRecord{
		ID:         uuid.NewString(),
		Timestamp:  s.now().Format(time.RFC3339Nano),
		Agent:      s.agent,
		SyncedWith: with,
		Stats:      stats,
	})
	if len(s.syncLog) > storage.SyncLogLimit {
		s.syncLog = s.syncLog[len(s.syncLog)-storage.SyncLogLimit:]
	}
}

// SyncLog returns a copy of the retained sync records, oldest first.
func (s *Store) SyncLog() []storage.SyncRecord {
	return append([]storage.SyncRecord(nil), s.syncLog...)
}

// Export produces a full-state snapshot: every entry plus the complete
// graph. Snapshots are the transport for offline sync — write one to a
// shared directory and any peer can Import it.
func (s *Store) Export() *storage.ExportDocument {
	doc := &storage.ExportDocument{
		Version:    storage.DocumentVersion,
		ExportedAt: s.now().Format(time.RFC3339Nano),
		Agent:      s.agent,
		Entries:    make([]knowledge.Record, 0, len(s.entries)),
		Graph:      s.graph.ToDocument(),
	}
	for _, entry := range s.entries {
		doc.Entries = append(doc.Entries, entry.ToRecord())
	}
	return doc
}

// ExportFile writes an export snapshot to path as indented JSON.
func (s *Store) ExportFile(path string) error {
	data, err := json.MarshalIndent(s.Export(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// Import merges a snapshot produced by Export, applying the same rules
// as Sync. Unlike Sync it leaves no sync log record — the log tracks
// live store-to-store merges, not snapshot ingestion. Records that fail
// to parse are skipped with a warning; one bad record never aborts the
// import.
func (s *Store) Import(doc *storage.ExportDocument) SyncStats {
	var stats SyncStats
	if doc == nil {
		return stats
	}

	for _, rec := range doc.Entries {
		entry, err := knowledge.FromRecord(rec)
		if err != nil {
			s.logger.Warn("skipping malformed record in import",
				zap.String("entry_id", rec.EntryID), zap.Error(err))
			continue
		}
		s.mergeEntry(entry, &stats)
	}
	s.graph.Merge(graph.FromDocument(doc.Graph))
	s.persistIfAuto()

	s.logger.Info("import complete",
		zap.String("from", doc.Agent),
		zap.Int("added", stats.Added),
		zap.Int("updated", stats.Updated),
		zap.Int("conflicts", stats.Conflicts))
	return stats
}

// ImportFile reads an export snapshot from path and merges it.
func (s *Store) ImportFile(path string) (SyncStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SyncStats{}, fmt.Errorf("reading snapshot: %w", err)
	}
	var doc storage.ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return SyncStats{}, fmt.Errorf("parsing snapshot: %w", err)
	}
	return s.Import(&doc), nil
}
