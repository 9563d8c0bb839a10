package knowledgesync

import "time"

// Stats is a point-in-time summary of the store.
type Stats struct {
	TotalEntries      int            `json:"total_entries"`
	TotalTopics       int            `json:"total_topics"`
	TotalEdges        int            `json:"total_edges"`
	EntriesBySource   map[string]int `json:"entries_by_source"`
	EntriesByCategory map[string]int `json:"entries_by_category"`
	AverageConfidence float64        `json:"average_confidence"`
	SyncCount         int            `json:"sync_count"`
	LastSync          *time.Time     `json:"last_sync,omitempty"`
}

// Stats summarizes the store: entry counts by source and category, graph
// size, mean confidence, and sync history. An empty store reports zero
// average confidence rather than dividing by zero.
func (s *Store) Stats() Stats {
	stats := Stats{
		TotalEntries:      len(s.entries),
		TotalTopics:       s.graph.Len(),
		TotalEdges:        s.graph.EdgeCount(),
		EntriesBySource:   make(map[string]int),
		EntriesByCategory: make(map[string]int),
		SyncCount:         len(s.syncLog),
	}

	var sum float64
	for _, entry := range s.entries {
		stats.EntriesBySource[entry.Source]++
		stats.EntriesByCategory[string(entry.Category)]++
		sum += entry.Confidence
	}
	if len(s.entries) > 0 {
		stats.AverageConfidence = sum / float64(len(s.entries))
	}

	if n := len(s.syncLog); n > 0 {
		if t, err := time.Parse(time.RFC3339Nano, s.syncLog[n-1].Timestamp); err == nil {
			stats.LastSync = &t
		}
	}
	return stats
}
