package knowledgesync

import (
	"sort"
	"strings"

	"github.com/teambrain/knowledgesync/pkg/knowledge"
)

// DefaultQueryLimit caps query results when QueryOptions.Limit is unset.
const DefaultQueryLimit = 50

// QueryOptions narrows a Query. Every set field is a conjunctive filter:
// an entry must pass all of them. Zero values mean "no filter".
type QueryOptions struct {
	// Search is a case-insensitive substring test against content,
	// topics, and category.
	Search string

	// Source keeps only entries from this agent (case-insensitive).
	Source string

	// Category keeps only entries whose category matches exactly
	// (case-insensitive, no coercion — an unknown category matches
	// nothing rather than silently matching FACT).
	Category string

	// Topics keeps entries sharing at least one topic with this set.
	Topics []string

	// IncludeRelated widens Topics by one hop of graph neighbors before
	// matching, so a query for "auth" also surfaces entries tagged only
	// with topics that co-occurred with "auth".
	IncludeRelated bool

	// MinConfidence keeps entries with confidence >= this value.
	MinConfidence float64

	// Limit caps the result count; 0 means DefaultQueryLimit.
	Limit int
}

// Query returns entries matching the given filters, most relevant first:
// sorted by confidence descending, ties broken by most recently updated.
// Expired entries never match. Results are copies.
//
// Example:
//
//	hits := store.Query(knowledgesync.QueryOptions{
//		Topics:         []string{"deployment"},
//		IncludeRelated: true,
//		MinConfidence:  0.5,
//	})
func (s *Store) Query(opts QueryOptions) []*knowledge.Entry {
	topics := s.expandTopics(opts.Topics, opts.IncludeRelated)
	source := knowledge.CanonicalAgent(opts.Source)
	category := strings.ToUpper(strings.TrimSpace(opts.Category))
	now := s.now()

	var hits []*knowledge.Entry
	for _, entry := range s.entries {
		if entry.IsExpired(now) {
			continue
		}
		if source != "" && entry.Source != source {
			continue
		}
		if category != "" && string(entry.Category) != category {
			continue
		}
		if opts.MinConfidence > 0 && entry.Confidence < opts.MinConfidence {
			continue
		}
		if topics != nil && !hasAnyTopic(entry, topics) {
			continue
		}
		if opts.Search != "" && !entry.Matches(opts.Search) {
			continue
		}
		hits = append(hits, entry)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Confidence != hits[j].Confidence {
			return hits[i].Confidence > hits[j].Confidence
		}
		return hits[i].Updated.After(hits[j].Updated)
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]*knowledge.Entry, len(hits))
	for i, entry := range hits {
		out[i] = entry.Clone()
	}
	return out
}

// QueryAgent returns what one agent knows about a topic: a convenience
// wrapper over Query with a higher limit, used by the CLI's agent view.
func (s *Store) QueryAgent(agent, topic string) []*knowledge.Entry {
	return s.Query(QueryOptions{
		Search: topic,
		Source: agent,
		Limit:  100,
	})
}

// expandTopics normalizes the requested topics and, when asked, widens
// the set with each topic's depth-1 graph neighborhood. A nil result
// means "no topic filter".
func (s *Store) expandTopics(topics []string, includeRelated bool) map[string]struct{} {
	if len(topics) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		t = knowledge.NormalizeTopic(t)
		set[t] = struct{}{}
		if includeRelated {
			for neighbor := range s.graph.Related(t, 1) {
				set[neighbor] = struct{}{}
			}
		}
	}
	return set
}

func hasAnyTopic(entry *knowledge.Entry, set map[string]struct{}) bool {
	for _, t := range entry.Topics {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// TopicCount pairs a topic with how many times entries have referenced
// it. The count is monotonic: deleting an entry does not decrement it.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Topics returns every known topic ordered by reference count descending,
// ties broken alphabetically.
func (s *Store) Topics() []TopicCount {
	counts := s.graph.Counts()
	out := make([]TopicCount, 0, len(counts))
	for topic, count := range counts {
		out = append(out, TopicCount{Topic: topic, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Topic < out[j].Topic
	})
	return out
}

// RelatedTopics returns the topics reachable from topic within depth
// hops, excluding the topic itself. Unknown topics yield an empty set.
func (s *Store) RelatedTopics(topic string, depth int) map[string]struct{} {
	return s.graph.Related(knowledge.NormalizeTopic(topic), depth)
}
