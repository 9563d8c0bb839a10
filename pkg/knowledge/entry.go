// Package knowledge defines the knowledge entry data model for
// KnowledgeSync.
//
// An Entry is one atomic unit of recorded knowledge: a piece of text with
// provenance (which agent said it), a category, topic tags, a confidence
// score, and optional expiry. Entries are the only thing the store holds;
// the topic graph is derived entirely from their topic tags.
//
// Identity:
//
// An entry's ID is derived deterministically from its content, source and
// creation timestamp via SHA-256, truncated to 16 hex characters. Two
// agents independently recording the same content at the same instant
// produce the same ID, which is what makes cross-agent merges idempotent.
//
// Example Usage:
//
//	entry, err := knowledge.New(
//		"TokenTracker uses ~$0.50/day on average",
//		"ATLAS",
//		knowledge.Options{
//			Category:   knowledge.CategoryFinding,
//			Topics:     []string{"TokenTracker", "costs"},
//			Confidence: knowledge.ConfidenceHigh,
//		},
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Println(entry.ID)                 // e.g. "3fa1c29be07d44aa"
//	fmt.Println(entry.Topics)             // ["tokentracker", "costs"]
//	fmt.Println(entry.Matches("tracker")) // true
package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyContent is returned when an entry is constructed with empty or
// whitespace-only content.
var ErrEmptyContent = errors.New("knowledge: content cannot be empty")

// idLength is the number of hex characters kept from the SHA-256 digest.
const idLength = 16

// Entry represents a single piece of knowledge.
//
// Normalization performed at construction:
//   - Content is trimmed.
//   - Source is upper-cased (agent names are canonically upper case).
//   - Topics are lower-cased and trimmed. Duplicates are permitted and
//     order is preserved for display; matching ignores both.
//   - Category is coerced to CategoryFact when unrecognized.
//   - Confidence is clamped to [0.0, 1.0].
//
// Updated starts equal to Created and advances on every mutation the
// store performs. A nil Expires means the entry never expires.
// References may point at entry IDs that no longer exist; dangling
// references are legal.
type Entry struct {
	ID         string
	Content    string
	Source     string
	Category   Category
	Topics     []string
	Confidence float64
	Created    time.Time
	Updated    time.Time
	Expires    *time.Time
	References []string
	Metadata   map[string]any
}

// Options carries the optional fields for New.
//
// ID deserves a warning: when set, it is trusted as-is and hash
// derivation is skipped. This exists so that deserialization and merge
// preserve entry identity across agents. Any caller that supplies IDs by
// hand can impersonate another agent's entries — the store trusts its
// callers, there is no cross-agent authentication (by scope).
type Options struct {
	Category   Category
	Topics     []string
	Confidence float64
	Expires    *time.Time
	References []string
	Metadata   map[string]any

	// ID, Created and Updated are normally derived. They are settable so
	// that FromRecord can reconstruct an entry exactly.
	ID      string
	Created time.Time
	Updated time.Time
}

// New constructs a validated, normalized Entry.
//
// Returns ErrEmptyContent if content is empty or whitespace-only. All
// other inputs are coerced rather than rejected (see Entry).
//
// Example:
//
//	e, err := knowledge.New("BCH uses port 8080", "FORGE", knowledge.Options{
//		Category: knowledge.CategoryConfig,
//		Topics:   []string{"bch", "ports"},
//	})
func New(content, source string, opts Options) (*Entry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	created := opts.Created
	if created.IsZero() {
		created = time.Now()
	}
	updated := opts.Updated
	if updated.IsZero() {
		updated = created
	}

	e := &Entry{
		Content:    content,
		Source:     upper(source),
		Category:   ParseCategory(string(opts.Category)),
		Topics:     normalizeTopics(opts.Topics),
		Confidence: ClampConfidence(opts.Confidence),
		Created:    created,
		Updated:    updated,
		Expires:    opts.Expires,
		References: append([]string(nil), opts.References...),
		Metadata:   copyMetadata(opts.Metadata),
	}

	if opts.ID != "" {
		e.ID = opts.ID
	} else {
		e.ID = DeriveID(e.Content, e.Source, e.Created)
	}
	return e, nil
}

// DeriveID computes the deterministic entry ID for the given content,
// source and creation instant: hex(SHA-256("content:source:created"))
// truncated to 16 characters.
func DeriveID(content, source string, created time.Time) string {
	input := fmt.Sprintf("%s:%s:%s", content, source, created.Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:idLength]
}

// IsExpired reports whether the entry has expired as of now.
// Entries without an expiry never expire.
func (e *Entry) IsExpired(now time.Time) bool {
	if e.Expires == nil {
		return false
	}
	return now.After(*e.Expires)
}

// Matches reports whether the entry matches a free-text query: a
// case-insensitive substring test against the content, each topic, and
// the category. True if any of them match.
func (e *Entry) Matches(query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(e.Content), q) {
		return true
	}
	for _, topic := range e.Topics {
		if strings.Contains(topic, q) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(string(e.Category)), q)
}

// Clone returns a deep copy of the entry. The store hands out clones so
// query results are read-only views of the canonical copy.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Topics = append([]string(nil), e.Topics...)
	c.References = append([]string(nil), e.References...)
	c.Metadata = copyMetadata(e.Metadata)
	if e.Expires != nil {
		exp := *e.Expires
		c.Expires = &exp
	}
	return &c
}

func (e *Entry) String() string {
	return fmt.Sprintf("Entry(id=%s, source=%s, category=%s)", shortID(e.ID), e.Source, e.Category)
}

// CanonicalAgent returns the canonical form of an agent name: trimmed
// and upper-cased. Entry sources and sync log attribution use this form.
func CanonicalAgent(name string) string { return upper(name) }

// ClampConfidence clamps c into [0.0, 1.0].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// NormalizeTopic lower-cases and trims a topic tag. Topic identity is
// defined by this form everywhere: entries, graph nodes, subscriptions.
func NormalizeTopic(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}

func normalizeTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		out = append(out, NormalizeTopic(t))
	}
	return out
}

func copyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
