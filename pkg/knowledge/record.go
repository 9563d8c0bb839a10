package knowledge

import (
	"fmt"
	"time"
)

// Record is the flat wire form of an Entry, as stored in the entries
// document and exchanged in sync exports. Timestamps are ISO-8601
// strings; a null expires means "never expires".
//
// ToRecord followed by FromRecord is exact: every field round-trips,
// including the ID (identity must survive serialization or merges would
// duplicate entries).
type Record struct {
	EntryID    string         `json:"entry_id"`
	Content    string         `json:"content"`
	Source     string         `json:"source"`
	Category   string         `json:"category"`
	Topics     []string       `json:"topics"`
	Confidence float64        `json:"confidence"`
	Created    string         `json:"created"`
	Updated    string         `json:"updated"`
	Expires    *string        `json:"expires"`
	References []string       `json:"references"`
	Metadata   map[string]any `json:"metadata"`
}

// ToRecord converts the entry to its wire form.
func (e *Entry) ToRecord() Record {
	rec := Record{
		EntryID:    e.ID,
		Content:    e.Content,
		Source:     e.Source,
		Category:   string(e.Category),
		Topics:     append([]string(nil), e.Topics...),
		Confidence: e.Confidence,
		Created:    e.Created.Format(time.RFC3339Nano),
		Updated:    e.Updated.Format(time.RFC3339Nano),
		References: append([]string(nil), e.References...),
		Metadata:   copyMetadata(e.Metadata),
	}
	if e.Expires != nil {
		exp := e.Expires.Format(time.RFC3339Nano)
		rec.Expires = &exp
	}
	return rec
}

// FromRecord reconstructs an Entry from its wire form.
//
// The record's entry_id is trusted as-is: re-deriving it here would break
// identity for entries whose content was updated after creation, and for
// records produced by other agents. Normalization still applies, so a
// hand-edited document cannot smuggle in out-of-range confidence or an
// unknown category.
func FromRecord(rec Record) (*Entry, error) {
	created, err := parseTime(rec.Created)
	if err != nil {
		return nil, fmt.Errorf("parsing created timestamp: %w", err)
	}
	updated, err := parseTime(rec.Updated)
	if err != nil {
		return nil, fmt.Errorf("parsing updated timestamp: %w", err)
	}

	opts := Options{
		ID:         rec.EntryID,
		Category:   Category(rec.Category),
		Topics:     rec.Topics,
		Confidence: rec.Confidence,
		References: rec.References,
		Metadata:   rec.Metadata,
		Created:    created,
		Updated:    updated,
	}
	if rec.Expires != nil {
		exp, err := parseTime(*rec.Expires)
		if err != nil {
			return nil, fmt.Errorf("parsing expires timestamp: %w", err)
		}
		opts.Expires = &exp
	}
	return New(rec.Content, rec.Source, opts)
}

// parseTime accepts RFC3339 with or without fractional seconds. Documents
// written by other tooling commonly drop the fraction.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
