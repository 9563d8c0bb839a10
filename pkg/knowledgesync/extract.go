package knowledgesync

import (
	"go.uber.org/zap"

	"github.com/teambrain/knowledgesync/pkg/extract"
	"github.com/teambrain/knowledgesync/pkg/knowledge"
)

// extractedConfidence is the confidence assigned to machine-extracted
// entries: plausible but unreviewed.
const extractedConfidence = 0.7

// ExtractFromText scans free-form text for knowledge markers (see
// package extract) and stores each hit as an entry tagged with the given
// topics. Extracted entries carry confidence 0.7 and metadata
// {"extracted": true} so reviewed and machine-harvested knowledge stay
// distinguishable.
func (s *Store) ExtractFromText(text string, topics []string) []*knowledge.Entry {
	var added []*knowledge.Entry
	for _, c := range extract.FromText(text) {
		entry, err := s.Add(c.Content, AddOptions{
			Category:   c.Category,
			Topics:     topics,
			Confidence: extractedConfidence,
			Metadata:   map[string]any{"extracted": true},
		})
		if err != nil {
			s.logger.Warn("skipping extracted candidate", zap.Error(err))
			continue
		}
		added = append(added, entry)
	}
	return added
}

// ExtractFromFile reads a session log or bookmark file and runs
// ExtractFromText on its contents. Topics derived from the file itself
// (JSON bookmark subject, session-style name parts) are added to the
// given ones; see extract.SessionText.
func (s *Store) ExtractFromFile(path string, topics []string) ([]*knowledge.Entry, error) {
	content, fileTopics, err := extract.SessionText(path)
	if err != nil {
		return nil, err
	}
	all := append(append([]string(nil), topics...), fileTopics...)
	return s.ExtractFromText(content, all), nil
}
