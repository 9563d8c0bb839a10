package extract

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// maxSubjectTopic caps the topic derived from a bookmark subject line.
const maxSubjectTopic = 20

// stemSkipWords are file-name parts that carry no topical signal.
var stemSkipWords = map[string]struct{}{
	"session":  {},
	"bookmark": {},
	"2025":     {},
	"2026":     {},
}

// SessionText reads a session log or bookmark file and returns the text
// to scan plus topics derived from the file itself.
//
// JSON bookmark files ({"subject": ..., "body": {"message": ...}}) are
// unwrapped: the body message becomes the text and the subject becomes a
// topic (lower-cased, spaces to underscores, capped at 20 characters).
// Session-style file names ("session_tokentracker_2026.md") contribute
// their interesting name parts as topics too. Anything else is treated
// as plain text.
func SessionText(path string) (string, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}

	content := string(data)
	var topics []string

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err == nil {
			if body, ok := doc["body"].(map[string]any); ok {
				msg, _ := body["message"].(string)
				content = msg
			}
			if subject, ok := doc["subject"].(string); ok && subject != "" {
				topic := strings.ReplaceAll(strings.ToLower(subject), " ", "_")
				if len(topic) > maxSubjectTopic {
					topic = topic[:maxSubjectTopic]
				}
				topics = append(topics, topic)
			}
		}
	}

	topics = append(topics, stemTopics(path)...)
	return content, topics, nil
}

// stemTopics derives topics from a session-style file name: for
// "session_tokentracker_2026.log" the tool name "tokentracker" is worth
// keeping, the boilerplate parts are not.
func stemTopics(path string) []string {
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if !strings.Contains(stem, "session") && !strings.Contains(stem, "bookmark") {
		return nil
	}

	var topics []string
	for _, part := range strings.Split(stem, "_") {
		if len(part) <= 3 {
			continue
		}
		if _, skip := stemSkipWords[part]; skip {
			continue
		}
		topics = append(topics, part)
	}
	return topics
}
