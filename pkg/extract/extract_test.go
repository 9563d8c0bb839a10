package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teambrain/knowledgesync/pkg/knowledge"
)

func TestFromText(t *testing.T) {
	t.Run("recognizes every marker", func(t *testing.T) {
		text := `
Finding: BCH responds in 50ms on average
Decision: we standardize on BadgerDB for storage
Problem: sync conflicts spike at midnight
Solution: stagger the export schedule per agent
TODO: benchmark the p99 latency as well
Note: the dashboard lives on port 3000
Insight: most conflicts come from clock skew
Config: KSYNC_DATA_DIR=/var/lib/ksync
`
		candidates := FromText(text)
		require.Len(t, candidates, 8)

		byCategory := make(map[knowledge.Category]string)
		for _, c := range candidates {
			byCategory[c.Category] = c.Content
		}
		assert.Equal(t, "BCH responds in 50ms on average", byCategory[knowledge.CategoryFinding])
		assert.Equal(t, "we standardize on BadgerDB for storage", byCategory[knowledge.CategoryDecision])
		assert.Equal(t, "sync conflicts spike at midnight", byCategory[knowledge.CategoryProblem])
		assert.Equal(t, "stagger the export schedule per agent", byCategory[knowledge.CategorySolution])
		assert.Equal(t, "benchmark the p99 latency as well", byCategory[knowledge.CategoryTodo])
		assert.Equal(t, "the dashboard lives on port 3000", byCategory[knowledge.CategoryFact])
		assert.Equal(t, "most conflicts come from clock skew", byCategory[knowledge.CategoryInsight])
		assert.Equal(t, "KSYNC_DATA_DIR=/var/lib/ksync", byCategory[knowledge.CategoryConfig])
	})

	t.Run("markers are case-insensitive and match mid-line", func(t *testing.T) {
		candidates := FromText("- key FINDING: bullets work just fine here")
		require.Len(t, candidates, 1)
		assert.Equal(t, knowledge.CategoryFinding, candidates[0].Category)
		assert.Equal(t, "bullets work just fine here", candidates[0].Content)
	})

	t.Run("configuration long form", func(t *testing.T) {
		candidates := FromText("Configuration: retries default to three attempts")
		require.Len(t, candidates, 1)
		assert.Equal(t, knowledge.CategoryConfig, candidates[0].Category)
	})

	t.Run("short payloads are dropped", func(t *testing.T) {
		assert.Empty(t, FromText("TODO: fix it"))
		assert.Empty(t, FromText("Finding: 1234567890")) // exactly 10, still too short
		assert.Len(t, FromText("Finding: 12345678901"), 1)
	})

	t.Run("no markers no candidates", func(t *testing.T) {
		assert.Empty(t, FromText("just ordinary prose with nothing to harvest"))
	})
}
