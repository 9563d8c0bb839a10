package knowledgesync

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teambrain/knowledgesync/pkg/knowledge"
)

func TestQuery(t *testing.T) {
	t.Run("free text search", func(t *testing.T) {
		store, _ := newTestStore(t, "ATLAS")
		_, err := store.Add("Docker build cache saves 2 minutes", AddOptions{
			Topics: []string{"docker"},
		})
		require.NoError(t, err)
		_, err = store.Add("Unrelated fact", AddOptions{})
		require.NoError(t, err)

		hits := store.Query(QueryOptions{Search: "docker"})
		require.Len(t, hits, 1)
		assert.Contains(t, hits[0].Content, "Docker")
	})

	t.Run("filters are conjunctive", func(t *testing.T) {
		store, _ := newTestStore(t, "ATLAS")
		_, err := store.Add("high confidence finding", AddOptions{
			Category:   knowledge.CategoryFinding,
			Confidence: 0.9,
		})
		require.NoError(t, err)
		_, err = store.Add("low confidence finding", AddOptions{
			Category:   knowledge.CategoryFinding,
			Confidence: 0.3,
		})
		require.NoError(t, err)

		hits := store.Query(QueryOptions{
			Category:      "finding",
			MinConfidence: 0.5,
		})
		require.Len(t, hits, 1)
		assert.Equal(t, "high confidence finding", hits[0].Content)
	})

	t.Run("source filter is case-insensitive", func(t *testing.T) {
		store, _ := newTestStore(t, "ATLAS")
		_, err := store.Add("mine", AddOptions{})
		require.NoError(t, err)

		assert.Len(t, store.Query(QueryOptions{Source: "atlas"}), 1)
		assert.Empty(t, store.Query(QueryOptions{Source: "forge"}))
	})

	t.Run("unknown category matches nothing", func(t *testing.T) {
		store, _ := newTestStore(t, "ATLAS")
		_, err := store.Add("a fact", AddOptions{})
		require.NoError(t, err)

		// No coercion on the query side: "bogus" is not silently FACT.
		assert.Empty(t, store.Query(QueryOptions{Category: "bogus"}))
		assert.Len(t, store.Query(QueryOptions{Category: "fact"}), 1)
	})

	t.Run("topic filter matches any shared topic", func(t *testing.T) {
		store, _ := newTestStore(t, "ATLAS")
		_, err := store.Add("about a and b", AddOptions{Topics: []string{"a", "b"}})
		require.NoError(t, err)
		_, err = store.Add("about c", AddOptions{Topics: []string{"c"}})
		require.NoError(t, err)

		hits := store.Query(QueryOptions{Topics: []string{"B", "zzz"}})
		require.Len(t, hits, 1)
		assert.Equal(t, "about a and b", hits[0].Content)
	})

	t.Run("related expansion widens by one hop", func(t *testing.T) {
		store, _ := newTestStore(t, "ATLAS")
		// First entry links a and b in the graph; second only carries b.
		_, err := store.Add("links a and b", AddOptions{Topics: []string{"a", "b"}})
		require.NoError(t, err)
		_, err = store.Add("only b", AddOptions{Topics: []string{"b"}})
		require.NoError(t, err)

		plain := store.Query(QueryOptions{Topics: []string{"a"}})
		assert.Len(t, plain, 1)

		widened := store.Query(QueryOptions{Topics: []string{"a"}, IncludeRelated: true})
		assert.Len(t, widened, 2, "entries tagged only with a neighbor topic now match")
	})

	t.Run("expired entries never match", func(t *testing.T) {
		store, clock := newTestStore(t, "ATLAS")
		_, err := store.Add("short lived", AddOptions{ExpiresInDays: 1})
		require.NoError(t, err)

		assert.Len(t, store.Query(QueryOptions{}), 1)
		clock.advance(48 * time.Hour)
		assert.Empty(t, store.Query(QueryOptions{}))
	})

	t.Run("sorted by confidence then recency", func(t *testing.T) {
		store, clock := newTestStore(t, "ATLAS")

		_, err := store.Add("old high", AddOptions{Confidence: 0.9})
		require.NoError(t, err)
		clock.advance(time.Minute)
		_, err = store.Add("low", AddOptions{Confidence: 0.2})
		require.NoError(t, err)
		clock.advance(time.Minute)
		_, err = store.Add("new high", AddOptions{Confidence: 0.9})
		require.NoError(t, err)

		hits := store.Query(QueryOptions{})
		require.Len(t, hits, 3)
		assert.Equal(t, "new high", hits[0].Content, "ties broken by most recent update")
		assert.Equal(t, "old high", hits[1].Content)
		assert.Equal(t, "low", hits[2].Content)
	})

	t.Run("limit defaults to 50", func(t *testing.T) {
		store, clock := newTestStore(t, "ATLAS")
		for i := 0; i < 60; i++ {
			_, err := store.Add(fmt.Sprintf("entry number %d", i), AddOptions{})
			require.NoError(t, err)
			clock.advance(time.Second)
		}

		assert.Len(t, store.Query(QueryOptions{}), DefaultQueryLimit)
		assert.Len(t, store.Query(QueryOptions{Limit: 10}), 10)
	})

	t.Run("results are copies", func(t *testing.T) {
		store, _ := newTestStore(t, "ATLAS")
		entry, err := store.Add("read only", AddOptions{})
		require.NoError(t, err)

		hits := store.Query(QueryOptions{})
		require.Len(t, hits, 1)
		hits[0].Content = "mutated"
		assert.Equal(t, "read only", store.Get(entry.ID).Content)
	})
}

func TestQueryAgent(t *testing.T) {
	store, _ := newTestStore(t, "ATLAS")
	_, err := store.Add("atlas knows docker", AddOptions{Topics: []string{"docker"}})
	require.NoError(t, err)

	other, _ := newTestStore(t, "FORGE")
	_, err = other.Add("forge knows docker", AddOptions{Topics: []string{"docker"}})
	require.NoError(t, err)
	store.Sync(other)

	hits := store.QueryAgent("forge", "docker")
	require.Len(t, hits, 1)
	assert.Equal(t, "FORGE", hits[0].Source)
}

func TestTopics(t *testing.T) {
	store, _ := newTestStore(t, "ATLAS")
	_, err := store.Add("one", AddOptions{Topics: []string{"common", "rare"}})
	require.NoError(t, err)
	_, err = store.Add("two", AddOptions{Topics: []string{"common"}})
	require.NoError(t, err)

	topics := store.Topics()
	require.Len(t, topics, 2)
	assert.Equal(t, TopicCount{Topic: "common", Count: 2}, topics[0])
	assert.Equal(t, TopicCount{Topic: "rare", Count: 1}, topics[1])
}

func TestRelatedTopics(t *testing.T) {
	store, _ := newTestStore(t, "ATLAS")
	_, err := store.Add("entry", AddOptions{Topics: []string{"a", "b"}})
	require.NoError(t, err)
	_, err = store.Add("entry two", AddOptions{Topics: []string{"b", "c"}})
	require.NoError(t, err)

	assert.Equal(t, map[string]struct{}{"b": {}}, store.RelatedTopics("A", 1))

	two := store.RelatedTopics("a", 2)
	assert.Contains(t, two, "b")
	assert.Contains(t, two, "c")
	assert.NotContains(t, two, "a", "origin is excluded")

	assert.Empty(t, store.RelatedTopics("unknown", 3))
}
