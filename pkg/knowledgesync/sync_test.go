package knowledgesync

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teambrain/knowledgesync/pkg/knowledge"
	"github.com/teambrain/knowledgesync/pkg/storage"
)

func TestSync(t *testing.T) {
	t.Run("adds unknown entries", func(t *testing.T) {
		local, _ := newTestStore(t, "ATLAS")
		remote, _ := newTestStore(t, "FORGE")

		_, err := remote.Add("forge discovery", AddOptions{Topics: []string{"forge"}})
		require.NoError(t, err)

		stats := local.Sync(remote)
		assert.Equal(t, SyncStats{Added: 1}, stats)
		assert.Equal(t, 1, local.Len())
		assert.Equal(t, 1, remote.Len(), "the other store is never modified")
	})

	t.Run("newer entry wins", func(t *testing.T) {
		local, localClock := newTestStore(t, "ATLAS")
		remote, remoteClock := newTestStore(t, "FORGE")

		entry, err := local.Add("shared knowledge", AddOptions{})
		require.NoError(t, err)

		// Plant the same entry remotely, then update it there later.
		remote.entries[entry.ID] = local.entries[entry.ID].Clone()
		remoteClock.advance(time.Hour)
		newer := "revised knowledge"
		remote.Update(entry.ID, UpdateOptions{Content: &newer})

		stats := local.Sync(remote)
		assert.Equal(t, SyncStats{Updated: 1}, stats)
		assert.Equal(t, "revised knowledge", local.Get(entry.ID).Content)

		// Syncing back the other way is a no-op: local is not newer.
		localClock.advance(time.Minute)
		stats = remote.Sync(local)
		assert.Equal(t, SyncStats{}, stats)
	})

	t.Run("equal timestamp with different content is a conflict", func(t *testing.T) {
		local, _ := newTestStore(t, "ATLAS")
		remote, _ := newTestStore(t, "FORGE")

		entry, err := local.Add("local version", AddOptions{})
		require.NoError(t, err)

		conflicting := local.entries[entry.ID].Clone()
		conflicting.Content = "remote version"
		remote.entries[entry.ID] = conflicting

		stats := local.Sync(remote)
		assert.Equal(t, SyncStats{Conflicts: 1}, stats)
		assert.Equal(t, "local version", local.Get(entry.ID).Content, "local copy is retained")
	})

	t.Run("identical entry is a silent no-op", func(t *testing.T) {
		local, _ := newTestStore(t, "ATLAS")
		remote, _ := newTestStore(t, "FORGE")

		entry, err := local.Add("same everywhere", AddOptions{})
		require.NoError(t, err)
		remote.entries[entry.ID] = local.entries[entry.ID].Clone()

		assert.Equal(t, SyncStats{}, local.Sync(remote))
	})

	t.Run("merges the graph", func(t *testing.T) {
		local, _ := newTestStore(t, "ATLAS")
		remote, _ := newTestStore(t, "FORGE")

		_, err := remote.Add("remote topics", AddOptions{Topics: []string{"kafka", "brokers"}})
		require.NoError(t, err)

		local.Sync(remote)
		assert.Contains(t, local.RelatedTopics("kafka", 1), "brokers")
	})

	t.Run("records a sync log entry", func(t *testing.T) {
		local, _ := newTestStore(t, "ATLAS")
		remote, _ := newTestStore(t, "FORGE")
		_, err := remote.Add("something", AddOptions{})
		require.NoError(t, err)

		local.Sync(remote)

		log := local.SyncLog()
		require.Len(t, log, 1)
		assert.NotEmpty(t, log[0].ID)
		assert.Equal(t, "ATLAS", log[0].Agent)
		assert.Equal(t, "FORGE", log[0].SyncedWith)
		assert.Equal(t, SyncStats{Added: 1}, log[0].Stats)

		stats := local.Stats()
		assert.Equal(t, 1, stats.SyncCount)
		require.NotNil(t, stats.LastSync)
	})

	t.Run("sync log is bounded", func(t *testing.T) {
		local, _ := newTestStore(t, "ATLAS")
		remote, _ := newTestStore(t, "FORGE")

		for i := 0; i < storage.SyncLogLimit+10; i++ {
			local.Sync(remote)
		}
		assert.Len(t, local.SyncLog(), storage.SyncLogLimit)
	})

	t.Run("nil peer is a no-op", func(t *testing.T) {
		local, _ := newTestStore(t, "ATLAS")
		assert.Equal(t, SyncStats{}, local.Sync(nil))
		assert.Empty(t, local.SyncLog())
	})

	t.Run("two-way sync converges", func(t *testing.T) {
		a, _ := newTestStore(t, "ATLAS")
		b, _ := newTestStore(t, "FORGE")

		_, err := a.Add("atlas knows this", AddOptions{Topics: []string{"a"}})
		require.NoError(t, err)
		_, err = b.Add("forge knows that", AddOptions{Topics: []string{"b"}})
		require.NoError(t, err)

		a.Sync(b)
		b.Sync(a)

		assert.Equal(t, 2, a.Len())
		assert.Equal(t, 2, b.Len())
		assert.Equal(t, a.Stats().TotalTopics, b.Stats().TotalTopics)
	})
}

func TestExportImport(t *testing.T) {
	t.Run("snapshot carries entries and graph", func(t *testing.T) {
		store, _ := newTestStore(t, "ATLAS")
		_, err := store.Add("exported fact", AddOptions{Topics: []string{"export", "snapshot"}})
		require.NoError(t, err)

		doc := store.Export()
		assert.Equal(t, storage.DocumentVersion, doc.Version)
		assert.Equal(t, "ATLAS", doc.Agent)
		assert.Len(t, doc.Entries, 1)
		assert.Len(t, doc.Graph.Nodes, 2)
	})

	t.Run("import applies merge rules without a log record", func(t *testing.T) {
		source, _ := newTestStore(t, "ATLAS")
		_, err := source.Add("snapshot content", AddOptions{Topics: []string{"x", "y"}})
		require.NoError(t, err)

		target, _ := newTestStore(t, "FORGE")
		stats := target.Import(source.Export())

		assert.Equal(t, SyncStats{Added: 1}, stats)
		assert.Equal(t, 1, target.Len())
		assert.Contains(t, target.RelatedTopics("x", 1), "y")
		assert.Empty(t, target.SyncLog(), "imports are not sync log events")
	})

	t.Run("importing your own snapshot is a no-op", func(t *testing.T) {
		store, _ := newTestStore(t, "ATLAS")
		_, err := store.Add("self knowledge", AddOptions{})
		require.NoError(t, err)

		assert.Equal(t, SyncStats{}, store.Import(store.Export()))
		assert.Equal(t, 1, store.Len())
	})

	t.Run("malformed records are skipped, not fatal", func(t *testing.T) {
		source, _ := newTestStore(t, "ATLAS")
		_, err := source.Add("good record", AddOptions{})
		require.NoError(t, err)

		doc := source.Export()
		doc.Entries = append(doc.Entries, knowledge.Record{
			EntryID: "brokenbrokenbrok",
			Content: "bad timestamps",
			Created: "garbage",
			Updated: "garbage",
		})

		target, _ := newTestStore(t, "FORGE")
		stats := target.Import(doc)
		assert.Equal(t, SyncStats{Added: 1}, stats)
	})

	t.Run("file round trip", func(t *testing.T) {
		source, _ := newTestStore(t, "ATLAS")
		_, err := source.Add("via the filesystem", AddOptions{Topics: []string{"files"}})
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "atlas.json")
		require.NoError(t, source.ExportFile(path))

		target, _ := newTestStore(t, "FORGE")
		stats, err := target.ImportFile(path)
		require.NoError(t, err)
		assert.Equal(t, SyncStats{Added: 1}, stats)
	})

	t.Run("missing snapshot file errors", func(t *testing.T) {
		store, _ := newTestStore(t, "ATLAS")
		_, err := store.ImportFile(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
}

func TestSyncIdempotent(t *testing.T) {
	local, _ := newTestStore(t, "ATLAS")
	remote, _ := newTestStore(t, "FORGE")

	for i := 0; i < 5; i++ {
		_, err := remote.Add(fmt.Sprintf("fact %d", i), AddOptions{Topics: []string{"sync"}})
		require.NoError(t, err)
	}

	first := local.Sync(remote)
	assert.Equal(t, SyncStats{Added: 5}, first)

	second := local.Sync(remote)
	assert.Equal(t, SyncStats{}, second, "repeat sync adds nothing")
	assert.Equal(t, 5, local.Len())
}
