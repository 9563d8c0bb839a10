package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teambrain/knowledgesync/pkg/graph"
	"github.com/teambrain/knowledgesync/pkg/knowledge"
)

// engines returns one instance of every Engine implementation, so the
// contract tests below run against all of them.
func engines(t *testing.T) map[string]Engine {
	t.Helper()

	file, err := NewFileEngine(t.TempDir())
	require.NoError(t, err)

	badger, err := NewBadgerEngine(BadgerOptions{InMemory: true})
	require.NoError(t, err)

	return map[string]Engine{
		"file":   file,
		"badger": badger,
		"memory": NewMemoryEngine(),
	}
}

func sampleEntries() *EntriesDocument {
	entry, _ := knowledge.New("sample content", "ATLAS", knowledge.Options{
		Topics: []string{"sample"},
	})
	return &EntriesDocument{
		Version: DocumentVersion,
		Updated: "2026-03-01T12:00:00Z",
		Agent:   "ATLAS",
		Entries: []knowledge.Record{entry.ToRecord()},
	}
}

func TestEngineContract(t *testing.T) {
	for name, engine := range engines(t) {
		t.Run(name, func(t *testing.T) {
			defer engine.Close()

			t.Run("missing documents report ErrNotFound", func(t *testing.T) {
				_, err := engine.LoadEntries()
				assert.ErrorIs(t, err, ErrNotFound)
				_, err = engine.LoadGraph()
				assert.ErrorIs(t, err, ErrNotFound)
				_, err = engine.LoadSyncLog()
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("entries round trip", func(t *testing.T) {
				doc := sampleEntries()
				require.NoError(t, engine.SaveEntries(doc))

				loaded, err := engine.LoadEntries()
				require.NoError(t, err)
				assert.Equal(t, doc, loaded)
			})

			t.Run("graph round trips", func(t *testing.T) {
				g := graph.New()
				g.AddEdge("a", "b", "co-occurs", 1.0)
				doc := g.ToDocument()
				require.NoError(t, engine.SaveGraph(&doc))

				loaded, err := engine.LoadGraph()
				require.NoError(t, err)
				back := graph.FromDocument(*loaded)
				assert.Equal(t, 1, back.EdgeCount())
				assert.Equal(t, g.Counts(), back.Counts())
			})

			t.Run("sync log round trips and is bounded", func(t *testing.T) {
				var records []SyncRecord
				for i := 0; i < SyncLogLimit+20; i++ {
					records = append(records, SyncRecord{
						ID:         fmt.Sprintf("record-%d", i),
						Timestamp:  "2026-03-01T12:00:00Z",
						Agent:      "ATLAS",
						SyncedWith: "FORGE",
					})
				}
				require.NoError(t, engine.SaveSyncLog(records))

				loaded, err := engine.LoadSyncLog()
				require.NoError(t, err)
				require.Len(t, loaded, SyncLogLimit, "only the newest records survive")
				assert.Equal(t, fmt.Sprintf("record-%d", 20), loaded[0].ID)
				assert.Equal(t, fmt.Sprintf("record-%d", SyncLogLimit+19), loaded[len(loaded)-1].ID)
			})
		})
	}
}

func TestEngineClosed(t *testing.T) {
	for name, engine := range engines(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, engine.Close())
			require.NoError(t, engine.Close(), "close is idempotent")

			_, err := engine.LoadEntries()
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, engine.SaveEntries(sampleEntries()), ErrClosed)
		})
	}
}

func TestFileEngineLayout(t *testing.T) {
	dir := t.TempDir()
	engine, err := NewFileEngine(dir)
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.SaveEntries(sampleEntries()))
	g := graph.New()
	doc := g.ToDocument()
	require.NoError(t, engine.SaveGraph(&doc))
	require.NoError(t, engine.SaveSyncLog(nil))

	// The three-file layout is a contract other agents rely on.
	for _, name := range []string{"entries.json", "graph.json", "sync_log.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestFileEngineMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	engine, err := NewFileEngine(dir)
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "entries.json"), []byte("{nope"), 0o644))

	_, err = engine.LoadEntries()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound, "a corrupt file is not a missing file")
}

func TestFileEngineCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	_, err := NewFileEngine(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestBadgerEngineRequiresDataDir(t *testing.T) {
	_, err := NewBadgerEngine(BadgerOptions{})
	assert.Error(t, err)
}

func TestBadgerEnginePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	engine, err := NewBadgerEngine(BadgerOptions{DataDir: dir})
	require.NoError(t, err)
	require.NoError(t, engine.SaveEntries(sampleEntries()))
	require.NoError(t, engine.Close())

	engine, err = NewBadgerEngine(BadgerOptions{DataDir: dir})
	require.NoError(t, err)
	defer engine.Close()

	loaded, err := engine.LoadEntries()
	require.NoError(t, err)
	assert.Len(t, loaded.Entries, 1)
}
