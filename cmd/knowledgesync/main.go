// Package main provides the knowledgesync CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/teambrain/knowledgesync/pkg/config"
	"github.com/teambrain/knowledgesync/pkg/knowledge"
	"github.com/teambrain/knowledgesync/pkg/knowledgesync"
	"github.com/teambrain/knowledgesync/pkg/storage"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "knowledgesync",
		Short: "KnowledgeSync - Shared knowledge store for Team Brain agents",
		Long: `KnowledgeSync is a local-first knowledge store that lets AI agents
record what they learn, discover what teammates know, and converge
through snapshot synchronization.

Features:
  • Categorized knowledge entries with confidence and expiry
  • Topic co-occurrence graph with related-topic expansion
  • Ranked free-text and topic queries
  • Offline sync via exported snapshots (newer entry wins)
  • Pluggable storage: plain JSON files or BadgerDB`,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (YAML); KSYNC_* env vars override it")
	rootCmd.PersistentFlags().String("agent", "", "Agent identity (overrides config)")
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory (overrides config)")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("KnowledgeSync v%s (%s)\n", version, commit)
		},
	})

	// Init command
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a knowledge store",
		RunE:  runInit,
	}
	rootCmd.AddCommand(initCmd)

	// Add command
	addCmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Record a knowledge entry",
		Args:  cobra.ExactArgs(1),
		RunE:  runAdd,
	}
	addCmd.Flags().String("category", "FACT", "Category (DECISION, FINDING, PROBLEM, SOLUTION, ...)")
	addCmd.Flags().StringSlice("topics", nil, "Topic tags")
	addCmd.Flags().Float64("confidence", knowledge.ConfidenceHigh, "Confidence in [0.0, 1.0]")
	addCmd.Flags().Int("expires-days", 0, "Expire after this many days (0 = never)")
	rootCmd.AddCommand(addCmd)

	// Query command
	queryCmd := &cobra.Command{
		Use:   "query [search]",
		Short: "Search the knowledge store",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runQuery,
	}
	queryCmd.Flags().String("source", "", "Only entries from this agent")
	queryCmd.Flags().String("category", "", "Only entries with this category")
	queryCmd.Flags().StringSlice("topics", nil, "Only entries sharing one of these topics")
	queryCmd.Flags().Bool("related", false, "Widen topics by one hop of graph neighbors")
	queryCmd.Flags().Float64("min-confidence", 0, "Minimum confidence")
	queryCmd.Flags().Int("limit", 0, "Maximum results (0 = default)")
	rootCmd.AddCommand(queryCmd)

	// Agent command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "agent [name] [topic]",
		Short: "Show what one agent knows about a topic",
		Args:  cobra.ExactArgs(2),
		RunE:  runAgent,
	})

	// Topics command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "topics",
		Short: "List topics by reference count",
		RunE:  runTopics,
	})

	// Related command
	relatedCmd := &cobra.Command{
		Use:   "related [topic]",
		Short: "Show topics related to a topic",
		Args:  cobra.ExactArgs(1),
		RunE:  runRelated,
	}
	relatedCmd.Flags().Int("depth", 1, "Graph traversal depth")
	rootCmd.AddCommand(relatedCmd)

	// Stats command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		RunE:  runStats,
	})

	// Extract command
	extractCmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract knowledge markers from a session log",
		Long: `Scan a file for knowledge markers (Finding:, Decision:, Problem:,
Solution:, TODO:, Note:, Insight:, Config:) and store each hit as an
entry with confidence 0.7.`,
		Args: cobra.ExactArgs(1),
		RunE: runExtract,
	}
	extractCmd.Flags().StringSlice("topics", nil, "Topics to tag extracted entries with")
	rootCmd.AddCommand(extractCmd)

	// Sync command
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Exchange snapshots with other agents",
		RunE:  runSync,
	}
	syncCmd.Flags().String("export", "", "Write a snapshot to this path")
	syncCmd.Flags().String("import", "", "Merge a snapshot from this path")
	syncCmd.Flags().Bool("watch", false, "Watch the sync directory and import snapshots as they appear")
	rootCmd.AddCommand(syncCmd)

	// Delete command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an entry by ID",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	})

	// Clear command
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete ALL knowledge (requires --confirm)",
		RunE:  runClear,
	}
	clearCmd.Flags().Bool("confirm", false, "Really delete everything")
	rootCmd.AddCommand(clearCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration for a command:
// defaults, config file, environment, then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if agent, _ := cmd.Flags().GetString("agent"); agent != "" {
		cfg.Agent = agent
	}
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}

// openStore builds the engine and logger the config asks for and opens
// the store.
func openStore(cmd *cobra.Command) (*knowledgesync.Store, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	var engine storage.Engine
	switch strings.ToLower(cfg.Storage) {
	case config.StorageBadger:
		engine, err = storage.NewBadgerEngine(storage.BadgerOptions{
			DataDir: cfg.DataDir,
			Logger:  logger,
		})
	case config.StorageMemory:
		engine = storage.NewMemoryEngine()
	default:
		engine, err = storage.NewFileEngine(cfg.DataDir)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s storage: %w", cfg.Storage, err)
	}

	store, err := knowledgesync.Open(cfg.Agent, &knowledgesync.Options{
		Engine:   engine,
		AutoSync: cfg.AutoSync,
		Logger:   logger,
	})
	if err != nil {
		engine.Close()
		return nil, nil, err
	}
	return store, cfg, nil
}

// buildLogger creates a console logger at the configured level. The CLI
// talks to the user on stdout; the logger reports problems on stderr.
func buildLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.WarnLevel
	if level != "" {
		if err := lvl.Set(strings.ToLower(level)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func runInit(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Flush(); err != nil {
		return fmt.Errorf("initializing store: %w", err)
	}
	fmt.Printf("📂 Initialized %s store for %s in %s\n", cfg.Storage, store.Agent(), cfg.DataDir)
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	category, _ := cmd.Flags().GetString("category")
	topics, _ := cmd.Flags().GetStringSlice("topics")
	confidence, _ := cmd.Flags().GetFloat64("confidence")
	expiresDays, _ := cmd.Flags().GetInt("expires-days")

	store, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := store.Add(args[0], knowledgesync.AddOptions{
		Category:      knowledge.Category(category),
		Topics:        topics,
		Confidence:    confidence,
		ExpiresInDays: expiresDays,
	})
	if err != nil {
		return err
	}

	fmt.Printf("✅ Added %s entry %s\n", entry.Category, entry.ID)
	if len(entry.Topics) > 0 {
		fmt.Printf("   Topics: %s\n", strings.Join(entry.Topics, ", "))
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	category, _ := cmd.Flags().GetString("category")
	topics, _ := cmd.Flags().GetStringSlice("topics")
	related, _ := cmd.Flags().GetBool("related")
	minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
	limit, _ := cmd.Flags().GetInt("limit")

	store, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := knowledgesync.QueryOptions{
		Source:         source,
		Category:       category,
		Topics:         topics,
		IncludeRelated: related,
		MinConfidence:  minConfidence,
		Limit:          limit,
	}
	if len(args) > 0 {
		opts.Search = args[0]
	}

	results := store.Query(opts)
	if len(results) == 0 {
		fmt.Println("No matching entries")
		return nil
	}

	fmt.Printf("🔍 %d result(s)\n\n", len(results))
	for _, entry := range results {
		printEntry(entry)
	}
	return nil
}

func runAgent(cmd *cobra.Command, args []string) error {
	store, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	results := store.QueryAgent(args[0], args[1])
	if len(results) == 0 {
		fmt.Printf("%s has no knowledge about %q\n", strings.ToUpper(args[0]), args[1])
		return nil
	}
	fmt.Printf("🧠 %s on %q — %d entries\n\n", strings.ToUpper(args[0]), args[1], len(results))
	for _, entry := range results {
		printEntry(entry)
	}
	return nil
}

func runTopics(cmd *cobra.Command, args []string) error {
	store, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	topics := store.Topics()
	if len(topics) == 0 {
		fmt.Println("No topics yet")
		return nil
	}
	fmt.Printf("🏷️  %d topic(s)\n", len(topics))
	for _, tc := range topics {
		fmt.Printf("   %-30s %d\n", tc.Topic, tc.Count)
	}
	return nil
}

func runRelated(cmd *cobra.Command, args []string) error {
	depth, _ := cmd.Flags().GetInt("depth")

	store, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	related := store.RelatedTopics(args[0], depth)
	if len(related) == 0 {
		fmt.Printf("No topics related to %q\n", args[0])
		return nil
	}

	names := make([]string, 0, len(related))
	for topic := range related {
		names = append(names, topic)
	}
	sort.Strings(names)

	fmt.Printf("🔗 Topics related to %q:\n", args[0])
	for _, name := range names {
		fmt.Printf("   %s\n", name)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	store, cfg, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	stats := store.Stats()
	fmt.Printf("📊 KnowledgeSync stats for %s\n", store.Agent())
	fmt.Printf("   Entries:         %d\n", stats.TotalEntries)
	fmt.Printf("   Topics:          %d\n", stats.TotalTopics)
	fmt.Printf("   Graph edges:     %d\n", stats.TotalEdges)
	fmt.Printf("   Avg confidence:  %.2f\n", stats.AverageConfidence)
	fmt.Printf("   Syncs recorded:  %d\n", stats.SyncCount)
	if stats.LastSync != nil {
		fmt.Printf("   Last sync:       %s\n", stats.LastSync.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("   Storage:         %s (%s)\n", cfg.Storage, cfg.DataDir)

	if len(stats.EntriesBySource) > 0 {
		fmt.Println("\n   By source:")
		for _, source := range sortedKeys(stats.EntriesBySource) {
			fmt.Printf("     %-20s %d\n", source, stats.EntriesBySource[source])
		}
	}
	if len(stats.EntriesByCategory) > 0 {
		fmt.Println("\n   By category:")
		for _, cat := range sortedKeys(stats.EntriesByCategory) {
			fmt.Printf("     %-20s %d\n", cat, stats.EntriesByCategory[cat])
		}
	}
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	topics, _ := cmd.Flags().GetStringSlice("topics")

	store, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	added, err := store.ExtractFromFile(args[0], topics)
	if err != nil {
		return fmt.Errorf("extracting from %s: %w", args[0], err)
	}
	if len(added) == 0 {
		fmt.Println("No knowledge markers found")
		return nil
	}
	fmt.Printf("✅ Extracted %d entries from %s\n", len(added), args[0])
	for _, entry := range added {
		fmt.Printf("   [%s] %s\n", entry.Category, truncate(entry.Content, 60))
	}
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	exportPath, _ := cmd.Flags().GetString("export")
	importPath, _ := cmd.Flags().GetString("import")
	watch, _ := cmd.Flags().GetBool("watch")

	store, cfg, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	switch {
	case exportPath != "":
		if err := store.ExportFile(exportPath); err != nil {
			return err
		}
		fmt.Printf("📤 Exported %d entries to %s\n", store.Len(), exportPath)

	case importPath != "":
		stats, err := store.ImportFile(importPath)
		if err != nil {
			return err
		}
		fmt.Printf("📥 Imported from %s\n", importPath)
		printSyncStats(stats)

	case watch:
		if cfg.SyncDir == "" {
			return fmt.Errorf("sync --watch needs a sync directory (sync_dir in config or KSYNC_SYNC_DIR)")
		}
		watcher, err := knowledgesync.NewWatcher(store, cfg.SyncDir)
		if err != nil {
			return err
		}
		fmt.Printf("👀 Watching %s for snapshots (Ctrl+C to stop)\n", cfg.SyncDir)

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		if err := watcher.Run(ctx); err != nil && err != context.Canceled {
			return err
		}
		fmt.Println("\n🛑 Watcher stopped")

	default:
		if err := store.Flush(); err != nil {
			return err
		}
		fmt.Println("💾 Store flushed")
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	store, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if !store.Delete(args[0]) {
		return fmt.Errorf("no entry with ID %s", args[0])
	}
	fmt.Printf("🗑️  Deleted %s\n", args[0])
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	confirm, _ := cmd.Flags().GetBool("confirm")
	if !confirm {
		return fmt.Errorf("refusing to clear without --confirm")
	}

	store, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	store.Clear(true)
	fmt.Println("🗑️  Store cleared")
	return nil
}

func printEntry(entry *knowledge.Entry) {
	fmt.Printf("[%s] %s (%.0f%%)\n", entry.Category, entry.Content, entry.Confidence*100)
	fmt.Printf("   %s · %s · %s", entry.ID, entry.Source, entry.Updated.Format("2006-01-02 15:04"))
	if len(entry.Topics) > 0 {
		fmt.Printf(" · %s", strings.Join(entry.Topics, ", "))
	}
	fmt.Println()
	fmt.Println()
}

func printSyncStats(stats knowledgesync.SyncStats) {
	fmt.Printf("   Added:     %d\n", stats.Added)
	fmt.Printf("   Updated:   %d\n", stats.Updated)
	fmt.Printf("   Conflicts: %d\n", stats.Conflicts)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
