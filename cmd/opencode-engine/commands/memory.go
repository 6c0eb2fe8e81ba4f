package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/opencode-engine/internal/config"
	"github.com/opencode-ai/opencode-engine/internal/db"
	"github.com/opencode-ai/opencode-engine/internal/memory"
	"github.com/opencode-ai/opencode-engine/internal/project"
)

var memoryScope string
var memoryLimit int

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Decay-weighted error-memory store",
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List error-memory entries ranked by decay-weighted score",
	RunE:  runMemoryList,
}

var memoryPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete low-confidence and stale-rare error-memory entries",
	RunE:  runMemoryPrune,
}

var memoryDecayHalfLifeDays float64

var memoryDecayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Apply exponential confidence decay to all entries",
	RunE:  runMemoryDecay,
}

var memoryMatchThreshold float64

var memoryMatchCmd = &cobra.Command{
	Use:   "match <error-pattern>",
	Short: "Find the closest stored lesson by fuzzy pattern similarity when no exact hash matches",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoryMatch,
}

func init() {
	memoryCmd.PersistentFlags().StringVar(&memoryScope, "scope", "", "project scope (empty = global)")
	memoryListCmd.Flags().IntVar(&memoryLimit, "limit", 20, "max entries")
	memoryDecayCmd.Flags().Float64Var(&memoryDecayHalfLifeDays, "half-life-days", 30, "decay half-life in days")
	memoryMatchCmd.Flags().Float64Var(&memoryMatchThreshold, "threshold", 0.8, "minimum normalized similarity (0-1) required for a match")

	memoryCmd.AddCommand(memoryListCmd)
	memoryCmd.AddCommand(memoryPruneCmd)
	memoryCmd.AddCommand(memoryDecayCmd)
	memoryCmd.AddCommand(memoryMatchCmd)
}

func openMemoryStore() (*memory.Store, func(), error) {
	wd, err := workDir("")
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(wd)
	if err != nil {
		return nil, nil, err
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, nil, err
	}
	dbPath := paths.DBPath()
	if cfg.Memory != nil && cfg.Memory.DBPath != "" {
		dbPath = cfg.Memory.DBPath
	}
	d, err := db.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return memory.NewStore(d), func() { d.Close() }, nil
}

// scopeOrNil maps the --scope flag to the store's nullable project
// scope. A path is widened to its project's worktree root so a scope
// given as a subdirectory matches entries saved against the checkout.
func scopeOrNil() *string {
	if memoryScope == "" {
		return nil
	}
	if p, err := project.Detect(memoryScope); err == nil {
		return &p.Worktree
	}
	return &memoryScope
}

func runMemoryList(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openMemoryStore()
	if err != nil {
		return err
	}
	defer closeFn()

	entries, err := store.List(context.Background(), scopeOrNil(), memoryLimit, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%.3f  %-12s  %-20s  %s\n", e.Confidence, e.ToolName, e.ErrorPattern, e.Lesson)
	}
	return nil
}

func runMemoryPrune(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openMemoryStore()
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := store.Prune(context.Background(), memory.PruneOptions{}, time.Now().UnixMilli())
	if err != nil {
		printFail("prune: %v", err)
		return err
	}
	printOK("pruned %d entries", n)
	return nil
}

func runMemoryMatch(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openMemoryStore()
	if err != nil {
		return err
	}
	defer closeFn()

	e, err := store.FindSimilar(context.Background(), args[0], scopeOrNil(), memoryMatchThreshold)
	if err != nil {
		if err == db.ErrNotFound {
			printFail("no entry within threshold %.2f", memoryMatchThreshold)
			return nil
		}
		return err
	}
	printOK("%.3f  %-20s  %s", e.Confidence, e.ErrorPattern, e.Lesson)
	return nil
}

func runMemoryDecay(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openMemoryStore()
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := store.ApplyDecay(context.Background(), memoryDecayHalfLifeDays, time.Now().UnixMilli())
	if err != nil {
		printFail("decay: %v", err)
		return err
	}
	printOK("decayed %d entries", n)
	return nil
}
