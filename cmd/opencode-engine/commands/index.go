package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/opencode-engine/internal/config"
	"github.com/opencode-ai/opencode-engine/internal/index"
	"github.com/opencode-ai/opencode-engine/internal/project"
	"github.com/opencode-ai/opencode-engine/pkg/types"
)

var indexDir string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Semantic code-index pipeline (embed + vector store)",
}

var indexRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Walk the project, chunk, embed, and upsert into the vector store",
	RunE:  runIndexRun,
}

var indexSearchLimit int

var indexSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Embed a query and search the vector store",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexSearch,
}

func init() {
	indexCmd.PersistentFlags().StringVar(&indexDir, "dir", "", "project directory (default: current directory)")
	indexSearchCmd.Flags().IntVar(&indexSearchLimit, "limit", 5, "max results")
	indexCmd.AddCommand(indexRunCmd)
	indexCmd.AddCommand(indexSearchCmd)
}

// indexRoot resolves the directory to index: the --dir flag (or the
// working directory), widened to its project's worktree root so an
// `index run` issued from a subdirectory still covers the whole
// checkout.
func indexRoot() (string, error) {
	dir, err := workDir(indexDir)
	if err != nil {
		return "", err
	}
	if p, err := project.Detect(dir); err == nil {
		return p.Worktree, nil
	}
	return dir, nil
}

func buildIndexer(dir string) (*index.Indexer, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	idxCfg := cfg.Index
	if idxCfg == nil {
		idxCfg = &types.IndexConfig{}
	}

	embedder := index.NewEmbeddingClient(idxCfg.EmbeddingURL, idxCfg.EmbeddingModel)
	store := index.NewVectorStoreClient(idxCfg.VectorStoreURL, idxCfg.CollectionName)

	return index.NewIndexer(dir, embedder, store, index.Options{
		ChunkSize:      idxCfg.ChunkSize,
		ChunkOverlap:   idxCfg.ChunkOverlap,
		IgnorePatterns: idxCfg.Ignore,
	}), nil
}

func runIndexRun(cmd *cobra.Command, args []string) error {
	dir, err := indexRoot()
	if err != nil {
		return err
	}
	ix, err := buildIndexer(dir)
	if err != nil {
		return err
	}

	result, err := ix.IndexAll(context.Background(), func(filePath string, filesIndexed, total int) {
		printOK("[%d/%d] %s", filesIndexed, total, filePath)
	})
	if err != nil {
		printFail("index run: %v", err)
		return err
	}

	fmt.Printf("indexed %d files, %d chunks in %s\n", result.FilesIndexed, result.ChunksCreated, result.Duration)
	return nil
}

func runIndexSearch(cmd *cobra.Command, args []string) error {
	dir, err := indexRoot()
	if err != nil {
		return err
	}
	ix, err := buildIndexer(dir)
	if err != nil {
		return err
	}

	hits, err := ix.Search(context.Background(), args[0], indexSearchLimit)
	if err != nil {
		printFail("index search: %v", err)
		return err
	}

	for _, h := range hits {
		fmt.Printf("%.4f  %v\n", h.Score, h.Chunk["filePath"])
	}
	return nil
}
