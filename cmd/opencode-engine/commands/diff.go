package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/opencode-engine/internal/diffengine"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Unified-diff parse/apply/synthesize",
}

var diffApplyDir string

var diffApplyCmd = &cobra.Command{
	Use:   "apply <patch-file>",
	Short: "Apply a unified-diff patch file against the working tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiffApply,
}

var diffSynthesizeCmd = &cobra.Command{
	Use:   "synthesize <old-file> <new-file>",
	Short: "Synthesize a minimal unified diff between two files",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiffSynthesize,
}

func init() {
	diffApplyCmd.Flags().StringVar(&diffApplyDir, "dir", "", "base directory patches are resolved against (default: current directory)")
	diffCmd.AddCommand(diffApplyCmd)
	diffCmd.AddCommand(diffSynthesizeCmd)
}

func runDiffApply(cmd *cobra.Command, args []string) error {
	dir, err := workDir(diffApplyDir)
	if err != nil {
		return err
	}

	text, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	patches, err := diffengine.ParsePatch(string(text))
	if err != nil {
		printFail("parse %s: %v", args[0], err)
		return err
	}

	result, err := diffengine.Apply(dir, patches)
	if err != nil {
		printFail("apply %s: %v", args[0], err)
		return err
	}

	printOK("%s: %d files patched, %d hunks applied", args[0], result.FilesPatched, result.HunksApplied)
	return nil
}

func runDiffSynthesize(cmd *cobra.Command, args []string) error {
	oldText, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	newText, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}

	patch := diffengine.Synthesize(string(oldText), string(newText), args[1])
	fmt.Print(patch)
	return nil
}
