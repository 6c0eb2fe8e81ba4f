package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/opencode-engine/internal/config"
	"github.com/opencode-ai/opencode-engine/internal/snapshot"
)

var snapshotDir string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Content-addressed file-tree snapshot/revert",
}

var snapshotTrackCmd = &cobra.Command{
	Use:   "track",
	Short: "Stage everything and record the current tree's hash",
	RunE:  runSnapshotTrack,
}

var snapshotDiffCmd = &cobra.Command{
	Use:   "diff <hash>",
	Short: "Show what changed since a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotDiff,
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore <hash>",
	Short: "Overwrite the working tree with a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotRestore,
}

var snapshotRevertFilesCmd = &cobra.Command{
	Use:   "revert-files <hash> <file...>",
	Short: "Revert specific files to a snapshot's state",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSnapshotRevertFiles,
}

var snapshotCleanupRetentionMs int64

var snapshotCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove snapshot refs older than the retention window",
	RunE:  runSnapshotCleanup,
}

func init() {
	snapshotCmd.PersistentFlags().StringVar(&snapshotDir, "dir", "", "project directory (default: current directory)")
	snapshotCleanupCmd.Flags().Int64Var(&snapshotCleanupRetentionMs, "retention-ms", 7*24*60*60*1000, "retention window in milliseconds")

	snapshotCmd.AddCommand(snapshotTrackCmd)
	snapshotCmd.AddCommand(snapshotDiffCmd)
	snapshotCmd.AddCommand(snapshotRestoreCmd)
	snapshotCmd.AddCommand(snapshotRevertFilesCmd)
	snapshotCmd.AddCommand(snapshotCleanupCmd)
}

func runSnapshotTrack(cmd *cobra.Command, args []string) error {
	dir, err := workDir(snapshotDir)
	if err != nil {
		return err
	}
	res := snapshot.Track(dir, "")
	if !res.Success {
		printFail("track: %s", res.Error)
		return fmt.Errorf("%s", res.Error)
	}
	printOK("tracked %s", res.Hash)
	return nil
}

func runSnapshotDiff(cmd *cobra.Command, args []string) error {
	dir, err := workDir(snapshotDir)
	if err != nil {
		return err
	}
	res := snapshot.Diff(dir, args[0])
	if !res.Success {
		printFail("diff: %s", res.Error)
		return fmt.Errorf("%s", res.Error)
	}
	for _, f := range res.Files {
		fmt.Printf("%s  %s  +%d -%d\n", f.Status, f.Path, f.Additions, f.Deletions)
	}
	return nil
}

func runSnapshotRestore(cmd *cobra.Command, args []string) error {
	dir, err := workDir(snapshotDir)
	if err != nil {
		return err
	}
	res := snapshot.Restore(dir, args[0])
	if !res.Success {
		printFail("restore: %s", res.Error)
		return fmt.Errorf("%s", res.Error)
	}
	printOK("restored %s", args[0])
	return nil
}

func runSnapshotRevertFiles(cmd *cobra.Command, args []string) error {
	dir, err := workDir(snapshotDir)
	if err != nil {
		return err
	}
	res := snapshot.RevertFiles(dir, args[0], args[1:])
	if !res.Success {
		printFail("revert-files: %s", res.Error)
		return fmt.Errorf("%s", res.Error)
	}
	printOK("reverted %d files to %s", len(args[1:]), args[0])
	return nil
}

func runSnapshotCleanup(cmd *cobra.Command, args []string) error {
	dir, err := workDir(snapshotDir)
	if err != nil {
		return err
	}
	retention := snapshotCleanupRetentionMs
	if !cmd.Flags().Changed("retention-ms") {
		if cfg, err := config.Load(dir); err == nil && cfg.Snapshot != nil && cfg.Snapshot.RetentionMs > 0 {
			retention = cfg.Snapshot.RetentionMs
		}
	}
	res := snapshot.Cleanup(dir, retention)
	if !res.Success {
		printFail("cleanup: %s", res.Error)
		return fmt.Errorf("%s", res.Error)
	}
	printOK("cleaned up snapshot refs older than %dms", retention)
	return nil
}
