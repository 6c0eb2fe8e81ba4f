package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/opencode-engine/internal/config"
	"github.com/opencode-ai/opencode-engine/internal/lsp"
	"github.com/opencode-ai/opencode-engine/internal/project"
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "LSP multiplexer: spawn/probe/reset language servers",
}

var lspProbeCmd = &cobra.Command{
	Use:   "probe <file>",
	Short: "Resolve and spawn the language server for a file, report its status, then stop it",
	Args:  cobra.ExactArgs(1),
	RunE:  runLSPProbe,
}

var lspResetServerID string

var lspResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the quarantine so the next probe retries a failed server",
	RunE:  runLSPReset,
}

var lspWatchDir string

var lspWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a project tree and evict pooled servers as files change, until interrupted",
	RunE:  runLSPWatch,
}

func init() {
	lspResetCmd.Flags().StringVar(&lspResetServerID, "server", "", "server id to reset (default: all)")
	lspWatchCmd.Flags().StringVar(&lspWatchDir, "dir", "", "project directory (default: current directory)")
	lspCmd.AddCommand(lspProbeCmd)
	lspCmd.AddCommand(lspResetCmd)
	lspCmd.AddCommand(lspWatchCmd)
}

// runLSPWatch keeps a single long-lived Manager alive for the life of
// the command (unlike probe/reset, which are one-shot) and resets its
// quarantine and idle pool on every file-system change observed under
// dir, so a language server that was quarantined against a stale root
// marker or left idle by a deleted file gets a clean retry.
func runLSPWatch(cmd *cobra.Command, args []string) error {
	dir, err := workDir(lspWatchDir)
	if err != nil {
		return err
	}

	w, err := project.NewWatcher(dir)
	if err != nil {
		return err
	}
	defer w.Close()

	m := newManager(dir)
	defer m.StopAll()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	printOK("watching %s (ctrl-c to stop)", dir)
	err = w.Run(ctx, func(path string) {
		fmt.Printf("changed: %s\n", path)
		m.ResetBroken("")
		m.CleanupIdle()
	})
	if err == context.Canceled {
		return nil
	}
	return err
}

// Each CLI invocation gets its own manager and registry; `lsp reset`
// run in a prior invocation would have nothing to act on anyway. The
// manager picks up spawn overrides and the download opt-out from the
// project's config.
func newManager(projectDir string) *lsp.Manager {
	opts := lsp.ManagerOptions{ProjectDir: projectDir}
	if cfg, err := config.Load(projectDir); err == nil && cfg.LSP != nil {
		opts.CommandOverrides = cfg.LSP.Servers
		opts.DisableDownload = cfg.LSP.DisableDownload
	}
	return lsp.NewManager(lsp.NewRegistry(), opts)
}

func runLSPProbe(cmd *cobra.Command, args []string) error {
	dir, err := workDir("")
	if err != nil {
		return err
	}
	m := newManager(dir)
	defer m.StopAll()

	client, err := m.GetClient(context.Background(), args[0])
	if err != nil {
		printFail("probe %s: %v", args[0], err)
		return err
	}
	if client == nil {
		fmt.Printf("no language server claims %s\n", args[0])
		return nil
	}

	printOK("%s ready for %s", client.State().String(), args[0])
	for _, s := range m.Statuses() {
		fmt.Printf("  %s  root=%s  state=%s\n", s.ServerID, s.Root, s.State)
	}
	return nil
}

func runLSPReset(cmd *cobra.Command, args []string) error {
	m := newManager("")
	m.ResetBroken(lspResetServerID)
	printOK("quarantine reset")
	return nil
}
