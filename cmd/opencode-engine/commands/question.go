package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/opencode-engine/internal/config"
	"github.com/opencode-ai/opencode-engine/internal/db"
	"github.com/opencode-ai/opencode-engine/internal/question"
	"github.com/opencode-ai/opencode-engine/internal/questionserver"
)

var questionServePort int
var questionServeNoCORS bool

var questionCmd = &cobra.Command{
	Use:   "question",
	Short: "Out-of-process answer/skip/reject surface for the question tool",
}

var questionServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server exposing the pending-question broker",
	RunE:  runQuestionServe,
}

func init() {
	questionServeCmd.Flags().IntVar(&questionServePort, "port", questionserver.DefaultConfig().Port, "port to listen on")
	questionServeCmd.Flags().BoolVar(&questionServeNoCORS, "no-cors", false, "disable permissive CORS headers")
	questionCmd.AddCommand(questionServeCmd)
}

func runQuestionServe(cmd *cobra.Command, args []string) error {
	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}
	d, err := db.Open(filepath.Join(paths.Data, "opencode-engine.db"))
	if err != nil {
		return err
	}
	defer d.Close()

	broker := question.NewBroker(d)

	cfg := questionserver.DefaultConfig()
	cfg.Port = questionServePort
	cfg.EnableCORS = !questionServeNoCORS

	srv := questionserver.New(cfg, broker)

	errCh := make(chan error, 1)
	go func() {
		printOK("question server listening on :%d", cfg.Port)
		errCh <- srv.Start()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("question serve: %w", err)
		}
	case <-ctx.Done():
		printOK("shutting down")
		return srv.Shutdown(context.Background())
	}
	return nil
}
