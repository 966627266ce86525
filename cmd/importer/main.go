// Command importer classifies and parses broker statements and portfolio
// exports into activities.
//
//	importer [flags] FILE...   parse files and print outcomes as JSON
//	importer --watch           sweep the inbox on IMPORT_SCHEDULE
//	importer --serve           serve the HTTP upload API
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/activity-importer/cmd/api"
	"github.com/FACorreiaa/activity-importer/internal/domain/import/document"
	importservice "github.com/FACorreiaa/activity-importer/internal/domain/import/service"
	"github.com/FACorreiaa/activity-importer/pkg/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	watch bool
	serve bool
	once  bool
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "importer [flags] FILE...",
		Short: "Parse broker statements and portfolio exports into activities",
		Long: `importer classifies each statement (PDF) or export (CSV), parses it with the
single matching broker or app implementation and prints one status-coded
outcome per file as JSON. Failing documents are reported in the output,
not through the exit code.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if !opts.watch && !opts.serve && len(args) == 0 {
				return errors.New("at least one FILE is required unless --watch or --serve is set")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return execute(cmd.Context(), opts, args, stdout)
		},
	}

	cmd.Flags().BoolVar(&opts.watch, "watch", false, "sweep the inbox directory on the configured schedule")
	cmd.Flags().BoolVar(&opts.serve, "serve", false, "serve the HTTP upload API")
	cmd.Flags().BoolVar(&opts.once, "once", false, "with --watch, sweep the inbox once instead of scheduling")
	return cmd
}

func execute(ctx context.Context, opts options, paths []string, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	deps, err := api.InitDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer deps.Cleanup()

	if !opts.watch && !opts.serve {
		return parseFiles(ctx, deps.ImportService, paths, stdout, logger)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.watch {
		if err := deps.InitWatcher(); err != nil {
			return fmt.Errorf("failed to initialize watcher: %w", err)
		}
		if opts.once {
			deps.Scheduler.RunNow()
			if !opts.serve {
				return nil
			}
		} else if err := deps.Scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	if metrics := deps.MetricsHandler(); metrics != nil {
		go serveMetrics(metrics, cfg.Observability.MetricsPort, logger)
	}

	if opts.serve {
		return serveAPI(ctx, deps.APIHandler(), cfg.Server.Addr(), logger)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// parseFiles processes the named files and prints one outcome per path, in
// argument order. Unreadable and failing documents are reported in the
// output, not through the exit code.
func parseFiles(ctx context.Context, svc *importservice.Service, paths []string, stdout io.Writer, logger *slog.Logger) error {
	outcomes := make([]importservice.Outcome, len(paths))
	files := make([]document.File, 0, len(paths))
	index := make([]int, 0, len(paths))

	for i, path := range paths {
		name := filepath.Base(path)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.WarnContext(ctx, "failed to read file", slog.String("file", path), slog.Any("error", err))
			outcomes[i] = importservice.ReadFailure(name, err)
			continue
		}
		files = append(files, document.File{Name: name, Data: data})
		index = append(index, i)
	}

	for i, outcome := range svc.ProcessBatch(ctx, files) {
		outcomes[index[i]] = outcome
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcomes); err != nil {
		return fmt.Errorf("failed to write outcomes: %w", err)
	}
	return nil
}

func serveAPI(ctx context.Context, handler http.Handler, addr string, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func serveMetrics(handler http.Handler, port int, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", handler)
	addr := fmt.Sprintf(":%d", port)
	logger.Info("metrics server starting", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server error", slog.Any("error", err))
	}
}
