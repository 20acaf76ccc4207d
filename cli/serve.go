package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github/itish2003/docchat/controller"
	"github/itish2003/docchat/logger"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API. When watching is enabled (watch.enabled or INDEX_PATH)
the directory is scanned once and then kept in sync while the server runs.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appConfig)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.embedder.Ping(ctx); err != nil {
		logger.Warn("SERVER: Embedding service not reachable at %s: %v", appConfig.Embedding.URL, err)
	}
	if appConfig.Generation.APIKey == "" {
		logger.Warn("SERVER: GEMINI_API_KEY is not set; chat will use fallback answers")
	}

	if appConfig.Watch.Enabled && appConfig.Watch.Dir != "" {
		go a.watch(ctx, appConfig.Watch.Dir)
	}

	port := appConfig.Server.Port
	if servePort != "" {
		port = servePort
	}
	router := controller.NewRouter(controller.NewRAGController(a.rag), controller.RouterOptions{
		Authorizer:     controller.NewAPIKeyAuthorizer(appConfig.Server.APIKeys),
		RequestTimeout: time.Duration(appConfig.Server.RequestTimeoutSecs) * time.Second,
	})
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("SERVER: Listening on http://localhost:%s", port)
		logger.Info("SERVER: Health check available at: http://localhost:%s/health", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("SERVER: Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// watch scans dir once and then follows changes until ctx is done.
func (a *app) watch(ctx context.Context, dir string) {
	if _, err := a.indexer.ScanAndIndexDirectory(ctx, dir); err != nil {
		logger.Error("INDEXER: Initial scan of %s failed: %v", dir, err)
	}
	if err := a.indexer.WatchDirectory(ctx, dir); err != nil {
		logger.Error("WATCHER: %v", err)
	}
}
