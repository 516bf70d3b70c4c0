package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/weavecode/weave/config"
	"github.com/weavecode/weave/lsp"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the weave language server on stdin/stdout.",
	Long: `The 'serve' subcommand speaks the Language Server Protocol over stdin and stdout. Editor clients start it
and receive completions, code lenses and the weave.* commands. Settings sent by the editor are layered on top of
the configuration file, .env and WEAVE_* environment variables, and the configuration file is watched for changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		return handleServeCommand(cmd.Context(), rootDependencies, metricsAddr)
	},
}

func init() {
	serveCmd.Flags().String("metrics-addr", "", "Address for the Prometheus /metrics endpoint, e.g. ':9464'. Disabled when empty.")
	rootCmd.AddCommand(serveCmd)
}

func handleServeCommand(parent context.Context, rootDependencies *RootDependencies, metricsAddr string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	layers := config.NewLayers(config.NewStore(rootDependencies.Settings))
	rootDependencies.Loader.Watch(func(settings *config.Settings) {
		if err := layers.SetBase(settings); err != nil {
			slog.Error("failed to apply reloaded configuration", "error", err)
		}
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := lsp.Serve(ctx, lsp.Stdio(), lsp.Options{
			Layers:          layers,
			TokenManagement: rootDependencies.TokenManagement,
			SaveAPIKey:      rootDependencies.Loader.SaveAPIKey,
			Version:         version,
		})
		// the session is over, stop the metrics server too
		stop()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(rootDependencies.TokenManagement.Registry(), promhttp.HandlerOpts{}))
		server := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			slog.Info("metrics server listening", "addr", metricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
