package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/verbatim/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the text processing HTTP API",
	Long: `Serve exposes the pipeline over HTTP:

  POST /api/text/process                 run all stages on {"text": "..."}
  POST /api/text/submit                  create a pending submission
  POST /api/text/{id}/stages/{stage}     run one stage (s1, f1, s2, f2, finalize)
  GET  /api/text/status/{id}             submission status
  GET  /api/text/results/{id}            compiled results (completed only)
  GET  /api/text/results/{id}/report     HTML report
  GET  /api/text/submissions             recent submissions (?limit=&status=)
  GET  /api/info                         API description`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := server.DefaultConfig()
	cfg.Addr = a.cfg.Server.Addr
	cfg.Version = Version
	cfg.RequestTimeout = time.Duration(a.cfg.Server.RequestTimeout) * time.Second
	cfg.WriteTimeout = cfg.RequestTimeout + 30*time.Second

	srv := server.New(cfg, a.pipeline, a.store,
		server.WithLogger(logger.Named("server")),
		server.WithRenderer(a.renderer))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		checkCtx, cancel := context.WithTimeout(gctx, 15*time.Second)
		defer cancel()
		if !a.provider.IsAvailable(checkCtx) {
			logger.Warn("LLM provider is not reachable; processing requests will fail until it is",
				zap.String("provider", a.provider.Name()))
		}
		return nil
	})

	return g.Wait()
}
