package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/harrison/qadocs/internal/pipeline"
	"github.com/harrison/qadocs/internal/web"
	"github.com/spf13/cobra"
)

// shutdownGrace bounds how long in-flight requests may run after a stop
// signal.
const shutdownGrace = 30 * time.Second

// newServeCommand creates the serve command.
func newServeCommand(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document generator over HTTP",
		Long: `Serve the document generator over HTTP.

Clients create a session, upload a requirements PDF and download the
generated documents. Sessions are isolated from each other and kept in
memory until they have been idle for server.session_ttl.

Endpoints:
  POST   /api/sessions                          create a session
  GET    /api/sessions/{id}                     session summary
  DELETE /api/sessions/{id}                     clear the session
  POST   /api/sessions/{id}/generate            multipart: file, project, plan, cases
  GET    /api/sessions/{id}/artifacts/{name}    plan.docx, plan.json, cases.xlsx, cases.json
  GET    /api/sessions/{id}/preview             test plan as HTML
  POST   /api/sessions/{id}/upload/{kind}       publish to Confluence
  GET    /healthz, /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			log, closeLog := openLogger(cmd, cfg)
			defer closeLog()

			completer, err := d.completer(cfg.LLMConfig(true), log)
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(completer, pipeline.WithBufferTarget(), pipeline.WithLogger(log))

			opts := []web.Option{web.WithLogger(log)}
			if err := cfg.Confluence.Validate(); err == nil {
				pub, err := d.publisher(cfg.Confluence, log)
				if err != nil {
					return err
				}
				opts = append(opts, web.WithPublisher(pub))
			} else {
				log.LogInfo("Confluence uploads disabled: " + err.Error())
			}

			srv := web.NewServer(runner, web.Config{
				MaxUploadBytes: cfg.MaxUploadBytes(),
				Timeout:        cfg.Server.Timeout,
			}, opts...)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			ln, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
			}
			log.LogInfo(fmt.Sprintf("Listening on http://%s", ln.Addr()))

			return serve(ctx, ln, srv, cfg.Server.SessionTTL, log)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default: server.addr from config, 127.0.0.1:8080)")
	return cmd
}

type serveLogger interface {
	LogInfo(message string)
	LogDebug(message string)
}

// serve runs the HTTP server on ln until ctx is cancelled, pruning idle
// sessions every ttl/4.
func serve(ctx context.Context, ln net.Listener, srv *web.Server, ttl time.Duration, log serveLogger) error {
	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if ttl > 0 {
		ticker := time.NewTicker(max(ttl/4, time.Second))
		defer ticker.Stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := srv.Sessions().Prune(ttl); n > 0 {
						log.LogDebug(fmt.Sprintf("pruned %d idle session(s)", n))
					}
				}
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.LogInfo("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
