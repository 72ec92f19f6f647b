package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/abhisek/diagnostica/internal/server"
	"github.com/abhisek/diagnostica/internal/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		gin.SetMode(gin.ReleaseMode)

		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.Server.Tracing {
			shutdown, err := tracing.Setup(traceWriter(cfg.Server.TraceFile), version)
			if err != nil {
				return err
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(flushCtx); err != nil {
					rt.logger.Warn("flush traces", zap.Error(err))
				}
			}()
		}

		attempts := rt.attempts()
		reports := rt.reports(ctx, attempts)
		srv := server.New(attempts, reports, rt.store, server.Options{
			Tracing: cfg.Server.Tracing,
			Logger:  rt.logger.Named("http"),
		})

		rt.logger.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("db", cfg.DB.Path))
		return srv.Run(ctx, cfg.Server.Addr)
	},
}

// traceWriter rotates span output like the log file.
func traceWriter(path string) io.Writer {
	if path == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
