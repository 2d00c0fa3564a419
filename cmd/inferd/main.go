package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inferd/internal/config"
	"inferd/internal/httpapi"
	"inferd/internal/predictor"
	"inferd/internal/runtime"
	"inferd/internal/sentinel"
	"inferd/internal/stdio"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "inferd:", err)
		os.Exit(1)
	}
}

type serverOptions struct {
	host       string
	port       int
	onnxPath   string
	corsList   string
	configPath string
	logLevel   string
}

func buildRootCmd() *cobra.Command {
	opts := &serverOptions{}
	root := &cobra.Command{
		Use:           "inferd",
		Short:         "Local model inference server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Optional config file (yaml/json/toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("INFERD_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")

	serve := &cobra.Command{
		Use:   "serve <model-path>",
		Short: "Serve predictions over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, args[0])
		},
	}
	serve.Flags().StringVar(&opts.host, "host", envOr("INFERD_HOST", "127.0.0.1"), "Bind host (loopback only by default)")
	serve.Flags().IntVar(&opts.port, "port", envIntOr("INFERD_PORT", 8080), "Bind port")
	serve.Flags().StringVar(&opts.onnxPath, "onnx", "", "Optional ONNX model path, tried before the statistical model")
	serve.Flags().StringVar(&opts.corsList, "cors", "", "Comma-separated CORS origin allow-list, or *")

	stdioCmd := &cobra.Command{
		Use:   "stdio <model-path>",
		Short: "Serve predictions over stdin/stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio(opts, args[0])
		},
	}
	version := &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("inferd", buildVersion)
		},
	}
	root.AddCommand(serve, stdioCmd, version)
	return root
}

// buildVersion is overridden at release time via -ldflags "-X main.buildVersion=...".
var buildVersion = "dev"

func runServe(cmd *cobra.Command, opts *serverOptions, modelPath string) error {
	logger := newLogger(opts.logLevel)
	// stdout carries protocol frames for the parent; diagnostics go to stderr.
	emit := sentinel.NewEmitter(os.Stdout)

	var cfg config.Config
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	host := opts.host
	if !cmd.Flags().Changed("host") && cfg.Host != "" {
		host = cfg.Host
	}
	port := opts.port
	if !cmd.Flags().Changed("port") && cfg.Port != 0 {
		port = cfg.Port
	}
	onnxPath := opts.onnxPath
	if onnxPath == "" {
		onnxPath = cfg.ONNXPath
	}
	origins := parseOrigins(opts.corsList)
	if origins == nil {
		origins = cfg.CORSOrigins
	}

	rt, err := runtime.Load(modelPath, onnxPath, logger)
	if err != nil {
		_ = emit.Error("MODEL_LOAD_ERROR", err.Error(), nil)
		return err
	}
	defer rt.Close()
	pred := predictor.New(rt, logger)
	desc := pred.Describe()

	mux := httpapi.NewMux(pred, httpapi.Options{
		MaxBodyBytes:   cfg.MaxBodyBytes,
		MaxBatchSize:   cfg.MaxBatchSize,
		RatePerMinute:  cfg.RatePerMinute,
		RequestTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		CORSOrigins:    origins,
		Logger:         logger,
		Emitter:        emit,
	})

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			_ = emit.Error("PORT_IN_USE", fmt.Sprintf("port %d is already in use", port), map[string]any{"port": port})
		} else {
			_ = emit.Error("SERVER_ERROR", err.Error(), nil)
		}
		return err
	}

	// The ready frame precedes the first accepted connection.
	_ = emit.Ready(map[string]any{
		"host":       host,
		"port":       port,
		"runtime":    desc.Runtime,
		"model_info": desc,
	})

	srv := &http.Server{Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("model", modelPath).Msg("inferd listening")
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		_ = emit.Error("SERVER_ERROR", err.Error(), nil)
		return err
	case <-stop:
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

func runStdio(opts *serverOptions, modelPath string) error {
	logger := newLogger(opts.logLevel)
	emit := sentinel.NewEmitter(os.Stdout)

	rt, err := runtime.LoadStatistical(modelPath)
	if err != nil {
		_ = emit.Response(map[string]any{
			"request_id": "startup",
			"status":     "error",
			"message":    err.Error(),
		})
		return err
	}
	defer rt.Close()
	srv := stdio.New(predictor.New(rt, logger), os.Stdin, emit, logger)
	srv.AnnounceReady()
	return srv.Run(context.Background())
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

// parseOrigins splits the --cors flag. Empty means CORS disabled; "*" allows
// any origin.
func parseOrigins(list string) []string {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil
	}
	if list == "*" {
		return []string{"*"}
	}
	parts := strings.Split(list, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
