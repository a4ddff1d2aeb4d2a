package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inferd/internal/config"
	"inferd/internal/httpapi"
	"inferd/internal/logring"
	"inferd/internal/manager"
	"inferd/internal/runtime"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		flags   config.Config
	)
	root := &cobra.Command{
		Use:           "inferd",
		Short:         "OpenAI-compatible HTTP server in front of a local multimodal model",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgPath, flags)
		},
	}
	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "Path to config file (.yaml/.json/.toml)")
	f.StringVar(&flags.Host, "host", "", "Listen host (default all interfaces)")
	f.IntVar(&flags.Port, "port", 0, "Base listen port; the next 9 are tried on conflict (default 8080)")
	f.IntVar(&flags.PortAttempts, "port-attempts", 0, "Sequential ports to try on bind conflict (default 10)")
	f.StringVar(&flags.ModelName, "model", "", "Model name served by /v1/models and matched on requests")
	f.StringVar(&flags.ModelPath, "model-path", "", "Path to model weights for the llama runtime")
	f.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug|info|warn|error (default info)")
	f.Int64Var(&flags.MaxBodyBytes, "max-body-bytes", 0, "Maximum request body size (default 64MiB)")
	f.Int64Var(&flags.InferTimeoutSec, "infer-timeout-sec", 0, "Completion timeout in seconds (default 300)")
	f.BoolVar(&flags.CORSEnabled, "cors", false, "Enable CORS for browser clients")
	f.StringSliceVar(&flags.CORSOrigins, "cors-origin", nil, "Allowed CORS origins (repeatable)")
	return root
}

func run(cfgPath string, flags config.Config) error {
	var cfg config.Config
	if cfgPath != "" {
		c, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	// Flags override config file values.
	if flags.Host != "" {
		cfg.Host = flags.Host
	}
	if flags.Port > 0 {
		cfg.Port = flags.Port
	}
	if flags.PortAttempts > 0 {
		cfg.PortAttempts = flags.PortAttempts
	}
	if flags.ModelName != "" {
		cfg.ModelName = flags.ModelName
	}
	if flags.ModelPath != "" {
		cfg.ModelPath = flags.ModelPath
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = flags.MaxBodyBytes
	}
	if flags.InferTimeoutSec > 0 {
		cfg.InferTimeoutSec = flags.InferTimeoutSec
	}
	if flags.CORSEnabled {
		cfg.CORSEnabled = true
		cfg.CORSOrigins = flags.CORSOrigins
	}
	// Defaults for anything still unset.
	if cfg.ModelName == "" {
		cfg.ModelName = "gemma-3n"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	ring := logring.New(0)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger().
		Hook(logring.Hook{Ring: ring})

	httpapi.SetLogger(logger)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	if cfg.CORSEnabled {
		httpapi.SetCORSOptions(true, cfg.CORSOrigins,
			[]string{"GET", "POST", "OPTIONS"},
			[]string{"Content-Type", "X-Log-Level"})
	}

	mgr := manager.New(manager.Config{
		Host:         cfg.Host,
		BasePort:     cfg.Port,
		PortAttempts: cfg.PortAttempts,
		ModelName:    cfg.ModelName,
		InferTimeout: time.Duration(cfg.InferTimeoutSec) * time.Second,
	}, logger, ring)
	mgr.SetHandler(httpapi.NewMux(mgr))
	if err := mgr.Start(); err != nil {
		return err
	}

	// The listener is usable before the model is; early requests answer
	// model_not_initialized until attachment succeeds.
	if cfg.ModelPath != "" {
		if err := mgr.AttachRuntime(runtime.NewLlama(), runtime.Config{ModelPath: cfg.ModelPath}); err != nil {
			logger.Warn().Err(err).Msg("inference runtime unavailable")
		}
	} else {
		logger.Warn().Msg("no model path configured; completions will answer model_not_initialized")
	}

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	_ = mgr.DetachRuntime()
	return mgr.Stop()
}
