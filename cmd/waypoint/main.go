// Package main provides the waypoint command: it replays navigation scripts
// and offers a terminal browser over a history-managed session, against an
// in-memory history or a real Chromium page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/entrhq/waypoint/pkg/config"
	"github.com/entrhq/waypoint/pkg/logging"
)

const version = "0.1.0"

// Config holds the command line configuration
type Config struct {
	Command     string
	Arg         string
	ConfigPath  string
	Backend     string
	ShowBrowser bool
	MetricsAddr string
	LogLevel    string
	Color       bool
	Style       string
	ShowVersion bool
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("waypoint v%s\n", version)
		return
	}

	if err := cfg.validate(); err != nil {
		flag.Usage()
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		cancel()
		log.Fatalf("Application error: %v", err)
	}
}

// parseFlags parses command line flags and the trailing command
func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.ConfigPath, "config", os.Getenv(config.EnvConfigPath), "Path to the configuration file (JSON or YAML)")
	flag.StringVar(&cfg.Backend, "backend", backendMemory, "History backend: memory or browser")
	flag.BoolVar(&cfg.ShowBrowser, "show-browser", false, "Show the browser window (browser backend)")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flag.StringVar(&cfg.LogLevel, "log-level", "", "Log level, overriding the configuration (debug, info, warn, error, off)")
	flag.BoolVar(&cfg.Color, "color", true, "Highlight page source in script output")
	flag.StringVar(&cfg.Style, "style", "monokai", "Highlighting style for page source")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "waypoint - history-managed navigation sessions\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  waypoint [options] script <file.yaml>\n")
		fmt.Fprintf(os.Stderr, "  waypoint [options] browse <url>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  %s    Configuration file path\n", config.EnvConfigPath)
		fmt.Fprintf(os.Stderr, "  WAYPOINT_LOG_DIR   Log directory (default ~/.waypoint/logs)\n")
	}

	flag.Parse()
	cfg.Command = flag.Arg(0)
	cfg.Arg = flag.Arg(1)
	return cfg
}

// validate checks that the configuration is valid
func (c *Config) validate() error {
	switch c.Command {
	case "script", "browse":
	case "":
		return fmt.Errorf("a command is required")
	default:
		return fmt.Errorf("unknown command %q", c.Command)
	}
	if c.Arg == "" {
		return fmt.Errorf("%s needs an argument", c.Command)
	}
	if c.Backend != backendMemory && c.Backend != backendBrowser {
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

func run(ctx context.Context, cfg *Config) error {
	if err := config.Initialize(cfg.ConfigPath); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	logger, err := logging.NewLogger("waypoint")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, logging to stderr\n", err)
	}
	defer logger.Close()

	levelName := cfg.LogLevel
	if levelName == "" {
		levelName = config.GetNavigation().GetLogLevel()
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	if cfg.MetricsAddr != "" {
		stop := serveMetrics(cfg.MetricsAddr, logger)
		defer stop()
	}

	opts := appOptions{
		Backend:  cfg.Backend,
		Headless: !cfg.ShowBrowser,
		Logger:   logger,
	}

	switch cfg.Command {
	case "script":
		script, err := LoadScript(cfg.Arg)
		if err != nil {
			return err
		}
		opts.Start = script.Start
		a, err := newApp(ctx, opts)
		if err != nil {
			return err
		}
		defer a.Close()
		return runScript(ctx, a, script, os.Stdout, scriptOptions{Color: cfg.Color, Style: cfg.Style})

	default:
		opts.Start = cfg.Arg
		a, err := newApp(ctx, opts)
		if err != nil {
			return err
		}
		defer a.Close()
		return runBrowse(ctx, a)
	}
}

// serveMetrics exposes the default Prometheus registry until stop is called.
func serveMetrics(addr string, logger *logging.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Infof("serving metrics on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server failed: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
