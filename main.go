package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/nativeui-dev/catalog-mcp/internal/blog"
	"github.com/nativeui-dev/catalog-mcp/internal/catalog"
	toolcli "github.com/nativeui-dev/catalog-mcp/internal/cli"
	"github.com/nativeui-dev/catalog-mcp/internal/config"
	"github.com/nativeui-dev/catalog-mcp/internal/registry"
	"github.com/nativeui-dev/catalog-mcp/internal/remotestore"
	"github.com/nativeui-dev/catalog-mcp/internal/search"
	"github.com/nativeui-dev/catalog-mcp/internal/telemetry"
	"github.com/nativeui-dev/catalog-mcp/internal/tools"
	"github.com/nativeui-dev/catalog-mcp/internal/tools/blogposts"
	"github.com/nativeui-dev/catalog-mcp/internal/tools/components"
	"github.com/nativeui-dev/catalog-mcp/internal/tools/sitesearch"
	"github.com/nativeui-dev/catalog-mcp/internal/tools/storefetch"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Global resources that need cleanup
var (
	logFile     atomic.Pointer[os.File]
	isStdioMode atomic.Bool
)

// parseLogLevel parses the LOG_LEVEL environment variable and returns the appropriate logrus level.
// Defaults to WarnLevel if not set or invalid.
func parseLogLevel() logrus.Level {
	level, err := logrus.ParseLevel(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if err != nil {
		return logrus.WarnLevel
	}
	return level
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Discard until the transport is known; stdio must never write to stdout.
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(parseLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	defer performCleanup(logger)

	app := &cli.Command{
		Name:    "catalog-mcp",
		Usage:   "MCP server for the NativeUI component catalog and blog",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "transport",
				Aliases: []string{"t"},
				Value:   "stdio",
				Usage:   "Transport type (stdio, sse, or http)",
			},
			&cli.StringFlag{
				Name:  "port",
				Value: "18080",
				Usage: "Port to use for HTTP transports (SSE and Streamable HTTP)",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Value: "http://localhost",
				Usage: "Base URL for HTTP transports",
			},
			&cli.StringFlag{
				Name:    "auth-token",
				Usage:   "Bearer token required by the Streamable HTTP transport (optional)",
				Sources: cli.EnvVars("CATALOG_MCP_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:  "endpoint-path",
				Value: "/http",
				Usage: "Endpoint path for Streamable HTTP transport",
			},
			&cli.DurationFlag{
				Name:  "session-timeout",
				Value: 30 * time.Minute,
				Usage: "Session timeout for Streamable HTTP transport",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a YAML config file (default: $" + config.ConfigPathEnvVar + ")",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Printf("catalog-mcp version %s\n", Version)
					fmt.Printf("Commit: %s\n", Commit)
					fmt.Printf("Built: %s\n", BuildDate)
					return nil
				},
			},
			cliCommand(logger),
		},
		Action: func(cliCtx context.Context, cmd *cli.Command) error {
			return serve(cliCtx, cmd, logger)
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		// stdio clients read stdout as protocol; never write to it or stderr.
		if !isStdioMode.Load() {
			logger.Errorf("Error: %v", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		performCleanup(logger)
		os.Exit(1)
	}
}

// cliCommand runs tools in-process without an MCP server.
func cliCommand(logger *logrus.Logger) *cli.Command {
	runner := func(ctx context.Context, cmd *cli.Command) (*toolcli.Runner, error) {
		logger.SetOutput(os.Stderr)
		if _, err := setup(ctx, cmd.Root().String("config"), logger); err != nil {
			return nil, err
		}
		output := toolcli.OutputText
		if cmd.Bool("json") {
			output = toolcli.OutputJSON
		}
		return toolcli.NewRunner(logger, registry.GetCache(), output, os.Stdout), nil
	}

	return &cli.Command{
		Name:  "cli",
		Usage: "Run catalog tools directly from the command line",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of text"},
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List available tools",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					r, err := runner(ctx, cmd)
					if err != nil {
						return err
					}
					return r.ListTools()
				},
			},
			{
				Name:      "help",
				Usage:     "Show a tool's parameters and examples",
				ArgsUsage: "<tool>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("usage: catalog-mcp cli help <tool>")
					}
					r, err := runner(ctx, cmd)
					if err != nil {
						return err
					}
					return r.HelpTool(cmd.Args().First())
				},
			},
			{
				Name:            "run",
				Usage:           "Run a tool with --key=value flags or a JSON object",
				ArgsUsage:       "<tool> [args...]",
				SkipFlagParsing: true,
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() < 1 {
						return fmt.Errorf("usage: catalog-mcp cli run <tool> [args...]")
					}
					r, err := runner(ctx, cmd)
					if err != nil {
						return err
					}
					return r.RunTool(ctx, cmd.Args().First(), cmd.Args().Tail())
				},
			},
		},
	}
}

// setup loads configuration, builds the content services and registers the
// tools.
func setup(ctx context.Context, configPath string, logger *logrus.Logger) (*services, error) {
	if configPath == "" {
		configPath = config.GetConfigPath("")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	registry.Init(logger, cfg.ViewTTL)

	svc, err := newServices(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if svc.catalog != nil {
		registry.Register(components.New(svc.catalog))
	} else {
		logger.Warn("CATALOG_REPOSITORY is not set, component tools are disabled")
	}
	registry.Register(blogposts.New(svc.blog))
	registry.Register(sitesearch.New(svc.pages, svc.componentLister(), svc.blog))
	registry.Register(storefetch.New(svc.store, cfg.BlogGistID))

	return svc, nil
}

// services holds the content layer shared by every tool.
type services struct {
	cfg     *config.Config
	store   *remotestore.Client
	catalog *catalog.Assembler
	blog    *blog.Resolver
	pages   *search.PageIndex
}

func newServices(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*services, error) {
	store, err := remotestore.NewClient(ctx, cfg.StoreOptions(), logger)
	if err != nil {
		return nil, err
	}

	svc := &services{
		cfg:   cfg,
		store: store,
		blog:  blog.NewResolver(store, cfg.BlogGistID, logger),
		pages: search.NewPageIndex(nil),
	}
	if cfg.HasRepository() {
		svc.catalog = catalog.NewAssembler(store, logger, cfg.MetadataConcurrency)
		logger.WithField("repository", store.Repository()).Debug("Component catalog configured")
	}

	if cfg.PagesFile != "" {
		pages, err := search.LoadPagesFile(cfg.PagesFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load pages file, using built-in pages")
		} else {
			svc.pages.Replace(pages)
		}
	}
	return svc, nil
}

// componentLister avoids handing site search a typed nil.
func (s *services) componentLister() sitesearch.ComponentLister {
	if s.catalog == nil {
		return nil
	}
	return s.catalog
}

func serve(ctx context.Context, cmd *cli.Command, logger *logrus.Logger) error {
	transport := cmd.String("transport")
	isStdioMode.Store(transport == "stdio")
	configureLogging(logger, transport)

	if err := tools.InitGlobalErrorLogger(logDir(), logger); err != nil {
		logger.WithError(err).Warn("Failed to initialise tool error logger")
	}

	telemetry.SetServiceVersion(Version)
	if shutdown, err := telemetry.InitTracer(logger); err != nil {
		logger.WithError(err).Warn("Failed to initialise tracing")
	} else {
		defer shutdownTelemetry(shutdown, logger)
	}
	if shutdown, err := telemetry.InitMetrics(logger); err != nil {
		logger.WithError(err).Warn("Failed to initialise metrics")
	} else {
		defer shutdownTelemetry(shutdown, logger)
	}

	svc, err := setup(ctx, cmd.String("config"), logger)
	if err != nil {
		return err
	}

	if svc.cfg.PagesFile != "" {
		go func() {
			if err := svc.pages.Watch(ctx, svc.cfg.PagesFile, logger); err != nil {
				logger.WithError(err).Warn("Pages file watcher stopped")
			}
		}()
	}
	go registry.PruneCache(ctx, pruneInterval(svc.cfg.ViewTTL))

	if transport != "stdio" {
		logger.Infof("Starting catalog-mcp version %s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}

	mcpSrv := newMCPServer(transport, logger)

	logger.WithField("transport", transport).Debug("Starting server")
	switch transport {
	case "stdio":
		return mcpserver.ServeStdio(mcpSrv)
	case "sse":
		port := cmd.String("port")
		logger.WithField("port", port).Debug("Starting SSE server")
		sseServer := mcpserver.NewSSEServer(mcpSrv, mcpserver.WithBaseURL(cmd.String("base-url")+"/sse"))
		return sseServer.Start(":" + port)
	case "http":
		return startStreamableHTTPServer(ctx, cmd, mcpSrv, logger)
	default:
		return fmt.Errorf("unsupported transport: %s", transport)
	}
}

func newMCPServer(transport string, logger *logrus.Logger) *mcpserver.MCPServer {
	hooks := &mcpserver.Hooks{}
	hooks.AddOnUnregisterSession(func(ctx context.Context, session mcpserver.ClientSession) {
		if n := registry.GetCache().DeletePrefix(components.SessionViewPrefix(session.SessionID())); n > 0 {
			logger.WithField("count", n).Debug("Released code views of closed session")
		}
	})

	mcpSrv := mcpserver.NewMCPServer("catalog-mcp", Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
		mcpserver.WithHooks(hooks),
	)

	enabled := registry.GetEnabledTools()
	logger.WithField("tool_count", len(enabled)).Debug("MCP server created, registering tools")

	for name, tool := range enabled {
		if transport != "stdio" {
			logger.Infof("Registering tool: %s", name)
		}
		mcpSrv.AddTool(tool.Definition(), toolHandler(name, transport, logger))
	}
	return mcpSrv
}

// toolHandler executes a registered tool with tracing, metrics and error
// logging around it.
func toolHandler(name, transport string, logger *logrus.Logger) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tool, ok := registry.GetTool(name)
		if !ok {
			return nil, fmt.Errorf("tool not found: %s", name)
		}

		args, ok := request.Params.Arguments.(map[string]any)
		if !ok {
			if request.Params.Arguments != nil {
				return nil, fmt.Errorf("invalid arguments type: expected map[string]any, got %T", request.Params.Arguments)
			}
			args = map[string]any{}
		}

		sessionID := tools.SessionID(ctx)
		ctx, span := telemetry.StartToolSpan(ctx, name, sessionID, args)
		start := time.Now()

		result, err := tool.Execute(ctx, registry.GetLogger(), registry.GetCache(), args)

		telemetry.EndToolSpan(span, err)
		success := err == nil && result != nil && !result.IsError
		telemetry.RecordToolCall(ctx, name, transport, success, float64(time.Since(start).Milliseconds()))

		if err != nil {
			telemetry.RecordToolError(ctx, name, err)
			if transport != "stdio" {
				logger.WithError(err).Errorf("Tool execution failed: %s", name)
			}
			if errorLogger := tools.GetGlobalErrorLogger(); errorLogger.IsEnabled() {
				errorLogger.LogToolError(name, sessionID, args, err, transport)
			}
			return nil, fmt.Errorf("tool execution failed: %w", err)
		}
		return result, nil
	}
}

func logDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "catalog-mcp", "logs")
	}
	return filepath.Join(homeDir, ".catalog-mcp", "logs")
}

// configureLogging sends logs to ~/.catalog-mcp/logs/catalog-mcp.log. When the
// file cannot be opened, stdio discards logs and other transports use stderr.
func configureLogging(logger *logrus.Logger, transport string) {
	level := parseLogLevel()
	if transport == "stdio" && level > logrus.WarnLevel {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	logrus.SetLevel(level)

	fallback := io.Writer(os.Stderr)
	if transport == "stdio" {
		fallback = io.Discard
	}

	dir := logDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		logger.SetOutput(fallback)
		logrus.SetOutput(fallback)
		return
	}

	file, err := os.OpenFile(filepath.Join(dir, "catalog-mcp.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		logger.SetOutput(fallback)
		logrus.SetOutput(fallback)
		return
	}

	logFile.Store(file)
	logger.SetOutput(file)
	logrus.SetOutput(file)
	logger.WithField("level", level.String()).Debug("Logging configured")
}

func pruneInterval(ttl time.Duration) time.Duration {
	if interval := ttl / 2; interval >= time.Second {
		return interval
	}
	return time.Second
}

func shutdownTelemetry(shutdown func() error, logger *logrus.Logger) {
	if err := shutdown(); err != nil {
		logger.WithError(err).Debug("Telemetry shutdown failed")
	}
}

// performCleanup handles cleanup of resources on shutdown
func performCleanup(logger *logrus.Logger) {
	if errorLogger := tools.GetGlobalErrorLogger(); errorLogger != nil {
		if err := errorLogger.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close tool error logger")
		}
	}
	if file := logFile.Swap(nil); file != nil {
		_ = file.Close()
	}
}

// startStreamableHTTPServer configures and starts the Streamable HTTP server with graceful shutdown
func startStreamableHTTPServer(ctx context.Context, cmd *cli.Command, mcpServer *mcpserver.MCPServer, logger *logrus.Logger) error {
	port := cmd.String("port")
	authToken := cmd.String("auth-token")
	endpointPath := cmd.String("endpoint-path")
	sessionTimeout := cmd.Duration("session-timeout")

	logger.Infof("Starting Streamable HTTP server on port %s with endpoint %s", port, endpointPath)

	heartbeatInterval := 30 * time.Second
	if sessionTimeout > 0 {
		heartbeatInterval = sessionTimeout / 4
	}

	httpServer := mcpserver.NewStreamableHTTPServer(mcpServer,
		mcpserver.WithEndpointPath(endpointPath),
		mcpserver.WithHeartbeatInterval(heartbeatInterval),
		mcpserver.WithLogger(&logrusAdapter{logger: logger}),
	)

	var handler http.Handler = httpServer
	if authToken != "" {
		handler = requireBearerToken(authToken, handler, logger)
		logger.Info("Bearer token authentication enabled")
	}

	mux := http.NewServeMux()
	mux.Handle(endpointPath, handler)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown failed")
		return err
	}
	logger.Info("HTTP server stopped gracefully")
	return nil
}

// requireBearerToken rejects requests whose Authorization header does not
// carry the expected bearer token.
func requireBearerToken(expected string, next http.Handler, logger *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			logger.WithField("remote", r.RemoteAddr).Warn("Rejected request with missing or invalid bearer token")
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type logrusAdapter struct {
	logger *logrus.Logger
}

func (l *logrusAdapter) Debugf(format string, args ...any) {
	l.logger.Debugf(format, args...)
}

func (l *logrusAdapter) Infof(format string, args ...any) {
	l.logger.Infof(format, args...)
}

func (l *logrusAdapter) Warnf(format string, args ...any) {
	l.logger.Warnf(format, args...)
}

func (l *logrusAdapter) Errorf(format string, args ...any) {
	l.logger.Errorf(format, args...)
}
