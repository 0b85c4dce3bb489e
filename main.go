package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	pdfmillcli "github.com/pdfmill/pdfmill/internal/cli"
	"github.com/pdfmill/pdfmill/internal/config"
	"github.com/pdfmill/pdfmill/internal/registry"
	"github.com/pdfmill/pdfmill/internal/tools"

	// Import all tool packages to register them
	_ "github.com/pdfmill/pdfmill/internal/imports"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Global resources that need cleanup. Atomic to avoid races between
// signal handlers and the deferred cleanup path.
var (
	debugLogFile atomic.Pointer[os.File]
	isStdioMode  atomic.Bool
)

// parseLogLevel reads LOG_LEVEL and returns the matching logrus level.
// Defaults to WarnLevel when unset or invalid.
func parseLogLevel() logrus.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.WarnLevel
	}
}

func main() {
	// Optional .env support; real environment variables always win
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Discard output until the transport mode is known: stdio transports
	// must never see stray bytes on stdout or stderr.
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(parseLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	registry.Init(logger)

	defer performCleanup(logger)

	app := &cli.Command{
		Name:    "pdfmill",
		Usage:   "MCP server for PDF text extraction",
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
				Name:  "auth-token",
				Usage: "Bearer token for Streamable HTTP transport (optional)",
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
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Printf("pdfmill version %s\n", Version)
					fmt.Printf("Commit: %s\n", Commit)
					fmt.Printf("Built: %s\n", BuildDate)
					return nil
				},
			},
			{
				Name:  "tools",
				Usage: "List available tools",
				Flags: []cli.Flag{outputFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return newCLIRunner(logger, cmd).ListTools()
				},
			},
			{
				Name:      "tool",
				Usage:     "Invoke a tool directly, without an MCP client",
				ArgsUsage: "<name> [--key=value ... | '{json}']",
				Flags:     []cli.Flag{outputFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					args := cmd.Args().Slice()
					if len(args) == 0 {
						return fmt.Errorf("tool name required (run 'pdfmill tools' to see available tools)")
					}
					return newCLIRunner(logger, cmd).RunTool(ctx, args[0], args[1:])
				},
			},
			{
				Name:  "config",
				Usage: "Validate the config file and show the effective configuration",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return handleConfigShow()
				},
			},
		},
		Action: func(cliCtx context.Context, cmd *cli.Command) error {
			transport := cmd.String("transport")
			isStdioMode.Store(transport == "stdio")

			configureLogging(logger, transport)

			if err := tools.InitGlobalErrorLogger(logger); err != nil {
				logger.WithError(err).Debug("Failed to initialise tool error logger")
			}

			if transport != "stdio" {
				logger.Infof("Starting pdfmill version %s (commit: %s, built: %s)", Version, Commit, BuildDate)
			}

			logger.Debug("Creating MCP server")
			mcpSrv := mcpserver.NewMCPServer("pdfmill", Version)

			registered := registry.GetTools()
			logger.WithField("tool_count", len(registered)).Debug("MCP server created, registering tools")

			for toolName, toolImpl := range registered {
				name := toolName
				tool := toolImpl

				if transport != "stdio" {
					logger.Infof("Registering tool: %s", name)
				}

				mcpSrv.AddTool(tool.Definition(), func(toolCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
					current, ok := registry.GetTool(name)
					if !ok {
						return nil, fmt.Errorf("tool not found: %s", name)
					}

					args, ok := request.Params.Arguments.(map[string]any)
					if !ok {
						return nil, fmt.Errorf("invalid arguments type: expected map[string]interface{}, got %T", request.Params.Arguments)
					}

					result, err := current.Execute(toolCtx, registry.GetLogger(), registry.GetCache(), args)
					if err != nil {
						if transport != "stdio" {
							logger.WithError(err).Errorf("Tool execution failed: %s", name)
						}
						if errorLogger := tools.GetGlobalErrorLogger(); errorLogger != nil && errorLogger.IsEnabled() {
							errorLogger.LogToolError(name, args, err, transport)
						}
						return nil, fmt.Errorf("tool execution failed: %w", err)
					}
					return result, nil
				})
			}

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
				return startStreamableHTTPServer(cmd, mcpSrv, logger)
			default:
				return fmt.Errorf("unsupported transport: %s", transport)
			}
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		// In stdio mode nothing may be written to stdout or stderr:
		// it would corrupt the MCP protocol stream.
		if !isStdioMode.Load() {
			logger.Fatalf("Error: %v", err)
		}
		os.Exit(1)
	}
}

// outputFlag is shared by the direct-invocation subcommands
func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Value:   "text",
		Usage:   "Output format (text or json)",
	}
}

// newCLIRunner builds a Runner for direct tool invocation. Logs go to
// stderr here: there is no protocol stream to protect.
func newCLIRunner(logger *logrus.Logger, cmd *cli.Command) *pdfmillcli.Runner {
	logger.SetOutput(os.Stderr)
	format := pdfmillcli.OutputText
	if cmd.String("output") == "json" {
		format = pdfmillcli.OutputJSON
	}
	return pdfmillcli.NewRunner(logger, registry.GetCache(), format)
}

// configureLogging routes all logging to a file so the stdio protocol
// stream stays clean, falling back to io.Discard (stdio) or stderr.
func configureLogging(logger *logrus.Logger, transport string) {
	logLevel := parseLogLevel()
	if transport == "stdio" && logLevel < logrus.WarnLevel {
		logLevel = logrus.WarnLevel // Minimum warn level for stdio mode
	}

	fallback := func() {
		if isStdioMode.Load() {
			logger.SetOutput(io.Discard)
			logrus.SetOutput(io.Discard)
		} else {
			logger.SetOutput(os.Stderr)
			logrus.SetOutput(os.Stderr)
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fallback()
	} else {
		logDir := filepath.Join(homeDir, ".pdfmill", "logs")
		if err := os.MkdirAll(logDir, 0700); err != nil {
			fallback()
		} else {
			logPath := filepath.Join(logDir, "pdfmill.log")
			file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
			if err != nil {
				fallback()
			} else {
				debugLogFile.Store(file)
				logger.SetOutput(file)
				logrus.SetOutput(file)
			}
		}
	}

	logger.SetLevel(logLevel)
	logrus.SetLevel(logLevel)
	logger.WithField("level", logLevel.String()).Debug("Logging configured")
}

// performCleanup handles cleanup of resources on shutdown
func performCleanup(logger *logrus.Logger) {
	// Silently close the log file -- in stdio mode no output is allowed,
	// and elsewhere the logger may be writing to this very file.
	if file := debugLogFile.Load(); file != nil {
		_ = file.Close()
	}

	if errorLogger := tools.GetGlobalErrorLogger(); errorLogger != nil {
		if err := errorLogger.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close tool error logger")
		}
	}
}

// startStreamableHTTPServer configures and starts the Streamable HTTP transport
func startStreamableHTTPServer(cmd *cli.Command, mcpServer *mcpserver.MCPServer, logger *logrus.Logger) error {
	port := cmd.String("port")
	authToken := cmd.String("auth-token")
	endpointPath := cmd.String("endpoint-path")
	sessionTimeout := cmd.Duration("session-timeout")

	logger.Infof("Starting Streamable HTTP server on port %s with endpoint %s", port, endpointPath)

	opts := []mcpserver.StreamableHTTPOption{
		mcpserver.WithEndpointPath(endpointPath),
		mcpserver.WithLogger(&logrusAdapter{logger: logger}),
	}

	if sessionTimeout > 0 {
		opts = append(opts, mcpserver.WithSessionIdManager(newSessionManager(sessionTimeout, logger)))
	}

	if authToken != "" {
		opts = append(opts, mcpserver.WithHTTPContextFunc(createAuthMiddleware(authToken, logger)))
		logger.Info("Bearer token authentication enabled")
	}

	// Heartbeat keeps idle connections alive; 1/4 of the session timeout
	heartbeatInterval := 30 * time.Second
	if sessionTimeout > 0 {
		heartbeatInterval = sessionTimeout / 4
	}
	opts = append(opts, mcpserver.WithHeartbeatInterval(heartbeatInterval))
	logger.Infof("Heartbeat interval: %v", heartbeatInterval)

	httpServer := mcpserver.NewStreamableHTTPServer(mcpServer, opts...)
	return httpServer.Start(":" + port)
}

// createAuthMiddleware validates the Authorization header against the expected token
func createAuthMiddleware(expectedToken string, logger *logrus.Logger) mcpserver.HTTPContextFunc {
	return func(ctx context.Context, req *http.Request) context.Context {
		authHeader := req.Header.Get("Authorization")
		if authHeader == "" {
			logger.Warn("Request missing Authorization header")
			return ctx
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			logger.Warn("Invalid authorisation format, expected Bearer token")
			return ctx
		}

		if strings.TrimPrefix(authHeader, bearerPrefix) != expectedToken {
			logger.Warn("Invalid authentication token")
			return ctx
		}

		logger.Debug("Request authenticated successfully")
		return ctx
	}
}

// sessionManager issues UUID session IDs and expires them after the timeout
type sessionManager struct {
	timeout  time.Duration
	logger   *logrus.Logger
	sessions sync.Map // session ID -> expiry time.Time
}

func newSessionManager(timeout time.Duration, logger *logrus.Logger) *sessionManager {
	return &sessionManager{timeout: timeout, logger: logger}
}

func (m *sessionManager) Generate() string {
	id := uuid.New().String()
	m.sessions.Store(id, time.Now().Add(m.timeout))
	return id
}

func (m *sessionManager) Validate(sessionID string) (bool, error) {
	if sessionID == "" {
		return false, fmt.Errorf("empty session ID")
	}
	expiry, ok := m.sessions.Load(sessionID)
	if !ok {
		// Unknown sessions (e.g. after a restart) are treated as live;
		// the client re-initialises if the server disagrees.
		return false, nil
	}
	if time.Now().After(expiry.(time.Time)) {
		m.sessions.Delete(sessionID)
		m.logger.WithField("session", sessionID).Debug("Session expired")
		return true, nil
	}
	return false, nil
}

func (m *sessionManager) Terminate(sessionID string) (bool, error) {
	m.sessions.Delete(sessionID)
	m.logger.WithField("session", sessionID).Debug("Session terminated")
	return true, nil
}

// logrusAdapter adapts logrus.Logger to the mcp-go util.Logger interface
type logrusAdapter struct {
	logger *logrus.Logger
}

func (l *logrusAdapter) Debugf(format string, args ...any) { l.logger.Debugf(format, args...) }
func (l *logrusAdapter) Infof(format string, args ...any)  { l.logger.Infof(format, args...) }
func (l *logrusAdapter) Warnf(format string, args ...any)  { l.logger.Warnf(format, args...) }
func (l *logrusAdapter) Errorf(format string, args ...any) { l.logger.Errorf(format, args...) }

// handleConfigShow validates the config file (if present) and prints the
// effective configuration as YAML.
func handleConfigShow() error {
	configPath := config.Path()

	if data, err := os.ReadFile(configPath); err == nil {
		if _, err := config.Validate(data); err != nil {
			return fmt.Errorf("config file %s is invalid: %w", configPath, err)
		}
		fmt.Printf("Config file: %s (valid)\n\n", configPath)
	} else {
		fmt.Printf("Config file: %s (not present, using defaults)\n\n", configPath)
	}

	effective, err := yaml.Marshal(config.Load())
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	fmt.Print(string(effective))
	return nil
}
