// Command mcp-example-server hosts a small MCP server exposing one tool
// (greet) over stdio, SSE, or websocket, wired the way this
// corpus's own agent binaries wire a kong-parsed CLI to config, rotating
// logs, and a Prometheus metrics endpoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/metoro-io/mcp-golang/mcp"
	"github.com/metoro-io/mcp-golang/mcpconfig"
	"github.com/metoro-io/mcp-golang/mcplog"
	"github.com/metoro-io/mcp-golang/mcpmetrics"
	"github.com/metoro-io/mcp-golang/toolutil"
	"github.com/metoro-io/mcp-golang/transport"
	"github.com/metoro-io/mcp-golang/transport/sse"
	"github.com/metoro-io/mcp-golang/transport/stdio"
	"github.com/metoro-io/mcp-golang/transport/websocket"
)

var cli struct {
	Config     string `default:"" help:"path to a TOML config file; when set, overrides the transport, addr, path, log-level and log-file flags"`
	Transport  string `default:"stdio" help:"transport: stdio, sse, or websocket"`
	Addr       string `default:":8089" help:"listen address for sse and websocket"`
	Path       string `default:"/mcp" help:"HTTP path for sse and websocket"`
	LogLevel   string `default:"info" help:"log level: debug, info, warning, error"`
	LogFile    string `default:"" help:"rotating log file path; empty disables file logging"`
	MetricsAddr string `default:"" help:"if set, serve Prometheus metrics on this address at /metrics"`
}

type greetArgs struct {
	Name string `json:"name" jsonschema:"description=Name of the person to greet"`
}

func main() {
	kong.Parse(&cli)

	if cli.Config != "" {
		cfg, err := mcpconfig.Load(cli.Config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mcpconfig: %v\n", err)
			os.Exit(1)
		}
		cli.Transport = cfg.Transport.Kind
		cli.Addr = cfg.Transport.Addr
		cli.Path = cfg.Transport.Path
		cli.LogLevel = cfg.Log.Level
		cli.LogFile = cfg.Log.File
	}

	stdioSafe := cli.Transport == "stdio"

	var fileCfg *mcpconfig.FileConfig
	if cli.LogFile != "" {
		fileCfg = &mcpconfig.FileConfig{Filename: cli.LogFile, MaxSizeMB: 5, MaxBackups: 3, MaxAgeDays: 7}
	}
	logLevel := mcplog.LevelFromString(cli.LogLevel)
	logr, err := mcplog.New("server", mcplog.Options{Level: logLevel, File: loggerFileConfig(fileCfg), StdioSafe: stdioSafe})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcplog: %v\n", err)
		os.Exit(1)
	}

	metrics := mcpmetrics.New("mcp_example_server")
	if cli.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go http.ListenAndServe(cli.MetricsAddr, mux)
	}

	greetTool, err := toolutil.New("greet", "Greet someone by name", func(ctx context.Context, args greetArgs) ([]mcp.Content, error) {
		return []mcp.Content{mcp.NewTextContent("Hello, " + args.Name + "!")}, nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "toolutil: %v\n", err)
		os.Exit(1)
	}

	tools := mcp.NewToolSet()
	tools.Insert(greetTool)

	server, err := mcp.NewServer(mcp.Implementation{Name: "mcp-example-server", Version: "0.1.0"}, mcp.ServerOptions{
		Instructions: "Example MCP server exposing a single greet tool.",
		Tools:        &mcp.ToolsOptions{Collection: tools, ListChanged: true},
		Logging:      true,
		Logger:       logr,
		Metrics:      metrics,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp.NewServer: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := serve(ctx, server); err != nil {
		fmt.Fprintf(os.Stderr, "serve: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, server *mcp.Server) error {
	switch cli.Transport {
	case "stdio":
		return server.Serve(ctx, stdio.New())
	case "sse":
		listener := sse.NewListener(cli.Addr, cli.Path, cli.Path+"/message")
		go listener.Serve()
		defer listener.Shutdown(context.Background())
		return acceptLoop(ctx, server, listener)
	case "websocket":
		listener := websocket.NewListener(cli.Addr, cli.Path)
		go listener.Serve()
		defer listener.Shutdown(context.Background())
		return acceptLoop(ctx, server, listener)
	default:
		return fmt.Errorf("unknown transport %q", cli.Transport)
	}
}

func acceptLoop(ctx context.Context, server *mcp.Server, listener interface {
	Accept(ctx context.Context) (transport.Transport, error)
}) error {
	for {
		tr, err := listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go func() {
			if err := server.Serve(ctx, tr); err != nil {
				fmt.Fprintf(os.Stderr, "session ended: %v\n", err)
			}
		}()
	}
}

func loggerFileConfig(f *mcpconfig.FileConfig) *mcplog.FileConfig {
	if f == nil {
		return nil
	}
	return &mcplog.FileConfig{
		Filename:   f.Filename,
		MaxSizeMB:  f.MaxSizeMB,
		MaxBackups: f.MaxBackups,
		MaxAgeDays: f.MaxAgeDays,
		Compress:   f.Compress,
	}
}
