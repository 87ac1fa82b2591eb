// Command mcp-example-client connects to an MCP server over stdio, sse,
// or websocket, completes the handshake, lists the server's tools, and
// calls one by name — a minimal driver for exercising mcp.Client.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/metoro-io/mcp-golang/mcp"
	"github.com/metoro-io/mcp-golang/mcplog"
	"github.com/metoro-io/mcp-golang/transport"
	"github.com/metoro-io/mcp-golang/transport/sse"
	"github.com/metoro-io/mcp-golang/transport/stdio"
	"github.com/metoro-io/mcp-golang/transport/websocket"
)

var cli struct {
	Transport string `default:"stdio" help:"transport: stdio, sse, or websocket"`
	Command   string `default:"" help:"for stdio: a server command to launch (e.g. './mcp-example-server')"`
	URL       string `default:"http://localhost:8089/mcp" help:"base URL for sse and websocket"`
	Tool      string `default:"greet" help:"tool to call after listing"`
	Arguments string `default:"{\"name\":\"world\"}" help:"JSON arguments for the tool call"`
	LogLevel  string `default:"info" help:"log level: debug, info, warning, error"`
}

func main() {
	kong.Parse(&cli)

	logr, err := mcplog.New("client", mcplog.Options{Level: mcplog.LevelFromString(cli.LogLevel), StdioSafe: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcplog: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	tr, cleanup, err := dial(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	client, err := mcp.NewClient(mcp.ClientOptions{
		ClientInfo: mcp.Implementation{Name: "mcp-example-client", Version: "0.1.0"},
		Logger:     logr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp.NewClient: %v\n", err)
		os.Exit(1)
	}

	if err := client.Connect(ctx, tr); err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	tools, err := client.ListTools(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tools/list: %v\n", err)
		os.Exit(1)
	}
	for _, t := range tools {
		fmt.Printf("tool: %s — %s\n", t.Name, t.Description)
	}

	var args interface{}
	if err := json.Unmarshal([]byte(cli.Arguments), &args); err != nil {
		fmt.Fprintf(os.Stderr, "bad --arguments: %v\n", err)
		os.Exit(1)
	}

	result, err := client.CallTool(ctx, cli.Tool, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tools/call: %v\n", err)
		os.Exit(1)
	}
	for _, c := range result.Content {
		fmt.Println(c.Text)
	}
}

func dial(ctx context.Context) (transport.Transport, func(), error) {
	switch cli.Transport {
	case "stdio":
		if cli.Command == "" {
			return nil, nil, fmt.Errorf("--command is required for stdio transport")
		}
		c := exec.CommandContext(ctx, cli.Command)
		c.Stderr = os.Stderr
		stdin, err := c.StdinPipe()
		if err != nil {
			return nil, nil, err
		}
		stdout, err := c.StdoutPipe()
		if err != nil {
			return nil, nil, err
		}
		if err := c.Start(); err != nil {
			return nil, nil, err
		}
		tr := stdio.NewWithIO(stdout, stdin)
		cleanup := func() { _ = c.Process.Kill() }
		return tr, cleanup, nil

	case "sse":
		tr := sse.NewClientTransport(cli.URL, "")
		if err := tr.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return tr, func() {}, nil

	case "websocket":
		wsURL := cli.URL
		if strings.HasPrefix(wsURL, "http") {
			wsURL = "ws" + strings.TrimPrefix(wsURL, "http")
		}
		tr, err := websocket.Dial(ctx, wsURL)
		if err != nil {
			return nil, nil, err
		}
		return tr, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown transport %q", cli.Transport)
	}
}
