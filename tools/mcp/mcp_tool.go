// Package mcp connects to external MCP tool servers and exposes their
// tools through the tools.Tool interface.
package mcp

import (
	"context"
	"os"
	"os/exec"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nanoagent/nanoagent/errors"
	"github.com/nanoagent/nanoagent/logger"
)

// Client manages the connection to a single MCP server subprocess and the
// tools it advertises.
type Client struct {
	Name  string
	cmd   *exec.Cmd
	conn  *mcpsdk.ClientSession
	tools map[string]*ServerTool
}

// Connect starts the server subprocess, performs the MCP handshake and
// discovers the advertised tools.
func Connect(ctx context.Context, name, command string, args []string) (*Client, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "nanoagent", Version: "v1.0.0"}, nil)
	conn, err := mcpClient.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return nil, errors.Wrapf(err, "failed to connect to MCP server '%s'", name)
	}

	client := &Client{
		Name:  name,
		cmd:   cmd,
		conn:  conn,
		tools: make(map[string]*ServerTool),
	}

	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := conn.ListTools(ctx, params)
		if err != nil {
			_ = client.Close()
			return nil, errors.Wrapf(err, "failed to list tools from MCP server '%s'", name)
		}
		for _, t := range list.Tools {
			client.tools[t.Name] = &ServerTool{
				serverName:  name,
				toolName:    t.Name,
				description: t.Description,
				client:      client,
			}
		}
		if list.NextCursor == "" {
			break
		}
		params.Cursor = list.NextCursor
	}

	logger.Info().Str("server", name).Int("tools", len(client.tools)).Msg("connected to MCP server")
	return client, nil
}

// Tools returns the discovered tools.
func (c *Client) Tools() []*ServerTool {
	out := make([]*ServerTool, 0, len(c.tools))
	for _, t := range c.tools {
		out = append(out, t)
	}
	return out
}

// Close terminates the connection and the server subprocess.
func (c *Client) Close() error {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		logger.Debug().Str("server", c.Name).Msg("terminating MCP server")
		return c.cmd.Process.Kill()
	}
	return nil
}

// ServerTool adapts one remote MCP tool to the tools.Tool interface.
type ServerTool struct {
	serverName  string
	toolName    string
	description string
	client      *Client
}

func (t *ServerTool) Name() string        { return t.toolName }
func (t *ServerTool) Description() string { return t.description }

// Execute forwards the call to the MCP server and flattens the text
// content of the result.
func (t *ServerTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	result, err := t.client.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.toolName,
		Arguments: args,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to call tool '%s' on server '%s'", t.toolName, t.serverName)
	}

	var sb strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(*mcpsdk.TextContent); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), nil
}
