package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"datachat/internal/logging"
	"datachat/internal/version"
)

// Client talks MCP to the configured tool servers. Connections are cached
// per server address and redialed after a failed call.
type Client struct {
	mu          sync.Mutex
	connections map[string]*connection
}

type connection struct {
	client *client.Client
	info   *mcp.InitializeResult
}

func NewClient() *Client {
	return &Client{connections: make(map[string]*connection)}
}

// ListTools returns the tools advertised by the server at address.
func (c *Client) ListTools(ctx context.Context, address string) ([]mcp.Tool, error) {
	conn, err := c.connect(ctx, address)
	if err != nil {
		return nil, err
	}

	if conn.info.Capabilities.Tools == nil {
		logging.Debug("MCP server %s does not advertise tool support", address)
		return nil, nil
	}

	result, err := conn.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		c.drop(address, conn)
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return result.Tools, nil
}

// CallTool runs one tool on the server at address and decodes its first
// content block. JSON text comes back decoded; other text is returned as a
// plain string.
func (c *Client) CallTool(ctx context.Context, address, name string, args map[string]any) (any, error) {
	conn, err := c.connect(ctx, address)
	if err != nil {
		return nil, err
	}

	callRequest := mcp.CallToolRequest{}
	callRequest.Params.Name = name
	callRequest.Params.Arguments = args

	result, err := conn.client.CallTool(ctx, callRequest)
	if err != nil {
		c.drop(address, conn)
		return nil, fmt.Errorf("failed to call tool %s: %w", name, err)
	}

	if result.IsError {
		if len(result.Content) > 0 {
			if textContent, ok := mcp.AsTextContent(result.Content[0]); ok {
				return nil, fmt.Errorf("tool execution failed: %s", textContent.Text)
			}
		}
		return nil, fmt.Errorf("tool execution failed")
	}

	if len(result.Content) == 0 {
		return nil, nil
	}

	if textContent, ok := mcp.AsTextContent(result.Content[0]); ok {
		var parsed any
		if err := json.Unmarshal([]byte(textContent.Text), &parsed); err != nil {
			return textContent.Text, nil
		}
		return parsed, nil
	}
	return result.Content[0], nil
}

// Close shuts down every cached connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for address, conn := range c.connections {
		if err := conn.client.Close(); err != nil {
			logging.Debug("Error closing MCP connection to %s: %v", address, err)
		}
		delete(c.connections, address)
	}
}

func (c *Client) connect(ctx context.Context, address string) (*connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.connections[address]; ok {
		return existing, nil
	}

	mcpTransport, err := createTransport(address)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	mcpClient := client.NewClient(mcpTransport)
	if err := mcpClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start client: %w", err)
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "datachat",
		Version: version.GetVersion(),
	}
	initRequest.Params.Capabilities = mcp.ClientCapabilities{}

	serverInfo, err := mcpClient.Initialize(ctx, initRequest)
	if err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to initialize MCP client: %w", err)
	}

	logging.Debug("Connected to MCP server %s: %s %s",
		address, serverInfo.ServerInfo.Name, serverInfo.ServerInfo.Version)

	conn := &connection{client: mcpClient, info: serverInfo}
	c.connections[address] = conn
	return conn, nil
}

// drop discards a cached connection after a failed call so the next call
// redials. The comparison guards against closing a newer connection.
func (c *Client) drop(address string, conn *connection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.connections[address]; ok && current == conn {
		delete(c.connections, address)
		current.client.Close()
	}
}

// createTransport builds a transport for a server address. HTTP and HTTPS
// URLs get an SSE transport; anything else is treated as a command line for
// a stdio server.
func createTransport(address string) (transport.Interface, error) {
	if strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		if _, err := url.Parse(address); err != nil {
			return nil, fmt.Errorf("invalid server URL %q: %w", address, err)
		}
		return transport.NewSSE(address)
	}

	fields := strings.Fields(address)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty server address")
	}
	return transport.NewStdio(fields[0], nil, fields[1:]...), nil
}
