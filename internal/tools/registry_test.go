package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	address string
	name    string
	args    map[string]any
}

type fakeCaller struct {
	mu      sync.Mutex
	tools   map[string][]mcp.Tool
	listErr map[string]error

	callResult any
	callErr    error
	calls      []recordedCall
}

func (f *fakeCaller) ListTools(_ context.Context, address string) ([]mcp.Tool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[address]; err != nil {
		return nil, err
	}
	return f.tools[address], nil
}

func (f *fakeCaller) CallTool(_ context.Context, address, name string, args map[string]any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{address: address, name: name, args: args})
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.callResult, nil
}

func newTestRegistry(addresses []string, caller *fakeCaller) *Registry {
	return &Registry{
		addresses: addresses,
		client:    caller,
		snap:      snapshot{routes: make(map[string]string)},
	}
}

func namedTool(name string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: name + " description",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"question": map[string]any{"type": "string"},
			},
			Required: []string{"question"},
		},
	}
}

func TestDiscoverAggregatesServers(t *testing.T) {
	caller := &fakeCaller{tools: map[string][]mcp.Tool{
		"http://a:8001/sse": {namedTool("query_database"), namedTool("get_database_schema")},
		"http://b:8002/sse": {namedTool("get_table_raw_data")},
	}}
	registry := newTestRegistry([]string{"http://a:8001/sse", "http://b:8002/sse"}, caller)

	registry.Discover(context.Background())

	discovered := registry.Tools()
	require.Len(t, discovered, 3)
	assert.Equal(t, "query_database", discovered[0].Name)
	assert.Equal(t, "http://a:8001/sse", discovered[0].Server)
	assert.Equal(t, "get_table_raw_data", discovered[2].Name)
	assert.Equal(t, "http://b:8002/sse", discovered[2].Server)

	address, ok := registry.Route("get_database_schema")
	require.True(t, ok)
	assert.Equal(t, "http://a:8001/sse", address)
}

func TestDiscoverSkipsFailingServer(t *testing.T) {
	caller := &fakeCaller{
		tools: map[string][]mcp.Tool{
			"http://b:8002/sse": {namedTool("get_table_raw_data")},
		},
		listErr: map[string]error{
			"http://a:8001/sse": errors.New("connection refused"),
		},
	}
	registry := newTestRegistry([]string{"http://a:8001/sse", "http://b:8002/sse"}, caller)

	registry.Discover(context.Background())

	discovered := registry.Tools()
	require.Len(t, discovered, 1)
	assert.Equal(t, "get_table_raw_data", discovered[0].Name)

	_, ok := registry.Route("query_database")
	assert.False(t, ok)
}

func TestDiscoverLastServerWinsOnCollision(t *testing.T) {
	caller := &fakeCaller{tools: map[string][]mcp.Tool{
		"http://a:8001/sse": {namedTool("query_database"), namedTool("get_database_schema")},
		"http://b:8002/sse": {namedTool("query_database")},
	}}
	registry := newTestRegistry([]string{"http://a:8001/sse", "http://b:8002/sse"}, caller)

	registry.Discover(context.Background())

	discovered := registry.Tools()
	require.Len(t, discovered, 2)

	address, ok := registry.Route("query_database")
	require.True(t, ok)
	assert.Equal(t, "http://b:8002/sse", address)

	for _, desc := range discovered {
		if desc.Name == "query_database" {
			assert.Equal(t, "http://b:8002/sse", desc.Server)
		}
	}
}

func TestDiscoverReplacesSnapshot(t *testing.T) {
	caller := &fakeCaller{tools: map[string][]mcp.Tool{
		"http://a:8001/sse": {namedTool("query_database")},
	}}
	registry := newTestRegistry([]string{"http://a:8001/sse"}, caller)

	registry.Discover(context.Background())
	require.Len(t, registry.Tools(), 1)

	caller.mu.Lock()
	caller.tools["http://a:8001/sse"] = []mcp.Tool{namedTool("get_database_schema")}
	caller.mu.Unlock()

	registry.Discover(context.Background())

	discovered := registry.Tools()
	require.Len(t, discovered, 1)
	assert.Equal(t, "get_database_schema", discovered[0].Name)

	_, ok := registry.Route("query_database")
	assert.False(t, ok, "stale route should be gone after refresh")
}

func TestDiscoverFailureEmptiesSnapshot(t *testing.T) {
	caller := &fakeCaller{tools: map[string][]mcp.Tool{
		"http://a:8001/sse": {namedTool("query_database")},
	}}
	registry := newTestRegistry([]string{"http://a:8001/sse"}, caller)

	registry.Discover(context.Background())
	require.Len(t, registry.Tools(), 1)

	caller.mu.Lock()
	caller.listErr = map[string]error{"http://a:8001/sse": errors.New("gone")}
	caller.mu.Unlock()

	registry.Discover(context.Background())
	assert.Empty(t, registry.Tools())
}

func TestRouteCallUnknownTool(t *testing.T) {
	registry := newTestRegistry(nil, &fakeCaller{})

	_, err := registry.RouteCall(context.Background(), "missing_tool", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRoute)
	assert.Contains(t, err.Error(), "missing_tool")
}

func TestRouteCallSuccess(t *testing.T) {
	caller := &fakeCaller{
		tools: map[string][]mcp.Tool{
			"http://a:8001/sse": {namedTool("query_database")},
		},
		callResult: map[string]any{"success": true, "row_count": float64(2)},
	}
	registry := newTestRegistry([]string{"http://a:8001/sse"}, caller)
	registry.Discover(context.Background())

	args := map[string]any{"question": "how many employees are there?"}
	result, err := registry.RouteCall(context.Background(), "query_database", args)
	require.NoError(t, err)
	assert.Equal(t, caller.callResult, result)

	require.Len(t, caller.calls, 1)
	assert.Equal(t, "http://a:8001/sse", caller.calls[0].address)
	assert.Equal(t, "query_database", caller.calls[0].name)
	assert.Equal(t, args, caller.calls[0].args)
}

func TestRouteCallWrapsRemoteFailure(t *testing.T) {
	cause := errors.New("tool execution failed: boom")
	caller := &fakeCaller{
		tools: map[string][]mcp.Tool{
			"http://a:8001/sse": {namedTool("query_database")},
		},
		callErr: cause,
	}
	registry := newTestRegistry([]string{"http://a:8001/sse"}, caller)
	registry.Discover(context.Background())

	_, err := registry.RouteCall(context.Background(), "query_database", nil)
	require.Error(t, err)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "http://a:8001/sse", remoteErr.Server)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, fmt.Sprintf("MCP server error (http://a:8001/sse): %v", cause), err.Error())
}

func TestToolsReturnsCopy(t *testing.T) {
	caller := &fakeCaller{tools: map[string][]mcp.Tool{
		"http://a:8001/sse": {namedTool("query_database")},
	}}
	registry := newTestRegistry([]string{"http://a:8001/sse"}, caller)
	registry.Discover(context.Background())

	first := registry.Tools()
	first[0].Name = "mutated"

	second := registry.Tools()
	assert.Equal(t, "query_database", second[0].Name)
}

func TestSchemaToMap(t *testing.T) {
	t.Run("round trips properties", func(t *testing.T) {
		out := schemaToMap(mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"table_name": map[string]any{"type": "string"},
			},
			Required: []string{"table_name"},
		})

		assert.Equal(t, "object", out["type"])
		properties, ok := out["properties"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, properties, "table_name")
	})

	t.Run("empty schema degrades to object", func(t *testing.T) {
		out := schemaToMap(mcp.ToolInputSchema{})
		assert.Equal(t, "object", out["type"])
	})
}
