package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"datachat/internal/logging"
)

// ErrNoRoute means a tool name has no server in the current snapshot.
var ErrNoRoute = errors.New("no server registered for tool")

// RemoteError wraps a failure reported while executing a tool on its server.
type RemoteError struct {
	Server string
	Err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("MCP server error (%s): %v", e.Server, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Descriptor is one remote tool as advertised by the server it lives on.
// InputSchema is the tool's JSON schema as a generic map.
type Descriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
	Server      string
}

// toolCaller is the slice of Client the registry needs. Tests substitute a
// fake.
type toolCaller interface {
	ListTools(ctx context.Context, address string) ([]mcp.Tool, error)
	CallTool(ctx context.Context, address, name string, args map[string]any) (any, error)
}

// snapshot is one immutable discovery result. Discover builds a fresh one
// and swaps it in wholesale, so readers never see a half-updated registry.
type snapshot struct {
	tools  []Descriptor
	routes map[string]string
}

const discoveryTimeout = 15 * time.Second

// Registry holds the tools discovered across the configured MCP servers and
// routes calls to the server each tool came from.
type Registry struct {
	addresses []string
	client    toolCaller

	mu   sync.RWMutex
	snap snapshot
}

func NewRegistry(addresses []string) *Registry {
	return &Registry{
		addresses: addresses,
		client:    NewClient(),
		snap:      snapshot{routes: make(map[string]string)},
	}
}

// Discover queries every configured server and replaces the snapshot with
// whatever answered. A server that fails is logged and skipped, so its tools
// drop out until the next refresh. When two servers advertise the same tool
// name the later server in the configured order wins.
func (r *Registry) Discover(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	next := snapshot{routes: make(map[string]string)}

	for _, address := range r.addresses {
		serverTools, err := r.client.ListTools(ctx, address)
		if err != nil {
			logging.Error("Failed to discover tools from %s: %v", address, err)
			continue
		}

		for _, tool := range serverTools {
			desc := Descriptor{
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: schemaToMap(tool.InputSchema),
				Server:      address,
			}
			if previous, ok := next.routes[desc.Name]; ok {
				logging.Info("Tool %s on %s overrides the registration from %s", desc.Name, address, previous)
				for i := range next.tools {
					if next.tools[i].Name == desc.Name {
						next.tools[i] = desc
						break
					}
				}
			} else {
				next.tools = append(next.tools, desc)
			}
			next.routes[desc.Name] = address
		}

		logging.Info("Discovered %d tools from %s", len(serverTools), address)
	}

	r.mu.Lock()
	r.snap = next
	r.mu.Unlock()

	logging.Info("Tool registry refreshed: %d tools across %d servers", len(next.tools), len(r.addresses))
}

// Tools returns a copy of the current snapshot.
func (r *Registry) Tools() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, len(r.snap.tools))
	copy(out, r.snap.tools)
	return out
}

// Route reports which server a tool name is currently mapped to.
func (r *Registry) Route(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	address, ok := r.snap.routes[name]
	return address, ok
}

// RouteCall executes a discovered tool on the server it was discovered
// from. No deadline is imposed here; the call runs as long as the caller's
// context allows.
func (r *Registry) RouteCall(ctx context.Context, name string, args map[string]any) (any, error) {
	address, ok := r.Route(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, name)
	}

	result, err := r.client.CallTool(ctx, address, name, args)
	if err != nil {
		return nil, &RemoteError{Server: address, Err: err}
	}
	return result, nil
}

// Close releases the registry's MCP connections.
func (r *Registry) Close() {
	if c, ok := r.client.(*Client); ok {
		c.Close()
	}
}

// schemaToMap flattens a tool's input schema into the generic map the model
// plugins expect. A schema that cannot round-trip degrades to a bare object.
func schemaToMap(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil || len(out) == 0 {
		return map[string]any{"type": "object"}
	}
	if t, ok := out["type"].(string); !ok || t == "" {
		out["type"] = "object"
	}
	return out
}
