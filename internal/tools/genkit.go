package tools

import (
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// GenkitTools exposes the current snapshot as detached genkit tools whose
// execution routes back through the registry. Tools are rebuilt per call so
// each chat turn sees the latest discovery.
func (r *Registry) GenkitTools() []ai.Tool {
	descriptors := r.Tools()
	out := make([]ai.Tool, 0, len(descriptors))
	for _, desc := range descriptors {
		out = append(out, r.genkitTool(desc))
	}
	return out
}

func (r *Registry) genkitTool(desc Descriptor) ai.Tool {
	schema := desc.InputSchema
	if schema == nil {
		schema = map[string]any{"type": "object"}
	}
	name := desc.Name

	toolFunc := func(toolCtx *ai.ToolContext, input any) (any, error) {
		args, ok := input.(map[string]any)
		if !ok && input != nil {
			return nil, fmt.Errorf("%s: expected object input, got %T", name, input)
		}
		return r.RouteCall(toolCtx.Context, name, args)
	}

	return ai.NewToolWithInputSchema(name, desc.Description, schema, toolFunc)
}
