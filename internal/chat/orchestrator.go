package chat

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"datachat/internal/genai"
	"datachat/internal/logging"
	"datachat/internal/session"
)

// Turn outcome types, reported to the client alongside the answer.
const (
	TypeTool   = "tool"
	TypeDirect = "direct"
	TypeError  = "error"
)

const systemInstruction = `You are a helpful assistant that can answer general questions and also query complex datasets through independent MCP servers.

Multiple MCP servers are connected to this interface. Each server provides specialized tools.

CRITICAL FOR FOLLOW-UP QUESTIONS:
If the user asks a follow-up question that refers to previous results or context (e.g., "who is that?", "how many of them?", "show their roles"), you MUST rephrase the user's request into a COMPREHENSIVE and SELF-CONTAINED natural language query for the tool. Use the conversation history to resolve all pronouns and ambiguous references before calling the tool.

Always be helpful and concise in your responses.`

// Result is the outcome of one conversational turn.
type Result struct {
	Type       string
	SessionID  string
	ToolUsed   string
	ToolArgs   map[string]any
	ToolResult any
	Response   string
}

// ToolSource supplies the callable tools offered to the model on each turn.
type ToolSource interface {
	GenkitTools() []ai.Tool
}

type generateFunc func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error)

// Orchestrator drives conversational turns: it sends the user message with
// the discovered tools to the model, executes at most one requested tool,
// feeds the result back, and returns the final answer.
type Orchestrator struct {
	modelName string
	tools     ToolSource
	sessions  *session.Store
	generate  generateFunc
}

func NewOrchestrator(provider *genai.Provider, toolSource ToolSource, sessions *session.Store) *Orchestrator {
	app := provider.App()
	return &Orchestrator{
		modelName: provider.ModelName(),
		tools:     toolSource,
		sessions:  sessions,
		generate: func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
			return genkit.Generate(ctx, app, opts...)
		},
	}
}

// Turn runs one conversational exchange. A missing session id starts a new
// session. Failures never escape: they come back as an error-typed Result
// and the session history is left exactly as it was before the turn.
func (o *Orchestrator) Turn(ctx context.Context, message, sessionID string) Result {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	result, err := o.runTurn(ctx, sessionID, message)
	if err != nil {
		logging.Error("Chat turn failed for session %s: %v", sessionID, err)
		return Result{
			Type:      TypeError,
			SessionID: sessionID,
			Response:  fmt.Sprintf("Chat error: %v", err),
		}
	}
	return result
}

func (o *Orchestrator) runTurn(ctx context.Context, sessionID, message string) (Result, error) {
	history := o.sessions.GetOrCreate(sessionID)

	genkitTools := o.tools.GenkitTools()
	toolRefs := make([]ai.ToolRef, len(genkitTools))
	toolMap := make(map[string]ai.Tool, len(genkitTools))
	for i, t := range genkitTools {
		toolRefs[i] = t
		toolMap[t.Name()] = t
	}

	messages := append(history, ai.NewUserTextMessage(message))

	generateOpts := []ai.GenerateOption{
		ai.WithModelName(o.modelName),
		ai.WithSystem(systemInstruction),
		ai.WithMessages(messages...),
	}
	if len(toolRefs) > 0 {
		generateOpts = append(generateOpts,
			ai.WithTools(toolRefs...),
			ai.WithToolChoice(ai.ToolChoiceAuto),
		)
	}

	resp, err := o.generate(ctx, generateOpts...)
	if err != nil {
		return Result{}, err
	}
	logUsage(resp)

	requests := resp.ToolRequests()
	if len(requests) == 0 {
		messages = append(messages, resp.Message)
		o.sessions.Commit(sessionID, messages)
		return Result{
			Type:      TypeDirect,
			SessionID: sessionID,
			Response:  resp.Text(),
		}, nil
	}

	// One tool hop per turn: the first request runs, the rest are refused
	// so the model still gets a response for every call it made.
	first := requests[0]
	firstArgs, _ := first.Input.(map[string]any)
	firstResult := o.executeTool(ctx, first, toolMap)

	toolParts := make([]*ai.Part, 0, len(requests))
	toolParts = append(toolParts, ai.NewToolResponsePart(&ai.ToolResponse{
		Name:   first.Name,
		Ref:    first.Ref,
		Output: firstResult,
	}))
	for _, req := range requests[1:] {
		toolParts = append(toolParts, ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   req.Name,
			Ref:    req.Ref,
			Output: map[string]string{"error": "only one tool call per turn is supported"},
		}))
	}

	messages = append(messages, resp.Message, ai.NewMessage(ai.RoleTool, nil, toolParts...))

	// The follow-up call carries the tool result but offers no tools, so a
	// turn can never chain further calls.
	finalResp, err := o.generate(ctx,
		ai.WithModelName(o.modelName),
		ai.WithSystem(systemInstruction),
		ai.WithMessages(messages...),
	)
	if err != nil {
		return Result{}, err
	}
	logUsage(finalResp)

	messages = append(messages, finalResp.Message)
	o.sessions.Commit(sessionID, messages)

	return Result{
		Type:       TypeTool,
		SessionID:  sessionID,
		ToolUsed:   first.Name,
		ToolArgs:   firstArgs,
		ToolResult: firstResult,
		Response:   finalResp.Text(),
	}, nil
}

// executeTool runs one requested tool and always produces a payload the
// model can read. Failures become {"error": ...} objects, never faults.
func (o *Orchestrator) executeTool(ctx context.Context, req *ai.ToolRequest, toolMap map[string]ai.Tool) any {
	tool, ok := toolMap[req.Name]
	if !ok {
		logging.Error("Model requested unknown tool %s", req.Name)
		return map[string]string{"error": fmt.Sprintf("no server registered for tool: %s", req.Name)}
	}

	result, err := tool.RunRaw(ctx, req.Input)
	if err != nil {
		logging.Error("Tool %s failed: %v", req.Name, err)
		return map[string]string{"error": err.Error()}
	}
	if result == nil {
		return map[string]string{"error": "no result from tool server"}
	}
	return result
}

func logUsage(resp *ai.ModelResponse) {
	if resp.Usage == nil {
		return
	}
	logging.Debug("Model call used %d input and %d output tokens",
		resp.Usage.InputTokens, resp.Usage.OutputTokens)
}
