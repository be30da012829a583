package agent

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model-issued request to invoke a named tool.
type ToolCall struct {
	// ID correlates the call with its result message.
	ID string
	// Name is the qualified tool name.
	Name string
	// Arguments are the decoded call arguments.
	Arguments map[string]any
}

// Message is one entry in the conversation history.
type Message struct {
	Role    Role
	Content string
	// ToolCalls is set on assistant messages that request tool invocations.
	ToolCalls []ToolCall
	// ToolCallID links a tool message back to the call it answers.
	ToolCallID string
	// Name is the tool name on tool messages.
	Name string
}

// ToolDef describes a tool offered to the model.
type ToolDef struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Request is a single completion request.
type Request struct {
	Messages []Message
	// Tools lists the tools the model may call. Empty means the model must
	// answer in text.
	Tools []ToolDef
}

// Response is the model's reply. A response carries text, tool calls, or
// both.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// Model is the completion backend driving the loop.
type Model interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}
