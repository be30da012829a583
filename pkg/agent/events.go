package agent

// EventType discriminates the events a Stream delivers.
type EventType string

const (
	EventTurnStarted   EventType = "turn_started"
	EventAssistantText EventType = "assistant_text"
	EventToolCall      EventType = "tool_call"
	EventToolResult    EventType = "tool_result"
	EventParseRetry    EventType = "parse_retry"
	EventResult        EventType = "result"
)

// Event is a single item on the loop's output stream.
type Event interface {
	Type() EventType
}

// TurnStartedEvent marks the beginning of a reasoning turn. Turns are
// numbered from 1.
type TurnStartedEvent struct {
	Turn int `json:"turn"`
}

func (TurnStartedEvent) Type() EventType { return EventTurnStarted }

// AssistantTextEvent carries text the model produced on a turn. For ReAct
// this includes the raw Thought/Action block.
type AssistantTextEvent struct {
	Turn int    `json:"turn"`
	Text string `json:"text"`
}

func (AssistantTextEvent) Type() EventType { return EventAssistantText }

// ToolCallEvent announces a tool invocation before it is dispatched.
type ToolCallEvent struct {
	Turn      int            `json:"turn"`
	CallID    string         `json:"call_id"`
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

func (ToolCallEvent) Type() EventType { return EventToolCall }

// ToolResultEvent reports the outcome of a tool invocation. Failed calls
// carry the error kind and message; the loop continues either way.
type ToolResultEvent struct {
	Turn       int    `json:"turn"`
	CallID     string `json:"call_id"`
	Tool       string `json:"tool"`
	Content    string `json:"content,omitempty"`
	ErrKind    string `json:"err_kind,omitempty"`
	ErrMessage string `json:"err_message,omitempty"`
}

func (ToolResultEvent) Type() EventType { return EventToolResult }

// ParseRetryEvent reports a malformed ReAct step and the corrective retry
// that follows it.
type ParseRetryEvent struct {
	Turn    int    `json:"turn"`
	Attempt int    `json:"attempt"`
	Reason  string `json:"reason"`
}

func (ParseRetryEvent) Type() EventType { return EventParseRetry }

// ResultEvent is the final event of a successful run.
type ResultEvent struct {
	Result *Result `json:"result"`
}

func (ResultEvent) Type() EventType { return EventResult }
