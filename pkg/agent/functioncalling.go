package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// runFunctionCalling drives one invocation through the model's native tool
// interface. All tool calls of a turn are dispatched concurrently and their
// results reintegrated in the order the model requested them. When more than
// one turn is budgeted, the last turn offers no tools, forcing the model to
// answer in text.
func (l *Loop) runFunctionCalling(ctx context.Context, stream *Stream, logger *slog.Logger, prompt string) (*Result, error) {
	messages := l.openingMessages(prompt)
	defs := l.toolDefs()
	lastText := ""

	for turn := 1; turn <= l.opts.MaxTurns; turn++ {
		stream.emit(ctx, TurnStartedEvent{Turn: turn})

		offered := defs
		if turn == l.opts.MaxTurns && l.opts.MaxTurns > 1 {
			offered = nil
		}
		resp, err := l.model.Complete(ctx, &Request{Messages: messages, Tools: offered})
		if err != nil {
			return nil, fmt.Errorf("model completion on turn %d: %w", turn, err)
		}

		if resp.Text != "" {
			stream.emit(ctx, AssistantTextEvent{Turn: turn, Text: resp.Text})
			lastText = resp.Text
		}

		if len(resp.ToolCalls) == 0 {
			messages = append(messages, Message{Role: RoleAssistant, Content: resp.Text})
			return &Result{
				Outcome:     OutcomeFinalAnswer,
				FinalAnswer: resp.Text,
				Turns:       turn,
				Messages:    messages,
			}, nil
		}

		calls := make([]ToolCall, len(resp.ToolCalls))
		copy(calls, resp.ToolCalls)
		for i := range calls {
			if calls[i].ID == "" {
				calls[i].ID = uuid.NewString()
			}
		}
		messages = append(messages, Message{Role: RoleAssistant, Content: resp.Text, ToolCalls: calls})

		for _, call := range calls {
			stream.emit(ctx, ToolCallEvent{
				Turn:      turn,
				CallID:    call.ID,
				Tool:      call.Name,
				Arguments: call.Arguments,
			})
		}

		results := make([]ToolResult, len(calls))
		var g errgroup.Group
		for i, call := range calls {
			g.Go(func() error {
				results[i] = l.dispatch(ctx, call)
				return nil
			})
		}
		_ = g.Wait()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		for i, call := range calls {
			res := results[i]
			stream.emit(ctx, ToolResultEvent{
				Turn:       turn,
				CallID:     call.ID,
				Tool:       call.Name,
				Content:    res.Content,
				ErrKind:    res.ErrKind,
				ErrMessage: res.ErrMessage,
			})
			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    toolMessageContent(res),
				ToolCallID: call.ID,
				Name:       call.Name,
			})
			if res.Failed() {
				logger.Debug("tool call failed", "turn", turn, "tool", call.Name, "kind", res.ErrKind)
			}
		}
	}

	return &Result{
		Outcome:     OutcomeMaxTurns,
		FinalAnswer: lastText,
		Turns:       l.opts.MaxTurns,
		Messages:    messages,
	}, nil
}

func (l *Loop) openingMessages(prompt string) []Message {
	var messages []Message
	if l.opts.SystemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: l.opts.SystemPrompt})
	}
	return append(messages, Message{Role: RoleUser, Content: prompt})
}

// dispatch invokes one tool, folding every failure into the result so a bad
// call never aborts the turn.
func (l *Loop) dispatch(ctx context.Context, call ToolCall) ToolResult {
	if l.tools == nil {
		return ToolResult{
			Name:       call.Name,
			ErrKind:    "unknown_tool",
			ErrMessage: fmt.Sprintf("no tools available, cannot call %q", call.Name),
		}
	}
	return l.tools.Call(ctx, call.Name, call.Arguments)
}

// toolMessageContent renders a tool result as the message fed back to the
// model.
func toolMessageContent(res ToolResult) string {
	if res.Failed() {
		return fmt.Sprintf("error (%s): %s", res.ErrKind, res.ErrMessage)
	}
	return res.Content
}
