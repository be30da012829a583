package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// runReAct drives one invocation through Thought/Action/Observation text.
// Exactly one action runs per turn. A malformed step costs a turn and gets a
// corrective retry; too many consecutive malformed steps end the run with a
// StrategyError.
func (l *Loop) runReAct(ctx context.Context, stream *Stream, logger *slog.Logger, prompt string) (*Result, error) {
	defs := l.toolDefs()
	messages := []Message{
		{Role: RoleSystem, Content: reactSystemPrompt(l.opts.SystemPrompt, defs)},
		{Role: RoleUser, Content: prompt},
	}

	parseFailures := 0
	lastText := ""

	for turn := 1; turn <= l.opts.MaxTurns; turn++ {
		stream.emit(ctx, TurnStartedEvent{Turn: turn})

		resp, err := l.model.Complete(ctx, &Request{Messages: messages})
		if err != nil {
			return nil, fmt.Errorf("model completion on turn %d: %w", turn, err)
		}
		stream.emit(ctx, AssistantTextEvent{Turn: turn, Text: resp.Text})
		lastText = resp.Text
		messages = append(messages, Message{Role: RoleAssistant, Content: resp.Text})

		step, perr := parseReActStep(resp.Text)
		if perr != nil {
			parseFailures++
			stream.emit(ctx, ParseRetryEvent{Turn: turn, Attempt: parseFailures, Reason: perr.Error()})
			if parseFailures >= l.opts.MaxParseRetries {
				return nil, &StrategyError{
					Strategy: StrategyReAct,
					Turn:     turn,
					Attempts: parseFailures,
					Err:      perr,
				}
			}
			logger.Debug("malformed step, retrying", "turn", turn, "attempt", parseFailures, "reason", perr)
			messages = append(messages, Message{
				Role:    RoleUser,
				Content: fmt.Sprintf("Your last response could not be parsed: %s. Respond again using the exact Thought/Action/Action Input format, or give a Final Answer.", perr),
			})
			continue
		}
		parseFailures = 0

		if step.isFinal {
			return &Result{
				Outcome:     OutcomeFinalAnswer,
				FinalAnswer: step.finalAnswer,
				Turns:       turn,
				Messages:    messages,
			}, nil
		}

		callID := uuid.NewString()
		stream.emit(ctx, ToolCallEvent{
			Turn:      turn,
			CallID:    callID,
			Tool:      step.action,
			Arguments: step.actionInput,
		})
		res := l.dispatch(ctx, ToolCall{ID: callID, Name: step.action, Arguments: step.actionInput})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		stream.emit(ctx, ToolResultEvent{
			Turn:       turn,
			CallID:     callID,
			Tool:       step.action,
			Content:    res.Content,
			ErrKind:    res.ErrKind,
			ErrMessage: res.ErrMessage,
		})
		messages = append(messages, Message{
			Role:    RoleUser,
			Content: "Observation: " + toolMessageContent(res),
		})
	}

	return &Result{
		Outcome:     OutcomeMaxTurns,
		FinalAnswer: lastText,
		Turns:       l.opts.MaxTurns,
		Messages:    messages,
	}, nil
}

const (
	markerThought     = "Thought:"
	markerAction      = "Action:"
	markerActionInput = "Action Input:"
	markerObservation = "Observation:"
	markerFinalAnswer = "Final Answer:"
)

// reactStep is one parsed model response: either an action with its input or
// a final answer.
type reactStep struct {
	thought     string
	action      string
	actionInput map[string]any
	finalAnswer string
	isFinal     bool
}

// parseReActStep extracts the first action, or the final answer, from a
// model response. A Final Answer wins over a trailing action block.
func parseReActStep(text string) (*reactStep, error) {
	step := &reactStep{}
	if idx := strings.Index(text, markerThought); idx >= 0 {
		thought := sectionAfter(text, idx+len(markerThought))
		for _, marker := range []string{markerAction, markerActionInput, markerObservation, markerFinalAnswer} {
			if m := strings.Index(thought, marker); m >= 0 {
				thought = thought[:m]
			}
		}
		step.thought = strings.TrimSpace(thought)
	}

	if idx := strings.Index(text, markerFinalAnswer); idx >= 0 {
		step.isFinal = true
		step.finalAnswer = strings.TrimSpace(text[idx+len(markerFinalAnswer):])
		return step, nil
	}

	actionIdx := strings.Index(text, markerAction)
	if actionIdx < 0 {
		return nil, fmt.Errorf("no %q or %q marker found", markerAction, markerFinalAnswer)
	}
	actionLine := sectionAfter(text, actionIdx+len(markerAction))
	if nl := strings.IndexByte(actionLine, '\n'); nl >= 0 {
		actionLine = actionLine[:nl]
	}
	step.action = strings.TrimSpace(actionLine)
	if step.action == "" {
		return nil, fmt.Errorf("empty action name after %q", markerAction)
	}

	inputIdx := strings.Index(text, markerActionInput)
	if inputIdx < 0 {
		step.actionInput = map[string]any{}
		return step, nil
	}
	raw := text[inputIdx+len(markerActionInput):]
	if obsIdx := strings.Index(raw, markerObservation); obsIdx >= 0 {
		raw = raw[:obsIdx]
	}
	raw = stripCodeFence(strings.TrimSpace(raw))
	if raw == "" {
		step.actionInput = map[string]any{}
		return step, nil
	}

	parsed := gjson.Parse(raw)
	if !gjson.Valid(raw) || !parsed.IsObject() {
		return nil, fmt.Errorf("action input is not a JSON object")
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("decoding action input: %w", err)
	}
	step.actionInput = args
	return step, nil
}

func sectionAfter(text string, start int) string {
	return strings.TrimLeft(text[start:], " \t")
}

// stripCodeFence unwraps ```json ... ``` blocks models like to emit.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		first := strings.TrimSpace(s[:nl])
		if first == "" || !strings.HasPrefix(first, "{") {
			s = s[nl+1:]
		}
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// reactSystemPrompt renders the tool list and the step format the model must
// follow.
func reactSystemPrompt(base string, defs []ToolDef) string {
	var b strings.Builder
	if base != "" {
		b.WriteString(base)
		b.WriteString("\n\n")
	}
	b.WriteString("You solve tasks step by step using the tools below.\n\n")
	if len(defs) == 0 {
		b.WriteString("No tools are available; answer directly.\n\n")
	} else {
		b.WriteString("Available tools:\n")
		names := make([]string, 0, len(defs))
		for _, def := range defs {
			names = append(names, def.Name)
			fmt.Fprintf(&b, "- %s: %s\n", def.Name, def.Description)
			if def.InputSchema != nil {
				if data, err := json.Marshal(def.InputSchema); err == nil {
					fmt.Fprintf(&b, "  input schema: %s\n", data)
				}
			}
		}
		b.WriteString("\nUse exactly this format:\n\n")
		b.WriteString("Thought: reason about what to do next\n")
		fmt.Fprintf(&b, "Action: the tool to use, one of [%s]\n", strings.Join(names, ", "))
		b.WriteString("Action Input: the tool arguments as a JSON object\n")
		b.WriteString("Observation: the tool result (will be provided to you)\n\n")
		b.WriteString("Repeat Thought/Action/Action Input as needed, one action at a time.\n")
	}
	b.WriteString("When you know the answer, respond with:\n\n")
	b.WriteString("Thought: I know the answer\n")
	b.WriteString("Final Answer: the answer to the original question\n")
	return b.String()
}
