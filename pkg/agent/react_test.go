package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReActStep(t *testing.T) {
	t.Parallel()

	t.Run("action with input", func(t *testing.T) {
		t.Parallel()
		step, err := parseReActStep("Thought: need to search\nAction: s1.search\nAction Input: {\"query\": \"golang\", \"limit\": 3}")
		require.NoError(t, err)
		assert.False(t, step.isFinal)
		assert.Equal(t, "need to search", step.thought)
		assert.Equal(t, "s1.search", step.action)
		assert.Equal(t, map[string]any{"query": "golang", "limit": float64(3)}, step.actionInput)
	})

	t.Run("final answer", func(t *testing.T) {
		t.Parallel()
		step, err := parseReActStep("Thought: I know it\nFinal Answer: the capital is Oslo")
		require.NoError(t, err)
		assert.True(t, step.isFinal)
		assert.Equal(t, "I know it", step.thought)
		assert.Equal(t, "the capital is Oslo", step.finalAnswer)
	})

	t.Run("final answer wins over action", func(t *testing.T) {
		t.Parallel()
		step, err := parseReActStep("Action: s1.search\nAction Input: {}\nFinal Answer: done anyway")
		require.NoError(t, err)
		assert.True(t, step.isFinal)
		assert.Equal(t, "done anyway", step.finalAnswer)
	})

	t.Run("fenced action input", func(t *testing.T) {
		t.Parallel()
		step, err := parseReActStep("Action: s1.search\nAction Input:\n```json\n{\"query\": \"x\"}\n```")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"query": "x"}, step.actionInput)
	})

	t.Run("missing input means no arguments", func(t *testing.T) {
		t.Parallel()
		step, err := parseReActStep("Thought: list them\nAction: s1.list_all")
		require.NoError(t, err)
		assert.Equal(t, "s1.list_all", step.action)
		assert.Empty(t, step.actionInput)
	})

	t.Run("hallucinated observation is dropped", func(t *testing.T) {
		t.Parallel()
		step, err := parseReActStep("Action: s1.search\nAction Input: {\"query\": \"x\"}\nObservation: fake result")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"query": "x"}, step.actionInput)
	})

	t.Run("no markers", func(t *testing.T) {
		t.Parallel()
		_, err := parseReActStep("I think we should search for golang tutorials.")
		require.Error(t, err)
	})

	t.Run("empty action", func(t *testing.T) {
		t.Parallel()
		_, err := parseReActStep("Action:\nAction Input: {}")
		require.Error(t, err)
	})

	t.Run("input not an object", func(t *testing.T) {
		t.Parallel()
		_, err := parseReActStep("Action: s1.search\nAction Input: [1, 2]")
		require.Error(t, err)

		_, err = parseReActStep("Action: s1.search\nAction Input: just some words")
		require.Error(t, err)
	})
}

func TestReActSystemPrompt(t *testing.T) {
	t.Parallel()

	prompt := reactSystemPrompt("You are a research assistant.", []ToolDef{
		{Name: "s1.search", Description: "search the web"},
	})
	assert.Contains(t, prompt, "You are a research assistant.")
	assert.Contains(t, prompt, "s1.search: search the web")
	assert.Contains(t, prompt, "Action Input:")
	assert.Contains(t, prompt, "Final Answer:")
}

func TestReActFlow(t *testing.T) {
	t.Parallel()

	tb := &fakeToolbox{
		defs: []ToolDef{{Name: "s1.search", Description: "search"}},
		fn: map[string]func(map[string]any) ToolResult{
			"s1.search": func(args map[string]any) ToolResult {
				return ToolResult{Name: "s1.search", Content: "three results about " + args["query"].(string)}
			},
		},
	}
	model := &scriptedModel{responses: []*Response{
		{Text: "Thought: search first\nAction: s1.search\nAction Input: {\"query\": \"go\"}"},
		{Text: "Thought: enough\nFinal Answer: go is a language"},
	}}

	loop, err := New(model, tb, Options{Strategy: StrategyReAct})
	require.NoError(t, err)

	stream := loop.Run(context.Background(), "what is go?")
	events := drain(t, stream)
	require.NoError(t, stream.Err())

	result := stream.Result()
	require.NotNil(t, result)
	assert.Equal(t, OutcomeFinalAnswer, result.Outcome)
	assert.Equal(t, "go is a language", result.FinalAnswer)
	assert.Equal(t, 2, result.Turns)

	assert.Equal(t, []EventType{
		EventTurnStarted, EventAssistantText, EventToolCall, EventToolResult,
		EventTurnStarted, EventAssistantText, EventResult,
	}, eventTypes(events))

	// The observation went back to the model as a user message.
	reqs := model.seenRequests()
	require.Len(t, reqs, 2)
	last := reqs[1].Messages[len(reqs[1].Messages)-1]
	assert.Equal(t, RoleUser, last.Role)
	assert.Contains(t, last.Content, "Observation: three results about go")

	// ReAct never offers native tools.
	assert.Empty(t, reqs[0].Tools)
	assert.Empty(t, reqs[1].Tools)
}

func TestReActParseRetryRecovers(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{responses: []*Response{
		{Text: "let me think about that freely"},
		{Text: "Thought: ok\nFinal Answer: recovered"},
	}}
	loop, err := New(model, nil, Options{Strategy: StrategyReAct})
	require.NoError(t, err)

	stream := loop.Run(context.Background(), "q")
	events := drain(t, stream)
	require.NoError(t, stream.Err())

	result := stream.Result()
	require.NotNil(t, result)
	assert.Equal(t, "recovered", result.FinalAnswer)

	var retries []ParseRetryEvent
	for _, e := range events {
		if pr, ok := e.(ParseRetryEvent); ok {
			retries = append(retries, pr)
		}
	}
	require.Len(t, retries, 1)
	assert.Equal(t, 1, retries[0].Attempt)

	// The corrective nudge went back as a user message.
	reqs := model.seenRequests()
	require.Len(t, reqs, 2)
	last := reqs[1].Messages[len(reqs[1].Messages)-1]
	assert.Equal(t, RoleUser, last.Role)
	assert.Contains(t, last.Content, "could not be parsed")
}

func TestReActConsecutiveParseFailures(t *testing.T) {
	t.Parallel()

	bad := &Response{Text: "no structure here at all"}
	model := &scriptedModel{responses: []*Response{bad, bad, bad}}
	loop, err := New(model, nil, Options{Strategy: StrategyReAct})
	require.NoError(t, err)

	stream := loop.Run(context.Background(), "q")
	drain(t, stream)

	var stratErr *StrategyError
	require.ErrorAs(t, stream.Err(), &stratErr)
	assert.Equal(t, StrategyReAct, stratErr.Strategy)
	assert.Equal(t, 3, stratErr.Attempts)
	assert.Nil(t, stream.Result())
}

func TestReActFailureCounterResets(t *testing.T) {
	t.Parallel()

	bad := &Response{Text: "nope"}
	good := &Response{Text: "Action: s1.noop\nAction Input: {}"}
	model := &scriptedModel{responses: []*Response{bad, good, bad, bad, good, {Text: "Final Answer: done"}}}
	tb := &fakeToolbox{
		defs: []ToolDef{{Name: "s1.noop"}},
		fn: map[string]func(map[string]any) ToolResult{
			"s1.noop": func(map[string]any) ToolResult { return ToolResult{Name: "s1.noop", Content: "ok"} },
		},
	}
	loop, err := New(model, tb, Options{Strategy: StrategyReAct, MaxTurns: 10})
	require.NoError(t, err)

	stream := loop.Run(context.Background(), "q")
	drain(t, stream)

	// Two failures after a success stay under the consecutive limit.
	require.NoError(t, stream.Err())
	result := stream.Result()
	require.NotNil(t, result)
	assert.Equal(t, "done", result.FinalAnswer)
}

func TestReActToolErrorFeedsBack(t *testing.T) {
	t.Parallel()

	tb := &fakeToolbox{
		defs: []ToolDef{{Name: "s1.search"}},
		fn: map[string]func(map[string]any) ToolResult{
			"s1.search": func(map[string]any) ToolResult {
				return ToolResult{Name: "s1.search", ErrKind: "timeout", ErrMessage: "deadline exceeded"}
			},
		},
	}
	model := &scriptedModel{responses: []*Response{
		{Text: "Action: s1.search\nAction Input: {\"query\": \"x\"}"},
		{Text: "Final Answer: could not search"},
	}}
	loop, err := New(model, tb, Options{Strategy: StrategyReAct})
	require.NoError(t, err)

	stream := loop.Run(context.Background(), "q")
	drain(t, stream)
	require.NoError(t, stream.Err())

	reqs := model.seenRequests()
	require.Len(t, reqs, 2)
	last := reqs[1].Messages[len(reqs[1].Messages)-1]
	assert.Contains(t, last.Content, "Observation: error (timeout)")
}
