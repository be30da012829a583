package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Strategy selects how the loop drives the model.
type Strategy string

const (
	// StrategyFunctionCalling uses the model's native tool-call interface.
	StrategyFunctionCalling Strategy = "function_calling"
	// StrategyReAct drives the model through Thought/Action/Observation
	// text, one action per turn.
	StrategyReAct Strategy = "react"
)

const (
	DefaultMaxTurns        = 10
	DefaultMaxParseRetries = 3
)

// Options configures a Loop.
type Options struct {
	// Strategy defaults to StrategyFunctionCalling.
	Strategy Strategy
	// MaxTurns bounds the number of reasoning turns. Defaults to
	// DefaultMaxTurns.
	MaxTurns int
	// MaxParseRetries bounds consecutive malformed ReAct steps before the
	// run fails with a StrategyError. Defaults to DefaultMaxParseRetries.
	MaxParseRetries int
	// SystemPrompt is prepended to the conversation when set.
	SystemPrompt string
	// Logger receives loop diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
	// StreamBuffer sizes the event channel. Defaults to 16.
	StreamBuffer int
}

func (o Options) withDefaults() Options {
	if o.Strategy == "" {
		o.Strategy = StrategyFunctionCalling
	}
	if o.MaxTurns <= 0 {
		o.MaxTurns = DefaultMaxTurns
	}
	if o.MaxParseRetries <= 0 {
		o.MaxParseRetries = DefaultMaxParseRetries
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Outcome says how a run ended.
type Outcome string

const (
	// OutcomeFinalAnswer means the model produced a final answer.
	OutcomeFinalAnswer Outcome = "final_answer"
	// OutcomeMaxTurns means the turn budget ran out. This is a normal
	// completion, not an error.
	OutcomeMaxTurns Outcome = "max_turns"
)

// Result is the outcome of one run.
type Result struct {
	InvocationID string    `json:"invocation_id"`
	Outcome      Outcome   `json:"outcome"`
	FinalAnswer  string    `json:"final_answer"`
	Turns        int       `json:"turns"`
	Messages     []Message `json:"-"`
}

// Loop couples a model with a toolbox under a strategy.
type Loop struct {
	model  Model
	tools  Toolbox
	opts   Options
	logger *slog.Logger
}

// New builds a loop. The toolbox may be nil for a pure-text conversation.
func New(model Model, tools Toolbox, opts Options) (*Loop, error) {
	if model == nil {
		return nil, fmt.Errorf("agent: model must not be nil")
	}
	opts = opts.withDefaults()
	switch opts.Strategy {
	case StrategyFunctionCalling, StrategyReAct:
	default:
		return nil, fmt.Errorf("agent: unknown strategy %q", opts.Strategy)
	}
	return &Loop{model: model, tools: tools, opts: opts, logger: opts.Logger}, nil
}

// Run starts one invocation and returns its event stream. The run ends when
// the model answers, the turn budget runs out, the strategy gives up, or ctx
// is canceled. Each Run is an independent invocation with its own
// conversation.
func (l *Loop) Run(ctx context.Context, prompt string) *Stream {
	stream := newStream(l.opts.StreamBuffer)
	invocationID := uuid.NewString()
	logger := l.logger.With("invocation", invocationID, "strategy", string(l.opts.Strategy))

	go func() {
		logger.Debug("run started")
		var (
			result *Result
			err    error
		)
		switch l.opts.Strategy {
		case StrategyReAct:
			result, err = l.runReAct(ctx, stream, logger, prompt)
		default:
			result, err = l.runFunctionCalling(ctx, stream, logger, prompt)
		}
		if err != nil {
			logger.Warn("run failed", "error", err)
			stream.finish(nil, err)
			return
		}
		result.InvocationID = invocationID
		logger.Debug("run finished", "outcome", string(result.Outcome), "turns", result.Turns)
		stream.emit(ctx, ResultEvent{Result: result})
		stream.finish(result, nil)
	}()

	return stream
}

// toolDefs returns the offered tools, nil when there is no toolbox.
func (l *Loop) toolDefs() []ToolDef {
	if l.tools == nil {
		return nil
	}
	return l.tools.Tools()
}
