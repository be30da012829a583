package agent

import "fmt"

// StrategyError reports that a strategy could not make progress, e.g. the
// model produced unparseable ReAct steps on too many consecutive attempts.
type StrategyError struct {
	Strategy Strategy
	Turn     int
	Attempts int
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("agent strategy %s: turn %d: giving up after %d attempts: %v",
		e.Strategy, e.Turn, e.Attempts, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }
