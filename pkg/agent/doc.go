// Package agent runs a model-driven reasoning loop over a set of tools.
//
// A Loop couples a Model (the LLM completion backend) with a Toolbox (the
// tools the model may invoke) and executes one of two strategies:
// function calling, where the model emits native tool calls that are
// dispatched concurrently and reintegrated in request order, or ReAct,
// where the model emits Thought/Action/Observation text and one action runs
// per turn. Progress is delivered to the host as a Stream of events; the
// loop ends with a final answer, a max-turns cutoff, or an error.
package agent
