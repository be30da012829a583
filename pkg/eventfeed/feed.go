// Package eventfeed exposes an agent loop over HTTP as a server-sent event
// stream. Each request starts one invocation; the response carries every
// loop event as it happens, ending with the result or an error event.
package eventfeed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rs/cors"

	"github.com/agentry/mcp-agent-go/pkg/agent"
)

// Options configures the feed handler.
type Options struct {
	// Logger receives request diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
	// CORS overrides the cross-origin policy. Defaults to allowing GET and
	// POST from any origin.
	CORS *cors.Options
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.CORS == nil {
		o.CORS = &cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
		}
	}
	return o
}

// promptRequest is the JSON body accepted on POST.
type promptRequest struct {
	Prompt string `json:"prompt"`
}

type handler struct {
	loop   *agent.Loop
	logger *slog.Logger
}

// NewHandler wraps a loop in an SSE endpoint. The prompt is read from the
// "prompt" query parameter on GET, or from a {"prompt": ...} JSON body on
// POST.
func NewHandler(loop *agent.Loop, opts Options) http.Handler {
	opts = opts.withDefaults()
	h := &handler{loop: loop, logger: opts.Logger}
	return cors.New(*opts.CORS).Handler(h)
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	prompt, err := readPrompt(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := h.loop.Run(r.Context(), prompt)
	for stream.Next() {
		event := stream.Current()
		if err := writeEvent(w, string(event.Type()), event); err != nil {
			h.logger.Debug("event feed client gone", "error", err)
			for stream.Next() {
			}
			return
		}
		flusher.Flush()
	}
	if err := stream.Err(); err != nil {
		_ = writeEvent(w, "error", map[string]string{"error": err.Error()})
		flusher.Flush()
	}
}

func readPrompt(r *http.Request) (string, error) {
	var prompt string
	switch r.Method {
	case http.MethodGet:
		prompt = r.URL.Query().Get("prompt")
	case http.MethodPost:
		var req promptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", fmt.Errorf("invalid request body: %w", err)
		}
		prompt = req.Prompt
	default:
		return "", fmt.Errorf("method %s not allowed", r.Method)
	}
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}
	return prompt, nil
}

func writeEvent(w http.ResponseWriter, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
