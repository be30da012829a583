// Command agent-example wires a registry, a demo model, and the event feed
// into a small HTTP service. The demo model calls the first discovered tool
// and then answers with the observation, so the full loop can be exercised
// without an LLM backend:
//
//	curl -N 'http://localhost:8686/run?prompt=hello'
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/agentry/mcp-agent-go/pkg/agent"
	"github.com/agentry/mcp-agent-go/pkg/eventfeed"
	"github.com/agentry/mcp-agent-go/pkg/mcpclient"
	"github.com/agentry/mcp-agent-go/pkg/mcpconfig"
)

// demoModel drives one tool call per invocation and then summarizes. It
// stands in for a real completion backend.
type demoModel struct{}

func (demoModel) Complete(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	if len(req.Tools) > 0 && !hasToolReply(req.Messages) {
		return &agent.Response{
			ToolCalls: []agent.ToolCall{{Name: req.Tools[0].Name, Arguments: map[string]any{}}},
		}, nil
	}
	var observations []string
	for _, msg := range req.Messages {
		if msg.Role == agent.RoleTool {
			observations = append(observations, msg.Content)
		}
	}
	if len(observations) == 0 {
		return &agent.Response{Text: "no tools were available"}, nil
	}
	return &agent.Response{Text: "observed: " + strings.Join(observations, "; ")}, nil
}

func hasToolReply(messages []agent.Message) bool {
	for _, msg := range messages {
		if msg.Role == agent.RoleTool {
			return true
		}
	}
	return false
}

func main() {
	configPath := flag.String("config", "servers.json", "path to the server configuration file")
	addr := flag.String("addr", ":8686", "listen address for the event feed")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	data, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatalf("failed to read config: %v", err)
	}
	descs, err := mcpconfig.Resolve(data)
	if err != nil {
		log.Fatalf("failed to resolve config: %v", err)
	}

	registry, err := mcpclient.NewRegistry(descs, mcpclient.Options{
		ClientName:    "agent-example",
		ClientVersion: "0.1.0",
		Logger:        logger,
	})
	if err != nil {
		log.Fatalf("failed to build registry: %v", err)
	}
	defer registry.Close()

	catalog, err := registry.Discover(ctx)
	if err != nil {
		log.Fatalf("discovery failed: %v", err)
	}
	logger.Info("discovery complete", "tools", catalog.Len(), "failed_servers", len(registry.Failures()))

	loop, err := agent.New(demoModel{}, agent.NewRegistryToolbox(registry), agent.Options{
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("failed to build loop: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/run", eventfeed.NewHandler(loop, eventfeed.Options{Logger: logger}))

	server := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("event feed listening", "addr", *addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server stopped: %v", err)
	}
}
