// Command tools-example resolves a server configuration file, discovers the
// tools of every reachable server, and prints the aggregated catalog. With
// -call it also invokes one tool and prints the result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentry/mcp-agent-go/pkg/mcpclient"
	"github.com/agentry/mcp-agent-go/pkg/mcpconfig"
)

func main() {
	configPath := flag.String("config", "servers.json", "path to the server configuration file")
	call := flag.String("call", "", "qualified tool name to invoke after discovery")
	args := flag.String("args", "{}", "JSON arguments for -call")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatalf("failed to read config: %v", err)
	}
	descs, err := mcpconfig.Resolve(data)
	if err != nil {
		log.Fatalf("failed to resolve config: %v", err)
	}

	registry, err := mcpclient.NewRegistry(descs, mcpclient.Options{
		ClientName:    "tools-example",
		ClientVersion: "0.1.0",
	})
	if err != nil {
		log.Fatalf("failed to build registry: %v", err)
	}
	defer registry.Close()

	catalog, err := registry.Discover(ctx)
	if err != nil {
		log.Fatalf("discovery failed: %v", err)
	}

	for _, failure := range registry.Failures() {
		fmt.Printf("server %s unavailable: %v\n", failure.Server, failure)
	}
	fmt.Printf("%d tools discovered:\n", catalog.Len())
	for _, spec := range catalog.Tools() {
		fmt.Printf("  %-40s %s\n", spec.QualifiedName, spec.Description)
	}

	if *call == "" {
		return
	}

	var callArgs map[string]any
	if err := json.Unmarshal([]byte(*args), &callArgs); err != nil {
		log.Fatalf("invalid -args: %v", err)
	}
	result, err := registry.Call(ctx, *call, callArgs)
	if err != nil {
		log.Fatalf("call failed: %v", err)
	}
	fmt.Printf("\n%s -> %s\n", *call, result.Content)
	if result.Structured != nil {
		structured, _ := json.MarshalIndent(result.Structured, "", "  ")
		fmt.Printf("structured: %s\n", structured)
	}
}
