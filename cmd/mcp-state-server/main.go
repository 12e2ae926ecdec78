package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/adwhq/adw-trigger/internal/state"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	// 1. Resolve the state directory shared with the webhook server
	stateDir := os.Getenv("ADW_STATE_DIR")
	if stateDir == "" {
		stateDir = "agents"
	}

	log.Println("[MCP State Server] Starting ADW State MCP Server v1.0.0")
	log.Printf("[MCP State Server] State directory: %s", stateDir)

	stateServer := NewStateServer(state.NewFileStore(stateDir))

	// 2. Create MCP server
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "adw-state-server",
		Version: "v1.0.0",
	}, nil)

	// 3. Register state tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_adw_state",
		Description: "Read the persisted state document of a workflow run by its ADW ID",
	}, stateServer.HandleGetState)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_adw_state",
		Description: "Merge fields into the persisted state document of a workflow run",
	}, stateServer.HandleUpdateState)
	log.Println("[MCP State Server] Registered tools: get_adw_state, update_adw_state")

	// 4. Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("[MCP State Server] Received shutdown signal")
		cancel()
	}()

	// 5. Start server with stdio transport
	log.Println("[MCP State Server] Starting on stdio transport...")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("[MCP State Server] Server error: %v", err)
	}
	log.Println("[MCP State Server] Server stopped gracefully")
}
