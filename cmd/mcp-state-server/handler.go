package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/adwhq/adw-trigger/internal/state"
	"github.com/adwhq/adw-trigger/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GetStateParams defines the input for the get_adw_state tool.
type GetStateParams struct {
	ADWID string `json:"adw_id" jsonschema:"The 8-character hex run identifier"`
}

// UpdateStateParams defines the input for the update_adw_state tool. Empty
// fields are left untouched in the stored document.
type UpdateStateParams struct {
	ADWID       string `json:"adw_id" jsonschema:"The 8-character hex run identifier"`
	IssueNumber string `json:"issue_number,omitempty" jsonschema:"Issue number the run serves"`
	BranchName  string `json:"branch_name,omitempty" jsonschema:"Git branch the run works on"`
	PlanFile    string `json:"plan_file,omitempty" jsonschema:"Path to the generated plan file"`
	IssueClass  string `json:"issue_class,omitempty" jsonschema:"Issue classification command, e.g. /chore, /bug, /feature"`
}

// StateServer exposes the run-state store over MCP so workflow agents can
// read and advance their own run documents.
type StateServer struct {
	store *state.FileStore
}

func NewStateServer(store *state.FileStore) *StateServer {
	return &StateServer{store: store}
}

// HandleGetState handles the get_adw_state tool call.
func (s *StateServer) HandleGetState(
	ctx context.Context,
	req *mcp.CallToolRequest,
	params GetStateParams,
) (*mcp.CallToolResult, any, error) {
	log.Printf("[MCP State Server] Received get_adw_state request for %q", params.ADWID)

	if !workflow.IsValidID(params.ADWID) {
		return nil, nil, fmt.Errorf("invalid adw_id: %q", params.ADWID)
	}

	st, err := s.store.Load(params.ADWID)
	if err != nil {
		log.Printf("[MCP State Server] Failed to load state: %v", err)
		return errorResult(err), nil, nil
	}

	return jsonResult(st)
}

// HandleUpdateState handles the update_adw_state tool call.
func (s *StateServer) HandleUpdateState(
	ctx context.Context,
	req *mcp.CallToolRequest,
	params UpdateStateParams,
) (*mcp.CallToolResult, any, error) {
	log.Printf("[MCP State Server] Received update_adw_state request for %q", params.ADWID)

	if !workflow.IsValidID(params.ADWID) {
		return nil, nil, fmt.Errorf("invalid adw_id: %q", params.ADWID)
	}

	patch := &state.State{
		IssueNumber: params.IssueNumber,
		BranchName:  params.BranchName,
		PlanFile:    params.PlanFile,
		IssueClass:  params.IssueClass,
	}
	st, err := s.store.Update(params.ADWID, patch)
	if err != nil {
		log.Printf("[MCP State Server] Failed to update state: %v", err)
		return errorResult(err), nil, nil
	}

	log.Printf("[MCP State Server] Updated state for run %s", params.ADWID)
	return jsonResult(st)
}

func jsonResult(st *state.State) (*mcp.CallToolResult, any, error) {
	encoded, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode state: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(encoded)},
		},
	}, nil, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)},
		},
		IsError: true,
	}
}
