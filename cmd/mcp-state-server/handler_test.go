package main

import (
	"context"
	"strings"
	"testing"

	"github.com/adwhq/adw-trigger/internal/state"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func newTestServer(t *testing.T) *StateServer {
	t.Helper()
	return NewStateServer(state.NewFileStore(t.TempDir()))
}

func textContent(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestHandleGetState_InvalidID(t *testing.T) {
	srv := newTestServer(t)

	_, _, err := srv.HandleGetState(context.Background(), nil, GetStateParams{ADWID: "not-hex"})
	if err == nil {
		t.Error("expected error for invalid adw_id, got nil")
	}
}

func TestHandleGetState_NotFound(t *testing.T) {
	srv := newTestServer(t)

	res, _, err := srv.HandleGetState(context.Background(), nil, GetStateParams{ADWID: "75de9bea"})
	if err != nil {
		t.Fatalf("HandleGetState returned error: %v", err)
	}
	if !res.IsError {
		t.Error("expected IsError result for missing run")
	}
}

func TestHandleGetState_ReturnsDocument(t *testing.T) {
	srv := newTestServer(t)
	if _, _, err := srv.store.Initialize("75de9bea", "42"); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	res, _, err := srv.HandleGetState(context.Background(), nil, GetStateParams{ADWID: "75de9bea"})
	if err != nil {
		t.Fatalf("HandleGetState returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", textContent(t, res))
	}

	body := textContent(t, res)
	if !strings.Contains(body, `"adw_id": "75de9bea"`) {
		t.Errorf("document missing adw_id: %s", body)
	}
	if !strings.Contains(body, `"issue_number": "42"`) {
		t.Errorf("document missing issue_number: %s", body)
	}
}

func TestHandleUpdateState_InvalidID(t *testing.T) {
	srv := newTestServer(t)

	_, _, err := srv.HandleUpdateState(context.Background(), nil, UpdateStateParams{ADWID: "75DE9BEA"})
	if err == nil {
		t.Error("expected error for invalid adw_id, got nil")
	}
}

func TestHandleUpdateState_MergesFields(t *testing.T) {
	srv := newTestServer(t)
	if _, _, err := srv.store.Initialize("75de9bea", "42"); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	res, _, err := srv.HandleUpdateState(context.Background(), nil, UpdateStateParams{
		ADWID:      "75de9bea",
		BranchName: "feat-42-75de9bea-auth",
		PlanFile:   "specs/issue-42.md",
	})
	if err != nil {
		t.Fatalf("HandleUpdateState returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", textContent(t, res))
	}

	st, err := srv.store.Load("75de9bea")
	if err != nil {
		t.Fatalf("Load after update: %v", err)
	}
	if st.BranchName != "feat-42-75de9bea-auth" {
		t.Errorf("BranchName = %q", st.BranchName)
	}
	if st.PlanFile != "specs/issue-42.md" {
		t.Errorf("PlanFile = %q", st.PlanFile)
	}
	if st.IssueNumber != "42" {
		t.Errorf("IssueNumber = %q, want preserved 42", st.IssueNumber)
	}
}

func TestHandleUpdateState_CreatesWhenAbsent(t *testing.T) {
	srv := newTestServer(t)

	_, _, err := srv.HandleUpdateState(context.Background(), nil, UpdateStateParams{
		ADWID:      "aabbccdd",
		IssueClass: "/bug",
	})
	if err != nil {
		t.Fatalf("HandleUpdateState returned error: %v", err)
	}

	st, err := srv.store.Load("aabbccdd")
	if err != nil {
		t.Fatalf("Load after update: %v", err)
	}
	if st.IssueClass != "/bug" {
		t.Errorf("IssueClass = %q, want /bug", st.IssueClass)
	}
}
