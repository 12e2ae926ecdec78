package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	gh "github.com/google/go-github/v66/github"
)

// mockAuth hands out a fixed token.
type mockAuth struct {
	token string
	err   error
}

func (m *mockAuth) GetInstallationToken(repo string) (*InstallationToken, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &InstallationToken{Token: m.token}, nil
}

// newTestClient returns a Client pointed at a local server.
func newTestClient(t *testing.T, auth AuthProvider, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	rest := gh.NewClient(srv.Client())
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	rest.BaseURL = base
	rest.UploadURL = base

	client, err := NewClientWith(rest, auth, "owner/repo")
	if err != nil {
		t.Fatalf("NewClientWith() error = %v", err)
	}
	return client, srv
}

func commentJSON(id int, body string) map[string]any {
	return map[string]any{"id": id, "body": body}
}

func TestListCommentBodies_NewestFirst(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer tok-123")
		}
		// API order is oldest first.
		json.NewEncoder(w).Encode([]map[string]any{
			commentJSON(1, "oldest"),
			commentJSON(2, "middle"),
			commentJSON(3, "newest"),
		})
	})

	client, _ := newTestClient(t, &mockAuth{token: "tok-123"}, mux)

	bodies, err := client.ListCommentBodies(context.Background(), 42)
	if err != nil {
		t.Fatalf("ListCommentBodies() error = %v", err)
	}
	want := []string{"newest", "middle", "oldest"}
	if len(bodies) != len(want) {
		t.Fatalf("got %d bodies, want %d", len(bodies), len(want))
	}
	for i := range want {
		if bodies[i] != want[i] {
			t.Errorf("bodies[%d] = %q, want %q", i, bodies[i], want[i])
		}
	}
}

func TestListCommentBodies_Paginated(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		switch page {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s/repos/owner/repo/issues/42/comments?page=2>; rel="next"`, srvURL))
			json.NewEncoder(w).Encode([]map[string]any{
				commentJSON(1, "first"),
				commentJSON(2, "second"),
			})
		case "2":
			json.NewEncoder(w).Encode([]map[string]any{
				commentJSON(3, "third"),
			})
		default:
			t.Errorf("unexpected page %q", page)
			http.NotFound(w, r)
		}
	})

	client, srv := newTestClient(t, nil, mux)
	srvURL = srv.URL

	bodies, err := client.ListCommentBodies(context.Background(), 42)
	if err != nil {
		t.Fatalf("ListCommentBodies() error = %v", err)
	}
	want := []string{"third", "second", "first"}
	if len(bodies) != len(want) {
		t.Fatalf("got %d bodies, want %d: %v", len(bodies), len(want), bodies)
	}
	for i := range want {
		if bodies[i] != want[i] {
			t.Errorf("bodies[%d] = %q, want %q", i, bodies[i], want[i])
		}
	}
}

func TestCreateIssueComment(t *testing.T) {
	var gotBody string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		data, _ := io.ReadAll(r.Body)
		var payload struct {
			Body string `json:"body"`
		}
		json.Unmarshal(data, &payload)
		gotBody = payload.Body

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(commentJSON(99, payload.Body))
	})

	client, _ := newTestClient(t, &mockAuth{token: "tok-123"}, mux)

	err := client.CreateIssueComment(context.Background(), 42, "[ADW-BOT] test ack")
	if err != nil {
		t.Fatalf("CreateIssueComment() error = %v", err)
	}
	if gotBody != "[ADW-BOT] test ack" {
		t.Errorf("posted body = %q, want %q", gotBody, "[ADW-BOT] test ack")
	}
}

func TestCreateIssueComment_APIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Validation Failed"}`, http.StatusUnprocessableEntity)
	})

	client, _ := newTestClient(t, nil, mux)

	if err := client.CreateIssueComment(context.Background(), 42, "x"); err == nil {
		t.Error("CreateIssueComment() error = nil, want error")
	}
}

func TestClientAuthFailure(t *testing.T) {
	client, _ := newTestClient(t, &mockAuth{err: fmt.Errorf("no installation")}, http.NewServeMux())

	if _, err := client.ListCommentBodies(context.Background(), 42); err == nil || !strings.Contains(err.Error(), "no installation") {
		t.Errorf("ListCommentBodies() error = %v, want credential failure", err)
	}
	if err := client.CreateIssueComment(context.Background(), 42, "x"); err == nil {
		t.Error("CreateIssueComment() error = nil, want credential failure")
	}
}

func TestNewClient_InvalidRepoPath(t *testing.T) {
	if _, err := NewClient(nil, "not-a-repo"); err == nil {
		t.Error("NewClient() error = nil, want invalid repo format")
	}
}
