package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v66/github"
)

// Client is the issue-comment surface this service needs: listing comments
// for identifier recovery and posting acknowledgment comments. It satisfies
// workflow.CommentSource and the webhook handler's CommentPoster.
type Client struct {
	rest *gh.Client
	auth AuthProvider

	owner string
	name  string
}

// NewClient builds a client for "owner/repo" using auth for credentials.
// auth may be nil, which limits the client to unauthenticated reads.
func NewClient(auth AuthProvider, repoPath string) (*Client, error) {
	return NewClientWith(gh.NewClient(nil), auth, repoPath)
}

// NewClientWith wraps an existing REST client. Tests point it at a local
// server via BaseURL.
func NewClientWith(rest *gh.Client, auth AuthProvider, repoPath string) (*Client, error) {
	owner, name, err := SplitRepoPath(repoPath)
	if err != nil {
		return nil, err
	}
	return &Client{rest: rest, auth: auth, owner: owner, name: name}, nil
}

// Repo returns the "owner/name" path this client operates on.
func (c *Client) Repo() string {
	return c.owner + "/" + c.name
}

// authed returns a REST client carrying a fresh credential. Installation
// tokens are short-lived, so the exchange happens per call.
func (c *Client) authed() (*gh.Client, error) {
	if c.auth == nil {
		return c.rest, nil
	}
	tok, err := c.auth.GetInstallationToken(c.Repo())
	if err != nil {
		return nil, fmt.Errorf("resolve github credential: %w", err)
	}
	return c.rest.WithAuthToken(tok.Token), nil
}

// ListCommentBodies returns all comment bodies of an issue, newest first.
// The per-issue comments endpoint has no sort parameter, so every page is
// fetched and the chronological order reversed.
func (c *Client) ListCommentBodies(ctx context.Context, issueNumber int) ([]string, error) {
	rest, err := c.authed()
	if err != nil {
		return nil, err
	}

	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var all []*gh.IssueComment
	for {
		comments, resp, err := rest.Issues.ListComments(ctx, c.owner, c.name, issueNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("list comments for issue #%d: %w", issueNumber, err)
		}
		all = append(all, comments...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	bodies := make([]string, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		bodies = append(bodies, all[i].GetBody())
	}
	return bodies, nil
}

// CreateIssueComment posts a comment on an issue. Transient failures are
// retried briefly; callers treat the whole operation as best-effort.
func (c *Client) CreateIssueComment(ctx context.Context, issueNumber int, body string) error {
	rest, err := c.authed()
	if err != nil {
		return err
	}

	comment := &gh.IssueComment{Body: gh.String(body)}
	return retryWithBackoff(func() error {
		_, _, err := rest.Issues.CreateComment(ctx, c.owner, c.name, issueNumber, comment)
		if err != nil {
			return fmt.Errorf("create comment on issue #%d: %w", issueNumber, err)
		}
		return nil
	})
}
