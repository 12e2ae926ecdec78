package workflow

import (
	"context"
	"regexp"
	"strings"
)

// CommentSource lists the bodies of an issue's comments, newest first.
type CommentSource interface {
	ListCommentBodies(ctx context.Context, issueNumber int) ([]string, error)
}

// Recovery patterns, in priority order: a JSON-embedded identifier field,
// an explicit "adw_id: value" mention, and an identifier-prefixed agent label.
var recoveryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"adw_id":\s*"([a-f0-9]{8})"`),
	regexp.MustCompile(`\badw_id:\s*([a-f0-9]{8})\b`),
	regexp.MustCompile(`\b([a-f0-9]{8})_(?:ops|sdlc_planner|sdlc_implementor|adw_classifier):`),
}

// Recoverer finds a run identifier embedded in an issue's prior comments.
// It exists solely for continuation workflows invoked without an explicit
// identifier.
type Recoverer struct {
	Source CommentSource
}

// Recover scans the issue's comments newest-first and returns the first
// identifier any pattern yields, or "" when none match. A nil Source
// degrades to "not found".
func (r *Recoverer) Recover(ctx context.Context, issueNumber int) (string, error) {
	if r == nil || r.Source == nil {
		return "", nil
	}
	bodies, err := r.Source.ListCommentBodies(ctx, issueNumber)
	if err != nil {
		return "", err
	}
	return recoverFromBodies(bodies), nil
}

// recoverFromBodies applies the patterns comment-by-comment so the newest
// matching comment wins regardless of which pattern it matches.
func recoverFromBodies(bodies []string) string {
	for _, body := range bodies {
		lower := strings.ToLower(body)
		for _, p := range recoveryPatterns {
			if m := p.FindStringSubmatch(lower); m != nil {
				return m[1]
			}
		}
	}
	return ""
}
