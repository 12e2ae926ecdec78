package github

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	httpsRemotePattern = regexp.MustCompile(`^https?://[^/]+/([^/]+)/([^/]+)$`)
	sshRemotePattern   = regexp.MustCompile(`^(?:ssh://)?git@[^:/]+[:/]([^/]+)/([^/]+)$`)
	bareRepoPattern    = regexp.MustCompile(`^([\w.-]+)/([\w.-]+)$`)
)

// ParseRepoURL extracts "owner/name" from the remote URL forms git and the
// GitHub UI produce: https, ssh, and an already-bare owner/name.
func ParseRepoURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")
	if s == "" {
		return "", fmt.Errorf("empty repository url")
	}

	for _, p := range []*regexp.Regexp{httpsRemotePattern, sshRemotePattern, bareRepoPattern} {
		if m := p.FindStringSubmatch(s); m != nil {
			return m[1] + "/" + m[2], nil
		}
	}
	return "", fmt.Errorf("unrecognized repository url: %q", raw)
}

// ResolveRepoPath returns the repository this service operates on: the
// configured URL when set, otherwise the origin remote of repoRoot.
func ResolveRepoPath(configuredURL, repoRoot string, runner CommandRunner) (string, error) {
	if configuredURL != "" {
		return ParseRepoURL(configuredURL)
	}

	out, err := runner.RunInDir(repoRoot, "git", "remote", "get-url", "origin")
	if err != nil {
		return "", fmt.Errorf("read origin remote: %w", err)
	}
	return ParseRepoURL(strings.TrimSpace(string(out)))
}
