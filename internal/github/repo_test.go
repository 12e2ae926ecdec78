package github

import (
	"errors"
	"testing"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "https", url: "https://github.com/acme/widgets", want: "acme/widgets"},
		{name: "https with .git", url: "https://github.com/acme/widgets.git", want: "acme/widgets"},
		{name: "https with trailing slash", url: "https://github.com/acme/widgets/", want: "acme/widgets"},
		{name: "ssh scp form", url: "git@github.com:acme/widgets.git", want: "acme/widgets"},
		{name: "ssh url form", url: "ssh://git@github.com/acme/widgets.git", want: "acme/widgets"},
		{name: "bare owner/repo", url: "acme/widgets", want: "acme/widgets"},
		{name: "enterprise host", url: "https://github.acme.dev/platform/tools", want: "platform/tools"},
		{name: "whitespace trimmed", url: "  https://github.com/acme/widgets\n", want: "acme/widgets"},
		{name: "empty", url: "", wantErr: true},
		{name: "garbage", url: "not a url at all", wantErr: true},
		{name: "missing repo segment", url: "https://github.com/acme", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRepoURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRepoURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseRepoURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestResolveRepoPath(t *testing.T) {
	t.Run("configured url wins", func(t *testing.T) {
		runner := &MockCommandRunner{}

		got, err := ResolveRepoPath("https://github.com/acme/widgets", "/srv/repo", runner)
		if err != nil {
			t.Fatalf("ResolveRepoPath() error = %v", err)
		}
		if got != "acme/widgets" {
			t.Errorf("ResolveRepoPath() = %q, want %q", got, "acme/widgets")
		}
		if len(runner.Calls) != 0 {
			t.Errorf("git invoked %d times despite configured url", len(runner.Calls))
		}
	})

	t.Run("falls back to origin remote", func(t *testing.T) {
		runner := &MockCommandRunner{
			RunInDirFunc: func(dir, name string, args ...string) ([]byte, error) {
				return []byte("git@github.com:acme/widgets.git\n"), nil
			},
		}

		got, err := ResolveRepoPath("", "/srv/repo", runner)
		if err != nil {
			t.Fatalf("ResolveRepoPath() error = %v", err)
		}
		if got != "acme/widgets" {
			t.Errorf("ResolveRepoPath() = %q, want %q", got, "acme/widgets")
		}

		if len(runner.Calls) != 1 {
			t.Fatalf("git invoked %d times, want 1", len(runner.Calls))
		}
		call := runner.Calls[0]
		if call.Dir != "/srv/repo" || call.Name != "git" {
			t.Errorf("git call = %+v", call)
		}
	})

	t.Run("git failure propagates", func(t *testing.T) {
		runner := &MockCommandRunner{
			RunInDirFunc: func(dir, name string, args ...string) ([]byte, error) {
				return nil, errors.New("not a git repository")
			},
		}

		if _, err := ResolveRepoPath("", "/srv/repo", runner); err == nil {
			t.Error("ResolveRepoPath() error = nil, want error")
		}
	})
}
