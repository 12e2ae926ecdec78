package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthProvider yields a bearer credential for the GitHub REST API.
type AuthProvider interface {
	GetInstallationToken(repo string) (*InstallationToken, error)
}

// InstallationToken is a credential with an optional expiry.
type InstallationToken struct {
	Token     string
	ExpiresAt time.Time
}

// PATAuth authenticates with a personal access token. The token never
// expires from this provider's point of view.
type PATAuth struct {
	Token string
}

func (p *PATAuth) GetInstallationToken(string) (*InstallationToken, error) {
	if p.Token == "" {
		return nil, errors.New("empty personal access token")
	}
	return &InstallationToken{Token: p.Token}, nil
}

// AppAuth authenticates as a GitHub App: a short-lived RS256 JWT is exchanged
// for an installation access token scoped to the repository.
type AppAuth struct {
	AppID      string
	PrivateKey string

	// APIBase overrides the GitHub API root, for tests. Empty means the
	// public API.
	APIBase string
}

const defaultAPIBase = "https://api.github.com"

func (a *AppAuth) apiBase() string {
	if a.APIBase != "" {
		return strings.TrimSuffix(a.APIBase, "/")
	}
	return defaultAPIBase
}

// GenerateJWT creates the app JWT. IssuedAt is backdated 60s to absorb clock
// drift between this host and GitHub.
func (a *AppAuth) GenerateJWT() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(a.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	appID, err := strconv.ParseInt(a.AppID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid app ID: %w", err)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		Issuer:    strconv.FormatInt(appID, 10),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return signedToken, nil
}

// GetInstallationToken resolves the app installation for repo and mints an
// access token for it.
func (a *AppAuth) GetInstallationToken(repo string) (*InstallationToken, error) {
	jwtToken, err := a.GenerateJWT()
	if err != nil {
		return nil, err
	}

	installationID, err := a.getInstallationID(jwtToken, repo)
	if err != nil {
		return nil, err
	}

	return a.getInstallationAccessToken(jwtToken, installationID)
}

func (a *AppAuth) getInstallationID(jwtToken, repo string) (int64, error) {
	owner, name, err := SplitRepoPath(repo)
	if err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/installation", a.apiBase(), owner, name)
	var result struct {
		ID int64 `json:"id"`
	}
	if err := a.appAPICall(http.MethodGet, url, jwtToken, http.StatusOK, &result); err != nil {
		return 0, err
	}
	return result.ID, nil
}

func (a *AppAuth) getInstallationAccessToken(jwtToken string, installationID int64) (*InstallationToken, error) {
	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", a.apiBase(), installationID)
	var result struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := a.appAPICall(http.MethodPost, url, jwtToken, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &InstallationToken{Token: result.Token, ExpiresAt: result.ExpiresAt}, nil
}

// appAPICall performs one JWT-authenticated request and decodes the JSON
// response into out.
func (a *AppAuth) appAPICall(method, url, jwtToken string, wantStatus int, out any) error {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+jwtToken)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github app API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GitHub API error: %d - %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// SplitRepoPath splits "owner/name" into its parts.
func SplitRepoPath(repo string) (owner, name string, err error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format: %s (expected owner/repo)", repo)
	}
	return parts[0], parts[1], nil
}
