package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the webhook trigger service.
type Config struct {
	// Server settings
	Port int

	// GitHub access. A PAT and a GitHub App credential pair are both
	// optional; when neither is present, comment posting and identifier
	// recovery degrade gracefully.
	GitHubWebhookSecret string
	GitHubPAT           string
	GitHubAppID         string
	GitHubPrivateKey    string
	GitHubRepoURL       string

	// Workflow execution layout. ScriptsDir and StateDir are interpreted
	// relative to RepoRoot unless absolute, matching how the spawned
	// workflow scripts see them.
	RepoRoot   string
	ScriptsDir string
	StateDir   string

	// Health check
	HealthCheckScript  string
	HealthCheckTimeout time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnvInt("PORT", 8001),
		GitHubWebhookSecret: os.Getenv("GITHUB_WEBHOOK_SECRET"),
		GitHubPAT:           os.Getenv("GITHUB_PAT"),
		GitHubAppID:         os.Getenv("GITHUB_APP_ID"),
		GitHubPrivateKey:    normalizePrivateKey(os.Getenv("GITHUB_PRIVATE_KEY")),
		GitHubRepoURL:       os.Getenv("GITHUB_REPO_URL"),
		RepoRoot:            getEnv("ADW_REPO_ROOT", "."),
		ScriptsDir:          getEnv("ADW_SCRIPTS_DIR", "adws"),
		StateDir:            getEnv("ADW_STATE_DIR", "agents"),
		HealthCheckScript:   getEnv("HEALTH_CHECK_SCRIPT", "adws/adw_tests/health_check.py"),
		HealthCheckTimeout:  time.Duration(getEnvInt("HEALTH_CHECK_TIMEOUT_SECONDS", 30)) * time.Second,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate fails fast on configuration that cannot work.
func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if (c.GitHubAppID == "") != (c.GitHubPrivateKey == "") {
		return fmt.Errorf("GITHUB_APP_ID and GITHUB_PRIVATE_KEY must be set together")
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT_SECONDS must be greater than 0")
	}
	return nil
}

// HasGitHubApp reports whether a complete GitHub App credential pair is set.
func (c *Config) HasGitHubApp() bool {
	return c.GitHubAppID != "" && c.GitHubPrivateKey != ""
}

// ResolvedStateDir returns the state directory as seen from this process.
// The workflow scripts run from RepoRoot and address it relatively.
func (c *Config) ResolvedStateDir() string {
	return resolveUnder(c.RepoRoot, c.StateDir)
}

func resolveUnder(root, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

// normalizePrivateKey strips shell quoting and unescapes newlines so a PEM
// key can be passed through a single environment variable or .env line.
func normalizePrivateKey(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "\"") && strings.HasSuffix(trimmed, "\"") {
		trimmed = strings.TrimPrefix(trimmed, "\"")
		trimmed = strings.TrimSuffix(trimmed, "\"")
	}
	if strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'") {
		trimmed = strings.TrimPrefix(trimmed, "'")
		trimmed = strings.TrimSuffix(trimmed, "'")
	}

	trimmed = strings.ReplaceAll(trimmed, "\r\n", "\n")
	trimmed = strings.ReplaceAll(trimmed, "\r", "\n")
	if strings.Contains(trimmed, "\\n") {
		trimmed = strings.ReplaceAll(trimmed, "\\r", "")
		trimmed = strings.ReplaceAll(trimmed, "\\n", "\n")
	}

	return trimmed
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as int with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
