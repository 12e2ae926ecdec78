package health

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"
)

// Report is the parsed outcome of one health-check script run. Success mirrors
// the script's exit code; warnings and errors are lifted from its stdout.
type Report struct {
	Success  bool     `json:"success"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
	Details  string   `json:"details"`
}

type runFunc func(ctx context.Context, workdir, script string) ([]byte, int, error)

// Checker runs the external health-check script with a bounded timeout.
type Checker struct {
	script  string
	workdir string
	timeout time.Duration
	run     runFunc
}

// NewChecker returns a checker for the given script, executed from workdir.
// A non-positive timeout falls back to 30 seconds.
func NewChecker(script, workdir string, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Checker{
		script:  script,
		workdir: workdir,
		timeout: timeout,
		run:     runScript,
	}
}

// Run executes the script and parses its output. A non-zero exit is a result
// (Success=false), not an error; only spawn failures and timeouts error out.
func (c *Checker) Run(ctx context.Context) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stdout, exitCode, err := c.run(ctx, c.workdir, c.script)
	if ctx.Err() != nil {
		return nil, fmt.Errorf("health check script: %w", ctx.Err())
	}
	if err != nil {
		return nil, fmt.Errorf("run health check script: %w", err)
	}

	report := parseReport(string(stdout))
	report.Success = exitCode == 0
	return report, nil
}

func runScript(ctx context.Context, workdir, script string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, "uv", "run", script)
	cmd.Dir = workdir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if stderr.Len() > 0 {
		log.Printf("[HealthCheck] script stderr: %s", strings.TrimSpace(stderr.String()))
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return nil, -1, err
	}
	return stdout.Bytes(), 0, nil
}

const (
	captureNone = iota
	captureWarnings
	captureErrors
)

// parseReport lifts warning/error items out of the script's report text.
// A line containing "Warnings:" or "Errors:" opens a section, subsequent
// "- " lines are its items, and a "Next Steps:" line ends collection.
func parseReport(output string) *Report {
	report := &Report{
		Warnings: []string{},
		Errors:   []string{},
		Details:  "Run health_check.py directly for full report",
	}

	capturing := captureNone
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		switch {
		case strings.Contains(line, "Warnings:"):
			capturing = captureWarnings
			continue
		case strings.Contains(line, "Errors:"):
			capturing = captureErrors
			continue
		case strings.Contains(line, "Next Steps:"):
			return report
		}

		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "-") {
			continue
		}
		item := ""
		if len(trimmed) > 2 {
			item = trimmed[2:]
		}
		switch capturing {
		case captureWarnings:
			report.Warnings = append(report.Warnings, item)
		case captureErrors:
			report.Errors = append(report.Errors, item)
		}
	}
	return report
}
