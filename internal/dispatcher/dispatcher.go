package dispatcher

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/adwhq/adw-trigger/internal/webhook"
)

// ExecutionLogName is the file each workflow run's output is redirected to,
// under {logs}/{adw_id}/{workflow}/.
const ExecutionLogName = "execution.log"

// ScriptDispatcher launches workflow scripts as detached processes:
// `uv run {scripts}/{workflow}.py {issue} {adw_id}` from the repository root.
// Dispatch returns as soon as the process has started; nothing supervises the
// run afterwards, its output lands in the per-run execution log.
type ScriptDispatcher struct {
	scriptsDir string
	repoRoot   string
	logsDir    string

	// start is the process launch seam for tests.
	start func(*exec.Cmd) error
}

// New returns a dispatcher that reads scripts from scriptsDir, runs them in
// repoRoot, and writes per-run logs under logsDir.
func New(scriptsDir, repoRoot, logsDir string) *ScriptDispatcher {
	return &ScriptDispatcher{
		scriptsDir: scriptsDir,
		repoRoot:   repoRoot,
		logsDir:    logsDir,
		start:      (*exec.Cmd).Start,
	}
}

// Dispatch launches the workflow process for req. It satisfies
// webhook.WorkflowDispatcher.
func (d *ScriptDispatcher) Dispatch(req *webhook.DispatchRequest) error {
	if req == nil {
		return errors.New("dispatch: nil request")
	}
	if req.Workflow == "" || req.ADWID == "" {
		return fmt.Errorf("dispatch: incomplete request %+v", req)
	}

	logDir := filepath.Join(d.logsDir, req.ADWID, string(req.Workflow))
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(logDir, ExecutionLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open execution log: %w", err)
	}

	script := filepath.Join(d.scriptsDir, req.Workflow.Script())
	cmd := exec.Command("uv", "run", script, strconv.Itoa(req.IssueNumber), req.ADWID)
	cmd.Dir = d.repoRoot
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	// New session: shutdown signals aimed at the server must not reach
	// in-flight workflow runs.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := d.start(cmd); err != nil {
		logFile.Close()
		return fmt.Errorf("start %s: %w", req.Workflow, err)
	}

	pid := 0
	if cmd.Process != nil {
		pid = cmd.Process.Pid
	}
	log.Printf("[Dispatcher] Launched %s for issue #%d (adw_id=%s, pid=%d)", req.Workflow, req.IssueNumber, req.ADWID, pid)

	// Reap the child and release the log handle once it exits.
	go func() {
		_ = cmd.Wait()
		logFile.Close()
	}()

	return nil
}
