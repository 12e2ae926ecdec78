package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adwhq/adw-trigger/internal/health"
	"github.com/adwhq/adw-trigger/internal/state"
	"github.com/adwhq/adw-trigger/internal/workflow"
)

// ServiceName identifies this service in health responses.
const ServiceName = "adw-webhook-trigger"

// BotMarker prefixes every comment this service posts. Comments carrying it
// are never classified, so the service cannot trigger itself.
const BotMarker = "[ADW-BOT]"

// DispatchRequest names one workflow launch.
type DispatchRequest struct {
	Workflow    workflow.Selector
	ADWID       string
	IssueNumber int
}

// WorkflowDispatcher submits accepted launches for background execution.
type WorkflowDispatcher interface {
	Dispatch(req *DispatchRequest) error
}

// CommentPoster posts feedback comments to the triggering issue.
type CommentPoster interface {
	CreateIssueComment(ctx context.Context, issueNumber int, body string) error
}

// IDRecoverer finds a prior run identifier in the issue's comment history.
type IDRecoverer interface {
	Recover(ctx context.Context, issueNumber int) (string, error)
}

// HealthChecker runs the external health-check script.
type HealthChecker interface {
	Run(ctx context.Context) (*health.Report, error)
}

// Handler handles GitHub webhook deliveries and the health endpoint.
type Handler struct {
	webhookSecret string
	stateDir      string
	dispatcher    WorkflowDispatcher
	store         *state.FileStore
	comments      CommentPoster
	recoverer     IDRecoverer
	checker       HealthChecker
	deduper       *commentDeduper
}

// NewHandler creates a new webhook handler. The store, comment poster,
// recoverer, and checker may be nil; the matching features degrade with a
// log line instead of failing the delivery.
func NewHandler(webhookSecret, stateDir string, dispatcher WorkflowDispatcher, store *state.FileStore, comments CommentPoster, recoverer IDRecoverer, checker HealthChecker) *Handler {
	if stateDir == "" {
		stateDir = "agents"
	}
	return &Handler{
		webhookSecret: webhookSecret,
		stateDir:      stateDir,
		dispatcher:    dispatcher,
		store:         store,
		comments:      comments,
		recoverer:     recoverer,
		checker:       checker,
		deduper:       newCommentDeduper(12 * time.Hour),
	}
}

// Handle handles a GitHub webhook delivery. It always answers HTTP 200 with
// an accepted/ignored/error JSON body so GitHub never retries.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("[Webhook] Error reading payload: %v", err)
		writeJSON(w, http.StatusOK, internalError())
		return
	}

	if h.webhookSecret != "" {
		if err := verifySignature(payload, r.Header.Get("X-Hub-Signature-256"), h.webhookSecret); err != nil {
			log.Printf("[Webhook] Signature verification failed: %v", err)
			writeJSON(w, http.StatusOK, ignore("Signature verification failed"))
			return
		}
	}

	eventType := r.Header.Get("X-GitHub-Event")
	writeJSON(w, http.StatusOK, h.handleEvent(r.Context(), eventType, payload))
}

// handleEvent classifies one delivery and runs the accept path when it names
// a workflow. The return value is the response body.
func (h *Handler) handleEvent(ctx context.Context, eventType string, payload []byte) any {
	var envelope struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		log.Printf("[Webhook] Error parsing payload: %v", err)
		return internalError()
	}

	ignored := ignore(fmt.Sprintf("Not a triggering event (event=%s, action=%s)", eventType, envelope.Action))

	switch eventType {
	case "issues":
		var event IssuesEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Printf("[Webhook] Error parsing issues event: %v", err)
			return internalError()
		}
		return h.handleIssueOpened(ctx, event, ignored)
	case "issue_comment":
		var event IssueCommentEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Printf("[Webhook] Error parsing issue_comment event: %v", err)
			return internalError()
		}
		return h.handleIssueComment(ctx, event, ignored)
	default:
		log.Printf("[Webhook] Ignoring unsupported event type: %s", eventType)
		return ignored
	}
}

func (h *Handler) handleIssueOpened(ctx context.Context, event IssuesEvent, ignored ignoredResponse) any {
	if event.Action != "opened" || event.Issue.Number == 0 {
		log.Printf("[Webhook] Ignoring issues action: %s", event.Action)
		return ignored
	}
	return h.triggerWorkflow(ctx, event.Issue.Body, event.Issue.Number, "New issue with %s workflow", ignored)
}

func (h *Handler) handleIssueComment(ctx context.Context, event IssueCommentEvent, ignored ignoredResponse) any {
	if event.Action != "created" || event.Issue.Number == 0 {
		log.Printf("[Webhook] Ignoring issue_comment action: %s", event.Action)
		return ignored
	}

	comment := event.Comment
	if strings.Contains(comment.Body, BotMarker) {
		log.Printf("[Webhook] Ignoring own bot comment on issue #%d", event.Issue.Number)
		return ignored
	}
	if comment.User.Type == "Bot" {
		log.Printf("[Webhook] Ignoring comment from bot: %s", comment.User.Login)
		return ignored
	}
	if !workflow.ContainsTrigger(comment.Body) {
		log.Printf("[Webhook] Comment on issue #%d has no %q trigger", event.Issue.Number, workflow.TriggerSubstring)
		return ignored
	}
	if !h.deduper.markIfNew(comment.ID) {
		log.Printf("[Webhook] Ignoring duplicate comment delivery: id=%d", comment.ID)
		return ignore("Duplicate comment delivery")
	}

	return h.triggerWorkflow(ctx, comment.Body, event.Issue.Number, "Comment with %s workflow", ignored)
}

// triggerWorkflow runs the shared accept path: classify the body, resolve the
// run identifier, bind run state, acknowledge on the issue, and submit the
// launch. reasonFormat carries one %s verb for the selector.
func (h *Handler) triggerWorkflow(ctx context.Context, body string, issueNumber int, reasonFormat string, ignored ignoredResponse) any {
	if !workflow.ContainsTrigger(body) {
		return ignored
	}
	sel, ok := workflow.Classify(body)
	if !ok {
		log.Printf("[Webhook] Trigger substring without a known workflow on issue #%d", issueNumber)
		return ignored
	}

	adwID := workflow.ExtractExplicitID(body)

	// adw_build continues an earlier run, so it must resolve an identifier
	// before anything is launched.
	if sel == workflow.SelectorBuild && adwID == "" {
		log.Printf("[Webhook] %s requested without an identifier on issue #%d, scanning comments", sel, issueNumber)
		recovered := h.recoverID(ctx, issueNumber)
		if recovered == "" {
			log.Printf("[Webhook] No run identifier found for %s on issue #%d", sel, issueNumber)
			h.postComment(ctx, issueNumber, missingIDComment())
			return ignored
		}
		adwID = recovered
		log.Printf("[Webhook] Auto-detected identifier %s for issue #%d", adwID, issueNumber)
		h.postComment(ctx, issueNumber, autoDetectComment(adwID))
	}

	if adwID == "" {
		adwID = workflow.MakeID()
	}

	if err := h.initializeState(adwID, issueNumber); err != nil {
		log.Printf("[Webhook] State initialization failed for adw_id=%s: %v", adwID, err)
		return internalError()
	}

	reason := fmt.Sprintf(reasonFormat, sel)
	logs := h.logsPath(adwID, sel)
	log.Printf("[Webhook] Detected workflow %s for issue #%d (adw_id=%s)", sel, issueNumber, adwID)

	h.postComment(ctx, issueNumber, triggerAckComment(sel, adwID, reason, logs))

	req := &DispatchRequest{Workflow: sel, ADWID: adwID, IssueNumber: issueNumber}
	if err := h.dispatcher.Dispatch(req); err != nil {
		log.Printf("[Webhook] Dispatch failed for %s (adw_id=%s): %v", sel, adwID, err)
		return internalError()
	}

	return acceptedResponse{
		Status:   "accepted",
		Issue:    issueNumber,
		ADWID:    adwID,
		Workflow: string(sel),
		Message:  fmt.Sprintf("ADW %s workflow triggered for issue #%d", sel, issueNumber),
		Reason:   reason,
		Logs:     logs,
	}
}

// recoverID degrades every recovery failure to "not found".
func (h *Handler) recoverID(ctx context.Context, issueNumber int) string {
	if h.recoverer == nil {
		log.Printf("[Webhook] No recoverer configured, cannot scan issue #%d", issueNumber)
		return ""
	}
	adwID, err := h.recoverer.Recover(ctx, issueNumber)
	if err != nil {
		log.Printf("[Webhook] Identifier recovery failed for issue #%d: %v", issueNumber, err)
		return ""
	}
	return adwID
}

func (h *Handler) initializeState(adwID string, issueNumber int) error {
	if h.store == nil {
		return nil
	}
	st, preserved, err := h.store.Initialize(adwID, strconv.Itoa(issueNumber))
	if err != nil {
		return err
	}
	if preserved {
		log.Printf("[Webhook] Preserving in-progress state for adw_id=%s (branch: %s)", adwID, st.BranchName)
	} else {
		log.Printf("[Webhook] Initialized run state for adw_id=%s", adwID)
	}
	return nil
}

// postComment is best effort: a failed or unconfigured poster never blocks a
// dispatch.
func (h *Handler) postComment(ctx context.Context, issueNumber int, body string) {
	if h.comments == nil {
		log.Printf("[Webhook] No GitHub client configured, skipping comment on issue #%d", issueNumber)
		return
	}
	if err := h.comments.CreateIssueComment(ctx, issueNumber, body); err != nil {
		log.Printf("[Webhook] Failed to comment on issue #%d: %v", issueNumber, err)
	}
}

func (h *Handler) logsPath(adwID string, sel workflow.Selector) string {
	return fmt.Sprintf("%s/%s/%s/", h.stateDir, adwID, sel)
}

func triggerAckComment(sel workflow.Selector, adwID, reason, logs string) string {
	return fmt.Sprintf("%s ADW Webhook: Detected `%s` workflow request\n\n"+
		"Starting workflow with ID: `%s`\n"+
		"Reason: %s\n\n"+
		"Logs will be available at: `%s`", BotMarker, sel, adwID, reason, logs)
}

func autoDetectComment(adwID string) string {
	return fmt.Sprintf("%s **Auto-detected ADW ID**: `%s`\n\n"+
		"Found this ID in previous comments on this issue. Proceeding with `adw_build`.\n\n"+
		"Tip: you can name the ID explicitly with `adw_build %s`.", BotMarker, adwID, adwID)
}

func missingIDComment() string {
	return BotMarker + " **Missing ADW ID**\n\n" +
		"`adw_build` needs an ADW ID to know which plan to continue from.\n\n" +
		"**Usage:**\n" +
		"- `adw_build <adw_id>` (e.g. `adw_build 75de9bea`)\n" +
		"- Or add `adw_id: <adw_id>` on its own line\n\n" +
		"Look for the final planning state comment from the planning phase, or any " +
		"comment with `adw_id: ...` in it. To start over, `adw_plan_build` creates a " +
		"fresh plan and builds it."
}

// HandleHealth runs the health-check script and reports its findings. Unlike
// webhook replies, this endpoint uses real status codes: 200 when healthy,
// 503 when not.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		writeJSON(w, http.StatusServiceUnavailable, healthErrorResponse{
			Status:  "unhealthy",
			Service: ServiceName,
			Error:   "Health check failed: no checker configured",
		})
		return
	}

	report, err := h.checker.Run(r.Context())
	if err != nil {
		log.Printf("[HealthCheck] %v", err)
		msg := "Health check failed: " + err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "Health check timed out"
		}
		writeJSON(w, http.StatusServiceUnavailable, healthErrorResponse{
			Status:  "unhealthy",
			Service: ServiceName,
			Error:   msg,
		})
		return
	}

	status := "healthy"
	code := http.StatusOK
	if !report.Success {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthResponse{
		Status:      status,
		Service:     ServiceName,
		HealthCheck: report,
	})
}

type healthResponse struct {
	Status      string         `json:"status"`
	Service     string         `json:"service"`
	HealthCheck *health.Report `json:"health_check"`
}

type healthErrorResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[Webhook] Failed to encode response: %v", err)
	}
}
