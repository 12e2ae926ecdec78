package webhook

// GitHub webhook payload types, limited to the fields this service consumes.

type IssuesEvent struct {
	Action string `json:"action"`
	Issue  Issue  `json:"issue"`
}

type IssueCommentEvent struct {
	Action  string  `json:"action"`
	Issue   Issue   `json:"issue"`
	Comment Comment `json:"comment"`
}

type Issue struct {
	Number int    `json:"number"`
	Body   string `json:"body"`
}

type Comment struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
	User User   `json:"user"`
}

type User struct {
	Login string `json:"login"`
	Type  string `json:"type"`
}

// Webhook response bodies. Every delivery is answered with HTTP 200 and one
// of these shapes so GitHub never retries.

type acceptedResponse struct {
	Status   string `json:"status"`
	Issue    int    `json:"issue"`
	ADWID    string `json:"adw_id"`
	Workflow string `json:"workflow"`
	Message  string `json:"message"`
	Reason   string `json:"reason"`
	Logs     string `json:"logs"`
}

type ignoredResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func ignore(reason string) ignoredResponse {
	return ignoredResponse{Status: "ignored", Reason: reason}
}

func internalError() errorResponse {
	return errorResponse{Status: "error", Message: "Internal error processing webhook"}
}
