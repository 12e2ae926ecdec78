package state

import "time"

// StateFileName is the per-run document name under the run's directory.
// The workflow scripts read and write the same file, so the name and the
// JSON layout are an interop contract.
const StateFileName = "adw_state.json"

// State is the persisted record of one workflow run. IssueNumber is a string
// in the document because that is how the workflow scripts store it.
type State struct {
	ADWID       string `json:"adw_id"`
	IssueNumber string `json:"issue_number,omitempty"`
	BranchName  string `json:"branch_name,omitempty"`
	PlanFile    string `json:"plan_file,omitempty"`
	IssueClass  string `json:"issue_class,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// InProgress reports whether planning already ran for this record. Records
// in progress must never be re-initialized.
func (s *State) InProgress() bool {
	return s != nil && s.BranchName != ""
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
