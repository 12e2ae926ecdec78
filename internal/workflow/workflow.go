package workflow

import (
	"regexp"
	"strings"
)

// Selector names one launchable workflow. Its string value doubles as the
// base name of the script the dispatcher runs.
type Selector string

const (
	SelectorPlan          Selector = "adw_plan"
	SelectorBuild         Selector = "adw_build"
	SelectorTest          Selector = "adw_test"
	SelectorPlanBuild     Selector = "adw_plan_build"
	SelectorPlanBuildTest Selector = "adw_plan_build_test"
)

// TriggerSubstring gates classification: bodies without it are never inspected further.
const TriggerSubstring = "adw_"

// Script returns the workflow script file name for this selector.
func (s Selector) Script() string {
	return string(s) + ".py"
}

// rule maps a literal keyword to the selector it requests.
type rule struct {
	keyword  string
	selector Selector
}

// rules is ordered longest-keyword-first so compound workflows win over
// their prefixes (adw_plan_build_test before adw_plan_build before adw_plan).
var rules = []rule{
	{"adw_plan_build_test", SelectorPlanBuildTest},
	{"adw_plan_build", SelectorPlanBuild},
	{"adw_plan", SelectorPlan},
	{"adw_build", SelectorBuild},
	{"adw_test", SelectorTest},
}

// ContainsTrigger reports whether body mentions the trigger substring at all,
// case-insensitively. Cheap pre-filter before Classify.
func ContainsTrigger(body string) bool {
	return strings.Contains(strings.ToLower(body), TriggerSubstring)
}

// Classify matches body text against the rule table and returns the selector
// of the first matching rule. Matching is case-insensitive on literal
// keywords; the table order resolves overlaps.
func Classify(body string) (Selector, bool) {
	lower := strings.ToLower(body)
	for _, r := range rules {
		if strings.Contains(lower, r.keyword) {
			return r.selector, true
		}
	}
	return "", false
}

// Explicit identifier forms: inline after a workflow keyword
// ("adw_build 75de9bea") and as a field ("adw_id: 75de9bea").
var (
	inlineIDPattern = regexp.MustCompile(`(?:adw_plan_build_test|adw_plan_build|adw_plan|adw_build|adw_test)\s+\b([a-f0-9]{8})\b`)
	fieldIDPattern  = regexp.MustCompile(`\badw_id:\s*([a-f0-9]{8})\b`)
)

// ExtractExplicitID returns the run identifier named alongside a workflow
// request, or "" when the body carries none. Uppercase input is canonicalized.
func ExtractExplicitID(body string) string {
	lower := strings.ToLower(body)
	if m := inlineIDPattern.FindStringSubmatch(lower); m != nil {
		return m[1]
	}
	if m := fieldIDPattern.FindStringSubmatch(lower); m != nil {
		return m[1]
	}
	return ""
}
