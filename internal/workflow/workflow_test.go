package workflow

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   Selector
		wantOK bool
	}{
		{
			name:   "plain plan request",
			body:   "please run adw_plan on this issue",
			want:   SelectorPlan,
			wantOK: true,
		},
		{
			name:   "build with inline id",
			body:   "adw_build 75de9bea",
			want:   SelectorBuild,
			wantOK: true,
		},
		{
			name:   "test workflow",
			body:   "adw_test",
			want:   SelectorTest,
			wantOK: true,
		},
		{
			name:   "plan_build wins over plan",
			body:   "please run adw_plan_build for this",
			want:   SelectorPlanBuild,
			wantOK: true,
		},
		{
			name:   "plan_build_test wins over plan_build",
			body:   "kick off adw_plan_build_test now",
			want:   SelectorPlanBuildTest,
			wantOK: true,
		},
		{
			name:   "case insensitive",
			body:   "ADW_PLAN please",
			want:   SelectorPlan,
			wantOK: true,
		},
		{
			name:   "keyword embedded mid sentence",
			body:   "I think adw_build would be the right next step here.",
			want:   SelectorBuild,
			wantOK: true,
		},
		{
			name:   "multiple keywords, table order wins",
			body:   "run adw_test after adw_plan",
			want:   SelectorPlan,
			wantOK: true,
		},
		{
			name:   "trigger substring but no keyword",
			body:   "what is an adw_ workflow anyway?",
			wantOK: false,
		},
		{
			name:   "no trigger at all",
			body:   "unrelated issue about a typo",
			wantOK: false,
		},
		{
			name:   "empty body",
			body:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.body)
			if ok != tt.wantOK {
				t.Fatalf("Classify() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContainsTrigger(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "lowercase", body: "run adw_plan", want: true},
		{name: "uppercase", body: "RUN ADW_PLAN", want: true},
		{name: "bare prefix", body: "adw_", want: true},
		{name: "absent", body: "nothing to see", want: false},
		{name: "adw without underscore", body: "adw plan", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsTrigger(tt.body); got != tt.want {
				t.Errorf("ContainsTrigger(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}

func TestExtractExplicitID(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "inline after keyword",
			body: "adw_build 75de9bea",
			want: "75de9bea",
		},
		{
			name: "inline after compound keyword",
			body: "adw_plan_build_test 0a1b2c3d",
			want: "0a1b2c3d",
		},
		{
			name: "field form",
			body: "adw_build\nadw_id: 75de9bea",
			want: "75de9bea",
		},
		{
			name: "field form without space",
			body: "adw_id:75de9bea",
			want: "75de9bea",
		},
		{
			name: "uppercase id canonicalized",
			body: "ADW_BUILD 75DE9BEA",
			want: "75de9bea",
		},
		{
			name: "no id present",
			body: "adw_build the thing",
			want: "",
		},
		{
			name: "id too short",
			body: "adw_build 75de9be",
			want: "",
		},
		{
			name: "id too long is not truncated",
			body: "adw_build 75de9beaff",
			want: "",
		},
		{
			name: "non hex token",
			body: "adw_build 75de9bez",
			want: "",
		},
		{
			name: "inline form beats field form",
			body: "adw_build 75de9bea\nadw_id: 0a1b2c3d",
			want: "75de9bea",
		},
		{
			name: "empty body",
			body: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractExplicitID(tt.body); got != tt.want {
				t.Errorf("ExtractExplicitID(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestSelectorScript(t *testing.T) {
	if got := SelectorPlanBuild.Script(); got != "adw_plan_build.py" {
		t.Errorf("Script() = %q, want %q", got, "adw_plan_build.py")
	}
}
