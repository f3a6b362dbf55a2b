package cli

import (
	"reflect"
	"strings"
	"testing"

	"github.com/plugpoint/plugpoint/internal/domain"
)

func TestNewIDs(t *testing.T) {
	got := newIDs([]string{"a", "b"}, []string{"a", "b", "c", "d"})
	if !reflect.DeepEqual(got, []string{"c", "d"}) {
		t.Errorf("newIDs = %v, want [c d]", got)
	}
	if got := newIDs([]string{"a"}, []string{"a"}); len(got) != 0 {
		t.Errorf("newIDs with nothing new = %v", got)
	}
}

func TestDescribeCriteria(t *testing.T) {
	tests := []struct {
		c    domain.Criteria
		want string
	}{
		{domain.Criteria{SourceCounter: domain.CounterCheckIns, Threshold: 10}, "checkIns >= 10"},
		{domain.Criteria{ActionType: domain.ActionRoutePlan}, "on route_plan"},
	}
	for _, tt := range tests {
		if got := describeCriteria(tt.c); got != tt.want {
			t.Errorf("describeCriteria(%+v) = %q, want %q", tt.c, got, tt.want)
		}
	}
}

func TestActionTypeList(t *testing.T) {
	list := actionTypeList()
	for _, a := range []string{"app_login", "check_in", "feedback_submitted"} {
		if !strings.Contains(list, a) {
			t.Errorf("action list %q missing %s", list, a)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"serve", "profile", "log", "buy", "leaderboard", "events", "catalog", "config"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered (got %v, err %v)", name, cmd, err)
		}
	}
}

func TestJoinOrDash(t *testing.T) {
	if got := joinOrDash(nil); got != "-" {
		t.Errorf("joinOrDash(nil) = %q", got)
	}
	if got := joinOrDash([]string{"x", "y"}); got != "x, y" {
		t.Errorf("joinOrDash = %q", got)
	}
}
