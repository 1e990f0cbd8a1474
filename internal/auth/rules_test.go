package auth

import (
	"net/http"
	"testing"

	"github.com/planfold/planfold/server/internal/model"
)

func TestFindRuleFirstMatchWins(t *testing.T) {
	table := NewTable([]PermissionRule{
		{Path: "/services", Methods: []string{http.MethodGet}, UserRoles: []model.UserRole{model.UserRoleAdmin}},
		{Path: "/services", Methods: []string{http.MethodGet}, UserRoles: []model.UserRole{model.UserRoleAdmin, model.UserRoleUser}},
	})

	rule, ok := table.FindRule(http.MethodGet, "/services")
	if !ok {
		t.Fatal("expected a rule")
	}
	// Only the earlier rule may be consulted, even though both match.
	if len(rule.UserRoles) != 1 || rule.UserRoles[0] != model.UserRoleAdmin {
		t.Fatalf("expected first rule, got %+v", rule)
	}
}

func TestFindRuleMethodFilter(t *testing.T) {
	table := NewTable([]PermissionRule{
		{Path: "/services", Methods: []string{http.MethodGet}},
		{Path: "/services", Methods: []string{http.MethodPost}, UserKeyOnly: true},
	})

	rule, ok := table.FindRule(http.MethodPost, "/services")
	if !ok || !rule.UserKeyOnly {
		t.Fatalf("expected POST rule, got ok=%v rule=%+v", ok, rule)
	}
	if _, ok := table.FindRule(http.MethodDelete, "/services"); ok {
		t.Fatal("DELETE must not match any rule")
	}
}

func TestFindRuleNoMatch(t *testing.T) {
	table := NewTable([]PermissionRule{
		{Path: "/services", Methods: []string{http.MethodGet}},
	})
	if _, ok := table.FindRule(http.MethodGet, "/unknown"); ok {
		t.Fatal("expected no rule for unknown path")
	}
}

func TestNewTableCopiesRules(t *testing.T) {
	rules := []PermissionRule{{Path: "/a", Methods: []string{http.MethodGet}}}
	table := NewTable(rules)
	rules[0].Path = "/mutated"
	if _, ok := table.FindRule(http.MethodGet, "/a"); !ok {
		t.Fatal("table must not observe mutations of the source slice")
	}
}

func TestDefaultTableScenarios(t *testing.T) {
	table := DefaultTable()

	rule, ok := table.FindRule(http.MethodGet, "/services")
	if !ok || !rule.AllowsOrgScope(model.OrgScopeEvaluation) {
		t.Fatalf("GET /services should admit evaluation keys: ok=%v rule=%+v", ok, rule)
	}
	rule, ok = table.FindRule(http.MethodPost, "/services")
	if !ok || rule.AllowsOrgScope(model.OrgScopeEvaluation) {
		t.Fatalf("POST /services must not admit evaluation keys: ok=%v rule=%+v", ok, rule)
	}
	rule, ok = table.FindRule(http.MethodGet, "/health")
	if !ok || !rule.Public {
		t.Fatalf("GET /health should be public: ok=%v rule=%+v", ok, rule)
	}
}
