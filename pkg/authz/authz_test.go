package authz

import (
	"os"
	"path/filepath"
	"testing"
)

const testModelConf = `
[request_definition]
r = sub, dom, obj, act

[policy_definition]
p = sub, dom, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.dom == p.dom && r.obj == p.obj && r.act == p.act
`

func TestModeFromEnv_Default(t *testing.T) {
	t.Setenv("AUTHZ_MODE", "")
	m, err := ModeFromEnv()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if m != ModeEnforce {
		t.Fatalf("mode=%q", m)
	}
}

func TestModeFromEnv_Shadow(t *testing.T) {
	t.Setenv("AUTHZ_MODE", "shadow")
	m, err := ModeFromEnv()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if m != ModeShadow {
		t.Fatalf("mode=%q", m)
	}
}

func TestModeFromEnv_DisabledRequiresUnsafe(t *testing.T) {
	t.Setenv("AUTHZ_MODE", "disabled")
	t.Setenv("AUTHZ_UNSAFE_ALLOW_DISABLED", "")
	if _, err := ModeFromEnv(); err == nil {
		t.Fatal("expected error")
	}
	t.Setenv("AUTHZ_UNSAFE_ALLOW_DISABLED", "1")
	m, err := ModeFromEnv()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if m != ModeDisabled {
		t.Fatalf("mode=%q", m)
	}
}

func TestModeFromEnv_Invalid(t *testing.T) {
	t.Setenv("AUTHZ_MODE", "nope")
	if _, err := ModeFromEnv(); err == nil {
		t.Fatal("expected error")
	}
}

func TestSubjectFromRole(t *testing.T) {
	if got := SubjectFromRole(" Admin "); got != "role:admin" {
		t.Fatalf("got=%q", got)
	}
	if got := SubjectFromRole(""); got != "role:anonymous" {
		t.Fatalf("got=%q", got)
	}
}

func TestDomainFromTenantID(t *testing.T) {
	if got := DomainFromTenantID(" T1 "); got != "t1" {
		t.Fatalf("got=%q", got)
	}
	if got := DomainFromTenantID(""); got != DomainGlobal {
		t.Fatalf("got=%q", got)
	}
}

func writeAuthzFixture(t *testing.T, policyLines string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	model := filepath.Join(dir, "model.conf")
	policy := filepath.Join(dir, "policy.csv")
	if err := os.WriteFile(model, []byte(testModelConf), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(policy, []byte(policyLines), 0o644); err != nil {
		t.Fatal(err)
	}
	return model, policy
}

func TestAuthorize_EnforceShadowDisabled(t *testing.T) {
	model, policy := writeAuthzFixture(t, "p, role:admin, global, permission.versions, admin\n")

	a, err := NewAuthorizer(model, policy, ModeEnforce)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	allowed, enforced, err := a.Authorize(SubjectFromRole("admin"), DomainGlobal, ObjectPermissionVersions, ActionAdmin)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !allowed || !enforced {
		t.Fatalf("allowed=%v enforced=%v", allowed, enforced)
	}

	allowed, enforced, err = a.Authorize(SubjectFromRole("user"), DomainGlobal, ObjectPermissionVersions, ActionAdmin)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if allowed || !enforced {
		t.Fatalf("allowed=%v enforced=%v", allowed, enforced)
	}

	aShadow, err := NewAuthorizer(model, policy, ModeShadow)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	allowed, enforced, err = aShadow.Authorize(SubjectFromRole("user"), DomainGlobal, ObjectPermissionVersions, ActionAdmin)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if allowed || enforced {
		t.Fatalf("allowed=%v enforced=%v", allowed, enforced)
	}

	aDisabled, err := NewAuthorizer(model, policy, ModeDisabled)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	allowed, enforced, err = aDisabled.Authorize(SubjectFromRole("user"), DomainGlobal, ObjectPermissionVersions, ActionAdmin)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !allowed || enforced {
		t.Fatalf("allowed=%v enforced=%v", allowed, enforced)
	}
}

func TestNewAuthorizer_InvalidModel(t *testing.T) {
	dir := t.TempDir()
	invalidModel := filepath.Join(dir, "invalid.conf")
	if err := os.WriteFile(invalidModel, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewAuthorizer(invalidModel, "missing-policy.csv", ModeEnforce); err == nil {
		t.Fatal("expected error")
	}
}
