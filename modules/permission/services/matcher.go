package services

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/cleargate-io/cleargate/modules/permission/domain/types"
)

// Custom conditions are CEL boolean expressions over the evaluation context.
// Programs are compiled once per expression text and cached process-wide.
var customConditionProgramCache sync.Map

var newConditionCELEnv = func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("is_self", cel.BoolType),
		cel.Variable("viewer_role", cel.StringType),
		cel.Variable("target_role", cel.StringType),
		cel.Variable("viewer_level", cel.IntType),
		cel.Variable("target_level", cel.IntType),
		cel.Variable("viewer_tenant_id", cel.StringType),
		cel.Variable("target_tenant_id", cel.StringType),
		cel.Variable("same_tenant", cel.BoolType),
	)
}

// Matches evaluates one access rule against the viewer's role and context.
// The rule's role is a hard filter; the condition dispatches per the rule
// vocabulary. Unknown conditions and custom-expression failures are false:
// a malformed rule denies itself, never the whole computation.
func Matches(rule types.AccessRule, viewerRole types.Role, ctx types.EvaluationContext) bool {
	if rule.Role != types.RoleAny && rule.Role != viewerRole {
		return false
	}

	switch rule.Condition {
	case types.ConditionSelf:
		return ctx.IsSelf
	case types.ConditionAny:
		return true
	case types.ConditionSameTenant:
		return ctx.SameTenant()
	case types.ConditionTenantAdmin:
		return viewerRole == types.RoleAdmin && ctx.SameTenant()
	case types.ConditionHigherLevel:
		return ctx.ViewerLevel < ctx.TargetLevel
	case types.ConditionLowerLevel:
		return ctx.ViewerLevel > ctx.TargetLevel
	case types.ConditionSameLevel:
		return ctx.ViewerLevel == ctx.TargetLevel
	case types.ConditionCustom:
		if strings.TrimSpace(rule.CustomCondition) == "" {
			return false
		}
		ok, err := evalCustomCondition(rule.CustomCondition, ctx)
		if err != nil {
			return false
		}
		return ok
	default:
		// A condition kind outside the vocabulary denies. A typo in a
		// rule must never grant.
		return false
	}
}

// CompileCondition checks that expr is a valid boolean CEL expression over
// the evaluation context. Write paths call this so a bad expression is
// rejected at version-creation time instead of silently denying at runtime.
func CompileCondition(expr string) error {
	_, err := loadOrCompileConditionProgram(expr)
	return err
}

func evalCustomCondition(expr string, ctx types.EvaluationContext) (bool, error) {
	program, err := loadOrCompileConditionProgram(expr)
	if err != nil {
		return false, err
	}
	out, _, err := program.Eval(map[string]any{
		"is_self":          ctx.IsSelf,
		"viewer_role":      string(ctx.ViewerRole),
		"target_role":      string(ctx.TargetRole),
		"viewer_level":     int64(ctx.ViewerLevel),
		"target_level":     int64(ctx.TargetLevel),
		"viewer_tenant_id": ctx.ViewerTenantID,
		"target_tenant_id": ctx.TargetTenantID,
		"same_tenant":      ctx.SameTenant(),
	})
	if err != nil {
		return false, err
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, errors.New("custom condition did not evaluate to bool")
	}
	return v, nil
}

func loadOrCompileConditionProgram(expr string) (cel.Program, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("custom condition expression required")
	}
	if cached, ok := customConditionProgramCache.Load(expr); ok {
		return cached.(cel.Program), nil
	}
	env, err := newConditionCELEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if ast.OutputType() != cel.BoolType {
		return nil, errors.New("custom condition must be a bool expression")
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	customConditionProgramCache.Store(expr, program)
	return program, nil
}
