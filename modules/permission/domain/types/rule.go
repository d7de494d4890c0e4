package types

// ConditionKind is the closed vocabulary of rule conditions.
type ConditionKind string

const (
	ConditionSelf        ConditionKind = "self"
	ConditionAny         ConditionKind = "any"
	ConditionSameTenant  ConditionKind = "same_tenant"
	ConditionTenantAdmin ConditionKind = "tenant_admin"
	ConditionHigherLevel ConditionKind = "higher_level"
	ConditionLowerLevel  ConditionKind = "lower_level"
	ConditionSameLevel   ConditionKind = "same_level"
	ConditionCustom      ConditionKind = "custom"
)

// AccessRule is a single disjunct in a field or operation rule list: the
// grant applies when the viewer's role matches Role (or Role is "any") and
// Condition holds against the evaluation context.
type AccessRule struct {
	Role            Role          `json:"role" yaml:"role"`
	Condition       ConditionKind `json:"condition" yaml:"condition"`
	CustomCondition string        `json:"custom_condition,omitempty" yaml:"custom_condition,omitempty"`
}

// EvaluationContext carries the facts a rule condition can see. It is built
// fresh per permission query and never persisted.
type EvaluationContext struct {
	IsSelf         bool   `json:"is_self"`
	ViewerRole     Role   `json:"viewer_role"`
	TargetRole     Role   `json:"target_role"`
	ViewerLevel    int    `json:"viewer_level"`
	TargetLevel    int    `json:"target_level"`
	ViewerTenantID string `json:"viewer_tenant_id,omitempty"`
	TargetTenantID string `json:"target_tenant_id,omitempty"`
}

// SameTenant reports whether viewer and target share a non-empty tenant.
func (c EvaluationContext) SameTenant() bool {
	return c.ViewerTenantID != "" && c.TargetTenantID != "" && c.ViewerTenantID == c.TargetTenantID
}
