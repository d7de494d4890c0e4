package services

import (
	"context"
	"errors"

	"github.com/cleargate-io/cleargate/modules/permission/domain/ports"
	"github.com/cleargate-io/cleargate/modules/permission/domain/types"
	"github.com/cleargate-io/cleargate/pkg/httperr"
)

const (
	errUserNotFound           = "USER_NOT_FOUND"
	errModelRequired          = "MODEL_REQUIRED"
	errNoPolicyConfigured     = "NO_POLICY_CONFIGURED"
	errPolicyVersionNotFound  = "POLICY_VERSION_NOT_FOUND"
	errPreviousVersionMissing = "PREVIOUS_VERSION_NOT_FOUND"
	errActivePolicyConflict   = "ACTIVE_POLICY_CONFLICT"
	errCustomConditionInvalid = "CUSTOM_CONDITION_INVALID"
	errFieldNameRequired      = "FIELD_NAME_REQUIRED"
	errFieldNameDuplicate     = "FIELD_NAME_DUPLICATE"
	errOperationUnknown       = "OPERATION_UNKNOWN"
	errOperationDuplicate     = "OPERATION_DUPLICATE"
	errStatusUnknown          = "STATUS_UNKNOWN"
	errChangesetEmpty         = "CHANGESET_EMPTY"
)

// PermissionService answers permission queries from policy documents, with
// a pluggable per-model fallback for models that have no document yet.
// It is a plain value with injected collaborators; construct one per wiring.
type PermissionService struct {
	policies ports.PolicyStore
	users    ports.UserDirectory
	defaults *DefaultPolicyRegistry
}

func NewPermissionService(policies ports.PolicyStore, users ports.UserDirectory, defaults *DefaultPolicyRegistry) *PermissionService {
	if defaults == nil {
		defaults = NewDefaultPolicyRegistry()
	}
	return &PermissionService{policies: policies, users: users, defaults: defaults}
}

// FieldListResult is the projection returned by the field-listing queries.
type FieldListResult struct {
	Fields      []string                     `json:"fields"`
	Configs     map[string]types.FieldConfig `json:"configs"`
	Permissions types.PermissionSet          `json:"permissions"`
}

// BuildContext derives the evaluation context from two user snapshots.
func BuildContext(viewer types.User, target types.User) types.EvaluationContext {
	return types.EvaluationContext{
		IsSelf:         viewer.ID == target.ID,
		ViewerRole:     viewer.Role,
		TargetRole:     target.Role,
		ViewerLevel:    viewer.Role.Level(),
		TargetLevel:    target.Role.Level(),
		ViewerTenantID: viewer.TenantID,
		TargetTenantID: target.TenantID,
	}
}

// Compute evaluates every field and operation rule list of policy against
// the (viewer, target) pair. Rule lists are disjunctions: one matching rule
// grants. Field configs surface for fields the viewer can view or create.
// The result depends only on the inputs; field order follows the document.
func Compute(policy types.PolicyDocument, viewer types.User, target types.User) types.PermissionSet {
	ctx := BuildContext(viewer, target)

	set := types.PermissionSet{
		CanUpdate:    []string{},
		CanView:      []string{},
		CanCreate:    []string{},
		Operations:   map[types.Operation]bool{},
		FieldConfigs: map[string]types.FieldConfig{},
		Context:      ctx,
	}

	for i := range policy.Fields {
		field := &policy.Fields[i]

		canEdit := anyRuleMatches(field.EditableBy, viewer.Role, ctx)
		canView := anyRuleMatches(field.VisibleTo, viewer.Role, ctx)
		canCreate := anyRuleMatches(field.CreatableBy, viewer.Role, ctx)

		if canEdit {
			set.CanUpdate = append(set.CanUpdate, field.Name)
		}
		if canView {
			set.CanView = append(set.CanView, field.Name)
		}
		if canCreate {
			set.CanCreate = append(set.CanCreate, field.Name)
		}
		if canView || canCreate {
			set.FieldConfigs[field.Name] = types.FieldConfig{
				Label:      field.Label,
				LabelAr:    field.LabelAr,
				Type:       field.Type,
				Validation: field.Validation,
				UI:         field.UI,
			}
		}
	}

	for i := range policy.Operations {
		op := &policy.Operations[i]
		set.Operations[op.Operation] = anyRuleMatches(op.Allowed, viewer.Role, ctx)
	}

	return set
}

func anyRuleMatches(rules []types.AccessRule, viewerRole types.Role, ctx types.EvaluationContext) bool {
	for _, rule := range rules {
		if Matches(rule, viewerRole, ctx) {
			return true
		}
	}
	return false
}

// GetUserPermissions resolves both users, fetches the active policy document
// for (model, tenantID), and computes the full permission set. When no
// document exists the per-model default fallback answers instead; a model
// with neither fails with NO_POLICY_CONFIGURED. Store fetch failures
// propagate untouched so callers deny by default.
func (s *PermissionService) GetUserPermissions(ctx context.Context, viewerID string, targetID string, model string, tenantID string) (types.PermissionSet, error) {
	viewer, err := s.users.FindUser(ctx, viewerID)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return types.PermissionSet{}, httperr.NewNotFound(errUserNotFound)
		}
		return types.PermissionSet{}, err
	}
	target, err := s.users.FindUser(ctx, targetID)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return types.PermissionSet{}, httperr.NewNotFound(errUserNotFound)
		}
		return types.PermissionSet{}, err
	}

	policy, err := s.policies.FindActive(ctx, model, tenantID)
	if err != nil {
		if errors.Is(err, ports.ErrPolicyNotFound) {
			return s.defaults.Resolve(model, viewer, target, tenantID)
		}
		return types.PermissionSet{}, err
	}

	return Compute(policy, viewer, target), nil
}

// CanPerform reports whether the viewer may perform op on the target.
// An operation absent from the policy is false, never an error.
func (s *PermissionService) CanPerform(ctx context.Context, viewerID string, targetID string, op types.Operation, model string, tenantID string) (bool, error) {
	set, err := s.GetUserPermissions(ctx, viewerID, targetID, model, tenantID)
	if err != nil {
		return false, err
	}
	return set.AllowsOperation(op), nil
}

// GetEditableFields lists the fields the viewer may update, with configs.
func (s *PermissionService) GetEditableFields(ctx context.Context, viewerID string, targetID string, model string, tenantID string) (FieldListResult, error) {
	set, err := s.GetUserPermissions(ctx, viewerID, targetID, model, tenantID)
	if err != nil {
		return FieldListResult{}, err
	}
	return FieldListResult{Fields: set.CanUpdate, Configs: set.FieldConfigs, Permissions: set}, nil
}

// GetViewableFields lists the fields the viewer may read, with configs.
func (s *PermissionService) GetViewableFields(ctx context.Context, viewerID string, targetID string, model string, tenantID string) (FieldListResult, error) {
	set, err := s.GetUserPermissions(ctx, viewerID, targetID, model, tenantID)
	if err != nil {
		return FieldListResult{}, err
	}
	return FieldListResult{Fields: set.CanView, Configs: set.FieldConfigs, Permissions: set}, nil
}

// GetCreatableFields lists the fields the viewer may set on creation.
func (s *PermissionService) GetCreatableFields(ctx context.Context, viewerID string, targetID string, model string, tenantID string) (FieldListResult, error) {
	set, err := s.GetUserPermissions(ctx, viewerID, targetID, model, tenantID)
	if err != nil {
		return FieldListResult{}, err
	}
	return FieldListResult{Fields: set.CanCreate, Configs: set.FieldConfigs, Permissions: set}, nil
}
