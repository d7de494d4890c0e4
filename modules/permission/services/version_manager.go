package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cleargate-io/cleargate/modules/permission/domain/ports"
	"github.com/cleargate-io/cleargate/modules/permission/domain/types"
	"github.com/cleargate-io/cleargate/pkg/httperr"
	"github.com/cleargate-io/cleargate/pkg/uuidv7"
)

var (
	newUUID = uuidv7.NewString
	timeNow = time.Now
)

// PolicyChangeset carries the fields and operations a new version changes.
// Entries replace same-named existing ones in place and append otherwise;
// a changeset never deletes anything implicitly.
type PolicyChangeset struct {
	Fields     []types.FieldPermission     `json:"fields,omitempty"`
	Operations []types.OperationPermission `json:"operations,omitempty"`
	Reason     string                      `json:"reason,omitempty"`
}

// VersionService manages the policy document version lifecycle: creating
// new versions from changesets, rolling back, and seeding initial documents.
type VersionService struct {
	policies ports.PolicyStore
}

func NewVersionService(policies ports.PolicyStore) *VersionService {
	return &VersionService{policies: policies}
}

// CreateNewVersion derives version N+1 of model's global document by merging
// changes into the current active version. The next version number is one
// past the highest version ever recorded for the model, including archived
// ones, so a rollback never causes version-number reuse. Deactivation of the
// old version and creation of the new one happen in one store transaction;
// there is no window with zero active documents.
func (s *VersionService) CreateNewVersion(ctx context.Context, model string, changes PolicyChangeset, changedBy string, status types.PolicyStatus) (types.PolicyDocument, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return types.PolicyDocument{}, httperr.NewBadRequest(errModelRequired)
	}
	if status == "" {
		status = types.PolicyStatusActive
	}
	if !status.Known() {
		return types.PolicyDocument{}, httperr.NewBadRequest(errStatusUnknown)
	}
	if len(changes.Fields) == 0 && len(changes.Operations) == 0 {
		return types.PolicyDocument{}, httperr.NewBadRequest(errChangesetEmpty)
	}

	current, err := s.policies.FindActive(ctx, model, "")
	if err != nil {
		if errors.Is(err, ports.ErrPolicyNotFound) {
			return types.PolicyDocument{}, httperr.NewNotFound(errNoPolicyConfigured)
		}
		return types.PolicyDocument{}, err
	}

	if err := validateFields(changes.Fields, current.Fields); err != nil {
		return types.PolicyDocument{}, err
	}
	if err := validateOperations(changes.Operations, current.Operations); err != nil {
		return types.PolicyDocument{}, err
	}

	maxVersion, err := s.policies.MaxVersion(ctx, model)
	if err != nil {
		return types.PolicyDocument{}, err
	}
	nextVersion := maxVersion + 1

	now := timeNow().UTC()
	id, err := newUUID()
	if err != nil {
		return types.PolicyDocument{}, err
	}

	reason := strings.TrimSpace(changes.Reason)
	if reason == "" {
		reason = fmt.Sprintf("New version %d derived from version %d", nextVersion, current.Version)
	}

	next := types.PolicyDocument{
		ID:          id,
		Model:       model,
		TenantID:    current.TenantID,
		Version:     nextVersion,
		IsActive:    true,
		Status:      status,
		Fields:      mergeFields(current.Fields, changes.Fields),
		Operations:  mergeOperations(current.Operations, changes.Operations),
		Tags:        current.Tags,
		Notes:       current.Notes,
		CreatedBy:   changedBy,
		UpdatedBy:   changedBy,
		ActivatedAt: &now,
		ChangeLog: []types.ChangeLogEntry{{
			Version:   nextVersion,
			ChangedAt: now,
			ChangedBy: changedBy,
			Changes:   changesetDiff(changes),
			Reason:    reason,
		}},
	}

	created, err := s.policies.Replace(ctx, ports.ActivationSwap{
		Model:      model,
		FromID:     current.ID,
		FromStatus: types.PolicyStatusArchived,
		FromChangeLog: types.ChangeLogEntry{
			Version:   current.Version,
			ChangedAt: now,
			ChangedBy: changedBy,
			Changes:   []types.FieldChange{{Field: "is_active", OldValue: true, NewValue: false}},
			Reason:    fmt.Sprintf("Superseded by version %d", nextVersion),
		},
		NewDocument: &next,
	})
	if err != nil {
		if errors.Is(err, ports.ErrActivePolicyConflict) {
			return types.PolicyDocument{}, httperr.NewConflict(errActivePolicyConflict)
		}
		return types.PolicyDocument{}, err
	}
	return created, nil
}

// Rollback reactivates version N-1 of model's global document and archives
// the active version N. The candidate is strictly the previous version; a
// flawed N-1 makes rollback unavailable even when older usable versions
// exist. That is deliberate, if surprising: skipping over a quarantined
// version would silently change more than one step of history.
func (s *VersionService) Rollback(ctx context.Context, model string, targetStatus types.PolicyStatus, newStatus types.PolicyStatus, actorID string) (types.PolicyDocument, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return types.PolicyDocument{}, httperr.NewBadRequest(errModelRequired)
	}
	if targetStatus == "" {
		targetStatus = types.PolicyStatusArchived
	}
	if newStatus == "" {
		newStatus = types.PolicyStatusActive
	}
	if !targetStatus.Known() || !newStatus.Known() {
		return types.PolicyDocument{}, httperr.NewBadRequest(errStatusUnknown)
	}

	current, err := s.policies.FindActive(ctx, model, "")
	if err != nil {
		if errors.Is(err, ports.ErrPolicyNotFound) {
			return types.PolicyDocument{}, httperr.NewNotFound(errNoPolicyConfigured)
		}
		return types.PolicyDocument{}, err
	}

	candidate, err := s.policies.FindByVersion(ctx, model, current.Version-1)
	if err != nil {
		if errors.Is(err, ports.ErrVersionNotFound) {
			return types.PolicyDocument{}, httperr.NewNotFound(errPreviousVersionMissing)
		}
		return types.PolicyDocument{}, err
	}
	if candidate.Status == types.PolicyStatusFlawed {
		return types.PolicyDocument{}, httperr.NewNotFound(errPreviousVersionMissing)
	}

	now := timeNow().UTC()
	restored, err := s.policies.Replace(ctx, ports.ActivationSwap{
		Model:      model,
		FromID:     current.ID,
		FromStatus: targetStatus,
		FromChangeLog: types.ChangeLogEntry{
			Version:   current.Version,
			ChangedAt: now,
			ChangedBy: actorID,
			Changes:   []types.FieldChange{{Field: "is_active", OldValue: true, NewValue: false}},
			Reason:    fmt.Sprintf("Rollback to version %d", candidate.Version),
		},
		ToID:     candidate.ID,
		ToStatus: newStatus,
		ToChangeLog: types.ChangeLogEntry{
			Version:   candidate.Version,
			ChangedAt: now,
			ChangedBy: actorID,
			Changes:   []types.FieldChange{{Field: "is_active", OldValue: false, NewValue: true}},
			Reason:    fmt.Sprintf("Reactivated via rollback from version %d", current.Version),
		},
	})
	if err != nil {
		if errors.Is(err, ports.ErrActivePolicyConflict) {
			return types.PolicyDocument{}, httperr.NewConflict(errActivePolicyConflict)
		}
		return types.PolicyDocument{}, err
	}
	return restored, nil
}

// Initialize seeds the given documents for models that have no active global
// document yet. Seeding a model that already has one is a no-op, not an
// error. Returns the models actually created.
func (s *VersionService) Initialize(ctx context.Context, docs []types.PolicyDocument, createdBy string) ([]string, error) {
	created := make([]string, 0, len(docs))
	for _, doc := range docs {
		_, err := s.policies.FindActive(ctx, doc.Model, doc.TenantID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ports.ErrPolicyNotFound) {
			return created, err
		}

		now := timeNow().UTC()
		id, err := newUUID()
		if err != nil {
			return created, err
		}
		doc.ID = id
		doc.Version = 1
		doc.IsActive = true
		if doc.Status == "" {
			doc.Status = types.PolicyStatusActive
		}
		doc.CreatedBy = createdBy
		doc.UpdatedBy = createdBy
		doc.ActivatedAt = &now

		if _, err := s.policies.Create(ctx, doc); err != nil {
			if errors.Is(err, ports.ErrActivePolicyConflict) {
				// Lost a seeding race; the document exists now.
				continue
			}
			return created, err
		}
		created = append(created, doc.Model)
	}
	return created, nil
}

// ListDocuments returns every stored document, newest version first.
func (s *VersionService) ListDocuments(ctx context.Context) ([]types.PolicyDocument, error) {
	return s.policies.List(ctx)
}

func mergeFields(current []types.FieldPermission, changes []types.FieldPermission) []types.FieldPermission {
	merged := append([]types.FieldPermission(nil), current...)
	for _, change := range changes {
		replaced := false
		for i := range merged {
			if merged[i].Name == change.Name {
				merged[i] = change
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, change)
		}
	}
	return merged
}

func mergeOperations(current []types.OperationPermission, changes []types.OperationPermission) []types.OperationPermission {
	merged := append([]types.OperationPermission(nil), current...)
	for _, change := range changes {
		replaced := false
		for i := range merged {
			if merged[i].Operation == change.Operation {
				merged[i] = change
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, change)
		}
	}
	return merged
}

func validateFields(changes []types.FieldPermission, _ []types.FieldPermission) error {
	seen := make(map[string]struct{}, len(changes))
	for _, field := range changes {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return httperr.NewBadRequest(errFieldNameRequired)
		}
		if _, dup := seen[name]; dup {
			return httperr.NewBadRequest(errFieldNameDuplicate)
		}
		seen[name] = struct{}{}
		for _, rules := range [][]types.AccessRule{field.CreatableBy, field.EditableBy, field.VisibleTo} {
			if err := validateRules(rules); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateOperations(changes []types.OperationPermission, _ []types.OperationPermission) error {
	seen := make(map[types.Operation]struct{}, len(changes))
	for _, op := range changes {
		if !op.Operation.Known() {
			return httperr.NewBadRequest(errOperationUnknown)
		}
		if _, dup := seen[op.Operation]; dup {
			return httperr.NewBadRequest(errOperationDuplicate)
		}
		seen[op.Operation] = struct{}{}
		if err := validateRules(op.Allowed); err != nil {
			return err
		}
	}
	return nil
}

func validateRules(rules []types.AccessRule) error {
	for _, rule := range rules {
		if rule.Condition == types.ConditionCustom {
			if err := CompileCondition(rule.CustomCondition); err != nil {
				return httperr.NewBadRequest(errCustomConditionInvalid)
			}
		}
	}
	return nil
}

func changesetDiff(changes PolicyChangeset) []types.FieldChange {
	diff := make([]types.FieldChange, 0, len(changes.Fields)+len(changes.Operations))
	for _, field := range changes.Fields {
		diff = append(diff, types.FieldChange{Field: "fields." + field.Name})
	}
	for _, op := range changes.Operations {
		diff = append(diff, types.FieldChange{Field: "operations." + string(op.Operation)})
	}
	return diff
}
