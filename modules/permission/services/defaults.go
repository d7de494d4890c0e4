package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cleargate-io/cleargate/modules/permission/domain/types"
	"github.com/cleargate-io/cleargate/pkg/httperr"
)

// DefaultPolicyFunc computes a minimal permission set for a model that has
// no policy document yet.
type DefaultPolicyFunc func(viewer types.User, target types.User, tenantID string) types.PermissionSet

// DefaultPolicyRegistry holds per-model fallbacks. Only models registered
// here may answer without a document; everything else fails loudly so a
// missing document never turns into silent permissiveness.
type DefaultPolicyRegistry struct {
	byModel map[string]DefaultPolicyFunc
}

func NewDefaultPolicyRegistry() *DefaultPolicyRegistry {
	r := &DefaultPolicyRegistry{byModel: map[string]DefaultPolicyFunc{}}
	r.Register("User", DefaultUserPermissions)
	return r
}

func (r *DefaultPolicyRegistry) Register(model string, fn DefaultPolicyFunc) {
	r.byModel[model] = fn
}

// Resolve answers the fallback for model, or NO_POLICY_CONFIGURED.
func (r *DefaultPolicyRegistry) Resolve(model string, viewer types.User, target types.User, tenantID string) (types.PermissionSet, error) {
	fn, ok := r.byModel[model]
	if !ok {
		return types.PermissionSet{}, httperr.NewNotFound(errNoPolicyConfigured)
	}
	return fn(viewer, target, tenantID), nil
}

// DefaultUserPermissions is the builtin User-model fallback. It mirrors the
// historical hardcoded matrix: self-service on profile fields, admin access
// within the same tenant, and a public name/picture surface for everyone
// else. isAdmin is a role check, not a level check.
func DefaultUserPermissions(viewer types.User, target types.User, tenantID string) types.PermissionSet {
	isSelf := viewer.ID == target.ID
	isAdmin := viewer.Role == types.RoleAdmin
	isSameTenant := tenantID == "" ||
		(viewer.TenantID != "" && viewer.TenantID == target.TenantID)

	set := types.PermissionSet{
		CanUpdate:    []string{},
		CanView:      []string{"name", "lastname", "profile_picture"},
		CanCreate:    []string{},
		Operations:   map[types.Operation]bool{},
		FieldConfigs: map[string]types.FieldConfig{},
		Context:      BuildContext(viewer, target),
	}

	switch {
	case isSelf:
		set.CanUpdate = []string{"name", "lastname", "profile_picture", "date_of_birth"}
	case isAdmin && isSameTenant:
		set.CanUpdate = []string{"name", "lastname", "email", "role", "status"}
	}

	if isSelf || (isAdmin && isSameTenant) {
		set.CanView = []string{"name", "lastname", "email", "role", "created_at", "profile_picture"}
	}

	set.Operations[types.OperationCreate] = isAdmin && isSameTenant
	set.Operations[types.OperationRead] = isSelf || (isAdmin && isSameTenant)
	set.Operations[types.OperationUpdate] = isSelf || (isAdmin && isSameTenant)
	set.Operations[types.OperationDelete] = isAdmin && isSameTenant && !isSelf

	set.FieldConfigs["name"] = types.FieldConfig{Label: "Nom", Type: types.FieldTypeText, Validation: types.FieldValidation{Required: true}}
	set.FieldConfigs["lastname"] = types.FieldConfig{Label: "Prénom", Type: types.FieldTypeText, Validation: types.FieldValidation{Required: true}}
	set.FieldConfigs["email"] = types.FieldConfig{Label: "Email", Type: types.FieldTypeEmail, Validation: types.FieldValidation{Required: true}}
	set.FieldConfigs["profile_picture"] = types.FieldConfig{Label: "Photo", Type: types.FieldTypeImage}

	return set
}

// seedDocument is the YAML shape of one policy seed file.
type seedDocument struct {
	Model      string                      `yaml:"model"`
	TenantID   string                      `yaml:"tenant_id"`
	Fields     []types.FieldPermission     `yaml:"fields"`
	Operations []types.OperationPermission `yaml:"operations"`
	Tags       []string                    `yaml:"tags"`
	Notes      string                      `yaml:"notes"`
}

// LoadSeedDocuments parses every *.yaml file under dir into version-1 active
// policy documents, sorted by model. Seeds are validated the same way as
// version changesets so a bad seed fails before it reaches the store.
func LoadSeedDocuments(dir string) ([]types.PolicyDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	out := make([]types.PolicyDocument, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		doc, err := ParseSeedDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		out = append(out, doc)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out, nil
}

// ParseSeedDocument parses one YAML seed into a version-1 active document.
func ParseSeedDocument(raw []byte) (types.PolicyDocument, error) {
	var seed seedDocument
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return types.PolicyDocument{}, err
	}
	if strings.TrimSpace(seed.Model) == "" {
		return types.PolicyDocument{}, fmt.Errorf("seed: model required")
	}
	if err := validateFields(seed.Fields, nil); err != nil {
		return types.PolicyDocument{}, err
	}
	if err := validateOperations(seed.Operations, nil); err != nil {
		return types.PolicyDocument{}, err
	}
	return types.PolicyDocument{
		Model:      strings.TrimSpace(seed.Model),
		TenantID:   strings.TrimSpace(seed.TenantID),
		Version:    1,
		IsActive:   true,
		Status:     types.PolicyStatusActive,
		Fields:     seed.Fields,
		Operations: seed.Operations,
		Tags:       seed.Tags,
		Notes:      seed.Notes,
	}, nil
}
