package types

// FieldConfig is the display/validation projection of a field that the
// calculator surfaces to callers for form rendering.
type FieldConfig struct {
	Label      string          `json:"label"`
	LabelAr    string          `json:"label_ar,omitempty"`
	Type       FieldType       `json:"type"`
	Validation FieldValidation `json:"validation,omitempty"`
	UI         FieldUI         `json:"ui,omitempty"`
}

// PermissionSet is the full result of one permission query: which fields the
// viewer may update, view, and create on the target, which operations are
// allowed, and the configs of the fields the viewer can see or create.
// An operation absent from Operations means deny.
type PermissionSet struct {
	CanUpdate    []string               `json:"can_update"`
	CanView      []string               `json:"can_view"`
	CanCreate    []string               `json:"can_create"`
	Operations   map[Operation]bool     `json:"operations"`
	FieldConfigs map[string]FieldConfig `json:"field_configs"`
	Context      EvaluationContext      `json:"context"`
}

// AllowsOperation reports whether op is present and allowed. Missing keys
// are deny, never "unspecified".
func (p PermissionSet) AllowsOperation(op Operation) bool {
	return p.Operations[op]
}

// User is the minimal principal snapshot the engine needs from the user
// directory collaborator.
type User struct {
	ID       string
	Role     Role
	TenantID string
}
