package types

import "time"

// Operation is the closed set of document-level operations a policy can gate.
type Operation string

const (
	OperationCreate  Operation = "create"
	OperationRead    Operation = "read"
	OperationUpdate  Operation = "update"
	OperationDelete  Operation = "delete"
	OperationExport  Operation = "export"
	OperationImport  Operation = "import"
	OperationApprove Operation = "approve"
	OperationReject  Operation = "reject"
)

// Known reports whether op is part of the operation vocabulary.
func (op Operation) Known() bool {
	switch op {
	case OperationCreate, OperationRead, OperationUpdate, OperationDelete,
		OperationExport, OperationImport, OperationApprove, OperationReject:
		return true
	default:
		return false
	}
}

// PolicyStatus is the lifecycle tag of a policy document version.
type PolicyStatus string

const (
	PolicyStatusActive   PolicyStatus = "active"
	PolicyStatusStable   PolicyStatus = "stable"
	PolicyStatusFlawed   PolicyStatus = "flawed"
	PolicyStatusArchived PolicyStatus = "archived"
)

func (s PolicyStatus) Known() bool {
	switch s {
	case PolicyStatusActive, PolicyStatusStable, PolicyStatusFlawed, PolicyStatusArchived:
		return true
	default:
		return false
	}
}

// FieldType is the UI rendering kind of a field.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeEmail       FieldType = "email"
	FieldTypePassword    FieldType = "password"
	FieldTypeNumber      FieldType = "number"
	FieldTypeTel         FieldType = "tel"
	FieldTypeDate        FieldType = "date"
	FieldTypeDatetime    FieldType = "datetime"
	FieldTypeTextarea    FieldType = "textarea"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiselect FieldType = "multiselect"
	FieldTypeCheckbox    FieldType = "checkbox"
	FieldTypeRadio       FieldType = "radio"
	FieldTypeFile        FieldType = "file"
	FieldTypeImage       FieldType = "image"
	FieldTypeRichtext    FieldType = "richtext"
)

// FieldOption is one choice of a select/multiselect/radio field.
type FieldOption struct {
	Value   string `json:"value" yaml:"value"`
	Label   string `json:"label" yaml:"label"`
	LabelAr string `json:"label_ar,omitempty" yaml:"label_ar,omitempty"`
}

// FieldValidation carries the declarative validation block of a field.
// The engine persists and projects it; enforcement belongs to callers.
type FieldValidation struct {
	Required        bool          `json:"required,omitempty" yaml:"required,omitempty"`
	RequiredMessage string        `json:"required_message,omitempty" yaml:"required_message,omitempty"`
	MinLength       *int          `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength       *int          `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Min             *float64      `json:"min,omitempty" yaml:"min,omitempty"`
	Max             *float64      `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern         string        `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	PatternMessage  string        `json:"pattern_message,omitempty" yaml:"pattern_message,omitempty"`
	Options         []FieldOption `json:"options,omitempty" yaml:"options,omitempty"`
	FileTypes       []string      `json:"file_types,omitempty" yaml:"file_types,omitempty"`
	MaxFileSize     *int64        `json:"max_file_size,omitempty" yaml:"max_file_size,omitempty"`
}

// FieldDependency gates a field's UI visibility on another field's value.
type FieldDependency struct {
	Field    string `json:"field" yaml:"field"`
	Value    any    `json:"value" yaml:"value"`
	Operator string `json:"operator,omitempty" yaml:"operator,omitempty"`
}

// FieldUI is the layout metadata block of a field.
type FieldUI struct {
	Order         int              `json:"order,omitempty" yaml:"order,omitempty"`
	Group         string           `json:"group,omitempty" yaml:"group,omitempty"`
	GroupLabel    string           `json:"group_label,omitempty" yaml:"group_label,omitempty"`
	GroupLabelAr  string           `json:"group_label_ar,omitempty" yaml:"group_label_ar,omitempty"`
	Placeholder   string           `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	PlaceholderAr string           `json:"placeholder_ar,omitempty" yaml:"placeholder_ar,omitempty"`
	HelpText      string           `json:"help_text,omitempty" yaml:"help_text,omitempty"`
	HelpTextAr    string           `json:"help_text_ar,omitempty" yaml:"help_text_ar,omitempty"`
	Readonly      bool             `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Hidden        bool             `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	DependsOn     *FieldDependency `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	ColSpan       int              `json:"col_span,omitempty" yaml:"col_span,omitempty"`
}

// FieldPermission declares who may create, edit, and view a single field.
// Name is unique within a document's field list.
type FieldPermission struct {
	Name        string          `json:"name" yaml:"name"`
	Label       string          `json:"label" yaml:"label"`
	LabelAr     string          `json:"label_ar,omitempty" yaml:"label_ar,omitempty"`
	Type        FieldType       `json:"type" yaml:"type"`
	CreatableBy []AccessRule    `json:"creatable_by,omitempty" yaml:"creatable_by,omitempty"`
	EditableBy  []AccessRule    `json:"editable_by,omitempty" yaml:"editable_by,omitempty"`
	VisibleTo   []AccessRule    `json:"visible_to,omitempty" yaml:"visible_to,omitempty"`
	Validation  FieldValidation `json:"validation,omitempty" yaml:"validation,omitempty"`
	UI          FieldUI         `json:"ui,omitempty" yaml:"ui,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
}

// OperationCondition is a declarative pre-condition on an operation.
// Persisted and projected; not evaluated by this engine.
type OperationCondition struct {
	Field    string `json:"field" yaml:"field"`
	Value    any    `json:"value" yaml:"value"`
	Operator string `json:"operator,omitempty" yaml:"operator,omitempty"`
}

// PostAction is a declarative follow-up hook of an operation.
type PostAction struct {
	Type   string         `json:"type" yaml:"type"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// OperationPermission declares who may perform one document-level operation.
// At most one entry per operation name exists within a document.
type OperationPermission struct {
	Operation     Operation            `json:"operation" yaml:"operation"`
	Allowed       []AccessRule         `json:"allowed" yaml:"allowed"`
	PreConditions []OperationCondition `json:"pre_conditions,omitempty" yaml:"pre_conditions,omitempty"`
	PostActions   []PostAction         `json:"post_actions,omitempty" yaml:"post_actions,omitempty"`
}

// FieldChange records one field-level diff inside a changelog entry.
type FieldChange struct {
	Field    string `json:"field" yaml:"field"`
	OldValue any    `json:"old_value,omitempty" yaml:"old_value,omitempty"`
	NewValue any    `json:"new_value,omitempty" yaml:"new_value,omitempty"`
}

// ChangeLogEntry is one append-only audit record on a policy document.
type ChangeLogEntry struct {
	Version   int           `json:"version" yaml:"version"`
	ChangedAt time.Time     `json:"changed_at" yaml:"changed_at"`
	ChangedBy string        `json:"changed_by,omitempty" yaml:"changed_by,omitempty"`
	Changes   []FieldChange `json:"changes,omitempty" yaml:"changes,omitempty"`
	Reason    string        `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// PolicyDocument is one versioned permission schema for (model, tenant).
// TenantID "" means the global default document. For a given (model, tenant)
// at most one version is active at a time; superseded versions persist in
// archived/flawed status for audit and rollback.
type PolicyDocument struct {
	ID            string                `json:"id"`
	Model         string                `json:"model"`
	TenantID      string                `json:"tenant_id,omitempty"`
	Version       int                   `json:"version"`
	IsActive      bool                  `json:"is_active"`
	Status        PolicyStatus          `json:"status"`
	Fields        []FieldPermission     `json:"fields"`
	Operations    []OperationPermission `json:"operations"`
	ChangeLog     []ChangeLogEntry      `json:"change_log,omitempty"`
	Tags          []string              `json:"tags,omitempty"`
	Notes         string                `json:"notes,omitempty"`
	CreatedBy     string                `json:"created_by,omitempty"`
	UpdatedBy     string                `json:"updated_by,omitempty"`
	ActivatedAt   *time.Time            `json:"activated_at,omitempty"`
	DeactivatedAt *time.Time            `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// Field returns the field permission named name, or nil.
func (d *PolicyDocument) Field(name string) *FieldPermission {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i]
		}
	}
	return nil
}

// OperationEntry returns the operation permission for op, or nil.
func (d *PolicyDocument) OperationEntry(op Operation) *OperationPermission {
	for i := range d.Operations {
		if d.Operations[i].Operation == op {
			return &d.Operations[i]
		}
	}
	return nil
}

// IsGlobal reports whether the document is tenant-unscoped.
func (d *PolicyDocument) IsGlobal() bool { return d.TenantID == "" }
