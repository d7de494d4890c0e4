package services

import "github.com/cleargate-io/cleargate/modules/permission/domain/types"

// SafeFieldView is the wire-safe projection of one field: display and
// validation metadata only, no rule internals.
type SafeFieldView struct {
	Name       string                `json:"name"`
	Label      string                `json:"label"`
	LabelAr    string                `json:"label_ar,omitempty"`
	Type       types.FieldType       `json:"type"`
	Validation types.FieldValidation `json:"validation,omitempty"`
	UI         types.FieldUI         `json:"ui,omitempty"`
}

// SafeRuleView strips a rule down to role and condition kind. Custom
// expressions stay server-side.
type SafeRuleView struct {
	Role      types.Role          `json:"role"`
	Condition types.ConditionKind `json:"condition"`
}

// SafeOperationView is the wire-safe projection of one operation entry.
type SafeOperationView struct {
	Operation types.Operation `json:"operation"`
	Allowed   []SafeRuleView  `json:"allowed"`
}

// SafeConfigView is a policy document reduced to what a frontend needs to
// render forms: no custom expressions, no changelog, no audit metadata.
type SafeConfigView struct {
	Model      string              `json:"model"`
	Fields     []SafeFieldView     `json:"fields"`
	Operations []SafeOperationView `json:"operations"`
}

// SafeConfig projects doc into its frontend-safe view.
func SafeConfig(doc types.PolicyDocument) SafeConfigView {
	view := SafeConfigView{
		Model:      doc.Model,
		Fields:     make([]SafeFieldView, 0, len(doc.Fields)),
		Operations: make([]SafeOperationView, 0, len(doc.Operations)),
	}
	for _, field := range doc.Fields {
		view.Fields = append(view.Fields, SafeFieldView{
			Name:       field.Name,
			Label:      field.Label,
			LabelAr:    field.LabelAr,
			Type:       field.Type,
			Validation: field.Validation,
			UI:         field.UI,
		})
	}
	for _, op := range doc.Operations {
		rules := make([]SafeRuleView, 0, len(op.Allowed))
		for _, rule := range op.Allowed {
			rules = append(rules, SafeRuleView{Role: rule.Role, Condition: rule.Condition})
		}
		view.Operations = append(view.Operations, SafeOperationView{Operation: op.Operation, Allowed: rules})
	}
	return view
}
