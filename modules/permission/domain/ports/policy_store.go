package ports

import (
	"context"
	"errors"

	"github.com/cleargate-io/cleargate/modules/permission/domain/types"
)

var (
	ErrPolicyNotFound  = errors.New("policy_not_found")
	ErrVersionNotFound = errors.New("policy_version_not_found")
	ErrUserNotFound    = errors.New("user_not_found")

	// ErrActivePolicyConflict signals that the single-active-per-(model,tenant)
	// invariant was violated at activation time. It is loud on purpose.
	ErrActivePolicyConflict = errors.New("active_policy_conflict")
)

// PolicyStore is the durable policy document store the engine depends on.
// Implementations must enforce at most one active document per (model,
// tenant) at the point of activation, not rely on caller sequencing.
type PolicyStore interface {
	// FindActive returns the active document for (model, tenantID).
	// tenantID "" addresses the global default document.
	FindActive(ctx context.Context, model string, tenantID string) (types.PolicyDocument, error)

	// FindByVersion returns the global document for (model, version)
	// regardless of its active flag.
	FindByVersion(ctx context.Context, model string, version int) (types.PolicyDocument, error)

	// MaxVersion returns the highest version ever recorded for model across
	// all statuses, or 0 when no document exists.
	MaxVersion(ctx context.Context, model string) (int, error)

	// List returns every document, newest version first per model.
	List(ctx context.Context) ([]types.PolicyDocument, error)

	// Create persists a new document. When doc.IsActive is set the store
	// must reject the write with ErrActivePolicyConflict if another active
	// document exists for the same (model, tenant).
	Create(ctx context.Context, doc types.PolicyDocument) (types.PolicyDocument, error)

	// Replace swaps activation between two versions of one model in a single
	// transaction: deactivate the document with fromID (stamping status and
	// deactivatedAt), create-or-activate the to document, and append the
	// given changelog entries to each side.
	Replace(ctx context.Context, swap ActivationSwap) (types.PolicyDocument, error)
}

// ActivationSwap describes one transactional activation flip.
type ActivationSwap struct {
	Model string

	// Deactivate side: the currently active document.
	FromID        string
	FromStatus    types.PolicyStatus
	FromChangeLog types.ChangeLogEntry

	// Activate side: either an existing document to reactivate (ToID set)
	// or a brand-new document to create already active (NewDocument set).
	ToID        string
	ToStatus    types.PolicyStatus
	ToChangeLog types.ChangeLogEntry
	NewDocument *types.PolicyDocument
}
