package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cleargate-io/cleargate/modules/permission/domain/ports"
	"github.com/cleargate-io/cleargate/modules/permission/domain/types"
)

type pgBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PolicyPGStore persists policy documents in permission.policy_documents
// (see db/migrations). A partial unique index on (model, tenant_uuid) where
// is_active enforces the single-active invariant at the database, so a
// racing activation surfaces as ErrActivePolicyConflict instead of two
// active rows.
type PolicyPGStore struct {
	pool pgBeginner
}

func NewPolicyPGStore(pool pgBeginner) ports.PolicyStore {
	return &PolicyPGStore{pool: pool}
}

const policyDocumentColumns = `
id::text, model, COALESCE(tenant_uuid::text, ''), version, is_active, status,
fields, operations, change_log, tags, COALESCE(notes, ''),
COALESCE(created_by::text, ''), COALESCE(updated_by::text, ''),
activated_at, deactivated_at, created_at, updated_at`

func (s *PolicyPGStore) FindActive(ctx context.Context, model string, tenantID string) (types.PolicyDocument, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.PolicyDocument{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	doc, err := scanPolicyDocument(tx.QueryRow(ctx, `
SELECT `+policyDocumentColumns+`
FROM permission.policy_documents
WHERE model = $1
  AND tenant_uuid IS NOT DISTINCT FROM NULLIF($2, '')::uuid
  AND is_active
ORDER BY version DESC
LIMIT 1
`, model, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.PolicyDocument{}, ports.ErrPolicyNotFound
		}
		return types.PolicyDocument{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return types.PolicyDocument{}, err
	}
	return doc, nil
}

func (s *PolicyPGStore) FindByVersion(ctx context.Context, model string, version int) (types.PolicyDocument, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.PolicyDocument{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	doc, err := scanPolicyDocument(tx.QueryRow(ctx, `
SELECT `+policyDocumentColumns+`
FROM permission.policy_documents
WHERE model = $1 AND tenant_uuid IS NULL AND version = $2
`, model, version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.PolicyDocument{}, ports.ErrVersionNotFound
		}
		return types.PolicyDocument{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return types.PolicyDocument{}, err
	}
	return doc, nil
}

func (s *PolicyPGStore) MaxVersion(ctx context.Context, model string) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var maxVersion int
	if err := tx.QueryRow(ctx, `
SELECT COALESCE(MAX(version), 0)
FROM permission.policy_documents
WHERE model = $1 AND tenant_uuid IS NULL
`, model).Scan(&maxVersion); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return maxVersion, nil
}

func (s *PolicyPGStore) List(ctx context.Context) ([]types.PolicyDocument, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, `
SELECT `+policyDocumentColumns+`
FROM permission.policy_documents
ORDER BY model ASC, version DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]types.PolicyDocument, 0)
	for rows.Next() {
		doc, err := scanPolicyDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PolicyPGStore) Create(ctx context.Context, doc types.PolicyDocument) (types.PolicyDocument, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.PolicyDocument{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	created, err := insertPolicyDocument(ctx, tx, doc)
	if err != nil {
		return types.PolicyDocument{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return types.PolicyDocument{}, err
	}
	return created, nil
}

func (s *PolicyPGStore) Replace(ctx context.Context, swap ports.ActivationSwap) (types.PolicyDocument, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.PolicyDocument{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	// Serializes concurrent version flips per model; two writers observing
	// the same "current" document queue up here instead of both winning.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('permission.policy:' || $1));`, swap.Model); err != nil {
		return types.PolicyDocument{}, err
	}

	fromLog, err := json.Marshal([]types.ChangeLogEntry{swap.FromChangeLog})
	if err != nil {
		return types.PolicyDocument{}, err
	}
	tag, err := tx.Exec(ctx, `
UPDATE permission.policy_documents
SET is_active = false,
    status = $2,
    deactivated_at = now(),
    change_log = change_log || $3::jsonb,
    updated_at = now()
WHERE id = $1::uuid AND is_active
`, swap.FromID, string(swap.FromStatus), fromLog)
	if err != nil {
		return types.PolicyDocument{}, err
	}
	if tag.RowsAffected() != 1 {
		// The document we meant to supersede is no longer the active one.
		return types.PolicyDocument{}, ports.ErrActivePolicyConflict
	}

	var result types.PolicyDocument
	switch {
	case swap.NewDocument != nil:
		result, err = insertPolicyDocument(ctx, tx, *swap.NewDocument)
		if err != nil {
			return types.PolicyDocument{}, err
		}
	case swap.ToID != "":
		toLog, err := json.Marshal([]types.ChangeLogEntry{swap.ToChangeLog})
		if err != nil {
			return types.PolicyDocument{}, err
		}
		result, err = scanPolicyDocument(tx.QueryRow(ctx, `
UPDATE permission.policy_documents
SET is_active = true,
    status = $2,
    activated_at = now(),
    deactivated_at = NULL,
    change_log = change_log || $3::jsonb,
    updated_at = now()
WHERE id = $1::uuid
RETURNING `+policyDocumentColumns+`
`, swap.ToID, string(swap.ToStatus), toLog))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return types.PolicyDocument{}, ports.ErrVersionNotFound
			}
			return types.PolicyDocument{}, err
		}
	default:
		return types.PolicyDocument{}, errors.New("policy store: activation swap needs a target")
	}

	if err := tx.Commit(ctx); err != nil {
		return types.PolicyDocument{}, err
	}
	return result, nil
}

func insertPolicyDocument(ctx context.Context, tx pgx.Tx, doc types.PolicyDocument) (types.PolicyDocument, error) {
	fields, err := json.Marshal(doc.Fields)
	if err != nil {
		return types.PolicyDocument{}, err
	}
	operations, err := json.Marshal(doc.Operations)
	if err != nil {
		return types.PolicyDocument{}, err
	}
	changeLog, err := json.Marshal(doc.ChangeLog)
	if err != nil {
		return types.PolicyDocument{}, err
	}

	created, err := scanPolicyDocument(tx.QueryRow(ctx, `
INSERT INTO permission.policy_documents
  (id, model, tenant_uuid, version, is_active, status, fields, operations,
   change_log, tags, notes, created_by, updated_by, activated_at)
VALUES
  ($1::uuid, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7::jsonb, $8::jsonb,
   $9::jsonb, $10, NULLIF($11, ''), NULLIF($12, '')::uuid, NULLIF($13, '')::uuid, $14)
RETURNING `+policyDocumentColumns+`
`, doc.ID, doc.Model, doc.TenantID, doc.Version, doc.IsActive, string(doc.Status),
		fields, operations, changeLog, doc.Tags, doc.Notes, doc.CreatedBy, doc.UpdatedBy,
		doc.ActivatedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return types.PolicyDocument{}, ports.ErrActivePolicyConflict
		}
		return types.PolicyDocument{}, err
	}
	return created, nil
}

func scanPolicyDocument(row pgx.Row) (types.PolicyDocument, error) {
	var doc types.PolicyDocument
	var status string
	var fields, operations, changeLog []byte
	if err := row.Scan(
		&doc.ID, &doc.Model, &doc.TenantID, &doc.Version, &doc.IsActive, &status,
		&fields, &operations, &changeLog, &doc.Tags, &doc.Notes,
		&doc.CreatedBy, &doc.UpdatedBy,
		&doc.ActivatedAt, &doc.DeactivatedAt, &doc.CreatedAt, &doc.UpdatedAt,
	); err != nil {
		return types.PolicyDocument{}, err
	}
	doc.Status = types.PolicyStatus(status)
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &doc.Fields); err != nil {
			return types.PolicyDocument{}, err
		}
	}
	if len(operations) > 0 {
		if err := json.Unmarshal(operations, &doc.Operations); err != nil {
			return types.PolicyDocument{}, err
		}
	}
	if len(changeLog) > 0 {
		if err := json.Unmarshal(changeLog, &doc.ChangeLog); err != nil {
			return types.PolicyDocument{}, err
		}
	}
	return doc, nil
}
