package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cleargate-io/cleargate/internal/routing"
	"github.com/cleargate-io/cleargate/modules/permission/domain/ports"
	"github.com/cleargate-io/cleargate/modules/permission/domain/types"
	"github.com/cleargate-io/cleargate/modules/permission/services"
	"github.com/cleargate-io/cleargate/pkg/authz"
	"github.com/cleargate-io/cleargate/pkg/httperr"
)

const defaultModel = "User"

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code string, msg string) {
	routing.WriteError(w, r, routing.RouteClassInternalAPI, status, code, msg)
}

// writeServiceError maps service-layer error kinds onto HTTP statuses.
// Unknown errors become an opaque 500; the caller treats that as deny.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case httperr.IsBadRequest(err):
		writeAPIError(w, r, http.StatusBadRequest, err.Error(), strings.ToLower(err.Error()))
	case httperr.IsNotFound(err):
		writeAPIError(w, r, http.StatusNotFound, err.Error(), strings.ToLower(err.Error()))
	case httperr.IsConflict(err):
		writeAPIError(w, r, http.StatusConflict, err.Error(), strings.ToLower(err.Error()))
	case httperr.IsForbidden(err):
		writeAPIError(w, r, http.StatusForbidden, err.Error(), strings.ToLower(err.Error()))
	default:
		writeAPIError(w, r, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func modelFromQuery(r *http.Request) string {
	model := strings.TrimSpace(r.URL.Query().Get("model"))
	if model == "" {
		return defaultModel
	}
	return model
}

func requirePrincipal(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	p, ok := currentPrincipal(r.Context())
	if !ok {
		writeAPIError(w, r, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return Principal{}, false
	}
	return p, true
}

func (d Deps) requireAdmin(w http.ResponseWriter, r *http.Request, object string, action string) (Principal, bool) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return Principal{}, false
	}
	if d.Gate == nil {
		writeAPIError(w, r, http.StatusInternalServerError, "authz_missing", "authorizer missing")
		return Principal{}, false
	}
	allowed, enforced, err := d.Gate.Authorize(authz.SubjectFromRole(p.Role), authz.DomainFromTenantID(p.TenantID), object, action)
	if err != nil {
		writeAPIError(w, r, http.StatusInternalServerError, "authz_error", "authz error")
		return Principal{}, false
	}
	if !allowed && enforced {
		writeAPIError(w, r, http.StatusForbidden, "forbidden", "forbidden")
		return Principal{}, false
	}
	return p, true
}

func handleGetUserPermissions(w http.ResponseWriter, r *http.Request, deps Deps) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	targetID := r.PathValue("userID")
	set, err := deps.Permissions.GetUserPermissions(r.Context(), p.ID, targetID, modelFromQuery(r), p.TenantID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, map[string]any{
		"permissions": set,
		"viewer":      map[string]string{"id": p.ID, "role": p.Role},
		"target_user": targetID,
	})
}

func handleFieldList(w http.ResponseWriter, r *http.Request, deps Deps, list func(*services.PermissionService, *http.Request, Principal) (services.FieldListResult, error)) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	result, err := list(deps.Permissions, r, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, result)
}

type checkOperationRequest struct {
	Operation string `json:"operation"`
	Model     string `json:"model"`
}

func handleCheckOperation(w http.ResponseWriter, r *http.Request, deps Deps) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req checkOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	op := types.Operation(strings.ToLower(strings.TrimSpace(req.Operation)))
	if !op.Known() {
		writeAPIError(w, r, http.StatusBadRequest, "OPERATION_UNKNOWN", "unknown operation")
		return
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = defaultModel
	}
	targetID := r.PathValue("userID")
	allowed, err := deps.Permissions.CanPerform(r.Context(), p.ID, targetID, op, model, p.TenantID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, map[string]any{
		"can_perform": allowed,
		"operation":   op,
		"model":       model,
		"viewer_id":   p.ID,
		"target_id":   targetID,
	})
}

func handleListSchemas(w http.ResponseWriter, r *http.Request, deps Deps) {
	if _, ok := deps.requireAdmin(w, r, authz.ObjectPermissionSchemas, authz.ActionRead); !ok {
		return
	}
	docs, err := deps.Versions.ListDocuments(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, map[string]any{
		"count":   len(docs),
		"schemas": docs,
	})
}

func handleSafeConfig(w http.ResponseWriter, r *http.Request, deps Deps) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	model := r.PathValue("model")
	doc, err := deps.Policies.FindActive(r.Context(), model, p.TenantID)
	if err != nil {
		if errors.Is(err, ports.ErrPolicyNotFound) {
			writeAPIError(w, r, http.StatusNotFound, "NO_POLICY_CONFIGURED", "no policy configured")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, services.SafeConfig(doc))
}

type createVersionRequest struct {
	Schema services.PolicyChangeset `json:"schema"`
	Status string                   `json:"status"`
}

func handleCreateVersion(w http.ResponseWriter, r *http.Request, deps Deps) {
	p, ok := deps.requireAdmin(w, r, authz.ObjectPermissionVersions, authz.ActionAdmin)
	if !ok {
		return
	}
	var req createVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	doc, err := deps.Versions.CreateNewVersion(r.Context(), r.PathValue("model"), req.Schema, p.ID, types.PolicyStatus(req.Status))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, map[string]any{"result": doc})
}

func handleRollback(w http.ResponseWriter, r *http.Request, deps Deps) {
	p, ok := deps.requireAdmin(w, r, authz.ObjectPermissionVersions, authz.ActionAdmin)
	if !ok {
		return
	}
	targetStatus := types.PolicyStatus(r.URL.Query().Get("target_status"))
	newStatus := types.PolicyStatus(r.URL.Query().Get("new_status"))
	doc, err := deps.Versions.Rollback(r.Context(), r.PathValue("model"), targetStatus, newStatus, p.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, map[string]any{"rollback": doc})
}

func handleInitializeSchemas(w http.ResponseWriter, r *http.Request, deps Deps) {
	p, ok := deps.requireAdmin(w, r, authz.ObjectPermissionVersions, authz.ActionAdmin)
	if !ok {
		return
	}
	seeds, err := services.LoadSeedDocuments(deps.SeedDir)
	if err != nil {
		writeAPIError(w, r, http.StatusInternalServerError, "seed_load_error", "seed load error")
		return
	}
	created, err := deps.Versions.Initialize(r.Context(), seeds, p.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusCreated, map[string]any{"created": created})
}
