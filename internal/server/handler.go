package server

import (
	"net/http"

	"github.com/cleargate-io/cleargate/modules/permission/domain/ports"
	"github.com/cleargate-io/cleargate/modules/permission/services"
	"github.com/cleargate-io/cleargate/pkg/authz"
)

// AdminGate decides whether a subject may touch the policy-administration
// surface. *authz.Authorizer satisfies it.
type AdminGate interface {
	Authorize(subject string, domain string, object string, action string) (allowed bool, enforced bool, err error)
}

type Deps struct {
	Permissions *services.PermissionService
	Versions    *services.VersionService
	Policies    ports.PolicyStore
	Gate        AdminGate
	SeedDir     string
}

// NewMux assembles the HTTP surface. Every route runs behind the principal
// middleware; admin routes additionally pass through the authorizer.
func NewMux(deps Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("GET /api/permissions/users/{userID}", func(w http.ResponseWriter, r *http.Request) {
		handleGetUserPermissions(w, r, deps)
	})
	mux.HandleFunc("GET /api/permissions/users/{userID}/fields/editable", func(w http.ResponseWriter, r *http.Request) {
		handleFieldList(w, r, deps, func(s *services.PermissionService, r *http.Request, p Principal) (services.FieldListResult, error) {
			return s.GetEditableFields(r.Context(), p.ID, r.PathValue("userID"), modelFromQuery(r), p.TenantID)
		})
	})
	mux.HandleFunc("GET /api/permissions/users/{userID}/fields/viewable", func(w http.ResponseWriter, r *http.Request) {
		handleFieldList(w, r, deps, func(s *services.PermissionService, r *http.Request, p Principal) (services.FieldListResult, error) {
			return s.GetViewableFields(r.Context(), p.ID, r.PathValue("userID"), modelFromQuery(r), p.TenantID)
		})
	})
	mux.HandleFunc("GET /api/permissions/users/{userID}/fields/creatable", func(w http.ResponseWriter, r *http.Request) {
		handleFieldList(w, r, deps, func(s *services.PermissionService, r *http.Request, p Principal) (services.FieldListResult, error) {
			return s.GetCreatableFields(r.Context(), p.ID, r.PathValue("userID"), modelFromQuery(r), p.TenantID)
		})
	})
	mux.HandleFunc("POST /api/permissions/users/{userID}/check-operation", func(w http.ResponseWriter, r *http.Request) {
		handleCheckOperation(w, r, deps)
	})

	mux.HandleFunc("GET /api/permissions/schemas", func(w http.ResponseWriter, r *http.Request) {
		handleListSchemas(w, r, deps)
	})
	mux.HandleFunc("POST /api/permissions/schemas/initialize", func(w http.ResponseWriter, r *http.Request) {
		handleInitializeSchemas(w, r, deps)
	})
	mux.HandleFunc("GET /api/permissions/schemas/{model}/safe-config", func(w http.ResponseWriter, r *http.Request) {
		handleSafeConfig(w, r, deps)
	})
	mux.HandleFunc("POST /api/permissions/schemas/{model}/versions", func(w http.ResponseWriter, r *http.Request) {
		handleCreateVersion(w, r, deps)
	})
	mux.HandleFunc("POST /api/permissions/schemas/{model}/rollback", func(w http.ResponseWriter, r *http.Request) {
		handleRollback(w, r, deps)
	})

	return withPrincipalMiddleware(mux)
}

var _ AdminGate = (*authz.Authorizer)(nil)
