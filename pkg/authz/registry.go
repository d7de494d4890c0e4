package authz

const (
	RoleUser       = "user"
	RoleModerator  = "moderator"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
	RoleAnonymous  = "anonymous"
)

const (
	ActionRead  = "read"
	ActionAdmin = "admin"
)

const DomainGlobal = "global"

const (
	ObjectPermissionQueries  = "permission.queries"
	ObjectPermissionSchemas  = "permission.schemas"
	ObjectPermissionVersions = "permission.versions"
)
