// Package authz decides whether an actor may act on an entity. Evaluation is
// a pure function of the actor snapshot and the loaded entity.
package authz

import "github.com/yukikurage/workspace-api/internal/models"

type Permission int

const (
	PermViewContent Permission = iota
	PermCreateContent
	PermManageContent
	PermManageMembers
	PermManageWorkspace
	PermDeleteWorkspace
	PermManageBilling
	PermManageWebhooks
	PermManageSettings
	PermViewAuditDetails
	PermViewWebhookSecret
	PermViewSettingValue
)

var permissionNames = map[Permission]string{
	PermViewContent:       "view_content",
	PermCreateContent:     "create_content",
	PermManageContent:     "manage_content",
	PermManageMembers:     "manage_members",
	PermManageWorkspace:   "manage_workspace",
	PermDeleteWorkspace:   "delete_workspace",
	PermManageBilling:     "manage_billing",
	PermManageWebhooks:    "manage_webhooks",
	PermManageSettings:    "manage_settings",
	PermViewAuditDetails:  "view_audit_details",
	PermViewWebhookSecret: "view_webhook_secret",
	PermViewSettingValue:  "view_setting_value",
}

func (p Permission) String() string {
	if name, ok := permissionNames[p]; ok {
		return name
	}
	return "unknown"
}

type permissionSet map[Permission]struct{}

func setOf(perms ...Permission) permissionSet {
	s := make(permissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

func allPermissionsExcept(excluded ...Permission) permissionSet {
	s := make(permissionSet, len(permissionNames))
	for p := range permissionNames {
		s[p] = struct{}{}
	}
	for _, p := range excluded {
		delete(s, p)
	}
	return s
}

// capabilities is the role to permission table. Team roles use the same table
// within the team's scope.
var capabilities = map[models.Role]permissionSet{
	models.RoleOwner:       allPermissionsExcept(),
	models.RoleAdmin:       allPermissionsExcept(PermDeleteWorkspace),
	models.RoleManager:     setOf(PermViewContent, PermCreateContent, PermManageContent),
	models.RoleContributor: setOf(PermViewContent, PermCreateContent),
	models.RoleMember:      setOf(PermViewContent, PermCreateContent),
	models.RoleViewer:      setOf(PermViewContent),
}

// RoleHas reports whether role grants perm.
func RoleHas(role models.Role, perm Permission) bool {
	_, ok := capabilities[role][perm]
	return ok
}

// Permissions lists what role grants, in declaration order.
func Permissions(role models.Role) []Permission {
	var out []Permission
	for p := PermViewContent; p <= PermViewSettingValue; p++ {
		if RoleHas(role, p) {
			out = append(out, p)
		}
	}
	return out
}
