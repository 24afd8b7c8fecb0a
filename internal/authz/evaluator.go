package authz

import (
	"fmt"

	"github.com/yukikurage/workspace-api/internal/models"
)

type Action string

const (
	ActionView   Action = "view"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionView, ActionUpdate, ActionDelete:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Decision is the outcome of a single rule.
type Decision int

const (
	Abstain Decision = iota
	Allow
	Deny
)

// Rule inspects one aspect of an entity. Rules for a kind run in order and
// the first Allow or Deny decides; if every rule abstains the answer is no.
type Rule func(a *Actor, action Action, e models.Entity) Decision

// Evaluator holds the ordered rule list of every kind.
type Evaluator struct {
	rules map[models.EntityKind][]Rule
}

// NewEvaluator returns an evaluator with the standard rule table.
func NewEvaluator() *Evaluator {
	return &Evaluator{rules: defaultRules()}
}

// Can reports whether a may perform action on e. Records inside a workspace
// are closed to non-members before any rule runs, whatever their ownership.
func (ev *Evaluator) Can(a *Actor, action Action, e models.Entity) bool {
	if a == nil || e == nil {
		return false
	}
	if ws := e.ScopeWorkspaceID(); ws != nil && !a.IsMember(*ws) {
		return false
	}
	for _, rule := range ev.rules[e.EntityRef().Kind] {
		switch rule(a, action, e) {
		case Allow:
			return true
		case Deny:
			return false
		}
	}
	return false
}

// createPermission overrides PermCreateContent for kinds that need more.
var createPermission = map[models.EntityKind]Permission{
	models.KindTeam:           PermManageMembers,
	models.KindPipeline:       PermManageContent,
	models.KindPipelineStatus: PermManageContent,
	models.KindInvoice:        PermManageBilling,
	models.KindWebhook:        PermManageWebhooks,
	models.KindSetting:        PermManageSettings,
}

// CanCreate reports whether a may create a record of kind inside
// workspaceID (nil for global records). Viewers never create.
func (ev *Evaluator) CanCreate(a *Actor, kind models.EntityKind, workspaceID *uint64) bool {
	if a == nil {
		return false
	}

	switch kind {
	case models.KindWorkspace, models.KindUserPreference:
		return true
	case models.KindUser:
		return a.IsPlatformAdmin
	case models.KindActivityLog, models.KindAuditLog, models.KindWebhookDelivery:
		// written by the system only
		return false
	}

	if workspaceID == nil {
		return kind == models.KindSetting && a.IsPlatformAdmin
	}

	role, ok := a.WorkspaceRole(*workspaceID)
	if !ok || role == models.RoleViewer {
		return false
	}

	perm, ok := createPermission[kind]
	if !ok {
		perm = PermCreateContent
	}
	return RoleHas(role, perm)
}

// Field names a sensitive attribute gated separately from the entity.
type Field string

const (
	FieldIPAddress     Field = "ip_address"
	FieldUserAgent     Field = "user_agent"
	FieldOldValues     Field = "old_values"
	FieldNewValues     Field = "new_values"
	FieldWebhookSecret Field = "secret"
	FieldSettingValue  Field = "value"
)

// CanViewField reports whether a may see field of e. It does not imply that
// a may view e itself.
func (ev *Evaluator) CanViewField(a *Actor, e models.Entity, field Field) bool {
	if a == nil || e == nil {
		return false
	}

	switch field {
	case FieldIPAddress, FieldUserAgent, FieldOldValues, FieldNewValues:
		switch e.(type) {
		case *models.ActivityLog, *models.AuditLog:
			return a.Has(e.ScopeWorkspaceID(), PermViewAuditDetails)
		}
	case FieldWebhookSecret:
		if _, ok := e.(*models.Webhook); ok {
			return a.Has(e.ScopeWorkspaceID(), PermViewWebhookSecret)
		}
	case FieldSettingValue:
		if s, ok := e.(*models.Setting); ok {
			return !s.IsSecret || a.Has(s.ScopeWorkspaceID(), PermViewSettingValue)
		}
	}
	return false
}

// CanManageParticipants reports whether a may add or remove people in conv.
// conv must have its participants loaded.
func (ev *Evaluator) CanManageParticipants(a *Actor, conv *models.Conversation) bool {
	if a == nil || conv == nil || !a.IsMember(conv.WorkspaceID) {
		return false
	}
	p, ok := conv.Participant(a.UserID)
	return ok && p.Active() && (p.Role == models.RoleOwner || p.Role == models.RoleAdmin)
}

// CanUpdateParticipant reports whether a may change targetUserID's
// participation. Participants may update their own row until they have left;
// a left row is only reopened by someone who manages the conversation.
func (ev *Evaluator) CanUpdateParticipant(a *Actor, conv *models.Conversation, targetUserID uint64) bool {
	if a == nil || conv == nil || !a.IsMember(conv.WorkspaceID) {
		return false
	}
	if a.UserID == targetUserID {
		if p, ok := conv.Participant(a.UserID); ok && p.Active() {
			return true
		}
	}
	return ev.CanManageParticipants(a, conv)
}
