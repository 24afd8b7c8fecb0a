package authz

import "github.com/yukikurage/workspace-api/internal/models"

var (
	viewOnly   = []Action{ActionView}
	viewUpdate = []Action{ActionView, ActionUpdate}
	viewDelete = []Action{ActionView, ActionDelete}
	writes     = []Action{ActionUpdate, ActionDelete}
)

func covers(actions []Action, action Action) bool {
	if len(actions) == 0 {
		return true
	}
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

// typed adapts a rule written against a concrete model. Entities of another
// type abstain.
func typed[T models.Entity](fn func(a *Actor, action Action, e T) Decision) Rule {
	return func(a *Actor, action Action, e models.Entity) Decision {
		t, ok := e.(T)
		if !ok {
			return Abstain
		}
		return fn(a, action, t)
	}
}

// denyWhen refuses the actions whenever pred holds, whatever the role.
func denyWhen[T models.Entity](actions []Action, pred func(T) bool) Rule {
	return typed(func(_ *Actor, action Action, e T) Decision {
		if covers(actions, action) && pred(e) {
			return Deny
		}
		return Abstain
	})
}

// ownedBy allows the actions to the user named by the owner field.
func ownedBy[T models.Entity](owner func(T) uint64, actions ...Action) Rule {
	return typed(func(a *Actor, action Action, e T) Decision {
		if covers(actions, action) && owner(e) != 0 && owner(e) == a.UserID {
			return Allow
		}
		return Abstain
	})
}

// grantedBy allows the actions when the actor's role in the entity's
// workspace includes perm.
func grantedBy(perm Permission, actions ...Action) Rule {
	return func(a *Actor, action Action, e models.Entity) Decision {
		if covers(actions, action) && a.Has(e.ScopeWorkspaceID(), perm) {
			return Allow
		}
		return Abstain
	}
}

// grantedByTeam is grantedBy for the team the entity belongs to.
func grantedByTeam[T models.Entity](team func(T) *uint64, perm Permission, actions ...Action) Rule {
	return typed(func(a *Actor, action Action, e T) Decision {
		if covers(actions, action) && a.HasInTeam(team(e), perm) {
			return Allow
		}
		return Abstain
	})
}

// platformAdmin allows the actions on global records only.
func platformAdmin(actions ...Action) Rule {
	return func(a *Actor, action Action, e models.Entity) Decision {
		if covers(actions, action) && e.ScopeWorkspaceID() == nil && a.IsPlatformAdmin {
			return Allow
		}
		return Abstain
	}
}

func always[T models.Entity](T) bool { return true }

func defaultRules() map[models.EntityKind][]Rule {
	return map[models.EntityKind][]Rule{
		models.KindUser: {
			ownedBy(func(u *models.User) uint64 { return u.ID }, viewUpdate...),
			platformAdmin(),
			typed(func(a *Actor, action Action, u *models.User) Decision {
				if action != ActionView {
					return Abstain
				}
				for _, id := range a.WorkspaceIDs() {
					if u.SharesWorkspace(id) {
						return Allow
					}
				}
				return Abstain
			}),
		},
		models.KindUserPreference: {
			ownedBy(func(p *models.UserPreference) uint64 { return p.UserID }),
		},
		models.KindWorkspace: {
			grantedBy(PermViewContent, ActionView),
			grantedBy(PermManageWorkspace, ActionUpdate),
			grantedBy(PermDeleteWorkspace, ActionDelete),
		},
		models.KindTeam: {
			grantedBy(PermManageMembers),
			grantedByTeam(func(t *models.Team) *uint64 { return &t.ID }, PermManageMembers, viewUpdate...),
			grantedBy(PermViewContent, viewOnly...),
		},
		models.KindProject: {
			ownedBy(func(p *models.Project) uint64 { return p.OwnerID }),
			grantedBy(PermManageContent),
			grantedByTeam(func(p *models.Project) *uint64 { return p.TeamID }, PermManageContent),
			grantedBy(PermViewContent, viewOnly...),
		},
		models.KindTask: {
			ownedBy(func(t *models.Task) uint64 { return t.CreatorID }),
			grantedBy(PermManageContent),
			ownedBy(func(t *models.Task) uint64 { return deref(t.AssigneeID) }, viewUpdate...),
			grantedBy(PermViewContent, viewOnly...),
		},
		models.KindTag: {
			grantedBy(PermManageContent),
			grantedBy(PermViewContent, viewOnly...),
		},
		models.KindPipeline: {
			denyWhen([]Action{ActionDelete}, func(p *models.Pipeline) bool { return p.IsDefault }),
			grantedBy(PermManageContent),
			grantedBy(PermViewContent, viewOnly...),
		},
		models.KindPipelineStatus: {
			denyWhen([]Action{ActionDelete}, func(s *models.PipelineStatus) bool { return s.IsDefault }),
			grantedBy(PermManageContent),
			grantedBy(PermViewContent, viewOnly...),
		},
		models.KindGoal: {
			ownedBy(func(g *models.Goal) uint64 { return g.OwnerID }),
			grantedBy(PermManageContent),
			grantedByTeam(func(g *models.Goal) *uint64 { return g.TeamID }, PermManageContent),
			grantedBy(PermViewContent, viewOnly...),
		},
		models.KindWiki: {
			ownedBy(func(w *models.Wiki) uint64 { return w.AuthorID }),
			grantedBy(PermManageContent),
			grantedBy(PermViewContent, viewOnly...),
		},
		models.KindComment: {
			ownedBy(func(c *models.Comment) uint64 { return c.AuthorID }),
			grantedBy(PermManageContent, viewDelete...),
			grantedBy(PermViewContent, viewOnly...),
		},
		models.KindAttachment: {
			ownedBy(func(at *models.Attachment) uint64 { return at.UploaderID }, viewDelete...),
			grantedBy(PermManageContent, viewDelete...),
			grantedBy(PermViewContent, viewOnly...),
		},
		models.KindReaction: {
			ownedBy(func(r *models.Reaction) uint64 { return r.UserID }, viewDelete...),
			grantedBy(PermManageContent, viewDelete...),
			grantedBy(PermViewContent, viewOnly...),
		},
		models.KindMention: {
			ownedBy(func(m *models.Mention) uint64 { return m.UserID }, viewUpdate...),
			ownedBy(func(m *models.Mention) uint64 { return m.MentionedByID }, viewDelete...),
			grantedBy(PermManageContent, viewDelete...),
		},
		models.KindConversation: {
			typed(func(a *Actor, action Action, c *models.Conversation) Decision {
				p, ok := c.Participant(a.UserID)
				if !ok || !p.Active() {
					return Abstain
				}
				if action == ActionView || p.Role == models.RoleOwner || p.Role == models.RoleAdmin {
					return Allow
				}
				return Abstain
			}),
			grantedBy(PermManageWorkspace, viewDelete...),
		},
		models.KindMessage: {
			ownedBy(func(m *models.Message) uint64 { return m.SenderID }),
			typed(func(a *Actor, action Action, m *models.Message) Decision {
				if m.Conversation == nil {
					return Abstain
				}
				p, ok := m.Conversation.Participant(a.UserID)
				if !ok || !p.Active() {
					return Abstain
				}
				if action == ActionView {
					return Allow
				}
				if action == ActionDelete && (p.Role == models.RoleOwner || p.Role == models.RoleAdmin) {
					return Allow
				}
				return Abstain
			}),
			grantedBy(PermManageWorkspace, ActionDelete),
		},
		models.KindInvoice: {
			denyWhen([]Action{ActionDelete}, func(i *models.Invoice) bool { return i.Status == models.InvoiceStatusPaid }),
			grantedBy(PermManageBilling),
		},
		models.KindSetting: {
			denyWhen([]Action{ActionDelete}, func(s *models.Setting) bool { return s.IsSystem }),
			platformAdmin(),
			grantedBy(PermManageSettings),
			grantedBy(PermViewContent, viewOnly...),
		},
		models.KindWebhook: {
			grantedBy(PermManageWebhooks),
		},
		models.KindWebhookDelivery: {
			denyWhen([]Action{ActionUpdate}, always[*models.WebhookDelivery]),
			grantedBy(PermManageWebhooks, viewDelete...),
		},
		models.KindActivityLog: {
			denyWhen(writes, always[*models.ActivityLog]),
			platformAdmin(viewOnly...),
			ownedBy(func(l *models.ActivityLog) uint64 { return deref(l.UserID) }, viewOnly...),
			grantedBy(PermViewContent, viewOnly...),
		},
		models.KindAuditLog: {
			denyWhen(writes, always[*models.AuditLog]),
			platformAdmin(viewOnly...),
			grantedBy(PermViewAuditDetails, viewOnly...),
		},
		models.KindRecurringTask: {
			ownedBy(func(r *models.RecurringTask) uint64 { return r.CreatorID }),
			grantedBy(PermManageContent),
			grantedBy(PermViewContent, viewOnly...),
		},
	}
}

func deref(id *uint64) uint64 {
	if id == nil {
		return 0
	}
	return *id
}
