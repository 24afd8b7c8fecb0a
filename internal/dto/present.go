package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/constants"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
)

var ErrNothingToPresent = errors.New("nothing to present")

// Context carries who is looking and when. Sensitive fields are checked
// against Eval for Actor; computed fields use Now.
type Context struct {
	Actor *authz.Actor
	Eval  *authz.Evaluator
	Now   time.Time
}

func (pc Context) now() time.Time {
	if pc.Now.IsZero() {
		return time.Now()
	}
	return pc.Now
}

func (pc Context) canView(e models.Entity) bool {
	return pc.Eval != nil && pc.Eval.Can(pc.Actor, authz.ActionView, e)
}

func (pc Context) canField(e models.Entity, f authz.Field) bool {
	return pc.Eval != nil && pc.Eval.CanViewField(pc.Actor, e, f)
}

// Present projects a resolved node into its response shape. Relations appear
// only when the node reports them as loaded.
func Present(node *graph.Node, pc Context) (any, error) {
	if node == nil || node.Entity == nil {
		return nil, ErrNothingToPresent
	}
	l := node.Loaded

	switch e := node.Entity.(type) {
	case *models.User:
		return ToUserDetailDTO(e, l), nil
	case *models.Workspace:
		return ToWorkspaceDTO(e, l, pc), nil
	case *models.Team:
		return ToTeamDTO(e, l, pc), nil
	case *models.Project:
		return ToProjectDTO(e, l, pc), nil
	case *models.Task:
		d := ToTaskDTO(e, l, pc)
		d.FullPath, d.Depth = pathOf(node)
		return d, nil
	case *models.Tag:
		return ToTagDTO(e), nil
	case *models.Pipeline:
		return ToPipelineDTO(e, l), nil
	case *models.PipelineStatus:
		return ToPipelineStatusDTO(e, l), nil
	case *models.Goal:
		return ToGoalDTO(e, l, pc), nil
	case *models.Wiki:
		d := ToWikiDTO(e, l, pc)
		d.FullPath, d.Depth = pathOf(node)
		return d, nil
	case *models.Comment:
		d := ToCommentDTO(e, l, pc)
		d.FullPath, d.Depth = pathOf(node)
		d.Subject = subjectOf(node, pc)
		return d, nil
	case *models.Attachment:
		d := ToAttachmentDTO(e, l)
		d.Subject = subjectOf(node, pc)
		return d, nil
	case *models.Reaction:
		d := ToReactionDTO(e, l)
		d.Subject = subjectOf(node, pc)
		return d, nil
	case *models.Mention:
		d := ToMentionDTO(e, l)
		d.Subject = subjectOf(node, pc)
		return d, nil
	case *models.Conversation:
		return ToConversationDTO(e, l, pc), nil
	case *models.Message:
		return ToMessageDTO(e, l, pc), nil
	case *models.Invoice:
		return ToInvoiceDTO(e, pc), nil
	case *models.Setting:
		return ToSettingDTO(e, pc), nil
	case *models.Webhook:
		return ToWebhookDTO(e, l, pc), nil
	case *models.WebhookDelivery:
		return ToWebhookDeliveryDTO(e, l, pc), nil
	case *models.ActivityLog:
		d := ToActivityLogDTO(e, l, pc)
		d.Subject = subjectOf(node, pc)
		return d, nil
	case *models.AuditLog:
		d := ToAuditLogDTO(e, l, pc)
		d.Subject = subjectOf(node, pc)
		return d, nil
	case *models.RecurringTask:
		return ToRecurringTaskDTO(e, l, pc), nil
	case *models.UserPreference:
		return ToUserPreferenceDTO(e), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrNothingToPresent, node.Entity)
}

// pathOf fills full_path and depth when ancestors were loaded.
func pathOf(node *graph.Node) (Optional[string], Optional[int]) {
	path, ok := node.FullPath(constants.PathSeparator)
	if !ok {
		return Optional[string]{}, Optional[int]{}
	}
	return Some(path), Some(len(node.Ancestors))
}

// subjectOf renders the polymorphic owner shallowly. It is null when the
// owner is gone or the viewer may not see it.
func subjectOf(node *graph.Node, pc Context) Optional[any] {
	if !node.Loaded.Has("subject") {
		return Optional[any]{}
	}
	if node.Subject == nil || !pc.canView(node.Subject) {
		return Some[any](nil)
	}
	d, err := Present(graph.NewNode(node.Subject), pc)
	if err != nil {
		return Some[any](nil)
	}
	return Some(d)
}

func whenLoaded[T any](loaded graph.Loaded, name string, build func() T) Optional[T] {
	if !loaded.Has(name) {
		return Optional[T]{}
	}
	return Some(build())
}

func mapSlice[M, D any](items []M, fn func(*M) D) []D {
	out := make([]D, len(items))
	for i := range items {
		out[i] = fn(&items[i])
	}
	return out
}

func userOrNil(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	d := ToUserDTO(*u)
	return &d
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
