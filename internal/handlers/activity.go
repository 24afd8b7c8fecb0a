package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/dto"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
)

// ActivityHandler lists the activity feed and the audit trail of a workspace.
type ActivityHandler struct {
	activityService *services.ActivityService
	eval            *authz.Evaluator
}

func NewActivityHandler(activityService *services.ActivityService, eval *authz.Evaluator) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
		eval:            eval,
	}
}

var logLoaded = graph.NewLoaded("user")

// activityFilter reads the optional subject_type/subject_id pair.
func activityFilter(c *gin.Context) (services.ActivityFilter, bool) {
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return services.ActivityFilter{}, false
	}
	params := pagination(c)
	filter := services.ActivityFilter{
		WorkspaceID: workspaceID,
		Page:        params.Page,
		PageSize:    params.Limit,
	}
	if c.Query("subject_type") != "" {
		subject, ok := refQuery(c, "subject")
		if !ok {
			return filter, false
		}
		filter.Subject = &subject
	}
	return filter, true
}

func (h *ActivityHandler) ListActivity(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	filter, ok := activityFilter(c)
	if !ok {
		return
	}

	logs, total, err := h.activityService.ListActivity(c.Request.Context(), actor, filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	pc := presentContext(actor, h.eval)
	items := mapItems(logs, func(l *models.ActivityLog) dto.ActivityLogDTO {
		return dto.ToActivityLogDTO(l, logLoaded, pc)
	})
	c.JSON(http.StatusOK, dto.NewListResponse(items, filter.Page, filter.PageSize, total))
}

// ListAudit returns the audit trail. Request details and value diffs are
// only shown to roles allowed to see them.
func (h *ActivityHandler) ListAudit(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	filter, ok := activityFilter(c)
	if !ok {
		return
	}

	logs, total, err := h.activityService.ListAudit(c.Request.Context(), actor, filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	pc := presentContext(actor, h.eval)
	items := mapItems(logs, func(l *models.AuditLog) dto.AuditLogDTO {
		return dto.ToAuditLogDTO(l, logLoaded, pc)
	})
	c.JSON(http.StatusOK, dto.NewListResponse(items, filter.Page, filter.PageSize, total))
}
