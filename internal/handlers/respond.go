package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/dto"
	apierrors "github.com/yukikurage/workspace-api/internal/errors"
	"github.com/yukikurage/workspace-api/internal/middleware"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
	"github.com/yukikurage/workspace-api/internal/utils"
)

// respondServiceError maps a service error category to a status code. Causes
// of unexpected errors stay in the request log.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrValidation):
		apierrors.UnprocessableEntity(c, err.Error())
	case errors.Is(err, services.ErrConflict):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrUnavailable):
		apierrors.ServiceUnavailable(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c)
	default:
		apierrors.InternalErrorWithCause(c, "", err)
	}
}

// requireActor returns the request's actor or writes a 401.
func requireActor(c *gin.Context) (*authz.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return nil, false
	}
	return actor, true
}

// presentContext is what field gating needs to know about the request.
func presentContext(actor *authz.Actor, eval *authz.Evaluator) dto.Context {
	return dto.Context{Actor: actor, Eval: eval, Now: time.Now()}
}

// paramID parses a numeric route parameter or writes a 400.
func paramID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// workspaceParam returns the workspace from RequireWorkspaceAccess, falling
// back to the :id parameter.
func workspaceParam(c *gin.Context) (uint64, bool) {
	if id, ok := middleware.GetWorkspaceID(c); ok {
		return id, true
	}
	return paramID(c, "id")
}

// queryID parses an optional numeric query parameter. ok is false after a
// 400 has been written.
func queryID(c *gin.Context, name string) (id *uint64, ok bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid "+name)
		return nil, false
	}
	return &v, true
}

// bindJSON binds the request body or writes a 400.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return false
	}
	return true
}

func pagination(c *gin.Context) utils.PaginationParams {
	return utils.GetPaginationParams(c)
}

func mapItems[M any, D any](items []M, convert func(*M) D) []D {
	out := make([]D, len(items))
	for i := range items {
		out[i] = convert(&items[i])
	}
	return out
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
	c.Writer.WriteHeaderNow()
}

// refQuery builds a polymorphic reference from a pair of query parameters,
// e.g. subject_type=task&subject_id=7, or writes a 400.
func refQuery(c *gin.Context, prefix string) (models.Ref, bool) {
	return parseRef(c, c.Query(prefix+"_type"), c.Query(prefix+"_id"))
}

func parseRef(c *gin.Context, kind, rawID string) (models.Ref, bool) {
	k, err := models.ParseKind(kind)
	if err != nil {
		apierrors.BadRequest(c, "Invalid type")
		return models.Ref{}, false
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid id")
		return models.Ref{}, false
	}
	return models.Ref{Kind: k, ID: id}, true
}
