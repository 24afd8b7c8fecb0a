package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/constants"
	apierrors "github.com/yukikurage/workspace-api/internal/errors"
)

// RequireWorkspaceAccess checks that the actor belongs to the workspace named
// by the :id route parameter. Must run after Authenticate.
func RequireWorkspaceAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid workspace ID")
			c.Abort()
			return
		}

		actor, ok := GetActor(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		// Return 404 instead of 403 to avoid leaking workspace existence
		role, member := actor.WorkspaceRole(workspaceID)
		if !member {
			apierrors.NotFound(c, "Workspace not found")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyWorkspace, workspaceID)
		c.Set(constants.ContextKeyMember, role)
		c.Next()
	}
}

// RequireWorkspacePermission rejects members whose role lacks perm. Must run
// after RequireWorkspaceAccess.
func RequireWorkspacePermission(perm authz.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID, ok := GetWorkspaceID(c)
		if !ok {
			apierrors.Forbidden(c, "Workspace access required")
			c.Abort()
			return
		}

		actor, _ := GetActor(c)
		if !actor.Has(&workspaceID, perm) {
			apierrors.Forbidden(c, "Your role does not allow this action")
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetWorkspaceID returns the workspace checked by RequireWorkspaceAccess.
func GetWorkspaceID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get(constants.ContextKeyWorkspace)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
