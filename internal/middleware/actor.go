package middleware

import (
	"context"
	"errors"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/constants"
	apierrors "github.com/yukikurage/workspace-api/internal/errors"
	"github.com/yukikurage/workspace-api/internal/services"
)

// ActorLoader builds the role snapshot for a user.
type ActorLoader interface {
	Load(ctx context.Context, userID uint64) (*authz.Actor, error)
}

// Authenticate resolves the session user and their role snapshot once per
// request. Requests without a session get 401 and never reach the loader; a
// session pointing at a deleted user is cleared.
func Authenticate(actors ActorLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := toUserID(session.Get(constants.ContextKeyUserID))
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		actor, err := actors.Load(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				session.Clear()
				_ = session.Save()
				apierrors.Unauthorized(c, "Session is no longer valid")
				c.Abort()
				return
			}
			log.Error().Err(err).Uint64("user_id", userID).Msg("failed to load actor")
			apierrors.InternalErrorWithCause(c, "", err)
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, userID)
		c.Set(constants.ContextKeyActor, actor)
		c.Next()
	}
}

// GetUserID returns the user authenticated for this request.
func GetUserID(c *gin.Context) (uint64, bool) {
	v, _ := c.Get(constants.ContextKeyUserID)
	return toUserID(v)
}

// toUserID accepts the integer types a session codec may hand back.
func toUserID(v any) (uint64, bool) {
	switch id := v.(type) {
	case uint64:
		return id, id != 0
	case uint:
		return uint64(id), id != 0
	case int64:
		return uint64(id), id > 0
	case int:
		return uint64(id), id > 0
	}
	return 0, false
}

// GetActor returns the snapshot stored by Authenticate.
func GetActor(c *gin.Context) (*authz.Actor, bool) {
	v, exists := c.Get(constants.ContextKeyActor)
	if !exists {
		return nil, false
	}
	actor, ok := v.(*authz.Actor)
	return actor, ok && actor != nil
}

// RequestMeta copies the client address, user agent and URL into the request
// context so the audit trail can record them.
func RequestMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := services.WithRequestMeta(c.Request.Context(), services.RequestMeta{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			URL:       c.Request.URL.RequestURI(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
