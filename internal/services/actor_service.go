package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
)

// ActorCache stores role snapshots between requests.
type ActorCache interface {
	Get(ctx context.Context, userID uint64) (*authz.Actor, bool, error)
	Set(ctx context.Context, actor *authz.Actor) error
	Invalidate(ctx context.Context, userIDs ...uint64) error
}

// ActorService builds the authorization snapshot of a user.
type ActorService struct {
	userRepo      repository.UserRepository
	workspaceRepo repository.WorkspaceRepository
	cache         ActorCache
}

// NewActorService creates a new ActorService. cache may be nil.
func NewActorService(userRepo repository.UserRepository, workspaceRepo repository.WorkspaceRepository, cache ActorCache) *ActorService {
	return &ActorService{
		userRepo:      userRepo,
		workspaceRepo: workspaceRepo,
		cache:         cache,
	}
}

// Load returns the actor for userID, from the cache when possible. Cache
// failures are logged and fall through to the database.
func (s *ActorService) Load(ctx context.Context, userID uint64) (*authz.Actor, error) {
	if s.cache != nil {
		actor, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Uint64("user_id", userID).Msg("actor cache read failed")
		}
		if ok {
			return actor, nil
		}
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupErr(err, ErrUserNotFound, "user")
	}

	memberships, err := s.workspaceRepo.ListMembersByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace memberships: %w", err)
	}
	teams, err := s.workspaceRepo.ListTeamMembershipsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team memberships: %w", err)
	}

	actor := &authz.Actor{
		UserID:          user.ID,
		IsPlatformAdmin: user.IsAdmin,
		WorkspaceRoles:  make(map[uint64]models.Role, len(memberships)),
		TeamRoles:       make(map[uint64]models.Role, len(teams)),
	}
	for _, m := range memberships {
		actor.WorkspaceRoles[m.WorkspaceID] = m.Role
	}
	for _, m := range teams {
		actor.TeamRoles[m.TeamID] = m.Role
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, actor); err != nil {
			log.Warn().Err(err).Uint64("user_id", userID).Msg("actor cache write failed")
		}
	}
	return actor, nil
}

// Invalidate forgets cached snapshots after a membership change.
func (s *ActorService) Invalidate(ctx context.Context, userIDs ...uint64) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userIDs...); err != nil {
		log.Warn().Err(err).Interface("user_ids", userIDs).Msg("actor cache invalidation failed")
	}
}
