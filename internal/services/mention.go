package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"gorm.io/gorm"
)

var mentionPattern = regexp.MustCompile(`(?:^|[^\w@])@([A-Za-z0-9_.\-]+)`)

// MentionedUsernames returns the distinct @usernames in body in order of
// first appearance.
func MentionedUsernames(body string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range mentionPattern.FindAllStringSubmatch(body, -1) {
		name := strings.TrimRight(m[1], ".-")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// mentioner turns @usernames into Mention rows for workspace members.
type mentioner struct {
	users      repository.UserRepository
	workspaces repository.WorkspaceRepository
	mentions   repository.Store[models.Mention]
}

// recipients resolves the @usernames in body to members of workspaceID other
// than the author, in order of first mention. Unknown names and outsiders are
// skipped.
func (m *mentioner) recipients(ctx context.Context, actor *authz.Actor, workspaceID uint64, body string) ([]uint64, error) {
	var ids []uint64
	for _, name := range MentionedUsernames(body) {
		user, err := m.users.FindByUsername(ctx, name)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find mentioned user: %w", err)
		}
		if user.ID == actor.UserID {
			continue
		}
		if _, err := m.workspaces.FindMember(ctx, workspaceID, user.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to verify mentioned user: %w", err)
		}
		ids = append(ids, user.ID)
	}
	return ids, nil
}

// record stores a mention of target for every recipient in body.
func (m *mentioner) record(ctx context.Context, actor *authz.Actor, target models.Ref, workspaceID uint64, body string) ([]models.Mention, error) {
	ids, err := m.recipients(ctx, actor, workspaceID, body)
	if err != nil {
		return nil, err
	}
	out := make([]models.Mention, 0, len(ids))
	for _, id := range ids {
		mention := newMention(actor, target, workspaceID, id)
		if err := m.mentions.Create(ctx, &mention); err != nil {
			return nil, fmt.Errorf("failed to create mention: %w", err)
		}
		out = append(out, mention)
	}
	return out, nil
}

// diff compares the recipients of body with the mentions target already
// has. Existing rows for users still named are left alone so their read
// state survives an edit.
func (m *mentioner) diff(ctx context.Context, actor *authz.Actor, target models.Ref, workspaceID uint64, body string) ([]models.Mention, []uint64, error) {
	ids, err := m.recipients(ctx, actor, workspaceID, body)
	if err != nil {
		return nil, nil, err
	}

	var current []uint64
	err = m.mentions.Pluck(ctx, "user_id", repository.Query{
		Where: map[string]interface{}{"mentionable_type": target.Kind, "mentionable_id": target.ID},
	}, &current)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load mentions: %w", err)
	}

	had := make(map[uint64]bool, len(current))
	for _, id := range current {
		had[id] = true
	}
	wanted := make(map[uint64]bool, len(ids))
	var added []models.Mention
	for _, id := range ids {
		wanted[id] = true
		if !had[id] {
			added = append(added, newMention(actor, target, workspaceID, id))
		}
	}
	var removed []uint64
	for _, id := range current {
		if !wanted[id] {
			removed = append(removed, id)
		}
	}
	return added, removed, nil
}

func newMention(actor *authz.Actor, target models.Ref, workspaceID, userID uint64) models.Mention {
	return models.Mention{
		WorkspaceID:     workspaceID,
		MentionableType: target.Kind,
		MentionableID:   target.ID,
		UserID:          userID,
		MentionedByID:   actor.UserID,
	}
}
