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
	"gorm.io/gorm/clause"
)

var (
	ErrSettingNotFound   = notFound("setting")
	ErrInvalidSettingKey = invalid("setting keys use lowercase letters, digits, dots and underscores")
)

var settingKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_.]{0,99}$`)

type SettingService struct {
	settings repository.Store[models.Setting]
	activity *ActivityService
	eval     *authz.Evaluator
}

func NewSettingService(settings repository.Store[models.Setting], activity *ActivityService, eval *authz.Evaluator) *SettingService {
	return &SettingService{settings: settings, activity: activity, eval: eval}
}

// SetSettingInput writes a workspace setting, or a global one when
// WorkspaceID is nil.
type SetSettingInput struct {
	WorkspaceID *uint64
	Key         string
	Value       string
	IsSecret    *bool
}

func scopeWhere(workspaceID *uint64, key string) map[string]interface{} {
	where := map[string]interface{}{"workspace_id": nil, "key": key}
	if workspaceID != nil {
		where["workspace_id"] = *workspaceID
	}
	return where
}

// SetSetting creates the setting or overwrites its value
func (s *SettingService) SetSetting(ctx context.Context, actor *authz.Actor, input SetSettingInput) (*models.Setting, error) {
	key := strings.TrimSpace(input.Key)
	if !settingKeyPattern.MatchString(key) {
		return nil, ErrInvalidSettingKey
	}

	setting, err := s.settings.FindOne(ctx, scopeWhere(input.WorkspaceID, key))
	switch {
	case err == nil:
		if err := authorize(s.eval, actor, authz.ActionUpdate, setting, ErrSettingNotFound); err != nil {
			return nil, err
		}
		setting.Value = input.Value
		if input.IsSecret != nil {
			setting.IsSecret = *input.IsSecret
		}
		setting.UpdatedByID = &actor.UserID
		if err := s.settings.Update(ctx, setting); err != nil {
			return nil, fmt.Errorf("failed to update setting: %w", err)
		}
		s.activity.Track(ctx, Change{Actor: actor, Entity: setting, Action: "updated", New: map[string]any{"key": key}})
		return setting, nil

	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to find setting: %w", err)
	}

	if err := authorizeCreate(s.eval, actor, models.KindSetting, input.WorkspaceID); err != nil {
		return nil, err
	}
	setting = &models.Setting{
		WorkspaceID: input.WorkspaceID,
		Key:         key,
		Value:       input.Value,
		IsSecret:    input.IsSecret != nil && *input.IsSecret,
		UpdatedByID: &actor.UserID,
	}
	if err := s.settings.Create(ctx, setting); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, conflict("setting was created concurrently, retry")
		}
		return nil, fmt.Errorf("failed to create setting: %w", err)
	}

	// values are left out of the trail since they may be secret
	s.activity.Track(ctx, Change{Actor: actor, Entity: setting, Action: "created", New: map[string]any{"key": key}})
	return setting, nil
}

// GetSetting reads one setting
func (s *SettingService) GetSetting(ctx context.Context, actor *authz.Actor, workspaceID *uint64, key string) (*models.Setting, error) {
	setting, err := s.settings.FindOne(ctx, scopeWhere(workspaceID, key))
	if err != nil {
		return nil, lookupErr(err, ErrSettingNotFound, "setting")
	}
	if err := authorize(s.eval, actor, authz.ActionView, setting, ErrSettingNotFound); err != nil {
		return nil, err
	}
	return setting, nil
}

// ListSettings lists the settings of a scope by key
func (s *SettingService) ListSettings(ctx context.Context, actor *authz.Actor, workspaceID *uint64) ([]models.Setting, error) {
	if workspaceID != nil && !actor.Has(workspaceID, authz.PermViewContent) {
		return nil, ErrWorkspaceNotFound
	}
	if workspaceID == nil && !actor.IsPlatformAdmin {
		return nil, forbidden("only platform admins can list global settings")
	}

	where := map[string]interface{}{"workspace_id": nil}
	if workspaceID != nil {
		where["workspace_id"] = *workspaceID
	}
	settings, _, err := s.settings.List(ctx, repository.Query{Where: where, Order: clause.OrderByColumn{Column: clause.Column{Name: "key"}}})
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return settings, nil
}

// DeleteSetting removes a setting; system settings are refused
func (s *SettingService) DeleteSetting(ctx context.Context, actor *authz.Actor, settingID uint64) error {
	setting, err := s.settings.FindByID(ctx, settingID)
	if err != nil {
		return lookupErr(err, ErrSettingNotFound, "setting")
	}
	if err := authorize(s.eval, actor, authz.ActionDelete, setting, ErrSettingNotFound); err != nil {
		return err
	}
	if err := s.settings.Delete(ctx, setting); err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	s.activity.Track(ctx, Change{Actor: actor, Entity: setting, Action: "deleted", Old: map[string]any{"key": setting.Key}})
	return nil
}
