package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/constants"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"gorm.io/datatypes"
)

var (
	ErrPreferenceNotFound   = notFound("preference")
	ErrInvalidPreferenceKey = invalid("preference key must be 1-100 characters")
	ErrInvalidPreference    = invalid("preference value must be valid JSON")
)

// PreferenceService stores per-user settings. Every call works on the
// actor's own preferences.
type PreferenceService struct {
	prefs repository.Store[models.UserPreference]
}

func NewPreferenceService(prefs repository.Store[models.UserPreference]) *PreferenceService {
	return &PreferenceService{prefs: prefs}
}

func (s *PreferenceService) ListPreferences(ctx context.Context, actor *authz.Actor) ([]models.UserPreference, error) {
	prefs, _, err := s.prefs.List(ctx, repository.Query{
		Where: map[string]interface{}{"user_id": actor.UserID},
		Order: "id ASC",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	return prefs, nil
}

func (s *PreferenceService) GetPreference(ctx context.Context, actor *authz.Actor, key string) (*models.UserPreference, error) {
	pref, err := s.prefs.FindOne(ctx, map[string]interface{}{"user_id": actor.UserID, "key": key})
	if err != nil {
		return nil, lookupErr(err, ErrPreferenceNotFound, "preference")
	}
	return pref, nil
}

// SetPreference creates or overwrites the value stored under key.
func (s *PreferenceService) SetPreference(ctx context.Context, actor *authz.Actor, key string, value json.RawMessage) (*models.UserPreference, error) {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > constants.MaxPreferenceKeyLength {
		return nil, ErrInvalidPreferenceKey
	}
	if len(value) == 0 || !json.Valid(value) {
		return nil, ErrInvalidPreference
	}

	pref := &models.UserPreference{
		UserID: actor.UserID,
		Key:    key,
		Value:  datatypes.JSON(value),
	}
	if err := s.prefs.Upsert(ctx, pref, []string{"user_id", "key"}, []string{"value", "updated_at"}); err != nil {
		return nil, fmt.Errorf("failed to save preference: %w", err)
	}
	return s.GetPreference(ctx, actor, key)
}

func (s *PreferenceService) DeletePreference(ctx context.Context, actor *authz.Actor, key string) error {
	n, err := s.prefs.DeleteWhere(ctx, map[string]interface{}{"user_id": actor.UserID, "key": key})
	if err != nil {
		return fmt.Errorf("failed to delete preference: %w", err)
	}
	if n == 0 {
		return ErrPreferenceNotFound
	}
	return nil
}
