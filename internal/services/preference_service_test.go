package services

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
)

type PreferenceServiceTestSuite struct {
	ServiceTestSuite
	svc *PreferenceService
}

func (s *PreferenceServiceTestSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.svc = NewPreferenceService(repository.NewStore[models.UserPreference](s.db))
}

func TestPreferenceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PreferenceServiceTestSuite))
}

func (s *PreferenceServiceTestSuite) TestSetPreference_Upserts() {
	member := s.actor(s.member)

	first, err := s.svc.SetPreference(s.ctx, member, "theme", json.RawMessage(`"dark"`))
	s.Require().NoError(err)
	s.JSONEq(`"dark"`, string(first.Value))

	second, err := s.svc.SetPreference(s.ctx, member, " theme ", json.RawMessage(`{"mode":"light","contrast":2}`))
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.JSONEq(`{"mode":"light","contrast":2}`, string(second.Value))
	s.Equal(int64(1), s.countRows(&models.UserPreference{}, map[string]interface{}{"user_id": s.member.ID}))
}

func (s *PreferenceServiceTestSuite) TestSetPreference_Validation() {
	member := s.actor(s.member)

	_, err := s.svc.SetPreference(s.ctx, member, "", json.RawMessage(`1`))
	s.ErrorIs(err, ErrInvalidPreferenceKey)
	_, err = s.svc.SetPreference(s.ctx, member, strings.Repeat("k", 101), json.RawMessage(`1`))
	s.ErrorIs(err, ErrInvalidPreferenceKey)
	_, err = s.svc.SetPreference(s.ctx, member, "theme", json.RawMessage(`{broken`))
	s.ErrorIs(err, ErrInvalidPreference)
	_, err = s.svc.SetPreference(s.ctx, member, "theme", nil)
	s.ErrorIs(err, ErrInvalidPreference)
}

func (s *PreferenceServiceTestSuite) TestPreferencesArePerUser() {
	_, err := s.svc.SetPreference(s.ctx, s.actor(s.member), "theme", json.RawMessage(`"dark"`))
	s.Require().NoError(err)
	_, err = s.svc.SetPreference(s.ctx, s.actor(s.member), "locale", json.RawMessage(`"de"`))
	s.Require().NoError(err)

	_, err = s.svc.GetPreference(s.ctx, s.actor(s.viewer), "theme")
	s.ErrorIs(err, ErrPreferenceNotFound)
	s.ErrorIs(s.svc.DeletePreference(s.ctx, s.actor(s.viewer), "theme"), ErrPreferenceNotFound)

	prefs, err := s.svc.ListPreferences(s.ctx, s.actor(s.member))
	s.Require().NoError(err)
	s.Require().Len(prefs, 2)
	s.Equal("theme", prefs[0].Key)

	s.Require().NoError(s.svc.DeletePreference(s.ctx, s.actor(s.member), "theme"))
	_, err = s.svc.GetPreference(s.ctx, s.actor(s.member), "theme")
	s.ErrorIs(err, ErrPreferenceNotFound)
}
