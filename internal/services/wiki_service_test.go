package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/testutil"
)

func TestPrepareWikiForInsert(t *testing.T) {
	tests := []struct {
		name  string
		wiki  models.Wiki
		taken []string
		want  string
	}{
		{"from title", models.Wiki{Title: "  Launch Plan "}, nil, "launch-plan"},
		{"explicit slug wins", models.Wiki{Title: "Launch Plan", Slug: "Plan B"}, nil, "plan-b"},
		{"deduplicated", models.Wiki{Title: "Launch Plan"}, []string{"launch-plan", "launch-plan-2"}, "launch-plan-3"},
		{"fallback", models.Wiki{Title: "!!!"}, nil, "page"},
		{"fallback deduplicated", models.Wiki{Title: "???"}, []string{"page"}, "page-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.wiki
			PrepareWikiForInsert(&w, tt.taken)
			assert.Equal(t, tt.want, w.Slug)
		})
	}
}

type WikiServiceTestSuite struct {
	ServiceTestSuite
	svc *WikiService
}

func (s *WikiServiceTestSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.svc = NewWikiService(repository.NewWikiRepository(s.db), s.resolver, s.activity, s.eval)
}

func TestWikiServiceTestSuite(t *testing.T) {
	suite.Run(t, new(WikiServiceTestSuite))
}

func (s *WikiServiceTestSuite) create(title string, parentID *uint64) *models.Wiki {
	wiki, err := s.svc.CreateWiki(s.ctx, s.actor(s.member), CreateWikiInput{WorkspaceID: s.ws.ID, Title: title, ParentID: parentID})
	s.Require().NoError(err)
	return wiki
}

func (s *WikiServiceTestSuite) TestCreateWiki_UniqueSlugs() {
	first := s.create("Handbook", nil)
	second := s.create("Handbook", nil)
	s.Equal("handbook", first.Slug)
	s.Equal("handbook-2", second.Slug)

	// soft-deleted pages keep their slug reserved
	s.Require().NoError(s.svc.DeleteWiki(s.ctx, s.actor(s.member), second.ID))
	third := s.create("Handbook", nil)
	s.Equal("handbook-3", third.Slug)

	_, err := s.svc.CreateWiki(s.ctx, s.actor(s.viewer), CreateWikiInput{WorkspaceID: s.ws.ID, Title: "x"})
	s.ErrorIs(err, ErrForbidden)
}

func (s *WikiServiceTestSuite) TestGetWikiBySlug() {
	wiki := s.create("Onboarding", nil)

	got, err := s.svc.GetWikiBySlug(s.ctx, s.actor(s.viewer), s.ws.ID, "onboarding")
	s.Require().NoError(err)
	s.Equal(wiki.ID, got.ID)

	_, err = s.svc.GetWikiBySlug(s.ctx, s.actor(s.outsider), s.ws.ID, "onboarding")
	s.ErrorIs(err, ErrWikiNotFound)
	_, err = s.svc.GetWikiBySlug(s.ctx, s.actor(s.viewer), s.ws.ID, "missing")
	s.ErrorIs(err, ErrWikiNotFound)
}

func (s *WikiServiceTestSuite) TestListWikis() {
	root := s.create("Root", nil)
	s.create("Child A", &root.ID)
	s.create("Child B", &root.ID)

	roots, err := s.svc.ListWikis(s.ctx, s.actor(s.viewer), s.ws.ID, nil)
	s.Require().NoError(err)
	s.Len(roots, 1)

	children, err := s.svc.ListWikis(s.ctx, s.actor(s.viewer), s.ws.ID, &root.ID)
	s.Require().NoError(err)
	s.Len(children, 2)
	s.Equal("Child A", children[0].Title)
}

func (s *WikiServiceTestSuite) TestUpdateWiki() {
	a := s.create("Alpha", nil)
	b := s.create("Beta", nil)

	slug := "Alpha"
	_, err := s.svc.UpdateWiki(s.ctx, s.actor(s.member), b.ID, UpdateWikiInput{Slug: &slug})
	s.ErrorIs(err, ErrSlugTaken)

	content := "# Hello"
	published := true
	updated, err := s.svc.UpdateWiki(s.ctx, s.actor(s.member), a.ID, UpdateWikiInput{Content: &content, IsPublished: &published})
	s.Require().NoError(err)
	s.Equal("# Hello", updated.Content)
	s.True(updated.IsPublished)

	// another plain member is neither author nor manager
	other := testutil.CreateUser(s.T(), s.db, "other")
	testutil.AddMember(s.T(), s.db, s.ws, other, models.RoleMember)
	_, err = s.svc.UpdateWiki(s.ctx, s.actor(other), a.ID, UpdateWikiInput{Content: &content})
	s.ErrorIs(err, ErrForbidden)
}

func (s *WikiServiceTestSuite) TestMoveWiki() {
	root := s.create("Root", nil)
	child := s.create("Child", &root.ID)
	grandchild := s.create("Grandchild", &child.ID)

	_, err := s.svc.MoveWiki(s.ctx, s.actor(s.member), root.ID, &grandchild.ID)
	s.ErrorIs(err, ErrWikiCycle)

	otherWS := testutil.CreateWorkspace(s.T(), s.db, "Other", s.member)
	foreign := testutil.CreateWiki(s.T(), s.db, otherWS, s.member, "Foreign", nil)
	_, err = s.svc.MoveWiki(s.ctx, s.actor(s.member), child.ID, &foreign.ID)
	s.ErrorIs(err, ErrWikiScopeMismatch)

	moved, err := s.svc.MoveWiki(s.ctx, s.actor(s.member), grandchild.ID, nil)
	s.Require().NoError(err)
	s.Nil(moved.ParentID)
}

func (s *WikiServiceTestSuite) TestDeleteWiki_RemovesSubtree() {
	root := s.create("Root", nil)
	child := s.create("Child", &root.ID)
	s.create("Grandchild", &child.ID)
	keep := s.create("Keep", nil)

	s.Require().NoError(s.svc.DeleteWiki(s.ctx, s.actor(s.member), root.ID))

	var remaining []models.Wiki
	s.Require().NoError(s.db.Where("workspace_id = ?", s.ws.ID).Find(&remaining).Error)
	s.Require().Len(remaining, 1)
	s.Equal(keep.ID, remaining[0].ID)
}
