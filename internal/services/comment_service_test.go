package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/testutil"
	"github.com/yukikurage/workspace-api/internal/webhooks"
)

func TestMentionedUsernames(t *testing.T) {
	tests := []struct {
		body string
		want []string
	}{
		{"hi @alice and @bob", []string{"alice", "bob"}},
		{"@alice @alice again", []string{"alice"}},
		{"ping @carol.", []string{"carol"}},
		{"mail me at dave@example.com", nil},
		{"@@eve and @frank-2", []string{"frank-2"}},
		{"no mentions here", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MentionedUsernames(tt.body), tt.body)
	}
}

type CommentServiceTestSuite struct {
	ServiceTestSuite
	svc  *CommentService
	task *models.Task
}

func (s *CommentServiceTestSuite) SetupTest() {
	s.ServiceTestSuite.SetupTest()
	s.svc = NewCommentService(
		repository.NewCommentRepository(s.db),
		repository.NewStore[models.Reaction](s.db),
		repository.NewStore[models.Mention](s.db),
		s.users,
		s.workspaces,
		s.resolver,
		s.activity,
		s.eval,
	)
	s.task = testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "discuss")
}

func TestCommentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CommentServiceTestSuite))
}

func (s *CommentServiceTestSuite) comment(user *models.User, body string, parentID *uint64) *models.Comment {
	c, err := s.svc.CreateComment(s.ctx, s.actor(user), CreateCommentInput{Subject: s.task.EntityRef(), ParentID: parentID, Body: body})
	s.Require().NoError(err)
	return c
}

func (s *CommentServiceTestSuite) TestCreateComment_RecordsMentions() {
	body := "@" + s.viewer.Username + " and @" + s.outsider.Username + " and @" + s.member.Username + " and @nobody"
	c := s.comment(s.member, body, nil)

	s.Equal(s.member.ID, c.AuthorID)
	s.Require().NotNil(c.Author)
	// outsiders, unknown names and the author are skipped
	s.Require().Len(c.Mentions, 1)
	s.Equal(s.viewer.ID, c.Mentions[0].UserID)
	s.Contains(s.events.names(), webhooks.EventCommentCreated)

	mentions, total, err := s.svc.ListMentions(s.ctx, s.actor(s.viewer), true, 1, 20)
	s.Require().NoError(err)
	s.Equal(int64(1), total)

	read, err := s.svc.MarkMentionRead(s.ctx, s.actor(s.viewer), mentions[0].ID)
	s.Require().NoError(err)
	s.True(read.IsRead)
	s.NotNil(read.ReadAt)

	_, err = s.svc.MarkMentionRead(s.ctx, s.actor(s.member), mentions[0].ID)
	s.ErrorIs(err, ErrForbidden)

	_, total, err = s.svc.ListMentions(s.ctx, s.actor(s.viewer), true, 1, 20)
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *CommentServiceTestSuite) TestCreateComment_Validation() {
	_, err := s.svc.CreateComment(s.ctx, s.actor(s.member), CreateCommentInput{Subject: s.task.EntityRef(), Body: "  "})
	s.ErrorIs(err, ErrCommentBodyRequired)

	_, err = s.svc.CreateComment(s.ctx, s.actor(s.member), CreateCommentInput{Subject: models.Ref{Kind: models.KindInvoice, ID: 1}, Body: "x"})
	s.ErrorIs(err, ErrNotCommentable)

	_, err = s.svc.CreateComment(s.ctx, s.actor(s.member), CreateCommentInput{Subject: models.Ref{Kind: models.KindTask, ID: 9999}, Body: "x"})
	s.ErrorIs(err, ErrCommentSubjectNotFound)

	_, err = s.svc.CreateComment(s.ctx, s.actor(s.outsider), CreateCommentInput{Subject: s.task.EntityRef(), Body: "x"})
	s.ErrorIs(err, ErrCommentSubjectNotFound)

	_, err = s.svc.CreateComment(s.ctx, s.actor(s.viewer), CreateCommentInput{Subject: s.task.EntityRef(), Body: "x"})
	s.ErrorIs(err, ErrForbidden)
}

func (s *CommentServiceTestSuite) TestReplies() {
	parent := s.comment(s.member, "first", nil)
	reply := s.comment(s.owner, "reply", &parent.ID)
	s.Equal(parent.ID, *reply.ParentID)

	otherTask := testutil.CreateTask(s.T(), s.db, s.ws, s.owner, "elsewhere")
	_, err := s.svc.CreateComment(s.ctx, s.actor(s.member), CreateCommentInput{Subject: otherTask.EntityRef(), ParentID: &parent.ID, Body: "lost"})
	s.ErrorIs(err, ErrReplyElsewhere)

	missing := uint64(9999)
	_, err = s.svc.CreateComment(s.ctx, s.actor(s.member), CreateCommentInput{Subject: s.task.EntityRef(), ParentID: &missing, Body: "x"})
	s.ErrorIs(err, ErrParentCommentNotFound)
}

func (s *CommentServiceTestSuite) TestUpdateComment() {
	c := s.comment(s.member, "hello @"+s.viewer.Username, nil)

	updated, err := s.svc.UpdateComment(s.ctx, s.actor(s.member), c.ID, "hello @"+s.owner.Username)
	s.Require().NoError(err)
	s.NotNil(updated.EditedAt)

	var mentions []models.Mention
	s.Require().NoError(s.db.Where("mentionable_type = ? AND mentionable_id = ?", models.KindComment, c.ID).Find(&mentions).Error)
	s.Require().Len(mentions, 1)
	s.Equal(s.owner.ID, mentions[0].UserID)

	_, err = s.svc.UpdateComment(s.ctx, s.actor(s.viewer), c.ID, "vandalism")
	s.ErrorIs(err, ErrForbidden)
}

func (s *CommentServiceTestSuite) TestUpdateComment_KeepsReadMentions() {
	c := s.comment(s.member, "hello @"+s.viewer.Username, nil)
	mentions, _, err := s.svc.ListMentions(s.ctx, s.actor(s.viewer), true, 1, 20)
	s.Require().NoError(err)
	s.Require().Len(mentions, 1)
	_, err = s.svc.MarkMentionRead(s.ctx, s.actor(s.viewer), mentions[0].ID)
	s.Require().NoError(err)

	_, err = s.svc.UpdateComment(s.ctx, s.actor(s.member), c.ID, "hello again @"+s.viewer.Username+" and @"+s.owner.Username)
	s.Require().NoError(err)

	var rows []models.Mention
	s.Require().NoError(s.db.Where("mentionable_type = ? AND mentionable_id = ?", models.KindComment, c.ID).Order("id").Find(&rows).Error)
	s.Require().Len(rows, 2)
	s.Equal(mentions[0].ID, rows[0].ID)
	s.True(rows[0].IsRead)
	s.Equal(s.owner.ID, rows[1].UserID)
	s.False(rows[1].IsRead)

	_, total, err := s.svc.ListMentions(s.ctx, s.actor(s.viewer), true, 1, 20)
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *CommentServiceTestSuite) TestUpdateComment_RollsBackOnMentionFailure() {
	c := s.comment(s.member, "hello @"+s.viewer.Username, nil)
	s.Require().NoError(s.db.Exec(`CREATE TRIGGER reject_mentions BEFORE INSERT ON mentions BEGIN SELECT RAISE(ABORT, 'mentions are read-only'); END`).Error)

	_, err := s.svc.UpdateComment(s.ctx, s.actor(s.member), c.ID, "bye @"+s.owner.Username)
	s.Error(err)

	var stored models.Comment
	s.Require().NoError(s.db.First(&stored, c.ID).Error)
	s.Equal("hello @"+s.viewer.Username, stored.Body)
	s.Nil(stored.EditedAt)
	s.Equal(int64(1), s.countRows(&models.Mention{}, map[string]interface{}{"mentionable_id": c.ID, "user_id": s.viewer.ID}))
}

func (s *CommentServiceTestSuite) TestDeleteComment_RemovesThread() {
	parent := s.comment(s.member, "first", nil)
	reply := s.comment(s.owner, "reply @"+s.member.Username, &parent.ID)
	_, added, err := s.svc.ToggleReaction(s.ctx, s.actor(s.viewer), reply.EntityRef(), "thumbs_up")
	s.Require().NoError(err)
	s.True(added)

	s.ErrorIs(s.svc.DeleteComment(s.ctx, s.actor(s.viewer), parent.ID), ErrForbidden)
	s.Require().NoError(s.svc.DeleteComment(s.ctx, s.actor(s.member), parent.ID))

	comments, total, err := s.svc.ListComments(s.ctx, s.actor(s.viewer), s.task.EntityRef(), 1, 20)
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(comments)
	s.Zero(s.countRows(&models.Reaction{}, map[string]interface{}{"reactable_id": reply.ID}))
	s.Zero(s.countRows(&models.Mention{}, map[string]interface{}{"mentionable_id": reply.ID}))
}

func (s *CommentServiceTestSuite) TestToggleReaction() {
	c := s.comment(s.member, "react to me", nil)

	r, added, err := s.svc.ToggleReaction(s.ctx, s.actor(s.viewer), c.EntityRef(), " heart ")
	s.Require().NoError(err)
	s.True(added)
	s.Equal("heart", r.Type)

	_, added, err = s.svc.ToggleReaction(s.ctx, s.actor(s.viewer), c.EntityRef(), "heart")
	s.Require().NoError(err)
	s.False(added)
	s.Zero(s.countRows(&models.Reaction{}, map[string]interface{}{"reactable_id": c.ID}))

	_, _, err = s.svc.ToggleReaction(s.ctx, s.actor(s.viewer), s.task.EntityRef(), "heart")
	s.ErrorIs(err, ErrNotReactable)

	_, _, err = s.svc.ToggleReaction(s.ctx, s.actor(s.outsider), c.EntityRef(), "heart")
	s.ErrorIs(err, ErrReactionTargetNotFound)
}

func (s *CommentServiceTestSuite) TestListComments_Order() {
	first := s.comment(s.member, "one", nil)
	s.comment(s.owner, "two", nil)

	comments, total, err := s.svc.ListComments(s.ctx, s.actor(s.viewer), s.task.EntityRef(), 1, 20)
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Equal(first.ID, comments[0].ID)
	s.Require().NotNil(comments[0].Author)
}
