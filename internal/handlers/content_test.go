package handlers

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/workspace-api/internal/models"
)

type ContentHandlerTestSuite struct {
	HandlerTestSuite
}

func TestContentHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ContentHandlerTestSuite))
}

func (s *ContentHandlerTestSuite) TestPipelines() {
	w := s.do(http.MethodPost, s.wsPath("/pipelines"), s.member, map[string]any{"name": "Board", "statuses": []string{"Todo"}})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, s.wsPath("/pipelines"), s.owner, map[string]any{"name": "Board"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, s.wsPath("/pipelines"), s.owner, map[string]any{"name": "Board", "statuses": []string{"Todo", " ", "Doing"}})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	body := s.decode(w)
	pipelineID := jsonID(body["id"])
	statuses, ok := body["statuses"].([]any)
	s.Require().True(ok)
	s.Require().Len(statuses, 2)
	todo := statuses[0].(map[string]any)
	doing := statuses[1].(map[string]any)
	s.Equal(true, todo["is_default"])

	w = s.do(http.MethodPost, idPath("/api/pipelines", pipelineID, "/statuses"), s.owner, map[string]any{"name": "Done"})
	s.Require().Equal(http.StatusCreated, w.Code)
	s.EqualValues(2, s.decode(w)["position"])

	w = s.do(http.MethodGet, s.wsPath("/pipelines"), s.viewer, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decodeList(w), 1)

	w = s.do(http.MethodPost, "/api/tasks", s.member, map[string]any{"workspace_id": s.ws.ID, "title": "card"})
	s.Require().Equal(http.StatusCreated, w.Code)
	taskID := jsonID(s.decode(w)["id"])

	place := idPath("/api/pipelines", pipelineID, "/tasks/"+strconv.FormatUint(taskID, 10))
	w = s.do(http.MethodPut, place, s.member, map[string]any{"status_id": jsonID(doing["id"]), "order": 1})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPut, place, s.member, map[string]any{"status_id": 999999})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodDelete, idPath("/api/pipeline-statuses", jsonID(todo["id"]), ""), s.owner, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, idPath("/api/pipeline-statuses", jsonID(doing["id"]), ""), s.owner, nil)
	s.Equal(http.StatusConflict, w.Code)

	w = s.do(http.MethodDelete, idPath("/api/pipelines", pipelineID, ""), s.owner, nil)
	s.Equal(http.StatusNoContent, w.Code)
}

func (s *ContentHandlerTestSuite) TestWikis() {
	w := s.do(http.MethodPost, s.wsPath("/wikis"), s.member, map[string]any{"title": "Getting Started", "content": "hello"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	root := s.decode(w)
	s.Equal("getting-started", root["slug"])
	rootID := jsonID(root["id"])

	w = s.do(http.MethodPost, s.wsPath("/wikis"), s.member, map[string]any{"title": "Getting started", "parent_id": rootID})
	s.Require().Equal(http.StatusCreated, w.Code)
	child := s.decode(w)
	s.Equal("getting-started-2", child["slug"])
	s.Equal(false, child["is_root"])
	childID := jsonID(child["id"])

	w = s.do(http.MethodGet, s.wsPath("/wikis"), s.viewer, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decodeList(w), 1)

	w = s.do(http.MethodGet, s.wsPath("/wikis?parent_id="+strconv.FormatUint(rootID, 10)), s.viewer, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decodeList(w), 1)

	w = s.do(http.MethodGet, s.wsPath("/wikis/getting-started-2"), s.viewer, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(childID, jsonID(s.decode(w)["id"]))

	w = s.do(http.MethodGet, s.wsPath("/wikis/nope"), s.viewer, nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, idPath("/api/wikis", rootID, "/move"), s.member, map[string]any{"parent_id": childID})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPatch, idPath("/api/wikis", childID, ""), s.viewer, map[string]any{"content": "x"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, idPath("/api/wikis", childID, ""), s.member, map[string]any{"content": "updated"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("updated", s.decode(w)["content"])

	w = s.do(http.MethodDelete, idPath("/api/wikis", rootID, ""), s.member, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, s.wsPath("/wikis/getting-started-2"), s.member, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *ContentHandlerTestSuite) TestGoals() {
	w := s.do(http.MethodPost, s.wsPath("/goals"), s.member, map[string]any{
		"title":        "Ship v2",
		"target_value": 10,
		"start_date":   "2030-02-01T00:00:00Z",
		"due_date":     "2030-01-01T00:00:00Z",
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, s.wsPath("/goals"), s.member, map[string]any{"title": "Ship v2", "target_value": 8})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	goal := s.decode(w)
	s.Equal(string(models.GoalStatusDraft), goal["status"])
	goalID := jsonID(goal["id"])

	w = s.do(http.MethodPatch, idPath("/api/goals", goalID, ""), s.member, map[string]any{"current_value": 2, "status": "active"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	goal = s.decode(w)
	s.EqualValues(25, goal["progress"])

	w = s.do(http.MethodPatch, idPath("/api/goals", goalID, ""), s.viewer, map[string]any{"current_value": 8})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, s.wsPath("/goals?status=active"), s.viewer, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	goals := s.decodeList(w)
	s.Require().Len(goals, 1)
	_, hasOwner := goals[0].(map[string]any)["owner"]
	s.True(hasOwner)

	w = s.do(http.MethodGet, s.wsPath("/goals?status=draft"), s.viewer, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Empty(s.decodeList(w))

	w = s.do(http.MethodDelete, idPath("/api/goals", goalID, ""), s.owner, nil)
	s.Equal(http.StatusNoContent, w.Code)
}

func (s *ContentHandlerTestSuite) TestCommentsReactionsAndMentions() {
	w := s.do(http.MethodPost, "/api/tasks", s.member, map[string]any{"workspace_id": s.ws.ID, "title": "discuss"})
	s.Require().Equal(http.StatusCreated, w.Code)
	taskID := jsonID(s.decode(w)["id"])

	comment := map[string]any{"subject_type": "task", "subject_id": taskID, "body": "ping @" + s.member.Username + " and @nobody"}
	w = s.do(http.MethodPost, "/api/comments", s.viewer, comment)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/comments", s.outsider, comment)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/comments", s.member, map[string]any{"subject_type": "invoice", "subject_id": 1, "body": "x"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, "/api/comments", s.member, map[string]any{"subject_type": "bogus", "subject_id": 1, "body": "x"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/comments", s.owner, comment)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	commentID := jsonID(s.decode(w)["id"])

	w = s.do(http.MethodPost, "/api/comments", s.member, map[string]any{
		"subject_type": "task", "subject_id": taskID, "parent_id": commentID, "body": "pong",
	})
	s.Require().Equal(http.StatusCreated, w.Code)
	s.Equal(false, s.decode(w)["is_root"])

	w = s.do(http.MethodGet, "/api/comments?subject_type=task&subject_id="+strconv.FormatUint(taskID, 10), s.viewer, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	list := s.decode(w)
	s.EqualValues(2, list["total_count"])
	first := list["items"].([]any)[0].(map[string]any)
	_, hasAuthor := first["author"]
	s.True(hasAuthor)

	w = s.do(http.MethodPatch, idPath("/api/comments", commentID, ""), s.member, map[string]any{"body": "edited"})
	s.Equal(http.StatusForbidden, w.Code)
	w = s.do(http.MethodPatch, idPath("/api/comments", commentID, ""), s.owner, map[string]any{"body": "edited, still for @" + s.member.Username})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(true, s.decode(w)["is_edited"])

	reaction := map[string]any{"target_type": "comment", "target_id": commentID, "type": "+1"}
	w = s.do(http.MethodPost, "/api/reactions", s.viewer, reaction)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal(true, s.decode(w)["added"])
	w = s.do(http.MethodPost, "/api/reactions", s.viewer, reaction)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(false, s.decode(w)["added"])

	w = s.do(http.MethodPost, "/api/reactions", s.viewer, map[string]any{"target_type": "task", "target_id": taskID, "type": "+1"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodGet, "/api/mentions?unread=true", s.member, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	mentions := s.decode(w)
	s.EqualValues(1, mentions["total_count"])
	items := mentions["items"].([]any)
	s.Require().Len(items, 1)
	mentionID := jsonID(items[0].(map[string]any)["id"])

	w = s.do(http.MethodPost, idPath("/api/mentions", mentionID, "/read"), s.viewer, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, idPath("/api/mentions", mentionID, "/read"), s.member, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/mentions?unread=true", s.member, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.EqualValues(0, s.decode(w)["total_count"])

	w = s.do(http.MethodDelete, idPath("/api/comments", commentID, ""), s.viewer, nil)
	s.Equal(http.StatusForbidden, w.Code)
	w = s.do(http.MethodDelete, idPath("/api/comments", commentID, ""), s.owner, nil)
	s.Equal(http.StatusNoContent, w.Code)
}

func (s *ContentHandlerTestSuite) TestConversations() {
	w := s.do(http.MethodPost, s.wsPath("/conversations"), s.member, map[string]any{
		"is_direct": true, "participant_ids": []uint64{s.viewer.ID, s.owner.ID},
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, s.wsPath("/conversations"), s.member, map[string]any{
		"title": "standup", "participant_ids": []uint64{s.outsider.ID},
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, s.wsPath("/conversations"), s.member, map[string]any{
		"title": "standup", "participant_ids": []uint64{s.member.ID},
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	conv := s.decode(w)
	convID := jsonID(conv["id"])
	s.Len(conv["participants"], 1)

	base := idPath("/api/conversations", convID, "")

	w = s.do(http.MethodGet, base, s.viewer, nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, base, s.owner, nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, base+"/participants", s.member, map[string]any{"user_id": s.viewer.ID})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	w = s.do(http.MethodPost, base+"/participants", s.member, map[string]any{"user_id": s.viewer.ID})
	s.Equal(http.StatusConflict, w.Code)
	w = s.do(http.MethodPost, base+"/participants", s.viewer, map[string]any{"user_id": s.owner.ID})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, s.wsPath("/conversations"), s.viewer, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(s.decodeList(w), 1)

	w = s.do(http.MethodPost, base+"/messages", s.viewer, map[string]any{"body": "hi @" + s.member.Username})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	msgID := jsonID(s.decode(w)["id"])

	w = s.do(http.MethodPost, base+"/messages", s.owner, map[string]any{"body": "lurking"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, base+"/messages", s.member, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.EqualValues(1, s.decode(w)["total_count"])

	w = s.do(http.MethodPost, base+"/read", s.member, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.NotEmpty(s.decode(w)["last_read_at"])

	w = s.do(http.MethodPatch, base+"/participants/"+strconv.FormatUint(s.member.ID, 10), s.viewer, map[string]any{"status": "muted"})
	s.Equal(http.StatusForbidden, w.Code)
	w = s.do(http.MethodPatch, base+"/participants/"+strconv.FormatUint(s.viewer.ID, 10), s.viewer, map[string]any{"status": "asleep"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	w = s.do(http.MethodPatch, base+"/participants/"+strconv.FormatUint(s.viewer.ID, 10), s.viewer, map[string]any{"status": "left"})
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodPost, base+"/messages", s.viewer, map[string]any{"body": "still here?"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, idPath("/api/messages", msgID, ""), s.member, nil)
	s.Equal(http.StatusNoContent, w.Code)
}
