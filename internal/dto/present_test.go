package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
	"gorm.io/datatypes"
)

const testWorkspaceID uint64 = 3

var testNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func contextFor(role models.Role) Context {
	return Context{
		Actor: &authz.Actor{
			UserID:         1,
			WorkspaceRoles: map[uint64]models.Role{testWorkspaceID: role},
		},
		Eval: authz.NewEvaluator(),
		Now:  testNow,
	}
}

func presentJSON(t *testing.T, node *graph.Node, pc Context) map[string]any {
	t.Helper()
	out, err := Present(node, pc)
	require.NoError(t, err)
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func auditEntry() *models.AuditLog {
	ws := testWorkspaceID
	return &models.AuditLog{
		ID:            9,
		WorkspaceID:   &ws,
		Event:         "updated",
		AuditableType: models.KindTask,
		AuditableID:   4,
		OldValues:     datatypes.JSON(`{"title":"old"}`),
		NewValues:     datatypes.JSON(`{"title":"new"}`),
		IPAddress:     "10.0.0.1",
		UserAgent:     "curl/8",
		CreatedAt:     testNow.Add(-time.Hour),
	}
}

func TestPresent_AuditLogFieldGating(t *testing.T) {
	sensitive := []string{"ip_address", "user_agent", "old_values", "new_values"}

	hidden := presentJSON(t, graph.NewNode(auditEntry()), contextFor(models.RoleMember))
	for _, key := range sensitive {
		_, ok := hidden[key]
		assert.False(t, ok, "%s should be absent", key)
	}
	assert.Equal(t, "updated", hidden["event"])

	shown := presentJSON(t, graph.NewNode(auditEntry()), contextFor(models.RoleAdmin))
	assert.Equal(t, "10.0.0.1", shown["ip_address"])
	assert.Equal(t, "curl/8", shown["user_agent"])
	assert.Equal(t, map[string]any{"title": "old"}, shown["old_values"])
	assert.Equal(t, map[string]any{"title": "new"}, shown["new_values"])
}

func TestPresent_ActivityLogFieldGating(t *testing.T) {
	ws := testWorkspaceID
	entry := &models.ActivityLog{ID: 1, WorkspaceID: &ws, SubjectType: models.KindTask, SubjectID: 2, Action: "created", IPAddress: "10.0.0.2"}

	hidden := presentJSON(t, graph.NewNode(entry), contextFor(models.RoleViewer))
	assert.NotContains(t, hidden, "ip_address")
	assert.NotContains(t, hidden, "old_values")

	shown := presentJSON(t, graph.NewNode(entry), contextFor(models.RoleOwner))
	assert.Equal(t, "10.0.0.2", shown["ip_address"])
	assert.Contains(t, shown, "old_values")
	assert.Nil(t, shown["old_values"])
}

func TestPresent_TaskRelationsOnlyWhenLoaded(t *testing.T) {
	due := testNow.Add(-24 * time.Hour)
	task := &models.Task{
		ID:               5,
		WorkspaceID:      testWorkspaceID,
		CreatorID:        1,
		Title:            "Write report",
		Status:           models.TaskStatusInProgress,
		DueDate:          &due,
		TimeSpentSeconds: 5400,
		CreatedAt:        testNow.Add(-2 * time.Hour),
	}

	bare := presentJSON(t, graph.NewNode(task), contextFor(models.RoleMember))
	for _, key := range []string{"creator", "assignee", "children", "tags", "full_path", "depth"} {
		assert.NotContains(t, bare, key)
	}
	assert.Equal(t, true, bare["is_overdue"])
	assert.Equal(t, true, bare["is_root"])
	assert.Equal(t, "2 hours ago", bare["time_ago"])
	assert.Equal(t, "1 hour", bare["time_spent_formatted"])

	loaded := presentJSON(t, graph.NewNode(task, "assignee", "children", "tags"), contextFor(models.RoleMember))
	assert.Contains(t, loaded, "assignee")
	assert.Nil(t, loaded["assignee"])
	assert.Equal(t, []any{}, loaded["children"])
	assert.Equal(t, []any{}, loaded["tags"])
	assert.NotContains(t, loaded, "creator")
}

func TestPresent_TaskPivotColumns(t *testing.T) {
	task := &models.Task{
		ID:          5,
		WorkspaceID: testWorkspaceID,
		Pipelines: []models.TaskPipeline{{
			TaskID:     5,
			PipelineID: 2,
			StatusID:   7,
			Order:      3,
			Pipeline:   &models.Pipeline{ID: 2, WorkspaceID: testWorkspaceID, Name: "Sprint"},
			Status:     &models.PipelineStatus{ID: 7, PipelineID: 2, Name: "Review"},
		}},
	}

	m := presentJSON(t, graph.NewNode(task, "pipelines"), contextFor(models.RoleMember))
	pipelines := m["pipelines"].([]any)
	require.Len(t, pipelines, 1)
	p := pipelines[0].(map[string]any)
	assert.Equal(t, "Sprint", p["name"])
	assert.Equal(t, float64(3), p["order"])
	assert.Equal(t, float64(7), p["status_id"])
	assert.Equal(t, "Review", p["status"].(map[string]any)["name"])
}

func TestPresent_WorkspaceMembersCarryPivot(t *testing.T) {
	joined := testNow.Add(-48 * time.Hour)
	ws := &models.Workspace{
		ID:         testWorkspaceID,
		Name:       "Acme",
		InviteCode: "secret-code",
		Members: []models.WorkspaceMember{
			{WorkspaceID: testWorkspaceID, UserID: 1, Role: models.RoleOwner, JoinedAt: joined, User: &models.User{ID: 1, Username: "alice"}},
		},
	}

	m := presentJSON(t, graph.NewNode(ws, "members"), contextFor(models.RoleViewer))
	assert.NotContains(t, m, "invite_code")
	members := m["members"].([]any)
	require.Len(t, members, 1)
	member := members[0].(map[string]any)
	assert.Equal(t, "alice", member["username"])
	assert.Equal(t, "owner", member["role"])
	assert.Equal(t, joined.Format(time.RFC3339), member["joined_at"])

	m = presentJSON(t, graph.NewNode(ws), contextFor(models.RoleAdmin))
	assert.Equal(t, "secret-code", m["invite_code"])
}

func TestPresent_WikiFullPath(t *testing.T) {
	homeID := uint64(1)
	home := &models.Wiki{ID: homeID, WorkspaceID: testWorkspaceID, Title: "Home"}
	setup := &models.Wiki{ID: 2, WorkspaceID: testWorkspaceID, ParentID: &homeID, Title: "Setup"}

	node := graph.NewNode(setup, "ancestors")
	node.Ancestors = []models.Hierarchical{home}

	m := presentJSON(t, node, contextFor(models.RoleMember))
	assert.Equal(t, "Home > Setup", m["full_path"])
	assert.Equal(t, float64(1), m["depth"])
	assert.Equal(t, false, m["is_root"])

	root := presentJSON(t, graph.NewNode(home, "ancestors"), contextFor(models.RoleMember))
	assert.Equal(t, "Home", root["full_path"])
	assert.Equal(t, float64(0), root["depth"])
}

func TestPresent_SettingValueGating(t *testing.T) {
	ws := testWorkspaceID
	secret := &models.Setting{ID: 1, WorkspaceID: &ws, Key: "smtp_password", Value: "hunter2", IsSecret: true}
	plain := &models.Setting{ID: 2, WorkspaceID: &ws, Key: "theme", Value: "dark"}

	assert.NotContains(t, presentJSON(t, graph.NewNode(secret), contextFor(models.RoleMember)), "value")
	assert.Equal(t, "hunter2", presentJSON(t, graph.NewNode(secret), contextFor(models.RoleOwner))["value"])
	assert.Equal(t, "dark", presentJSON(t, graph.NewNode(plain), contextFor(models.RoleMember))["value"])
}

func TestPresent_WebhookSecretGating(t *testing.T) {
	hook := &models.Webhook{ID: 1, WorkspaceID: testWorkspaceID, URL: "https://example.com/hook", Secret: "s3cret"}

	assert.NotContains(t, presentJSON(t, graph.NewNode(hook), contextFor(models.RoleManager)), "secret")
	assert.Equal(t, "s3cret", presentJSON(t, graph.NewNode(hook), contextFor(models.RoleAdmin))["secret"])
	assert.Equal(t, []any{}, presentJSON(t, graph.NewNode(hook), contextFor(models.RoleAdmin))["events"])
}

func TestPresent_CommentSubject(t *testing.T) {
	comment := &models.Comment{ID: 4, WorkspaceID: testWorkspaceID, SubjectType: models.KindTask, SubjectID: 8, AuthorID: 1, Body: "hi"}

	gone := graph.NewNode(comment, "subject")
	m := presentJSON(t, gone, contextFor(models.RoleMember))
	assert.Contains(t, m, "subject")
	assert.Nil(t, m["subject"])

	withSubject := graph.NewNode(comment, "subject")
	withSubject.Subject = &models.Task{ID: 8, WorkspaceID: testWorkspaceID, Title: "Parent task"}
	m = presentJSON(t, withSubject, contextFor(models.RoleMember))
	assert.Equal(t, "Parent task", m["subject"].(map[string]any)["title"])

	hidden := graph.NewNode(comment, "subject")
	hidden.Subject = &models.Task{ID: 8, WorkspaceID: 99, Title: "Elsewhere"}
	m = presentJSON(t, hidden, contextFor(models.RoleMember))
	assert.Nil(t, m["subject"])

	assert.NotContains(t, presentJSON(t, graph.NewNode(comment), contextFor(models.RoleMember)), "subject")
}

func TestPresent_GoalProgress(t *testing.T) {
	goal := &models.Goal{ID: 1, WorkspaceID: testWorkspaceID, OwnerID: 1, Status: models.GoalStatusActive, TargetValue: 3, CurrentValue: 2}
	m := presentJSON(t, graph.NewNode(goal), contextFor(models.RoleMember))
	assert.Equal(t, 66.67, m["progress"])
}

func TestPresent_NilNode(t *testing.T) {
	_, err := Present(nil, contextFor(models.RoleMember))
	assert.ErrorIs(t, err, ErrNothingToPresent)
}
