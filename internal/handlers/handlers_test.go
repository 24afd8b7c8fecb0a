package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/constants"
	"github.com/yukikurage/workspace-api/internal/graph"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/repository"
	"github.com/yukikurage/workspace-api/internal/services"
	"github.com/yukikurage/workspace-api/internal/testutil"
	"github.com/yukikurage/workspace-api/internal/webhooks"
	"gorm.io/gorm"
)

// testUserHeader lets tests act as a user without going through login.
const testUserHeader = "X-Test-User"

// HandlerTestSuite serves the full route table over an in-memory database.
type HandlerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine

	owner    *models.User
	member   *models.User
	viewer   *models.User
	outsider *models.User
	ws       *models.Workspace
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.db = testutil.NewDB(s.T())

	s.owner = testutil.CreateUser(s.T(), s.db, "owner")
	s.member = testutil.CreateUser(s.T(), s.db, "member")
	s.viewer = testutil.CreateUser(s.T(), s.db, "viewer")
	s.outsider = testutil.CreateUser(s.T(), s.db, "outsider")

	s.ws = testutil.CreateWorkspace(s.T(), s.db, "Acme", s.owner)
	testutil.AddMember(s.T(), s.db, s.ws, s.member, models.RoleMember)
	testutil.AddMember(s.T(), s.db, s.ws, s.viewer, models.RoleViewer)

	s.router = newTestRouter(s.db, nil)
}

// newTestRouter wires every service the way cmd/server does, minus Redis,
// object storage and the AI client.
func newTestRouter(db *gorm.DB, generator services.TaskGenerator) *gin.Engine {
	eval := authz.NewEvaluator()
	resolver := graph.NewResolver(db)

	users := repository.NewUserRepository(db)
	workspaces := repository.NewWorkspaceRepository(db)
	tasks := repository.NewTaskRepository(db)
	webhookRepo := repository.NewWebhookRepository(db)
	mentions := repository.NewStore[models.Mention](db)

	dispatcher := webhooks.NewDispatcher(webhookRepo, nil, 0)
	activity := services.NewActivityService(
		repository.NewStore[models.ActivityLog](db),
		repository.NewStore[models.AuditLog](db),
		dispatcher,
	)
	actors := services.NewActorService(users, workspaces, nil)

	h := Handlers{
		Auth:      NewAuthHandler(services.NewAuthService(users)),
		Workspace: NewWorkspaceHandler(services.NewWorkspaceService(workspaces, repository.NewStore[models.Project](db), actors, activity, eval), eval),
		Task:      NewTaskHandler(services.NewTaskService(tasks, repository.NewStore[models.Tag](db), resolver, activity, eval, generator), eval),
		Pipeline: NewPipelineHandler(services.NewPipelineService(
			repository.NewStore[models.Pipeline](db),
			repository.NewStore[models.PipelineStatus](db),
			repository.NewStore[models.TaskPipeline](db),
			tasks, activity, eval,
		)),
		Wiki: NewWikiHandler(services.NewWikiService(repository.NewWikiRepository(db), resolver, activity, eval), eval),
		Goal: NewGoalHandler(services.NewGoalService(repository.NewStore[models.Goal](db), workspaces, activity, eval), eval),
		Comment: NewCommentHandler(services.NewCommentService(
			repository.NewCommentRepository(db),
			repository.NewStore[models.Reaction](db),
			mentions, users, workspaces, resolver, activity, eval,
		), eval),
		Conversation: NewConversationHandler(services.NewConversationService(
			repository.NewConversationRepository(db),
			repository.NewStore[models.Message](db),
			mentions, users, workspaces, activity, eval,
		), eval),
		Billing:    NewBillingHandler(services.NewBillingService(repository.NewStore[models.Invoice](db), activity, eval), eval),
		Setting:    NewSettingHandler(services.NewSettingService(repository.NewStore[models.Setting](db), activity, eval), eval),
		Webhook:    NewWebhookHandler(services.NewWebhookService(webhookRepo, activity, eval), eval),
		Recurring:  NewRecurringHandler(services.NewRecurringService(repository.NewRecurringRepository(db), tasks, activity, eval), eval),
		Preference: NewPreferenceHandler(services.NewPreferenceService(repository.NewStore[models.UserPreference](db))),
		Attachment: NewAttachmentHandler(services.NewAttachmentService(repository.NewStore[models.Attachment](db), nil, resolver, activity, eval)),
		Activity:   NewActivityHandler(activity, eval),
		Entity:     NewEntityHandler(services.NewEntityService(resolver, eval)),
	}

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	r.Use(func(c *gin.Context) {
		if raw := c.GetHeader(testUserHeader); raw != "" {
			id, _ := strconv.ParseUint(raw, 10, 64)
			sessions.Default(c).Set(constants.ContextKeyUserID, id)
		}
		c.Next()
	})
	RegisterRoutes(r, h, actors)
	return r
}

// do sends a JSON request as user (nil for anonymous).
func (s *HandlerTestSuite) do(method, path string, user *models.User, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequestWithContext(context.Background(), method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set(testUserHeader, strconv.FormatUint(user.ID, 10))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// decode unmarshals the response body into a generic map.
func (s *HandlerTestSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *HandlerTestSuite) decodeList(w *httptest.ResponseRecorder) []any {
	var out []any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *HandlerTestSuite) wsPath(suffix string) string {
	return "/api/workspaces/" + strconv.FormatUint(s.ws.ID, 10) + suffix
}

func idPath(prefix string, id uint64, suffix string) string {
	return prefix + "/" + strconv.FormatUint(id, 10) + suffix
}

// jsonID reads a numeric id decoded from JSON.
func jsonID(v any) uint64 {
	f, _ := v.(float64)
	return uint64(f)
}
