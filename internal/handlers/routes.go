package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/middleware"
)

// Handlers groups every handler the API exposes.
type Handlers struct {
	Auth         *AuthHandler
	Workspace    *WorkspaceHandler
	Task         *TaskHandler
	Pipeline     *PipelineHandler
	Wiki         *WikiHandler
	Goal         *GoalHandler
	Comment      *CommentHandler
	Conversation *ConversationHandler
	Billing      *BillingHandler
	Setting      *SettingHandler
	Webhook      *WebhookHandler
	Recurring    *RecurringHandler
	Preference   *PreferenceHandler
	Attachment   *AttachmentHandler
	Activity     *ActivityHandler
	Entity       *EntityHandler
}

// RegisterRoutes mounts the API on r. Session middleware must already be
// installed on r.
func RegisterRoutes(r *gin.Engine, h Handlers, actors middleware.ActorLoader) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Workspace API is running",
		})
	})

	api := r.Group("/api")

	// Auth routes (public)
	auth := api.Group("/auth")
	{
		auth.POST("/signup", h.Auth.Signup)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)
		auth.GET("/me", middleware.Authenticate(actors), h.Auth.GetCurrentUser)
		auth.POST("/password", middleware.Authenticate(actors), h.Auth.ChangePassword)
	}

	authed := api.Group("")
	authed.Use(middleware.Authenticate(actors), middleware.RequestMeta())

	workspaces := authed.Group("/workspaces")
	{
		workspaces.POST("", h.Workspace.CreateWorkspace)
		workspaces.GET("", h.Workspace.ListWorkspaces)
		workspaces.POST("/join", h.Workspace.JoinWorkspace)
	}

	ws := workspaces.Group("/:id")
	ws.Use(middleware.RequireWorkspaceAccess())
	{
		ws.GET("", h.Workspace.GetWorkspace)
		ws.PATCH("", h.Workspace.UpdateWorkspace)
		ws.DELETE("", h.Workspace.DeleteWorkspace)
		ws.POST("/invite-code", middleware.RequireWorkspacePermission(authz.PermManageMembers), h.Workspace.RegenerateInviteCode)
		ws.PUT("/members/:userId", middleware.RequireWorkspacePermission(authz.PermManageMembers), h.Workspace.ChangeMemberRole)
		ws.DELETE("/members/:userId", h.Workspace.RemoveMember)

		ws.GET("/teams", h.Workspace.ListTeams)
		ws.POST("/teams", h.Workspace.CreateTeam)
		ws.GET("/projects", h.Workspace.ListProjects)
		ws.POST("/projects", h.Workspace.CreateProject)
		ws.GET("/tags", h.Task.ListTags)
		ws.POST("/tags", h.Task.CreateTag)
		ws.GET("/pipelines", h.Pipeline.ListPipelines)
		ws.POST("/pipelines", h.Pipeline.CreatePipeline)
		ws.GET("/wikis", h.Wiki.ListWikis)
		ws.POST("/wikis", h.Wiki.CreateWiki)
		ws.GET("/wikis/:slug", h.Wiki.GetWikiBySlug)
		ws.GET("/goals", h.Goal.ListGoals)
		ws.POST("/goals", h.Goal.CreateGoal)
		ws.GET("/conversations", h.Conversation.ListConversations)
		ws.POST("/conversations", h.Conversation.CreateConversation)
		ws.GET("/recurring-tasks", h.Recurring.ListRecurring)
		ws.POST("/recurring-tasks", h.Recurring.CreateRecurring)
		ws.GET("/activity", h.Activity.ListActivity)
		ws.GET("/audit-logs", h.Activity.ListAudit)

		ws.GET("/settings", h.Setting.ListSettings)
		ws.GET("/settings/:key", h.Setting.GetSetting)
		ws.PUT("/settings/:key", h.Setting.SetSetting)
		ws.DELETE("/settings/:key", h.Setting.DeleteSetting)

		billing := ws.Group("/invoices", middleware.RequireWorkspacePermission(authz.PermManageBilling))
		billing.GET("", h.Billing.ListInvoices)
		billing.POST("", h.Billing.CreateInvoice)

		hooks := ws.Group("/webhooks", middleware.RequireWorkspacePermission(authz.PermManageWebhooks))
		hooks.GET("", h.Webhook.ListWebhooks)
		hooks.POST("", h.Webhook.CreateWebhook)
	}

	teams := authed.Group("/teams/:teamId")
	{
		teams.POST("/members", h.Workspace.AddTeamMember)
		teams.DELETE("/members/:userId", h.Workspace.RemoveTeamMember)
	}
	authed.PATCH("/projects/:projectId", h.Workspace.SetProjectStatus)

	tasks := authed.Group("/tasks")
	{
		tasks.GET("", h.Task.ListTasks)
		tasks.POST("", h.Task.CreateTask)
		tasks.POST("/generate", h.Task.GenerateTasks)
		tasks.GET("/:taskId", h.Task.GetTask)
		tasks.PATCH("/:taskId", h.Task.UpdateTask)
		tasks.DELETE("/:taskId", h.Task.DeleteTask)
		tasks.POST("/:taskId/move", h.Task.MoveTask)
		tasks.POST("/:taskId/toggle", h.Task.ToggleTaskStatus)
		tasks.POST("/:taskId/suggest-subtasks", h.Task.SuggestSubtasks)
		tasks.POST("/:taskId/dependencies", h.Task.AddDependency)
		tasks.DELETE("/:taskId/dependencies/:dependsOnId", h.Task.RemoveDependency)
		tasks.POST("/:taskId/tags/:tagId", h.Task.AddTag)
		tasks.DELETE("/:taskId/tags/:tagId", h.Task.RemoveTag)
	}

	pipelines := authed.Group("/pipelines/:pipelineId")
	{
		pipelines.DELETE("", h.Pipeline.DeletePipeline)
		pipelines.POST("/statuses", h.Pipeline.AddStatus)
		pipelines.PUT("/tasks/:taskId", h.Pipeline.PlaceTask)
	}
	authed.DELETE("/pipeline-statuses/:statusId", h.Pipeline.DeleteStatus)

	wikis := authed.Group("/wikis/:wikiId")
	{
		wikis.PATCH("", h.Wiki.UpdateWiki)
		wikis.DELETE("", h.Wiki.DeleteWiki)
		wikis.POST("/move", h.Wiki.MoveWiki)
	}

	authed.PATCH("/goals/:goalId", h.Goal.UpdateGoal)
	authed.DELETE("/goals/:goalId", h.Goal.DeleteGoal)

	comments := authed.Group("/comments")
	{
		comments.GET("", h.Comment.ListComments)
		comments.POST("", h.Comment.CreateComment)
		comments.PATCH("/:commentId", h.Comment.UpdateComment)
		comments.DELETE("/:commentId", h.Comment.DeleteComment)
	}
	authed.POST("/reactions", h.Comment.ToggleReaction)
	authed.GET("/mentions", h.Comment.ListMentions)
	authed.POST("/mentions/:mentionId/read", h.Comment.MarkMentionRead)

	convs := authed.Group("/conversations/:conversationId")
	{
		convs.GET("", h.Conversation.GetConversation)
		convs.POST("/participants", h.Conversation.AddParticipant)
		convs.PATCH("/participants/:userId", h.Conversation.UpdateParticipantStatus)
		convs.POST("/read", h.Conversation.MarkRead)
		convs.GET("/messages", h.Conversation.ListMessages)
		convs.POST("/messages", h.Conversation.PostMessage)
	}
	authed.DELETE("/messages/:messageId", h.Conversation.DeleteMessage)

	invoices := authed.Group("/invoices/:invoiceId")
	{
		invoices.DELETE("", h.Billing.DeleteInvoice)
		invoices.POST("/pay", h.Billing.MarkPaid)
		invoices.POST("/void", h.Billing.VoidInvoice)
	}

	// System settings, platform admins only
	settings := authed.Group("/settings")
	{
		settings.GET("", h.Setting.ListSettings)
		settings.GET("/:key", h.Setting.GetSetting)
		settings.PUT("/:key", h.Setting.SetSetting)
		settings.DELETE("/:key", h.Setting.DeleteSetting)
	}

	hooks := authed.Group("/webhooks/:webhookId")
	{
		hooks.GET("", h.Webhook.GetWebhook)
		hooks.PATCH("", h.Webhook.UpdateWebhook)
		hooks.DELETE("", h.Webhook.DeleteWebhook)
		hooks.POST("/rotate-secret", h.Webhook.RotateSecret)
		hooks.POST("/ping", h.Webhook.Ping)
		hooks.GET("/deliveries", h.Webhook.ListDeliveries)
	}
	authed.POST("/webhook-deliveries/:deliveryId/retry", h.Webhook.RetryDelivery)

	authed.PATCH("/recurring-tasks/:recurringId", h.Recurring.SetActive)
	authed.DELETE("/recurring-tasks/:recurringId", h.Recurring.DeleteRecurring)

	prefs := authed.Group("/preferences")
	{
		prefs.GET("", h.Preference.ListPreferences)
		prefs.GET("/:key", h.Preference.GetPreference)
		prefs.PUT("/:key", h.Preference.SetPreference)
		prefs.DELETE("/:key", h.Preference.DeletePreference)
	}

	attachments := authed.Group("/attachments")
	{
		attachments.GET("", h.Attachment.ListAttachments)
		attachments.POST("", h.Attachment.Upload)
		attachments.GET("/:attachmentId/download", h.Attachment.Download)
		attachments.DELETE("/:attachmentId", h.Attachment.DeleteAttachment)
	}

	authed.GET("/entities/:kind/:entityId", h.Entity.GetEntity)
	authed.GET("/entities/:kind/:entityId/can/:action", h.Entity.CheckPermission)
	authed.GET("/relations/:kind", h.Entity.ListRelations)
}
