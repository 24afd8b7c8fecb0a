package constants

// Context keys shared by middleware and handlers
const (
	ContextKeyUserID    = "user_id"
	ContextKeyActor     = "actor"
	ContextKeyWorkspace = "workspace"
	ContextKeyMember    = "workspace_member"
	ContextKeyRequestID = "request_id"
)

// Auth
const (
	MinPasswordLength = 8
	SessionCookieName = "workspace_session"
	SessionMaxAge     = 86400 * 7
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AI
const (
	MaxAIGeneratedTasks = 10
)

// Webhooks
const (
	MaxWebhookAttempts   = 5
	WebhookSecretBytes   = 32
	WebhookBatchSize     = 50
	WebhookSignatureHead = "X-Webhook-Signature"
	WebhookEventHead     = "X-Webhook-Event"
	WebhookDeliveryHead  = "X-Webhook-Delivery"
)

// Attachments
const (
	MaxAttachmentSize = 25 << 20
)

// Preferences
const (
	MaxPreferenceKeyLength = 100
)

// Presentation
const (
	PathSeparator = " > "
)
